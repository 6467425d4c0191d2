package riskparity

import (
	"math"

	"github.com/aristath/portfolio-engine/internal/domain"
)

// CalculateHierarchicalRiskParity builds a correlation-distance dendrogram by
// agglomerative clustering and assigns weights by global inverse-volatility.
//
// The distance between assets is d_ij = 1 - corr_ij; clusters are repeatedly
// merged at the smallest average pairwise distance until one remains. Weight
// assignment deliberately skips recursive bisection down the tree in favor of
// inverse-volatility across all assets, matching the behavior of the system
// this engine replaces.
func (e *Engine) CalculateHierarchicalRiskParity(assets []domain.Asset) (*HRPResult, error) {
	if err := domain.ValidateAssets(assets); err != nil {
		return nil, err
	}

	n := len(assets)
	if n == 1 {
		leaf := Cluster{ID: 0, AssetIndices: []int{0}}
		return &HRPResult{
			Weights:    []float64{1.0},
			Leaves:     []Cluster{leaf},
			Dendrogram: leaf,
		}, nil
	}

	covResult, err := e.covariance.CalculateCovarianceMatrix(assets)
	if err != nil {
		return nil, err
	}
	corr, _ := e.covariance.CalculateCorrelationMatrix(covResult.Matrix)

	// Correlation distance: identical assets are at distance 0, perfectly
	// anti-correlated ones at distance 2.
	distance := make([][]float64, n)
	for i := 0; i < n; i++ {
		distance[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			distance[i][j] = 1.0 - corr[i][j]
		}
	}

	leaves := make([]Cluster, n)
	active := make([]Cluster, n)
	for i := 0; i < n; i++ {
		leaves[i] = Cluster{ID: i, AssetIndices: []int{i}}
		active[i] = leaves[i]
	}

	nextID := n
	for len(active) > 1 {
		bestA, bestB := 0, 1
		bestDist := math.Inf(1)
		for a := 0; a < len(active); a++ {
			for b := a + 1; b < len(active); b++ {
				d := averageLinkage(active[a], active[b], distance)
				if d < bestDist {
					bestDist = d
					bestA, bestB = a, b
				}
			}
		}

		merged := Cluster{
			ID:           nextID,
			AssetIndices: append(append([]int{}, active[bestA].AssetIndices...), active[bestB].AssetIndices...),
			Distance:     bestDist,
		}
		nextID++

		// Remove the higher index first so the lower one stays valid.
		active = append(active[:bestB], active[bestB+1:]...)
		active[bestA] = merged
	}

	weights := inverseVolatilityWeights(covResult.Matrix)

	e.log.Debug().
		Int("num_assets", n).
		Float64("final_merge_distance", active[0].Distance).
		Msg("Calculated hierarchical risk parity portfolio")

	return &HRPResult{
		Weights:    weights,
		Leaves:     leaves,
		Dendrogram: active[0],
	}, nil
}

// averageLinkage is the mean pairwise distance between two clusters' members.
func averageLinkage(a, b Cluster, distance [][]float64) float64 {
	total := 0.0
	for _, i := range a.AssetIndices {
		for _, j := range b.AssetIndices {
			total += distance[i][j]
		}
	}
	return total / float64(len(a.AssetIndices)*len(b.AssetIndices))
}

// inverseVolatilityWeights assigns w_i = (1/σ_i) / Σ(1/σ_j) from the
// covariance diagonal. Zero-variance assets get zero weight; if every asset
// is degenerate the allocation falls back to equal weights.
func inverseVolatilityWeights(cov [][]float64) []float64 {
	n := len(cov)
	weights := make([]float64, n)

	totalInverse := 0.0
	for i := 0; i < n; i++ {
		if cov[i][i] > 0 {
			totalInverse += 1.0 / math.Sqrt(cov[i][i])
		}
	}
	if totalInverse == 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(n)
		}
		return weights
	}

	for i := 0; i < n; i++ {
		if cov[i][i] > 0 {
			weights[i] = (1.0 / math.Sqrt(cov[i][i])) / totalInverse
		}
	}
	return weights
}
