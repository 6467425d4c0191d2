package factors

import (
	"sort"

	talib "github.com/markcheno/go-talib"

	"github.com/aristath/portfolio-engine/internal/domain"
)

// predefinedFactors builds the economic factor series: market (equal-weighted
// index), size (small-cap minus large-cap half spread), value (placeholder
// list split) and momentum (rolling winners minus losers).
func (e *Engine) predefinedFactors(assets []domain.Asset) []Factor {
	return []Factor{
		marketFactor(assets),
		sizeFactor(assets),
		valueFactor(assets),
		momentumFactor(assets),
	}
}

// marketFactor is the equal-weighted index return across all assets.
func marketFactor(assets []domain.Asset) Factor {
	observations := len(assets[0].Returns)
	returns := make([]float64, observations)
	for t := 0; t < observations; t++ {
		sum := 0.0
		for _, asset := range assets {
			sum += asset.Returns[t]
		}
		returns[t] = sum / float64(len(assets))
	}
	return Factor{ID: "market", Name: "Market", Type: FactorTypeMarket, Returns: returns}
}

// sizeFactor is the average-return spread between the smaller-cap half of the
// universe and the larger-cap half.
func sizeFactor(assets []domain.Asset) Factor {
	order := make([]int, len(assets))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return assets[order[a]].MarketCap < assets[order[b]].MarketCap
	})

	half := len(assets) / 2
	if half == 0 {
		half = 1
	}
	return Factor{
		ID:      "size",
		Name:    "Size",
		Type:    FactorTypeSize,
		Returns: spreadReturns(assets, order[:half], order[half:]),
	}
}

// valueFactor splits the asset list in half by position. A real value factor
// needs fundamental data (book-to-market) the engine does not receive, so the
// split is a stand-in with the same shape.
func valueFactor(assets []domain.Asset) Factor {
	order := make([]int, len(assets))
	for i := range order {
		order[i] = i
	}
	half := len(assets) / 2
	if half == 0 {
		half = 1
	}
	return Factor{
		ID:      "value",
		Name:    "Value",
		Type:    FactorTypeValue,
		Returns: spreadReturns(assets, order[:half], order[half:]),
	}
}

// momentumFactor ranks assets by their rolling cumulative return and takes the
// spread between the winning and losing halves. The warm-up window, where no
// full rolling sum exists yet, is front-padded with zeros.
func momentumFactor(assets []domain.Asset) Factor {
	n := len(assets)
	observations := len(assets[0].Returns)
	returns := make([]float64, observations)

	if observations <= momentumPeriod || n < 2 {
		return Factor{ID: "momentum", Name: "Momentum", Type: FactorTypeMomentum, Returns: returns}
	}

	rolling := make([][]float64, n)
	for i, asset := range assets {
		rolling[i] = talib.Sum(asset.Returns, momentumPeriod)
	}

	half := n / 2
	order := make([]int, n)
	for t := momentumPeriod; t < observations; t++ {
		for i := range order {
			order[i] = i
		}
		// Rank on momentum up to the previous period so the spread at t is
		// out of sample.
		sort.Slice(order, func(a, b int) bool {
			return rolling[order[a]][t-1] > rolling[order[b]][t-1]
		})

		winners, losers := 0.0, 0.0
		for _, i := range order[:half] {
			winners += assets[i].Returns[t]
		}
		for _, i := range order[n-half:] {
			losers += assets[i].Returns[t]
		}
		returns[t] = winners/float64(half) - losers/float64(half)
	}

	return Factor{ID: "momentum", Name: "Momentum", Type: FactorTypeMomentum, Returns: returns}
}

// spreadReturns is the per-period difference between the average returns of
// two index groups.
func spreadReturns(assets []domain.Asset, long, short []int) []float64 {
	observations := len(assets[0].Returns)
	returns := make([]float64, observations)
	if len(long) == 0 || len(short) == 0 {
		return returns
	}
	for t := 0; t < observations; t++ {
		longAvg, shortAvg := 0.0, 0.0
		for _, i := range long {
			longAvg += assets[i].Returns[t]
		}
		for _, i := range short {
			shortAvg += assets[i].Returns[t]
		}
		returns[t] = longAvg/float64(len(long)) - shortAvg/float64(len(short))
	}
	return returns
}
