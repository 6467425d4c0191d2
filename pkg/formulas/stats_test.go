package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeReturns(value float64, count int) []float64 {
	returns := make([]float64, count)
	for i := range returns {
		returns[i] = value
	}
	return returns
}

func TestMeanAndStdDev(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 3.0, Mean(data), 1e-10)
	assert.InDelta(t, 1.5811, StdDev(data), 1e-3) // sample std dev, n-1
	assert.InDelta(t, 2.5, Variance(data), 1e-10)

	assert.Equal(t, 0.0, Mean([]float64{}))
	assert.Equal(t, 0.0, StdDev([]float64{1.0}))
}

func TestCovarianceAndCorrelation(t *testing.T) {
	x := []float64{0.01, -0.02, 0.03, -0.01, 0.02}
	negated := make([]float64, len(x))
	for i, v := range x {
		negated[i] = -v
	}

	assert.InDelta(t, -1.0, Correlation(x, negated), 1e-10)
	assert.InDelta(t, 1.0, Correlation(x, x), 1e-10)
	assert.InDelta(t, -Variance(x), Covariance(x, negated), 1e-12)

	// Mismatched lengths are a no-op, not a panic
	assert.Equal(t, 0.0, Covariance(x, x[:2]))
}

func TestReturnsFromPrices(t *testing.T) {
	prices := []float64{100, 110, 99, 99}
	returns := ReturnsFromPrices(prices)

	assert.Len(t, returns, 3)
	assert.InDelta(t, 0.10, returns[0], 1e-10)
	assert.InDelta(t, -0.10, returns[1], 1e-10)
	assert.InDelta(t, 0.0, returns[2], 1e-10)

	assert.Empty(t, ReturnsFromPrices([]float64{100}))

	// Zero price yields a zero return instead of dividing by zero
	withZero := ReturnsFromPrices([]float64{0, 100})
	assert.Equal(t, 0.0, withZero[0])
}

func TestAnnualizedReturn(t *testing.T) {
	tests := []struct {
		name      string
		returns   []float64
		expected  float64
		tolerance float64
	}{
		{
			name:      "empty returns",
			returns:   []float64{},
			expected:  0.0,
			tolerance: 0.0,
		},
		{
			name:      "one year of small positive returns",
			returns:   makeReturns(0.001, 252),
			expected:  0.286,
			tolerance: 0.01,
		},
		{
			name:      "half year of returns",
			returns:   makeReturns(0.002, 126),
			expected:  0.654, // (1.002^126)^2 - 1
			tolerance: 0.01,
		},
		{
			name:      "very short period uses simple return",
			returns:   []float64{0.01, 0.01},
			expected:  0.0201,
			tolerance: 1e-4,
		},
		{
			name:      "total loss",
			returns:   []float64{-1.0, 0.0, 0.0},
			expected:  -1.0,
			tolerance: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, AnnualizedReturn(tt.returns), tt.tolerance+1e-12)
		})
	}
}

func TestCompoundCurve(t *testing.T) {
	curve := CompoundCurve([]float64{0.10, -0.50, 1.0})

	assert.Len(t, curve, 3)
	assert.InDelta(t, 1.10, curve[0], 1e-10)
	assert.InDelta(t, 0.55, curve[1], 1e-10)
	assert.InDelta(t, 1.10, curve[2], 1e-10)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		curve    []float64
		expected float64
	}{
		{"monotonic rise", []float64{1.0, 1.1, 1.2, 1.3}, 0.0},
		{"single crash", []float64{1.0, 1.5, 0.75, 1.6}, 0.5},
		{"empty curve", []float64{}, 0.0},
		{"trough at end", []float64{1.0, 2.0, 1.0}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, MaxDrawdown(tt.curve), 1e-10)
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	// Constant returns have zero volatility at any horizon
	assert.Equal(t, 0.0, AnnualizedVolatility(makeReturns(0.01, 100)))

	daily := []float64{0.01, -0.01, 0.01, -0.01}
	assert.InDelta(t, StdDev(daily)*15.8745, AnnualizedVolatility(daily), 1e-3)
}
