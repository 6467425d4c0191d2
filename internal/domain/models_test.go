package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAssets(t *testing.T) {
	tests := []struct {
		name    string
		assets  []Asset
		wantErr bool
	}{
		{
			name:    "empty list",
			assets:  nil,
			wantErr: true,
		},
		{
			name:    "empty returns",
			assets:  []Asset{{ID: "A"}},
			wantErr: true,
		},
		{
			name: "mismatched lengths",
			assets: []Asset{
				{ID: "A", Returns: []float64{0.01, 0.02}},
				{ID: "B", Returns: []float64{0.01}},
			},
			wantErr: true,
		},
		{
			name: "valid",
			assets: []Asset{
				{ID: "A", Returns: []float64{0.01, 0.02}},
				{ID: "B", Returns: []float64{-0.01, 0.03}},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAssets(tt.assets)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConstraintsBounds(t *testing.T) {
	bounds := DefaultConstraints().Bounds(3)
	require.Len(t, bounds, 3)
	for _, b := range bounds {
		assert.Equal(t, 0.0, b[0])
		assert.Equal(t, 1.0, b[1])
	}

	// Long-only clamps a negative lower bound
	c := Constraints{SumToOne: true, LongOnly: true, MinWeight: -0.5, MaxWeight: 0.4}
	bounds = c.Bounds(2)
	assert.Equal(t, 0.0, bounds[0][0])
	assert.Equal(t, 0.4, bounds[0][1])

	// A zero max weight defaults to fully investable
	c = Constraints{MaxWeight: 0}
	bounds = c.Bounds(1)
	assert.Equal(t, 1.0, bounds[0][1])
}
