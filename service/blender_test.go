package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"votemaster-backend/model"
)

func TestBlendDisplayedResults_Percentage(t *testing.T) {
	tests := []struct {
		name       string
		displayed  []float64
		votedIndex int
		expected   []float64
	}{
		{
			name:       "two options",
			displayed:  []float64{60, 40},
			votedIndex: 0,
			expected:   []float64{61, 39},
		},
		{
			name:       "three options residual lands on voted",
			displayed:  []float64{50, 30, 20},
			votedIndex: 2,
			expected:   []float64{50, 30, 20},
		},
		{
			name:       "voted option capped at 100",
			displayed:  []float64{100, 0},
			votedIndex: 0,
			expected:   []float64{100, 0},
		},
		{
			name:       "other options floored at zero",
			displayed:  []float64{99.5, 0.5},
			votedIndex: 0,
			expected:   []float64{100, 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BlendDisplayedResults(tc.displayed, model.ResultModePercentage, tc.votedIndex)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestBlendDisplayedResults_SumsToHundred(t *testing.T) {
	distributions := [][]float64{
		{60, 40},
		{50, 30, 20},
		{25, 25, 25, 25},
		{70, 10, 10, 5, 5},
		{33.4, 33.3, 33.3},
	}

	for _, displayed := range distributions {
		for voted := range displayed {
			got := BlendDisplayedResults(displayed, model.ResultModePercentage, voted)

			var sum float64
			for _, v := range got {
				sum += v
			}
			assert.InDelta(t, 100, sum, 1e-9, "displayed=%v voted=%d", displayed, voted)
		}
	}
}

func TestBlendDisplayedResults_Count(t *testing.T) {
	got := BlendDisplayedResults([]float64{12, 7, 3}, model.ResultModeCount, 1)
	assert.Equal(t, []float64{12, 8, 3}, got)
}

func TestBlendDisplayedResults_NoVoteIsIdentity(t *testing.T) {
	displayed := []float64{50, 30, 20}

	assert.Equal(t, displayed, BlendDisplayedResults(displayed, model.ResultModePercentage, -1))
	assert.Equal(t, displayed, BlendDisplayedResults(displayed, model.ResultModePercentage, 3))
	assert.Equal(t, displayed, BlendDisplayedResults(displayed, model.ResultModeCount, -1))
}

func TestBlendDisplayedResults_DoesNotMutateInput(t *testing.T) {
	displayed := []float64{60, 40}
	_ = BlendDisplayedResults(displayed, model.ResultModePercentage, 0)
	assert.Equal(t, []float64{60, 40}, displayed)
}
