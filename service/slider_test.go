package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapSliderToOption(t *testing.T) {
	tests := []struct {
		name        string
		value       float64
		optionCount int
		expected    int
	}{
		{"minimum maps to first option", 10, 4, 0},
		{"maximum clamps to last option", 100, 4, 3},
		{"midpoint of two options", 55, 2, 1},
		{"just below midpoint of two options", 54.9, 2, 0},
		{"three options lower third", 39, 3, 0},
		{"three options middle third", 40, 3, 1},
		{"below range clamps to zero", 0, 4, 0},
		{"above range clamps to last", 150, 4, 3},
		{"single option", 100, 1, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MapSliderToOption(tc.value, tc.optionCount))
		})
	}
}

func TestMapSliderToOption_AlwaysInRange(t *testing.T) {
	for _, count := range []int{1, 2, 3, 5, 10} {
		for value := float64(SliderMin); value <= SliderMax; value += 0.5 {
			index := MapSliderToOption(value, count)
			assert.GreaterOrEqual(t, index, 0)
			assert.Less(t, index, count)
		}
	}
}
