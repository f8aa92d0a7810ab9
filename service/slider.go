package service

import "math"

// Slider input range exposed by the public poll page.
const (
	SliderMin = 10
	SliderMax = 100
)

// MapSliderToOption quantizes a continuous slider position in [SliderMin,
// SliderMax] into one of optionCount equal-width buckets and returns the
// zero-based option index. The upper bound maps to optionCount before
// clamping (e.g. value=100), so the result is clamped into
// [0, optionCount-1].
func MapSliderToOption(value float64, optionCount int) int {
	if optionCount < 1 {
		return 0
	}
	index := int(math.Floor((value - SliderMin) / (SliderMax - SliderMin) * float64(optionCount)))
	if index < 0 {
		return 0
	}
	if index > optionCount-1 {
		return optionCount - 1
	}
	return index
}
