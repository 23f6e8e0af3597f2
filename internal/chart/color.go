package chart

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	hueStart = 236.0
	hueEnd   = 0.0
)

var (
	axisColor = color.Black
	gridColor = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	deadColor = colorful.Hsv(0, 0.6, 0.55)
)

// barColor maps value within [0, maxValue] onto a cold-to-hot hue ramp.
func barColor(value, maxValue float64) color.Color {
	if maxValue <= 0 {
		return colorful.Hsv(hueStart, 0.8, 0.85)
	}

	ratio := math.Min(math.Max(value/maxValue, 0), 1)
	hue := hueStart - ratio*(hueStart-hueEnd)

	return colorful.Hsv(hue, 0.8, 0.85)
}
