// ABOUTME: Sparkline widget renders mini trend charts using block characters
// ABOUTME: Shows the history of a student's grades on the 0-100 scale

package widgets

import (
	"github.com/charmbracelet/lipgloss"
)

// SparklineBlocks are the Unicode block characters for different heights
var SparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a compact trend visualization scaled between lo and hi.
// values are ordered oldest first.
func Sparkline(values []float64, width int, lo, hi float64, color lipgloss.Color) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	sampled := sampleValues(values, width)

	result := make([]rune, len(sampled))
	for i, v := range sampled {
		result[i] = valueToBlock(v, lo, hi)
	}

	style := lipgloss.NewStyle()
	if color != "" {
		style = style.Foreground(color)
	}
	return style.Render(string(result))
}

// GradeTrend renders grades (oldest first) as a sparkline on a fixed 0-100 scale
func GradeTrend(grades []int, width int) string {
	values := make([]float64, len(grades))
	for i, g := range grades {
		values[i] = float64(g)
	}
	if len(values) < width {
		width = len(values)
	}
	return Sparkline(values, width, 0, 100, lipgloss.Color("#7C3AED"))
}

// sampleValues resamples the values slice to the target width
func sampleValues(values []float64, width int) []float64 {
	if len(values) == width {
		return values
	}

	result := make([]float64, width)

	if len(values) < width {
		// Pad with zeros at the beginning
		copy(result[width-len(values):], values)
		return result
	}

	// Keep the most recent values when there are more than fit
	copy(result, values[len(values)-width:])
	return result
}

// valueToBlock converts a value to a block character based on its position in the range
func valueToBlock(value, lo, hi float64) rune {
	if hi <= lo {
		return SparklineBlocks[len(SparklineBlocks)/2]
	}

	normalized := (value - lo) / (hi - lo)
	idx := int(normalized * float64(len(SparklineBlocks)-1))
	idx = max(0, min(idx, len(SparklineBlocks)-1))
	return SparklineBlocks[idx]
}
