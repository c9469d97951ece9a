package render

import (
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
)

// niceTicks generates about n tick marks inside [min, max] on a 1/2/2.5/5
// step so axis labels land on round values.
func niceTicks(min, max float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) || max <= min {
		return nil
	}
	span := max - min
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	bestStep := mag
	bestScore := math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		score := math.Abs(math.Floor(span/step) + 1 - float64(n))
		if score < bestScore {
			bestScore = score
			bestStep = step
		}
	}

	start := math.Ceil(min/bestStep-1e-9) * bestStep
	var ticks []chart.Tick
	for i := 0; ; i++ {
		v := start + float64(i)*bestStep
		if v > max+bestStep*1e-9 {
			break
		}
		// Snap -0.0 and float drift so labels read "0.5", not "0.49999999".
		v = math.Round(v/bestStep) * bestStep
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
	}
	return ticks
}

func formatTick(v float64) string {
	if v == 0 {
		return "0.0"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.Trunc(v) == v {
		s += ".0"
	}
	return s
}
