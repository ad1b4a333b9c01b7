package indicator

import "math"

const DefaultRSILength = 14

// RSI returns the relative strength index of closes using Wilder smoothing
// (alpha = 1 / length). The first value is NaN since it has no prior close.
func RSI(closes []float64, length int) []float64 {
	n := len(closes)
	out := make([]float64, n)

	if n == 0 {
		return out
	}

	up := make([]float64, n)
	down := make([]float64, n)
	up[0], down[0] = math.NaN(), math.NaN()

	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		up[i] = math.Max(delta, 0)
		down[i] = math.Max(-delta, 0)
	}

	alpha := 1 / float64(length)
	avgUp := EMAAlpha(up, alpha)
	avgDown := EMAAlpha(down, alpha)

	for i := range out {
		if math.IsNaN(avgUp[i]) || math.IsNaN(avgDown[i]) {
			out[i] = math.NaN()

			continue
		}

		loss := avgDown[i]
		if loss == 0 {
			loss = 1e-10
		}

		out[i] = 100 - 100/(1+avgUp[i]/loss)
	}

	return out
}
