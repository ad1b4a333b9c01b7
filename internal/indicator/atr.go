package indicator

import "math"

const DefaultATRLength = 14

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|). The
// first element is high-low since there is no previous close.
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(closes))

	for i := range closes {
		hl := highs[i] - lows[i]
		if i == 0 {
			out[i] = hl

			continue
		}

		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}

	return out
}

// ATR returns the average true range with Wilder smoothing. The first
// length-1 values are NaN and the value at length-1 is the simple mean of the
// first length true ranges.
func ATR(highs, lows, closes []float64, length int) []float64 {
	tr := TrueRange(highs, lows, closes)
	out := make([]float64, len(tr))

	for i := range out {
		out[i] = math.NaN()
	}

	if length <= 0 || len(tr) < length {
		return out
	}

	sum := 0.0
	for i := 0; i < length; i++ {
		sum += tr[i]
	}

	prev := sum / float64(length)
	out[length-1] = prev

	for i := length; i < len(tr); i++ {
		prev = (prev*float64(length-1) + tr[i]) / float64(length)
		out[i] = prev
	}

	return out
}
