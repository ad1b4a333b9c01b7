package indicator

import "math"

// RollingMin returns the minimum over a trailing window of size window. The
// first window-1 values are NaN.
func RollingMin(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			m = math.Min(m, v)
		}

		return m
	})
}

// RollingMax returns the maximum over a trailing window of size window.
func RollingMax(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			m = math.Max(m, v)
		}

		return m
	})
}

// RollingStdDev returns the sample standard deviation (n-1) over a trailing window.
func RollingStdDev(values []float64, window int) []float64 {
	return rolling(values, window, StdDev)
}

// PctChange returns (v[i] - v[i-1]) / v[i-1]; the first value is NaN.
func PctChange(values []float64) []float64 {
	out := make([]float64, len(values))

	for i := range values {
		if i == 0 || values[i-1] == 0 {
			out[i] = math.NaN()

			continue
		}

		out[i] = (values[i] - values[i-1]) / values[i-1]
	}

	return out
}

// StdDev is the sample standard deviation of values, ignoring NaN entries.
// Fewer than two defined values yield NaN.
func StdDev(values []float64) float64 {
	mean, count := 0.0, 0

	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}

		mean += v
		count++
	}

	if count < 2 {
		return math.NaN()
	}

	mean /= float64(count)

	sq := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}

		sq += (v - mean) * (v - mean)
	}

	return math.Sqrt(sq / float64(count-1))
}

// LastDefined returns the last non-NaN value of values.
func LastDefined(values []float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i], true
		}
	}

	return math.NaN(), false
}

func rolling(values []float64, window int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(values))

	for i := range values {
		if window <= 0 || i+1 < window {
			out[i] = math.NaN()

			continue
		}

		out[i] = fn(values[i+1-window : i+1])
	}

	return out
}
