// Package indicator computes the oscillator and volatility series the engine
// consumes. All functions are pure and return a slice aligned with the input;
// positions without a defined value hold NaN.
package indicator

import "math"

// EMASpan returns an exponential moving average with alpha = 2 / (span + 1).
func EMASpan(values []float64, span int) []float64 {
	return EMAAlpha(values, 2/(float64(span)+1))
}

// EMAAlpha returns a recursive exponential average seeded with the first
// defined value. Leading NaN inputs stay NaN; a NaN after the seed carries the
// previous average forward.
func EMAAlpha(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	seeded := false
	prev := 0.0

	for i, v := range values {
		if math.IsNaN(v) {
			if seeded {
				out[i] = prev
			} else {
				out[i] = math.NaN()
			}

			continue
		}

		if !seeded {
			prev = v
			seeded = true
		} else {
			prev = alpha*v + (1-alpha)*prev
		}

		out[i] = prev
	}

	return out
}
