package indicator

import "math"

const (
	DefaultChannelLength = 10
	DefaultAverageLength = 21
	waveTrendSignalSpan  = 4
)

// WaveTrend returns the WT1 and WT2 lines computed from a typical-price series.
//
//	esa = ema(src, channel)
//	de  = ema(|src - esa|, channel)
//	ci  = (src - esa) / (0.015 * de)
//	wt1 = ema(ci, average)
//	wt2 = ema(wt1, 4)
func WaveTrend(src []float64, channelLength, averageLength int) (wt1, wt2 []float64) {
	esa := EMASpan(src, channelLength)

	dev := make([]float64, len(src))
	for i := range src {
		dev[i] = math.Abs(src[i] - esa[i])
	}

	de := EMASpan(dev, channelLength)

	ci := make([]float64, len(src))
	for i := range src {
		d := de[i]
		if d == 0 {
			d = 1e-10
		}

		ci[i] = (src[i] - esa[i]) / (0.015 * d)
	}

	wt1 = EMASpan(ci, averageLength)
	wt2 = EMASpan(wt1, waveTrendSignalSpan)

	return wt1, wt2
}
