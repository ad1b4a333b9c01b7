package tradingprovider

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// binancePageSize is the number of klines Binance returns per request by default.
const binancePageSize = 500

// BinanceBarFeed reads klines from the public market data endpoints.
type BinanceBarFeed struct {
	client BinanceClient
	now    func() time.Time
}

// NewBinanceBarFeed creates a feed. Market data needs no credentials.
func NewBinanceBarFeed(config BinanceProviderConfig) *BinanceBarFeed {
	return newBinanceBarFeedWithClient(newBinanceClient(config))
}

func newBinanceBarFeedWithClient(client BinanceClient) *BinanceBarFeed {
	return &BinanceBarFeed{
		client: client,
		now:    time.Now,
	}
}

// LatestBars returns up to limit closed bars ending at the most recent close.
// The in-progress kline is dropped.
func (f *BinanceBarFeed) LatestBars(ctx context.Context, symbol string, interval string, limit int) ([]types.Bar, error) {
	if limit <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "limit must be positive")
	}

	// one extra for the kline that is still forming
	klines, err := f.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit + 1).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to fetch klines from Binance", err)
	}

	bars := f.closedBars(symbol, klines)
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	return bars, nil
}

// FetchRange pages through klines between start and end.
func (f *BinanceBarFeed) FetchRange(ctx context.Context, symbol string, interval string, start time.Time, end time.Time) ([]types.Bar, error) {
	if !end.After(start) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "end must be after start")
	}

	endMillis := end.UnixMilli()
	current := start.UnixMilli()

	var bars []types.Bar

	for {
		klines, err := f.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(current).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to fetch klines from Binance", err)
		}

		bars = append(bars, f.closedBars(symbol, klines)...)

		if len(klines) < binancePageSize {
			break
		}

		// close time + 1ms avoids duplicating the last kline
		current = klines[len(klines)-1].CloseTime + 1
		if current >= endMillis {
			break
		}
	}

	return bars, nil
}

func (f *BinanceBarFeed) closedBars(symbol string, klines []*binance.Kline) []types.Bar {
	now := f.now().UnixMilli()
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		if k.CloseTime >= now {
			continue
		}

		bars = append(bars, klineToBar(symbol, k))
	}

	return bars
}

// klineToBar uses the open time as the bar timestamp.
func klineToBar(symbol string, k *binance.Kline) types.Bar {
	open, _ := strconv.ParseFloat(k.Open, 64)
	high, _ := strconv.ParseFloat(k.High, 64)
	low, _ := strconv.ParseFloat(k.Low, 64)
	closePrice, _ := strconv.ParseFloat(k.Close, 64)
	volume, _ := strconv.ParseFloat(k.Volume, 64)

	return types.NewBar(time.UnixMilli(k.OpenTime).UTC(), symbol, open, high, low, closePrice, volume)
}
