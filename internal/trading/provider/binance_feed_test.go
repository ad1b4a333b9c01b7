package tradingprovider

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	argoErrors "github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BinanceBarFeedTestSuite struct {
	suite.Suite
	client *mockBinanceClient
	feed   *BinanceBarFeed
	start  time.Time
}

func TestBinanceBarFeedSuite(t *testing.T) {
	suite.Run(t, new(BinanceBarFeedTestSuite))
}

func (suite *BinanceBarFeedTestSuite) SetupTest() {
	suite.start = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	suite.client = newMockBinanceClient()
	suite.feed = newBinanceBarFeedWithClient(suite.client)
	// the clock sits inside the fourth hourly kline
	suite.feed.now = func() time.Time { return suite.start.Add(3*time.Hour + 30*time.Minute) }
}

// hourlyKlines builds n consecutive hourly klines starting at offset hours.
func (suite *BinanceBarFeedTestSuite) hourlyKlines(offset, n int) []*binance.Kline {
	klines := make([]*binance.Kline, n)
	for i := 0; i < n; i++ {
		open := suite.start.Add(time.Duration(offset+i) * time.Hour)
		price := strconv.Itoa(100 + offset + i)
		klines[i] = &binance.Kline{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.Add(time.Hour).UnixMilli() - 1,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    "10",
		}
	}

	return klines
}

func (suite *BinanceBarFeedTestSuite) TestLatestBarsDropsFormingKline() {
	suite.client.klinesService.pages = [][]*binance.Kline{suite.hourlyKlines(0, 4)}

	bars, err := suite.feed.LatestBars(context.Background(), "BTCUSDT", "1h", 3)
	suite.Require().NoError(err)

	suite.Require().Len(bars, 3)
	suite.Equal([]int{4}, suite.client.klinesService.limits)
	suite.Equal("BTCUSDT", suite.client.klinesService.symbol)
	suite.Equal("1h", suite.client.klinesService.interval)
	suite.Equal(suite.start, bars[0].Time)
	suite.Equal(102.0, bars[2].Close)
	suite.Equal("BTCUSDT", bars[2].Symbol)
}

func (suite *BinanceBarFeedTestSuite) TestLatestBarsTrimsToLimit() {
	suite.feed.now = func() time.Time { return suite.start.Add(24 * time.Hour) }
	suite.client.klinesService.pages = [][]*binance.Kline{suite.hourlyKlines(0, 3)}

	bars, err := suite.feed.LatestBars(context.Background(), "BTCUSDT", "1h", 2)
	suite.Require().NoError(err)

	suite.Require().Len(bars, 2)
	suite.Equal(101.0, bars[0].Close)
}

func (suite *BinanceBarFeedTestSuite) TestLatestBarsErrors() {
	_, err := suite.feed.LatestBars(context.Background(), "BTCUSDT", "1h", 0)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidParameter))

	suite.client.klinesService.err = errors.New("timeout")
	_, err = suite.feed.LatestBars(context.Background(), "BTCUSDT", "1h", 5)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeQueryFailed))
}

func (suite *BinanceBarFeedTestSuite) TestFetchRangePaginates() {
	suite.feed.now = func() time.Time { return suite.start.Add(1000 * time.Hour) }
	first := suite.hourlyKlines(0, binancePageSize)
	second := suite.hourlyKlines(binancePageSize, 10)
	suite.client.klinesService.pages = [][]*binance.Kline{first, second}

	bars, err := suite.feed.FetchRange(context.Background(), "BTCUSDT", "1h", suite.start, suite.start.Add(900*time.Hour))
	suite.Require().NoError(err)

	suite.Len(bars, binancePageSize+10)
	suite.Equal(2, suite.client.klinesService.calls)
	suite.Require().Len(suite.client.klinesService.startTimes, 2)
	suite.Equal(first[len(first)-1].CloseTime+1, suite.client.klinesService.startTimes[1])
}

func (suite *BinanceBarFeedTestSuite) TestFetchRangeInvalidWindow() {
	_, err := suite.feed.FetchRange(context.Background(), "BTCUSDT", "1h", suite.start, suite.start)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidParameter))
}
