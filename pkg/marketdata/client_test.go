package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type fakeFetcher struct {
	bars  []types.Bar
	err   error
	calls int
}

func (f *fakeFetcher) FetchRange(_ context.Context, symbol string, _ string, _ time.Time, _ time.Time) ([]types.Bar, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	out := make([]types.Bar, len(f.bars))
	for i, bar := range f.bars {
		bar.Symbol = symbol
		out[i] = bar
	}

	return out, nil
}

// ClientTestSuite is a test suite for the Client implementation
type ClientTestSuite struct {
	suite.Suite
	tempDir string
	start   time.Time
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (suite *ClientTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *ClientTestSuite) params() DownloadParams {
	return DownloadParams{
		Symbol:    "BTCUSDT",
		StartDate: suite.start,
		EndDate:   suite.start.AddDate(0, 0, 1),
		Interval:  "1h",
	}
}

func (suite *ClientTestSuite) TestNewClient() {
	tests := []struct {
		name    string
		fetcher RangeFetcher
		config  ClientConfig
		code    errors.ErrorCode
		ok      bool
	}{
		{name: "defaults to parquet", fetcher: &fakeFetcher{}, config: ClientConfig{DataPath: "data"}, ok: true},
		{name: "missing path", fetcher: &fakeFetcher{}, config: ClientConfig{}, code: errors.ErrCodeInvalidConfiguration},
		{name: "unknown format", fetcher: &fakeFetcher{}, config: ClientConfig{DataPath: "data", Format: "json"}, code: errors.ErrCodeInvalidConfiguration},
		{name: "no fetcher", config: ClientConfig{DataPath: "data"}, code: errors.ErrCodeDataSourceUnavailable},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			client, err := NewClient(tc.fetcher, tc.config, nil)
			if tc.ok {
				suite.Require().NoError(err)
				suite.Equal(FormatParquet, client.config.Format)

				return
			}

			suite.True(errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (suite *ClientTestSuite) TestDownload() {
	bars := make([]types.Bar, 24)
	for i := range bars {
		bars[i] = types.NewBar(suite.start.Add(time.Duration(i)*time.Hour), "", 100, 101, 99, 100.5, 5)
	}

	fetcher := &fakeFetcher{bars: bars}

	var progress []float64

	client, err := NewClient(fetcher, ClientConfig{DataPath: filepath.Join(suite.tempDir, "out"), Format: FormatCSV},
		func(current, total float64, message string) {
			suite.Equal(24.0, total)
			suite.Equal("BTCUSDT", message)
			progress = append(progress, current)
		})
	suite.Require().NoError(err)

	path, err := client.Download(context.Background(), suite.params())
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.tempDir, "out", "BTCUSDT_2024-01-01_2024-01-02_1h.csv"), path)
	suite.Len(progress, 24)
	suite.Equal(24.0, progress[23])

	_, err = os.Stat(path)
	suite.NoError(err)
}

func (suite *ClientTestSuite) TestDownloadErrors() {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		params  func(DownloadParams) DownloadParams
		code    errors.ErrorCode
		fetched bool
	}{
		{
			name:    "end before start",
			fetcher: &fakeFetcher{},
			params: func(p DownloadParams) DownloadParams {
				p.EndDate = p.StartDate.Add(-time.Hour)

				return p
			},
			code: errors.ErrCodeInvalidParameter,
		},
		{
			name:    "unsupported interval",
			fetcher: &fakeFetcher{},
			params: func(p DownloadParams) DownloadParams {
				p.Interval = "7m"

				return p
			},
			code: errors.ErrCodeInvalidParameter,
		},
		{
			name:    "fetch failure",
			fetcher: &fakeFetcher{err: errors.New(errors.ErrCodeQueryFailed, "rate limited")},
			params:  func(p DownloadParams) DownloadParams { return p },
			code:    errors.ErrCodeQueryFailed,
			fetched: true,
		},
		{
			name:    "empty range",
			fetcher: &fakeFetcher{},
			params:  func(p DownloadParams) DownloadParams { return p },
			code:    errors.ErrCodeDataNotFound,
			fetched: true,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			client, err := NewClient(tc.fetcher, ClientConfig{DataPath: suite.tempDir}, nil)
			suite.Require().NoError(err)

			_, err = client.Download(context.Background(), tc.params(suite.params()))
			suite.True(errors.HasCode(err, tc.code), "got %v", err)
			suite.Equal(tc.fetched, tc.fetcher.calls == 1)
		})
	}
}
