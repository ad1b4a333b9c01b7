package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/rxtech-lab/argo-ladder/pkg/marketdata/writer"
)

// Format selects the output file format.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// RangeFetcher returns closed bars for a symbol and interval between start and end.
type RangeFetcher interface {
	FetchRange(ctx context.Context, symbol string, interval string, start time.Time, end time.Time) ([]types.Bar, error)
}

// OnDownloadProgress reports written bars against the total fetched.
type OnDownloadProgress = func(current float64, total float64, message string)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	DataPath string `validate:"required"`
	Format   Format `validate:"required,oneof=parquet csv"`
}

// DownloadParams holds the parameters for a bar download request.
type DownloadParams struct {
	Symbol    string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
	Interval  string    `validate:"required,oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w"`
}

// Client downloads bars from a fetcher and stores them in a file the
// backtest data source can read.
type Client struct {
	fetcher    RangeFetcher
	config     ClientConfig
	validate   *validator.Validate
	onProgress OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
func NewClient(fetcher RangeFetcher, config ClientConfig, onProgress OnDownloadProgress) (*Client, error) {
	if config.Format == "" {
		config.Format = FormatParquet
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	if fetcher == nil {
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "no bar fetcher configured")
	}

	return &Client{
		fetcher:    fetcher,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
	}, nil
}

// Download fetches the requested range and writes it to DataPath. It returns
// the path of the written file.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	bars, err := c.fetcher.FetchRange(ctx, params.Symbol, params.Interval, params.StartDate, params.EndDate)
	if err != nil {
		return "", err
	}

	if len(bars) == 0 {
		return "", errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s between %s and %s",
			params.Symbol, params.StartDate.Format(time.DateOnly), params.EndDate.Format(time.DateOnly))
	}

	if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create data directory", err)
	}

	barWriter := writer.NewDuckDBWriter(c.outputPath(params))
	if err := barWriter.Initialize(); err != nil {
		return "", err
	}
	defer barWriter.Close()

	total := float64(len(bars))

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return "", errors.Wrap(errors.ErrCodeQueryFailed, "download cancelled", err)
		}

		if err := barWriter.Write(bar); err != nil {
			return "", err
		}

		if c.onProgress != nil {
			c.onProgress(float64(i+1), total, params.Symbol)
		}
	}

	return barWriter.Finalize()
}

// outputPath builds SYMBOL_START_END_INTERVAL.<format> under DataPath.
func (c *Client) outputPath(params DownloadParams) string {
	name := fmt.Sprintf("%s_%s_%s_%s.%s",
		params.Symbol,
		params.StartDate.Format(time.DateOnly),
		params.EndDate.Format(time.DateOnly),
		params.Interval,
		c.config.Format)

	return filepath.Join(c.config.DataPath, name)
}
