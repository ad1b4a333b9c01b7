package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// Alert is an external buy/sell alert keyed by bar time.
type Alert struct {
	Time time.Time
	// Symbol restricts the alert to one symbol. Empty matches any bar.
	Symbol string
	Buy    bool
	Sell   bool
}

type DataSource interface {
	// Initialize loads the bar file at path. Parquet and CSV are supported.
	Initialize(path string) error
	// ReadAll yields bars in ascending time order within the optional range.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool)
	// Count returns the number of bars ReadAll would yield for the same range.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// ReadAlerts loads an alert file with a time column and optional buy, sell and symbol columns.
	ReadAlerts(path string) ([]Alert, error)
	// Close releases any resources held by the data source.
	Close() error
}

// Collect drains ReadAll into a slice.
func Collect(ds DataSource, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error) {
	var bars []types.Bar

	for bar, err := range ds.ReadAll(start, end) {
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	return bars, nil
}
