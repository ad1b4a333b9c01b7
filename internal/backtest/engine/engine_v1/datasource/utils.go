package datasource

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// MergeAlerts copies bars and sets AlertBuy/AlertSell on every bar whose
// time matches an alert. Flags already present on a bar are kept.
// It returns the merged bars and how many bars received an alert.
func MergeAlerts(bars []types.Bar, alerts []Alert) ([]types.Bar, int) {
	merged := make([]types.Bar, len(bars))
	copy(merged, bars)

	if len(alerts) == 0 {
		return merged, 0
	}

	byTime := make(map[int64][]Alert, len(alerts))
	for _, alert := range alerts {
		key := alert.Time.UnixNano()
		byTime[key] = append(byTime[key], alert)
	}

	matched := 0

	for i := range merged {
		hit := false

		for _, alert := range byTime[merged[i].Time.UnixNano()] {
			if alert.Symbol != "" && merged[i].Symbol != "" && alert.Symbol != merged[i].Symbol {
				continue
			}

			merged[i].AlertBuy = merged[i].AlertBuy || alert.Buy
			merged[i].AlertSell = merged[i].AlertSell || alert.Sell
			hit = true
		}

		if hit {
			matched++
		}
	}

	return merged, matched
}

func inRange(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && t.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && t.After(end.Unwrap()) {
		return false
	}

	return true
}

// readerFor returns the DuckDB table function that scans path.
func readerFor(path string) string {
	escaped := strings.ReplaceAll(path, "'", "''")

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return fmt.Sprintf("read_csv_auto('%s')", escaped)
	default:
		return fmt.Sprintf("read_parquet('%s')", escaped)
	}
}
