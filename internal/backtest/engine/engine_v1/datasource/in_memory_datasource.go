package datasource

import (
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// InMemoryDataSource serves bars and alerts registered under a path key.
// It backs tests and callers that already hold bars in memory.
type InMemoryDataSource struct {
	mu      sync.RWMutex
	files   map[string][]types.Bar
	alerts  map[string][]Alert
	current []types.Bar
	loaded  bool
}

func NewInMemoryDataSource() *InMemoryDataSource {
	return &InMemoryDataSource{
		files:  make(map[string][]types.Bar),
		alerts: make(map[string][]Alert),
	}
}

// AddBars registers bars under path. They are sorted by time.
func (ds *InMemoryDataSource) AddBars(path string, bars []types.Bar) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	ds.files[path] = sorted
}

// AddAlerts registers alerts under path.
func (ds *InMemoryDataSource) AddAlerts(path string, alerts []Alert) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.alerts[path] = alerts
}

// Initialize implements DataSource.
func (ds *InMemoryDataSource) Initialize(path string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	bars, ok := ds.files[path]
	if !ok {
		return errors.Newf(errors.ErrCodeDataNotFound, "no bars registered for %s", path)
	}

	ds.current = bars
	ds.loaded = true

	return nil
}

// ReadAll implements DataSource.
func (ds *InMemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		ds.mu.RLock()
		bars, loaded := ds.current, ds.loaded
		ds.mu.RUnlock()

		if !loaded {
			yield(types.Bar{}, errors.New(errors.ErrCodeDataNotFound, "data source is not initialized"))

			return
		}

		for _, bar := range bars {
			if !inRange(bar.Time, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (ds *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if !ds.loaded {
		return 0, errors.New(errors.ErrCodeDataNotFound, "data source is not initialized")
	}

	count := 0

	for _, bar := range ds.current {
		if inRange(bar.Time, start, end) {
			count++
		}
	}

	return count, nil
}

// ReadAlerts implements DataSource.
func (ds *InMemoryDataSource) ReadAlerts(path string) ([]Alert, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	alerts, ok := ds.alerts[path]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeAlertMergeFailed, "no alerts registered for %s", path)
	}

	return alerts, nil
}

// Close implements DataSource.
func (ds *InMemoryDataSource) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.current = nil
	ds.loaded = false

	return nil
}
