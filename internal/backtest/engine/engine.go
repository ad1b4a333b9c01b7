package engine

import (
	"context"

	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// Lifecycle callback types for backtest phases.
// All callbacks with error return can abort execution if they return an error.

// OnBacktestStartCallback is called when the entire backtest begins.
type OnBacktestStartCallback func(totalDataFiles int) error

// OnBacktestEndCallback is called when the entire backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when processing of a data file begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, dataFileIndex int, dataFilePath string, totalBars int) error

// OnRunEndCallback is called when processing of a data file ends.
type OnRunEndCallback func(dataFileIndex int, dataFilePath string, resultFolderPath string, stats types.TradeStats)

// OnProcessDataCallback is called for each bar processed.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnProcessData   *OnProcessDataCallback
}

type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetDataPath sets the bar files to run. Accepts glob patterns (e.g. "data/*.parquet").
	SetDataPath(path string) error
	// SetAlertsPath sets an alert file merged into every bar file by timestamp.
	SetAlertsPath(path string) error
	// SetResultsFolder sets the output directory. Each data file gets its own
	// folder: <results>/<mode>/[<start>_<end>/]<data file name>.
	SetResultsFolder(folder string) error
	// SetDataSource sets the data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// Run runs every data file in order. The context is checked between bars.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
