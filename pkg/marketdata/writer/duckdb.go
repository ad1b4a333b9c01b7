package writer

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// DuckDBWriter stages bars in an in-memory DuckDB table and exports them on
// Finalize. A .csv output path is written as CSV with a header, anything else
// as Parquet. Both read back through the backtest data source.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
	rows       int
}

// NewDuckDBWriter creates a new DuckDBWriter for outputPath.
func NewDuckDBWriter(outputPath string) BarWriter {
	return &DuckDBWriter{
		outputPath: outputPath,
	}
}

// Initialize opens the staging database, creates the bar table and prepares the insert.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			alert_buy BOOLEAN,
			alert_sell BOOLEAN
		)
	`)
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create bar table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	w.stmt, err = w.tx.Prepare(`
		INSERT INTO market_data (time, symbol, open, high, low, close, volume, alert_buy, alert_sell)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to prepare insert", err)
	}

	return nil
}

// Write inserts one bar into the staging table.
func (w *DuckDBWriter) Write(bar types.Bar) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeResultWriteFailed, "writer not initialized")
	}

	_, err := w.stmt.Exec(
		bar.Time,
		bar.Symbol,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
		bar.AlertBuy,
		bar.AlertSell,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to insert bar", err)
	}

	w.rows++

	return nil
}

// Finalize commits the staged bars and copies them to the output file in time order.
func (w *DuckDBWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeResultWriteFailed, "writer not initialized")
	}

	if err = w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to commit bars", err)
	}

	w.tx = nil

	// COPY does not take bind parameters
	query := fmt.Sprintf(`COPY (SELECT * FROM market_data ORDER BY time ASC) TO '%s' (%s)`,
		strings.ReplaceAll(w.outputPath, "'", "''"), copyOptions(w.outputPath))
	if _, err = w.db.Exec(query); err != nil {
		return "", errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to export bars to %s", w.outputPath)
	}

	return w.outputPath, nil
}

// Rows returns the number of bars written so far.
func (w *DuckDBWriter) Rows() int {
	return w.rows
}

// Close releases the statement, rolls back an unfinished transaction and closes the database.
func (w *DuckDBWriter) Close() error {
	var closeErrors []string

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("statement: %v", err))
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("rollback: %v", err))
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("db: %v", err))
		}

		w.db = nil
	}

	if len(closeErrors) > 0 {
		return errors.Newf(errors.ErrCodeResultWriteFailed, "errors occurred during close: %s", strings.Join(closeErrors, "; "))
	}

	return nil
}

// GetOutputPath implements BarWriter.
func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}

func copyOptions(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "FORMAT CSV, HEADER"
	}

	return "FORMAT PARQUET"
}
