package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"go.uber.org/zap"
)

var requiredBarColumns = []string{"time", "open", "high", "low", "close"}

type DuckDBDataSource struct {
	db      *sql.DB
	logger  *logger.Logger
	sq      squirrel.StatementBuilderType
	columns map[string]bool
}

// NewDataSource opens a DuckDB database at path. Use ":memory:" for a
// throwaway database; bar files are attached as views by Initialize.
func NewDataSource(path string, log *logger.Logger) (*DuckDBDataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	if _, err := db.Exec(`SET threads=4;`); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to configure duckdb", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS market_data;`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	// squirrel has no CREATE VIEW
	query := fmt.Sprintf(`CREATE VIEW market_data AS SELECT * FROM %s;`, readerFor(path))
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read bars from %s", path)
	}

	columns, err := d.describe("market_data")
	if err != nil {
		return err
	}

	for _, column := range requiredBarColumns {
		if !columns[column] {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar file %s is missing column %q", path, column)
		}
	}

	d.columns = columns

	return nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	if d.columns == nil {
		return 0, errors.New(errors.ErrCodeDataNotFound, "data source is not initialized")
	}

	query, args, err := d.withRange(d.sq.Select("COUNT(*)").From("market_data"), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		if d.columns == nil {
			yield(types.Bar{}, errors.New(errors.ErrCodeDataNotFound, "data source is not initialized"))

			return
		}

		query, args, err := d.withRange(d.sq.Select(d.barColumns()...).From("market_data"), start, end).
			OrderBy("time ASC").
			ToSql()
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build bar query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				bar           types.Bar
				rsi, wt1, wt2 sql.NullFloat64
			)

			err := rows.Scan(
				&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume,
				&rsi, &wt1, &wt2, &bar.AlertBuy, &bar.AlertSell,
			)
			if err != nil {
				yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err))

				return
			}

			bar.RSI = nullable(rsi)
			bar.WT1 = nullable(wt1)
			bar.WT2 = nullable(wt2)

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err))
		}
	}
}

// ReadAlerts implements DataSource.
func (d *DuckDBDataSource) ReadAlerts(path string) ([]Alert, error) {
	d.logger.Debug("Reading alerts", zap.String("path", path))

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS alerts;`); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing alert view", err)
	}

	query := fmt.Sprintf(`CREATE VIEW alerts AS SELECT * FROM %s;`, readerFor(path))
	if _, err := d.db.Exec(query); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeAlertMergeFailed, err, "failed to read alerts from %s", path)
	}

	columns, err := d.describe("alerts")
	if err != nil {
		return nil, err
	}

	if !columns["time"] {
		return nil, errors.Newf(errors.ErrCodeAlertMergeFailed, "alert file %s is missing column %q", path, "time")
	}

	selectQuery, args, err := d.sq.
		Select(
			"time",
			optionalColumn(columns, "symbol", "symbol", "''"),
			optionalColumn(columns, "buy", "COALESCE(CAST(buy AS BOOLEAN), FALSE)", "FALSE"),
			optionalColumn(columns, "sell", "COALESCE(CAST(sell AS BOOLEAN), FALSE)", "FALSE"),
		).
		From("alerts").
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build alert query", err)
	}

	rows, err := d.db.Query(selectQuery, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAlertMergeFailed, "failed to query alerts", err)
	}
	defer rows.Close()

	var alerts []Alert

	for rows.Next() {
		var alert Alert
		if err := rows.Scan(&alert.Time, &alert.Symbol, &alert.Buy, &alert.Sell); err != nil {
			return nil, errors.Wrap(errors.ErrCodeAlertMergeFailed, "failed to scan alert", err)
		}

		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAlertMergeFailed, "error iterating alerts", err)
	}

	return alerts, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}

func (d *DuckDBDataSource) describe(view string) (map[string]bool, error) {
	query, args, err := d.sq.
		Select("column_name").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": view}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build describe query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to describe %s", view)
	}
	defer rows.Close()

	columns := make(map[string]bool)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan column name", err)
		}

		columns[name] = true
	}

	return columns, rows.Err()
}

// barColumns selects the bar fields, substituting defaults for optional
// columns the file does not carry.
func (d *DuckDBDataSource) barColumns() []string {
	return []string{
		"time",
		optionalColumn(d.columns, "symbol", "symbol", "''"),
		"open", "high", "low", "close",
		optionalColumn(d.columns, "volume", "COALESCE(volume, 0)", "0.0"),
		optionalColumn(d.columns, "rsi", "CAST(rsi AS DOUBLE)", "CAST(NULL AS DOUBLE)"),
		optionalColumn(d.columns, "wt1", "CAST(wt1 AS DOUBLE)", "CAST(NULL AS DOUBLE)"),
		optionalColumn(d.columns, "wt2", "CAST(wt2 AS DOUBLE)", "CAST(NULL AS DOUBLE)"),
		optionalColumn(d.columns, "alert_buy", "COALESCE(CAST(alert_buy AS BOOLEAN), FALSE)", "FALSE"),
		optionalColumn(d.columns, "alert_sell", "COALESCE(CAST(alert_sell AS BOOLEAN), FALSE)", "FALSE"),
	}
}

func (d *DuckDBDataSource) withRange(builder squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	return builder
}

func optionalColumn(columns map[string]bool, name, present, absent string) string {
	if columns[name] {
		return fmt.Sprintf("%s AS %s", present, name)
	}

	return fmt.Sprintf("%s AS %s", absent, name)
}

func nullable(value sql.NullFloat64) float64 {
	if !value.Valid {
		return math.NaN()
	}

	return value.Float64
}
