package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"go.uber.org/zap"
)

// insertBatchSize bounds the rows of one multi-value INSERT.
const insertBatchSize = 500

var resultTables = []string{"trades", "equity", "daily", "marks", "rejections"}

// ResultFiles lists the parquet files written for one run.
type ResultFiles struct {
	Trades     string
	Equity     string
	Daily      string
	Marks      string
	Rejections string
}

// ResultStore keeps the outputs of a run in an in-memory DuckDB database
// and exports them as parquet.
type ResultStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewResultStore(log *logger.Logger) (*ResultStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to open result database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to connect to result database", err)
	}

	store := &ResultStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.Initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

// Initialize creates the result tables.
func (s *ResultStore) Initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			position_id INTEGER,
			symbol TEXT,
			side TEXT,
			entry_price DOUBLE,
			exit_price DOUBLE,
			quantity DOUBLE,
			pnl DOUBLE,
			fee DOUBLE,
			reason TEXT,
			entry_time TIMESTAMP,
			exit_time TIMESTAMP,
			entry_index INTEGER,
			exit_index INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS equity (
			idx INTEGER,
			time TIMESTAMP,
			equity DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS daily (
			date TEXT,
			capital DOUBLE,
			daily_start_capital DOUBLE,
			daily_pnl DOUBLE,
			daily_pnl_pct DOUBLE,
			total_pnl_pct DOUBLE,
			active_positions INTEGER,
			daily_trades_count INTEGER,
			breaker_triggered BOOLEAN
		)`,
		`CREATE TABLE IF NOT EXISTS marks (
			idx INTEGER,
			time TIMESTAMP,
			symbol TEXT,
			close DOUBLE,
			signal TEXT,
			tier INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS rejections (
			idx INTEGER,
			time TIMESTAMP,
			reason TEXT
		)`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create result table", err)
		}
	}

	return nil
}

// Record stores the trades, equity curve, daily summaries and rejections of result.
func (s *ResultStore) Record(result RunResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to begin transaction", err)
	}

	tradeRows := make([][]any, 0, len(result.Trades))
	for _, t := range result.Trades {
		tradeRows = append(tradeRows, []any{
			t.PositionID, t.Symbol, string(t.Side), t.EntryPrice, t.ExitPrice, t.Quantity,
			t.PnL, t.Fee, string(t.Reason), t.EntryTime, t.ExitTime, t.EntryIndex, t.ExitIndex,
		})
	}

	equityRows := make([][]any, 0, len(result.Equity))
	for _, p := range result.Equity {
		equityRows = append(equityRows, []any{p.Index, p.Time, p.Equity})
	}

	dailyRows := make([][]any, 0, len(result.Daily))
	for _, d := range result.Daily {
		dailyRows = append(dailyRows, []any{
			d.Date, d.Capital, d.DailyStartCapital, d.DailyPnL, d.DailyPnLPct, d.TotalPnLPct,
			d.ActivePositions, d.DailyTradesCount, d.BreakerTriggered,
		})
	}

	rejectionRows := make([][]any, 0, len(result.Rejections))
	for _, r := range result.Rejections {
		rejectionRows = append(rejectionRows, []any{r.Index, r.Time, string(r.Reason)})
	}

	inserts := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"trades", []string{
			"position_id", "symbol", "side", "entry_price", "exit_price", "quantity",
			"pnl", "fee", "reason", "entry_time", "exit_time", "entry_index", "exit_index",
		}, tradeRows},
		{"equity", []string{"idx", "time", "equity"}, equityRows},
		{"daily", []string{
			"date", "capital", "daily_start_capital", "daily_pnl", "daily_pnl_pct", "total_pnl_pct",
			"active_positions", "daily_trades_count", "breaker_triggered",
		}, dailyRows},
		{"rejections", []string{"idx", "time", "reason"}, rejectionRows},
	}

	for _, insert := range inserts {
		if err := s.insertRows(tx, insert.table, insert.columns, insert.rows); err != nil {
			tx.Rollback()

			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to commit results", err)
	}

	return nil
}

// RecordSignals stores one mark per final buy or sell decision. The tier is
// the highest tier that fired in that direction, or 0 when tiers were not kept.
func (s *ResultStore) RecordSignals(bars []types.Bar, series types.SignalSeries) error {
	var rows [][]any

	for i, bar := range bars {
		decision := series.At(i)

		if decision.FinalBuy {
			rows = append(rows, []any{i, bar.Time, bar.Symbol, bar.Close, string(types.PurchaseTypeBuy), tierOf(series.Tiers, i, true)})
		}

		if decision.FinalSell {
			rows = append(rows, []any{i, bar.Time, bar.Symbol, bar.Close, string(types.PurchaseTypeSell), tierOf(series.Tiers, i, false)})
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to begin transaction", err)
	}

	if err := s.insertRows(tx, "marks", []string{"idx", "time", "symbol", "close", "signal", "tier"}, rows); err != nil {
		tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to commit marks", err)
	}

	return nil
}

// GetAllTrades returns stored trades in exit order.
func (s *ResultStore) GetAllTrades() ([]types.Trade, error) {
	rows, err := s.sq.
		Select(
			"position_id", "symbol", "side", "entry_price", "exit_price", "quantity",
			"pnl", "fee", "reason", "entry_time", "exit_time", "entry_index", "exit_index",
		).
		From("trades").
		OrderBy("exit_index ASC", "position_id ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var (
			trade        types.Trade
			side, reason string
		)

		err := rows.Scan(
			&trade.PositionID, &trade.Symbol, &side, &trade.EntryPrice, &trade.ExitPrice, &trade.Quantity,
			&trade.PnL, &trade.Fee, &reason, &trade.EntryTime, &trade.ExitTime, &trade.EntryIndex, &trade.ExitIndex,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trade.Side = types.Side(side)
		trade.Reason = types.ExitReason(reason)
		trades = append(trades, trade)
	}

	return trades, rows.Err()
}

// ExitReasonCounts groups stored trades by exit reason.
func (s *ResultStore) ExitReasonCounts() (map[types.ExitReason]int, error) {
	rows, err := s.sq.
		Select("reason", "COUNT(*)").
		From("trades").
		GroupBy("reason").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count exit reasons", err)
	}
	defer rows.Close()

	counts := make(map[types.ExitReason]int)

	for rows.Next() {
		var (
			reason string
			count  int
		)

		if err := rows.Scan(&reason, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan exit reason", err)
		}

		counts[types.ExitReason(reason)] = count
	}

	return counts, rows.Err()
}

// TotalFees sums the fees of stored trades.
func (s *ResultStore) TotalFees() (float64, error) {
	var total sql.NullFloat64

	err := s.sq.
		Select("SUM(fee)").
		From("trades").
		RunWith(s.db).
		QueryRow().
		Scan(&total)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to sum fees", err)
	}

	return total.Float64, nil
}

// CountMarks returns the number of stored marks for signal (BUY or SELL).
func (s *ResultStore) CountMarks(signal types.PurchaseType) (int, error) {
	var count int

	err := s.sq.
		Select("COUNT(*)").
		From("marks").
		Where(squirrel.Eq{"signal": string(signal)}).
		RunWith(s.db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count marks", err)
	}

	return count, nil
}

// Write exports every table to parquet files under dir.
func (s *ResultStore) Write(dir string) (ResultFiles, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ResultFiles{}, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create result folder", err)
	}

	files := ResultFiles{
		Trades:     filepath.Join(dir, "trades.parquet"),
		Equity:     filepath.Join(dir, "equity.parquet"),
		Daily:      filepath.Join(dir, "daily.parquet"),
		Marks:      filepath.Join(dir, "marks.parquet"),
		Rejections: filepath.Join(dir, "rejections.parquet"),
	}

	exports := map[string]string{
		"trades":     files.Trades,
		"equity":     files.Equity,
		"daily":      files.Daily,
		"marks":      files.Marks,
		"rejections": files.Rejections,
	}

	for _, table := range resultTables {
		// squirrel has no COPY
		query := fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, exports[table])
		if _, err := s.db.Exec(query); err != nil {
			return ResultFiles{}, errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to export %s", table)
		}
	}

	s.logger.Debug("Results written", zap.String("dir", dir))

	return files, nil
}

// Cleanup empties every table so the store can record the next run.
func (s *ResultStore) Cleanup() error {
	for _, table := range resultTables {
		if _, err := s.sq.Delete(table).RunWith(s.db).Exec(); err != nil {
			return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to clear %s", table)
		}
	}

	return nil
}

func (s *ResultStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

func (s *ResultStore) insertRows(tx *sql.Tx, table string, columns []string, rows [][]any) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))

		insert := s.sq.Insert(table).Columns(columns...)
		for _, row := range rows[start:end] {
			insert = insert.Values(row...)
		}

		if _, err := insert.RunWith(tx).Exec(); err != nil {
			return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to insert into %s", table)
		}
	}

	return nil
}

func tierOf(tiers *types.TierSeries, i int, buy bool) int {
	if tiers == nil {
		return 0
	}

	flags := [][]bool{tiers.Tier1Sell, tiers.Tier2Sell, tiers.Tier3Sell}
	if buy {
		flags = [][]bool{tiers.Tier1Buy, tiers.Tier2Buy, tiers.Tier3Buy}
	}

	for tier, series := range flags {
		if i < len(series) && series[i] {
			return tier + 1
		}
	}

	return 0
}
