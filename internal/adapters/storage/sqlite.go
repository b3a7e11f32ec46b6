package storage

// sqlite.go — el ledger de trades sobre SQLite puro Go (sin CGo).
//
// Notas de consistencia:
//   - Una sola conexión (single-writer): cada query ve un snapshot
//     consistente y un upsert nunca es visible a medias.
//   - Los upserts van en transacción para poder distinguir inserción
//     nueva de sobrescritura (el sync cuenta solo ids nuevos).

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Ledger de ejecuciones P2P completadas
CREATE TABLE IF NOT EXISTS trades (
    id           TEXT PRIMARY KEY,
    side         INTEGER NOT NULL,
    asset        TEXT    NOT NULL,
    quantity     REAL    NOT NULL DEFAULT 0,
    fiat_amount  REAL    NOT NULL DEFAULT 0,
    price        REAL    NOT NULL DEFAULT 0,
    fee          REAL    NOT NULL DEFAULT 0,
    counterparty TEXT,
    status       INTEGER NOT NULL,
    created_at   INTEGER NOT NULL DEFAULT 0,
    completed_at INTEGER NOT NULL
);

-- Sesiones de trading abiertas/cerradas manualmente
CREATE TABLE IF NOT EXISTS trading_days (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at INTEGER NOT NULL,
    ended_at   INTEGER
);

-- Una fila por fecha calendario, independiente de trading_days
CREATE TABLE IF NOT EXISTS daily_balances (
    date            TEXT PRIMARY KEY,
    opening_balance REAL,
    closing_balance REAL
);

CREATE INDEX IF NOT EXISTS idx_trades_completed ON trades(completed_at);
CREATE INDEX IF NOT EXISTS idx_trades_side      ON trades(side, completed_at);
`

// SQLiteLedger implementa ports.Ledger usando SQLite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteLedger: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteLedger: apply schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// UpsertTrade inserta o sobreescribe el trade por id (last-write-wins).
// Devuelve true si el id no existía antes de esta llamada.
func (l *SQLiteLedger) UpsertTrade(ctx context.Context, t domain.Trade) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("storage.UpsertTrade: begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM trades WHERE id = ?)`, t.ID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("storage.UpsertTrade: check %s: %w", t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trades
			(id, side, asset, quantity, fiat_amount, price, fee,
			 counterparty, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			side         = excluded.side,
			asset        = excluded.asset,
			quantity     = excluded.quantity,
			fiat_amount  = excluded.fiat_amount,
			price        = excluded.price,
			fee          = excluded.fee,
			counterparty = excluded.counterparty,
			status       = excluded.status,
			created_at   = excluded.created_at,
			completed_at = excluded.completed_at
	`,
		t.ID, int(t.Side), t.Asset, t.Quantity, t.FiatAmount, t.Price, t.Fee,
		t.Counterparty, t.Status, t.CreatedAt, t.CompletedAt,
	); err != nil {
		return false, fmt.Errorf("storage.UpsertTrade: upsert %s: %w", t.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("storage.UpsertTrade: commit: %w", err)
	}
	return !exists, nil
}

// TradesInRange devuelve los trades con completed_at en [startMs, endMs],
// ascendente — el orden que consume el motor FIFO.
func (l *SQLiteLedger) TradesInRange(ctx context.Context, startMs, endMs int64) ([]domain.Trade, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, side, asset, quantity, fiat_amount, price, fee,
		       COALESCE(counterparty, ''), status, created_at, completed_at
		FROM trades
		WHERE completed_at BETWEEN ? AND ?
		ORDER BY completed_at ASC
	`, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("storage.TradesInRange: query: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// RangeTotals calcula sumas y conteos por lado en el rango, sin matching.
func (l *SQLiteLedger) RangeTotals(ctx context.Context, startMs, endMs int64) (domain.RangeTotals, error) {
	var totals domain.RangeTotals
	err := l.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN side = 0 THEN quantity END), 0),
			COALESCE(SUM(CASE WHEN side = 1 THEN quantity END), 0),
			COUNT(CASE WHEN side = 0 THEN 1 END),
			COUNT(CASE WHEN side = 1 THEN 1 END)
		FROM trades
		WHERE completed_at BETWEEN ? AND ?
	`, startMs, endMs).Scan(
		&totals.BoughtQuantity, &totals.SoldQuantity,
		&totals.BuyCount, &totals.SellCount,
	)
	if err != nil {
		return domain.RangeTotals{}, fmt.Errorf("storage.RangeTotals: query: %w", err)
	}
	return totals, nil
}

// RecentTrades devuelve los últimos trades por completed_at descendente.
func (l *SQLiteLedger) RecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, side, asset, quantity, fiat_amount, price, fee,
		       COALESCE(counterparty, ''), status, created_at, completed_at
		FROM trades
		ORDER BY completed_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentTrades: query: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// StartTradingDay abre una ventana nueva. Cualquier ventana abierta previa
// se cierra con el mismo timestamp — como mucho una abierta a la vez.
func (l *SQLiteLedger) StartTradingDay(ctx context.Context, nowMs int64) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.StartTradingDay: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE trading_days SET ended_at = ? WHERE ended_at IS NULL`, nowMs,
	); err != nil {
		return fmt.Errorf("storage.StartTradingDay: close previous: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trading_days (started_at) VALUES (?)`, nowMs,
	); err != nil {
		return fmt.Errorf("storage.StartTradingDay: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.StartTradingDay: commit: %w", err)
	}
	return nil
}

// EndTradingDay cierra la ventana abierta. Devuelve false si no había
// ninguna abierta.
func (l *SQLiteLedger) EndTradingDay(ctx context.Context, nowMs int64) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`UPDATE trading_days SET ended_at = ? WHERE ended_at IS NULL`, nowMs,
	)
	if err != nil {
		return false, fmt.Errorf("storage.EndTradingDay: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.EndTradingDay: rows affected: %w", err)
	}
	return n > 0, nil
}

// CurrentTradingDay devuelve la ventana más reciente, o nil si nunca se
// abrió ninguna.
func (l *SQLiteLedger) CurrentTradingDay(ctx context.Context) (*domain.TradingDayWindow, error) {
	var (
		w     domain.TradingDayWindow
		ended sql.NullInt64
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at
		FROM trading_days
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&w.ID, &w.StartedAt, &ended)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.CurrentTradingDay: query: %w", err)
	}
	if ended.Valid {
		w.EndedAt = &ended.Int64
	}
	return &w, nil
}

// SetOpeningBalance crea o reemplaza la fila de la fecha con el balance de
// apertura. Reemplazar descarta un closing_balance previo de esa fecha —
// reabrir el día lo deja pendiente de cierre otra vez.
func (l *SQLiteLedger) SetOpeningBalance(ctx context.Context, date string, amount float64) error {
	if _, err := l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_balances (date, opening_balance)
		VALUES (?, ?)
	`, date, amount); err != nil {
		return fmt.Errorf("storage.SetOpeningBalance: upsert %s: %w", date, err)
	}
	return nil
}

// SetClosingBalance fija el balance de cierre. Devuelve false si la fecha
// no tiene fila de apertura.
func (l *SQLiteLedger) SetClosingBalance(ctx context.Context, date string, amount float64) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`UPDATE daily_balances SET closing_balance = ? WHERE date = ?`, amount, date,
	)
	if err != nil {
		return false, fmt.Errorf("storage.SetClosingBalance: update %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.SetClosingBalance: rows affected: %w", err)
	}
	return n > 0, nil
}

// DailyBalance devuelve la fila de la fecha, o nil si no existe.
func (l *SQLiteLedger) DailyBalance(ctx context.Context, date string) (*domain.DailyBalance, error) {
	var (
		b       domain.DailyBalance
		opening sql.NullFloat64
		closing sql.NullFloat64
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT date, opening_balance, closing_balance
		FROM daily_balances
		WHERE date = ?
	`, date).Scan(&b.Date, &opening, &closing)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.DailyBalance: query %s: %w", date, err)
	}
	if opening.Valid {
		b.OpeningBalance = &opening.Float64
	}
	if closing.Valid {
		b.ClosingBalance = &closing.Float64
	}
	return &b, nil
}

// ClosedDates devuelve las fechas con closing_balance registrado desde
// fromDate (inclusive), ascendentes. El orden lexicográfico de YYYY-MM-DD
// coincide con el cronológico.
func (l *SQLiteLedger) ClosedDates(ctx context.Context, fromDate string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT date FROM daily_balances
		WHERE closing_balance IS NOT NULL AND date >= ?
		ORDER BY date ASC
	`, fromDate)
	if err != nil {
		return nil, fmt.Errorf("storage.ClosedDates: query: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("storage.ClosedDates: scan: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func scanTrades(rows *sql.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var (
			t    domain.Trade
			side int
		)
		if err := rows.Scan(
			&t.ID, &side, &t.Asset, &t.Quantity, &t.FiatAmount, &t.Price, &t.Fee,
			&t.Counterparty, &t.Status, &t.CreatedAt, &t.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan trade: %w", err)
		}
		t.Side = domain.Side(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
