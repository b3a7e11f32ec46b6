package ports

import (
	"context"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
)

// Ledger persiste trades, ventanas de trading day y balances diarios.
// El contrato exige: upsert-por-id atómico, range scans consistentes por
// completed_at, y que un pase de matching no observe escrituras a medias.
type Ledger interface {
	// UpsertTrade inserta o sobreescribe por id (last-write-wins).
	// Devuelve true si el id no existía antes.
	UpsertTrade(ctx context.Context, t domain.Trade) (inserted bool, err error)

	// TradesInRange devuelve los trades con completed_at en [startMs, endMs],
	// ascendente — el orden que espera el motor FIFO.
	TradesInRange(ctx context.Context, startMs, endMs int64) ([]domain.Trade, error)

	// RangeTotals calcula sumas de cantidades y conteos por lado en el rango.
	RangeTotals(ctx context.Context, startMs, endMs int64) (domain.RangeTotals, error)

	// RecentTrades devuelve los últimos trades por completed_at descendente.
	RecentTrades(ctx context.Context, limit int) ([]domain.Trade, error)

	// StartTradingDay abre una ventana nueva, forzando el cierre de
	// cualquier ventana abierta previa.
	StartTradingDay(ctx context.Context, nowMs int64) error

	// EndTradingDay cierra la ventana abierta. Devuelve false si no había
	// ninguna abierta.
	EndTradingDay(ctx context.Context, nowMs int64) (bool, error)

	// CurrentTradingDay devuelve la ventana más reciente, o nil si nunca
	// se abrió ninguna.
	CurrentTradingDay(ctx context.Context) (*domain.TradingDayWindow, error)

	// SetOpeningBalance crea o reemplaza la fila de la fecha con el
	// balance de apertura.
	SetOpeningBalance(ctx context.Context, date string, amount float64) error

	// SetClosingBalance fija el balance de cierre. Devuelve false si la
	// fecha no tiene fila (no se abrió ese día).
	SetClosingBalance(ctx context.Context, date string, amount float64) (bool, error)

	// DailyBalance devuelve la fila de la fecha, o nil si no existe.
	DailyBalance(ctx context.Context, date string) (*domain.DailyBalance, error)

	// ClosedDates devuelve las fechas con closing_balance registrado desde
	// fromDate (inclusive), ascendente.
	ClosedDates(ctx context.Context, fromDate string) ([]string, error)

	// Close cierra la conexión limpiamente.
	Close() error
}
