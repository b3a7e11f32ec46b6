package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
	"github.com/alejandrodnm/p2ptracker/internal/ports"
)

// ErrNoWindow indica que no existe ventana para el periodo pedido: nunca
// se abrió un trading day, o la fecha no tiene fila de balance. Es un
// resultado distinto de "profit cero" y debe presentarse como tal.
var ErrNoWindow = errors.New("tracker: no window for period")

// Resolver traduce periodos a rangos [startMs, endMs] inclusivos.
//
// Conviven dos mecanismos de "día" independientes: la sesión manual de
// trading (reportes diarios) y las fechas calendario con balance cerrado
// (rollups semanales/mensuales). El resolver no los reconcilia — cada
// tipo de reporte elige el suyo.
type Resolver struct {
	ledger ports.Ledger
	now    func() time.Time
}

// NewResolver crea un resolver sobre el ledger dado.
func NewResolver(ledger ports.Ledger) *Resolver {
	return &Resolver{ledger: ledger, now: time.Now}
}

// TradingDayRange devuelve [startedAt, endedAt ?? now] de la sesión
// manual más reciente. ErrNoWindow si nunca se abrió ninguna.
func (r *Resolver) TradingDayRange(ctx context.Context) (startMs, endMs int64, err error) {
	w, err := r.ledger.CurrentTradingDay(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("tracker.TradingDayRange: %w", err)
	}
	if w == nil {
		return 0, 0, ErrNoWindow
	}
	end := r.now().UnixMilli()
	if w.EndedAt != nil {
		end = *w.EndedAt
	}
	return w.StartedAt, end, nil
}

// DateRange devuelve [00:00, 23:59:59.999] de una fecha calendario, solo
// si esa fecha tiene fila en daily_balances. ErrNoWindow si no la tiene,
// aunque existan trades ese día.
func (r *Resolver) DateRange(ctx context.Context, date string) (startMs, endMs int64, err error) {
	b, err := r.ledger.DailyBalance(ctx, date)
	if err != nil {
		return 0, 0, fmt.Errorf("tracker.DateRange: %w", err)
	}
	if b == nil {
		return 0, 0, ErrNoWindow
	}
	return domain.DateWindow(date, r.now().Location())
}

// RollingRange resuelve un periodo rodante relativo a ahora.
func (r *Resolver) RollingRange(p domain.Period) (startMs, endMs int64, err error) {
	return p.Range(r.now())
}

// LastNDaysRange resuelve un lookback de N días relativo a ahora.
func (r *Resolver) LastNDaysRange(days int) (startMs, endMs int64, err error) {
	return domain.LastNDaysRange(r.now(), days)
}
