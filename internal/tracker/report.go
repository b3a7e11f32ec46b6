package tracker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
	"github.com/alejandrodnm/p2ptracker/internal/ports"
)

// Reporter agrega el ledger sobre ventanas resueltas. Cada invocación
// recalcula todo desde los trades persistidos: no hay profit almacenado
// que pueda desincronizarse de sus inputs.
type Reporter struct {
	ledger   ports.Ledger
	resolver *Resolver
	now      func() time.Time
}

// NewReporter crea el agregador de reportes.
func NewReporter(ledger ports.Ledger, resolver *Resolver) *Reporter {
	return &Reporter{ledger: ledger, resolver: resolver, now: time.Now}
}

// WindowSummary agrega una ventana continua: totales simples del ledger
// más el profit neto de una pasada FIFO sobre todo el rango.
func (r *Reporter) WindowSummary(ctx context.Context, label string, startMs, endMs int64) (domain.Summary, error) {
	totals, err := r.ledger.RangeTotals(ctx, startMs, endMs)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("tracker.WindowSummary: totals: %w", err)
	}

	trades, err := r.ledger.TradesInRange(ctx, startMs, endMs)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("tracker.WindowSummary: trades: %w", err)
	}
	_, profit := domain.MatchFIFO(trades)

	return domain.Summary{
		PeriodLabel:    label,
		StartMs:        startMs,
		EndMs:          endMs,
		BoughtQuantity: totals.BoughtQuantity,
		SoldQuantity:   totals.SoldQuantity,
		BuyCount:       totals.BuyCount,
		SellCount:      totals.SellCount,
		NetProfitFiat:  domain.RoundFiat(profit),
	}, nil
}

// Daily reporta la sesión de trading manual vigente. Devuelve ErrNoWindow
// si nunca se abrió un trading day — nunca un resumen en cero.
func (r *Reporter) Daily(ctx context.Context) (domain.Summary, error) {
	start, end, err := r.resolver.TradingDayRange(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	return r.WindowSummary(ctx, "daily", start, end)
}

// Rolling reporta un periodo rodante (today, yesterday, week, month, year)
// como una sola ventana continua.
func (r *Reporter) Rolling(ctx context.Context, p domain.Period) (domain.Summary, error) {
	start, end, err := r.resolver.RollingRange(p)
	if err != nil {
		return domain.Summary{}, err
	}
	return r.WindowSummary(ctx, string(p), start, end)
}

// LastNDays reporta un lookback de N días como ventana continua.
func (r *Reporter) LastNDays(ctx context.Context, days int) (domain.Summary, error) {
	start, end, err := r.resolver.LastNDaysRange(days)
	if err != nil {
		return domain.Summary{}, err
	}
	return r.WindowSummary(ctx, strconv.Itoa(days)+" days", start, end)
}

// Weekly acumula los días cerrados de los últimos 7 días calendario.
func (r *Reporter) Weekly(ctx context.Context) (domain.Summary, error) {
	from := r.now().AddDate(0, 0, -7).Format(domain.DateLayout)
	return r.rollup(ctx, "weekly", from)
}

// Monthly acumula los días cerrados desde el día 1 del mes.
func (r *Reporter) Monthly(ctx context.Context) (domain.Summary, error) {
	now := r.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format(domain.DateLayout)
	return r.rollup(ctx, "monthly", from)
}

// rollup itera los días cerrados desde fromDate y ejecuta el motor FIFO
// POR FECHA: los lotes no cruzan límites de día en los rollups, a
// diferencia del reporte de ventana única. El profit de cada fecha se
// redondea antes de acumular, igual que el reporte individual de ese día.
func (r *Reporter) rollup(ctx context.Context, label, fromDate string) (domain.Summary, error) {
	dates, err := r.ledger.ClosedDates(ctx, fromDate)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("tracker.rollup: closed dates: %w", err)
	}
	if len(dates) == 0 {
		return domain.Summary{}, ErrNoWindow
	}

	summary := domain.Summary{
		PeriodLabel: label,
		TradingDays: len(dates),
	}
	var netProfit float64

	for i, date := range dates {
		start, end, err := r.resolver.DateRange(ctx, date)
		if err != nil {
			return domain.Summary{}, fmt.Errorf("tracker.rollup: resolve %s: %w", date, err)
		}
		if i == 0 {
			summary.StartMs = start
		}
		summary.EndMs = end

		day, err := r.WindowSummary(ctx, date, start, end)
		if err != nil {
			return domain.Summary{}, fmt.Errorf("tracker.rollup: %s: %w", date, err)
		}

		summary.BoughtQuantity += day.BoughtQuantity
		summary.SoldQuantity += day.SoldQuantity
		summary.BuyCount += day.BuyCount
		summary.SellCount += day.SellCount
		netProfit += day.NetProfitFiat
	}

	summary.NetProfitFiat = domain.RoundFiat(netProfit)
	return summary, nil
}

// Detail devuelve el reporte de auditoría de una ventana continua: cada
// match en orden de emisión más el resumen de la ventana.
func (r *Reporter) Detail(ctx context.Context, label string, startMs, endMs int64) ([]domain.Match, domain.Summary, error) {
	summary, err := r.WindowSummary(ctx, label, startMs, endMs)
	if err != nil {
		return nil, domain.Summary{}, err
	}

	trades, err := r.ledger.TradesInRange(ctx, startMs, endMs)
	if err != nil {
		return nil, domain.Summary{}, fmt.Errorf("tracker.Detail: trades: %w", err)
	}
	matches, _ := domain.MatchFIFO(trades)
	return matches, summary, nil
}
