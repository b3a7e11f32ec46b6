package domain

import (
	"fmt"
	"time"
)

// Period es un token de periodo rodante, relativo a "ahora" en reloj local.
type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodWeek      Period = "week"  // desde el lunes de esta semana
	PeriodMonth     Period = "month" // desde el día 1 del mes
	PeriodYear      Period = "year"  // lookback de 365 días
)

// DateLayout es el formato de fecha calendario usado por daily_balances.
const DateLayout = "2006-01-02"

// Range devuelve los límites inclusivos [startMs, endMs] del periodo.
// El inicio se trunca a medianoche local; el fin queda en "now", salvo
// yesterday que se acota al último instante de ese día calendario.
func (p Period) Range(now time.Time) (startMs, endMs int64, err error) {
	switch p {
	case PeriodToday:
		return unixMs(midnight(now)), unixMs(now), nil
	case PeriodYesterday:
		start := midnight(now.AddDate(0, 0, -1))
		end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
		return unixMs(start), unixMs(end), nil
	case PeriodWeek:
		// Lunes como inicio de semana (Weekday: domingo = 0)
		offset := (int(now.Weekday()) + 6) % 7
		return unixMs(midnight(now.AddDate(0, 0, -offset))), unixMs(now), nil
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return unixMs(start), unixMs(now), nil
	case PeriodYear:
		return unixMs(midnight(now.AddDate(0, 0, -365))), unixMs(now), nil
	default:
		return 0, 0, fmt.Errorf("domain.Period: unknown period %q", string(p))
	}
}

// LastNDaysRange devuelve [medianoche de hace days días, now].
func LastNDaysRange(now time.Time, days int) (startMs, endMs int64, err error) {
	if days <= 0 || days > 365 {
		return 0, 0, fmt.Errorf("domain.LastNDaysRange: days must be in [1, 365], got %d", days)
	}
	return unixMs(midnight(now.AddDate(0, 0, -days))), unixMs(now), nil
}

// DateWindow devuelve [00:00:00.000, 23:59:59.999] locales de una fecha
// calendario YYYY-MM-DD. No valida que la fecha tenga balance cerrado:
// eso lo decide el resolver contra el store.
func DateWindow(date string, loc *time.Location) (startMs, endMs int64, err error) {
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("domain.DateWindow: parse %q: %w", date, err)
	}
	end := day.AddDate(0, 0, 1).Add(-time.Millisecond)
	return unixMs(day), unixMs(end), nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func unixMs(t time.Time) int64 { return t.UnixMilli() }
