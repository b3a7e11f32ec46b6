package storage_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/p2ptracker/internal/adapters/storage"
	"github.com/alejandrodnm/p2ptracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) *storage.SQLiteLedger {
	t.Helper()
	l, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func trade(id string, side domain.Side, completedAt int64) domain.Trade {
	return domain.Trade{
		ID: id, Side: side, Asset: "USDT",
		Quantity: 10, FiatAmount: 15000, Price: 1500,
		Status: domain.StatusCompleted, CompletedAt: completedAt,
	}
}

func TestUpsertTrade_InsertThenOverwrite(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	inserted, err := l.UpsertTrade(ctx, trade("t1", domain.SideBuy, 1000))
	require.NoError(t, err)
	assert.True(t, inserted)

	// Mismo id otra vez: sobrescribe, no cuenta como nuevo
	updated := trade("t1", domain.SideBuy, 1000)
	updated.Quantity = 25
	inserted, err = l.UpsertTrade(ctx, updated)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := l.TradesInRange(ctx, 0, 2000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 25.0, got[0].Quantity, 1e-9) // last-write-wins
}

func TestTradesInRange_OrderedAscending(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	for _, tr := range []domain.Trade{
		trade("c", domain.SideSell, 3000),
		trade("a", domain.SideBuy, 1000),
		trade("b", domain.SideBuy, 2000),
	} {
		_, err := l.UpsertTrade(ctx, tr)
		require.NoError(t, err)
	}

	got, err := l.TradesInRange(ctx, 0, 5000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestTradesInRange_BoundsInclusive(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	for _, tr := range []domain.Trade{
		trade("lo", domain.SideBuy, 1000),
		trade("mid", domain.SideBuy, 1500),
		trade("hi", domain.SideSell, 2000),
		trade("out", domain.SideSell, 2001),
	} {
		_, err := l.UpsertTrade(ctx, tr)
		require.NoError(t, err)
	}

	got, err := l.TradesInRange(ctx, 1000, 2000)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRangeTotals(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	b1 := trade("b1", domain.SideBuy, 1000)
	b1.Quantity = 7
	b2 := trade("b2", domain.SideBuy, 1100)
	b2.Quantity = 3
	s1 := trade("s1", domain.SideSell, 1200)
	s1.Quantity = 5
	for _, tr := range []domain.Trade{b1, b2, s1} {
		_, err := l.UpsertTrade(ctx, tr)
		require.NoError(t, err)
	}

	totals, err := l.RangeTotals(ctx, 0, 5000)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, totals.BoughtQuantity, 1e-9)
	assert.InDelta(t, 5.0, totals.SoldQuantity, 1e-9)
	assert.Equal(t, 2, totals.BuyCount)
	assert.Equal(t, 1, totals.SellCount)
}

func TestRangeTotals_EmptyRange(t *testing.T) {
	l := newLedger(t)

	totals, err := l.RangeTotals(context.Background(), 0, 5000)
	require.NoError(t, err)
	assert.Zero(t, totals.BoughtQuantity)
	assert.Zero(t, totals.BuyCount)
}

func TestRecentTrades(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	for _, tr := range []domain.Trade{
		trade("old", domain.SideBuy, 1000),
		trade("mid", domain.SideBuy, 2000),
		trade("new", domain.SideSell, 3000),
	} {
		_, err := l.UpsertTrade(ctx, tr)
		require.NoError(t, err)
	}

	got, err := l.RecentTrades(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
}

func TestTradingDay_Lifecycle(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	// Nunca se abrió ninguna
	w, err := l.CurrentTradingDay(ctx)
	require.NoError(t, err)
	assert.Nil(t, w)

	require.NoError(t, l.StartTradingDay(ctx, 10_000))
	w, err = l.CurrentTradingDay(ctx)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, int64(10_000), w.StartedAt)
	assert.Nil(t, w.EndedAt)

	closed, err := l.EndTradingDay(ctx, 20_000)
	require.NoError(t, err)
	assert.True(t, closed)

	w, err = l.CurrentTradingDay(ctx)
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NotNil(t, w.EndedAt)
	assert.Equal(t, int64(20_000), *w.EndedAt)

	// Sin ventana abierta no hay nada que cerrar
	closed, err = l.EndTradingDay(ctx, 30_000)
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestStartTradingDay_ForceClosesPrevious(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.StartTradingDay(ctx, 10_000))
	// Abrir otra sin cerrar: la anterior se cierra con el mismo instante
	require.NoError(t, l.StartTradingDay(ctx, 50_000))

	w, err := l.CurrentTradingDay(ctx)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, int64(50_000), w.StartedAt)
	assert.Nil(t, w.EndedAt)
}

func TestDailyBalances(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	// Cierre sin apertura previa: false
	ok, err := l.SetClosingBalance(ctx, "2025-06-17", 99)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.SetOpeningBalance(ctx, "2025-06-17", 100_000))
	ok, err = l.SetClosingBalance(ctx, "2025-06-17", 112_500)
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := l.DailyBalance(ctx, "2025-06-17")
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NotNil(t, b.OpeningBalance)
	require.NotNil(t, b.ClosingBalance)
	assert.InDelta(t, 100_000.0, *b.OpeningBalance, 1e-9)
	assert.InDelta(t, 112_500.0, *b.ClosingBalance, 1e-9)

	missing, err := l.DailyBalance(ctx, "2025-06-18")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetOpeningBalance_ReopenDiscardsClosing(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.SetOpeningBalance(ctx, "2025-06-17", 100))
	_, err := l.SetClosingBalance(ctx, "2025-06-17", 150)
	require.NoError(t, err)

	// Reabrir la fecha deja el cierre pendiente otra vez
	require.NoError(t, l.SetOpeningBalance(ctx, "2025-06-17", 160))

	b, err := l.DailyBalance(ctx, "2025-06-17")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Nil(t, b.ClosingBalance)
}

func TestClosedDates(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	for _, d := range []string{"2025-06-15", "2025-06-16", "2025-06-18"} {
		require.NoError(t, l.SetOpeningBalance(ctx, d, 100))
		_, err := l.SetClosingBalance(ctx, d, 110)
		require.NoError(t, err)
	}
	// Fecha abierta sin cierre: no cuenta
	require.NoError(t, l.SetOpeningBalance(ctx, "2025-06-17", 100))

	dates, err := l.ClosedDates(ctx, "2025-06-16")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-16", "2025-06-18"}, dates)
}
