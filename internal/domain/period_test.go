package domain_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Miércoles 2025-06-18 14:30 UTC, referencia fija para los rangos.
var wednesday = time.Date(2025, 6, 18, 14, 30, 0, 0, time.UTC)

func TestPeriodRange_Today(t *testing.T) {
	start, end, err := domain.PeriodToday.Range(wednesday)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
	assert.Equal(t, wednesday.UnixMilli(), end)
}

func TestPeriodRange_Yesterday(t *testing.T) {
	start, end, err := domain.PeriodYesterday.Range(wednesday)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
	// Ayer termina en su último instante, no en "now"
	wantEnd := time.Date(2025, 6, 17, 23, 59, 59, 999_000_000, time.UTC).UnixMilli()
	assert.Equal(t, wantEnd, end)
}

func TestPeriodRange_WeekStartsMonday(t *testing.T) {
	start, end, err := domain.PeriodWeek.Range(wednesday)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
	assert.Equal(t, wednesday.UnixMilli(), end)
}

func TestPeriodRange_WeekOnMonday(t *testing.T) {
	monday := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	start, _, err := domain.PeriodWeek.Range(monday)
	require.NoError(t, err)

	// El lunes la semana empieza hoy mismo, no hace siete días
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
}

func TestPeriodRange_WeekOnSunday(t *testing.T) {
	sunday := time.Date(2025, 6, 22, 9, 0, 0, 0, time.UTC)
	start, _, err := domain.PeriodWeek.Range(sunday)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
}

func TestPeriodRange_Month(t *testing.T) {
	start, end, err := domain.PeriodMonth.Range(wednesday)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
	assert.Equal(t, wednesday.UnixMilli(), end)
}

func TestPeriodRange_Year(t *testing.T) {
	start, end, err := domain.PeriodYear.Range(wednesday)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 18, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
	assert.Equal(t, wednesday.UnixMilli(), end)
}

func TestPeriodRange_Unknown(t *testing.T) {
	_, _, err := domain.Period("fortnight").Range(wednesday)
	assert.Error(t, err)
}

func TestLastNDaysRange(t *testing.T) {
	start, end, err := domain.LastNDaysRange(wednesday, 7)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
	assert.Equal(t, wednesday.UnixMilli(), end)
}

func TestLastNDaysRange_Bounds(t *testing.T) {
	for _, days := range []int{0, -1, 366} {
		_, _, err := domain.LastNDaysRange(wednesday, days)
		assert.Error(t, err, "days=%d", days)
	}

	_, _, err := domain.LastNDaysRange(wednesday, 365)
	assert.NoError(t, err)
}

func TestDateWindow(t *testing.T) {
	start, end, err := domain.DateWindow("2025-06-17", time.UTC)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
	assert.Equal(t, time.Date(2025, 6, 17, 23, 59, 59, 999_000_000, time.UTC).UnixMilli(), end)
}

func TestDateWindow_BadDate(t *testing.T) {
	_, _, err := domain.DateWindow("17/06/2025", time.UTC)
	assert.Error(t, err)
}
