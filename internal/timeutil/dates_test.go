package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFactoryZone(t *testing.T, loc *time.Location) {
	t.Helper()
	prev := Factory
	Factory = loc
	t.Cleanup(func() { Factory = prev })
}

func TestDate_UsesFactoryCalendar(t *testing.T) {
	withFactoryZone(t, time.FixedZone("IST", 5*3600+1800))

	// 20:00 UTC on the 9th is already the 10th on the shop floor
	got := Date(time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, d.Location())
	assert.Equal(t, "2026-03-02", AddDays(d, 2).Format(DateLayout))

	_, err = ParseDate("28/02/2026")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", FormatDate(nil))
	d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-10", FormatDate(&d))
}

func TestSetLocation_UnknownKeepsZone(t *testing.T) {
	withFactoryZone(t, time.UTC)

	assert.Error(t, SetLocation("Not/AZone"))
	assert.Equal(t, time.UTC, Factory)
	assert.NoError(t, SetLocation("UTC"))
}
