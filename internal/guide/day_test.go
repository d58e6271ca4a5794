package guide

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadTargetZone()
	require.NoError(t, err)
	return loc
}

func TestNewDayTruncatesToCivilDate(t *testing.T) {
	t.Parallel()
	loc := mustZone(t)

	// 23:30 UTC on Jan 3 is already Jan 4 in the target zone (UTC+1).
	d := NewDay(time.Date(2025, time.January, 3, 23, 30, 0, 0, time.UTC), loc)
	require.Equal(t, "20250104", d.Format())
}

func TestDayAddDaysAcrossMonth(t *testing.T) {
	t.Parallel()
	loc := mustZone(t)

	d := NewDay(time.Date(2025, time.January, 30, 12, 0, 0, 0, loc), loc)
	require.Equal(t, "20250202", d.AddDays(3).Format())
	require.Equal(t, "20250131", d.Next().Format())
}

func TestDayAtResolvesInTargetZone(t *testing.T) {
	t.Parallel()
	loc := mustZone(t)

	d := NewDay(time.Date(2025, time.June, 10, 0, 0, 0, 0, loc), loc)
	got, err := d.At("2015")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.June, 10, 20, 15, 0, 0, loc), got)

	_, off := got.Zone()
	require.Equal(t, 2*3600, off) // summer time
}

func TestParseHHMMRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "930", "24:0", "2460", "2x30", "99999"} {
		_, _, err := ParseHHMM(bad)
		require.Error(t, err, "input %q", bad)
	}

	h, m, err := ParseHHMM("0005")
	require.NoError(t, err)
	require.Equal(t, 0, h)
	require.Equal(t, 5, m)
}

func TestProgrammeTimesSameDay(t *testing.T) {
	t.Parallel()
	loc := mustZone(t)

	d := NewDay(time.Date(2025, time.March, 1, 0, 0, 0, 0, loc), loc)
	start, stop, err := ProgrammeTimes(d, "1000", "1030")
	require.NoError(t, err)
	require.True(t, stop.After(start))
	require.Equal(t, d.Format(), stop.Format("20060102"))
}

func TestProgrammeTimesMidnightRollover(t *testing.T) {
	t.Parallel()
	loc := mustZone(t)

	d := NewDay(time.Date(2025, time.March, 1, 0, 0, 0, 0, loc), loc)
	start, stop, err := ProgrammeTimes(d, "2300", "0100")
	require.NoError(t, err)
	require.True(t, stop.After(start))
	require.Equal(t, "20250302", stop.Format("20060102"))
	require.Equal(t, 2*time.Hour, stop.Sub(start))
}

func TestProgrammeTimesEqualHourStaysSameDay(t *testing.T) {
	t.Parallel()
	loc := mustZone(t)

	// The rollover rule compares hour integers only; an end in the same hour
	// never advances the stop date.
	d := NewDay(time.Date(2025, time.March, 1, 0, 0, 0, 0, loc), loc)
	_, stop, err := ProgrammeTimes(d, "1005", "1045")
	require.NoError(t, err)
	require.Equal(t, "20250301", stop.Format("20060102"))
}
