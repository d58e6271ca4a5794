package guide

import (
	"fmt"
	"strconv"
	"time"
)

// TargetZoneName is the fixed zone the source site publishes schedules in,
// independent of wherever the grabber happens to run.
const TargetZoneName = "Europe/Budapest"

const dayFormat = "20060102"

// LoadTargetZone resolves the site's time zone from the system database.
func LoadTargetZone() (*time.Location, error) {
	loc, err := time.LoadLocation(TargetZoneName)
	if err != nil {
		return nil, fmt.Errorf("load zone %s: %w", TargetZoneName, err)
	}
	return loc, nil
}

// Day is a civil date in the target zone.
type Day struct {
	year  int
	month time.Month
	day   int
	loc   *time.Location
}

// NewDay truncates an instant to the civil date it falls on in loc.
func NewDay(t time.Time, loc *time.Location) Day {
	local := t.In(loc)
	return Day{year: local.Year(), month: local.Month(), day: local.Day(), loc: loc}
}

// AddDays advances the date by n civil days. DST transitions are handled by
// time.Date normalization, so the result is always a valid date.
func (d Day) AddDays(n int) Day {
	t := time.Date(d.year, d.month, d.day+n, 12, 0, 0, 0, d.loc)
	return NewDay(t, d.loc)
}

// Next returns the following calendar day.
func (d Day) Next() Day {
	return d.AddDays(1)
}

// Format renders the date as YYYYMMDD, the shape day-page URLs expect.
func (d Day) Format() string {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, d.loc).Format(dayFormat)
}

// String implements fmt.Stringer for log fields.
func (d Day) String() string {
	return d.Format()
}

// At resolves an "HHMM" time-of-day to an absolute instant on this day in
// the target zone.
func (d Day) At(hhmm string) (time.Time, error) {
	hour, minute, err := ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.year, d.month, d.day, hour, minute, 0, 0, d.loc), nil
}

// ParseHHMM validates a 4-digit "HHMM" string and splits it into its parts.
func ParseHHMM(s string) (hour, minute int, err error) {
	if len(s) != 4 {
		return 0, 0, fmt.Errorf("time %q: want 4 digits", s)
	}
	hour, err = strconv.Atoi(s[:2])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("time %q: bad hour", s)
	}
	minute, err = strconv.Atoi(s[2:])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %q: bad minute", s)
	}
	return hour, minute, nil
}

// ProgrammeTimes computes the absolute start and stop instants for a
// programme airing on day d between the given "HHMM" bounds. When the end
// hour integer is strictly lower than the start hour integer the stop falls
// on the following day; that hour-only comparison is how the source data
// encodes its day boundaries and downstream consumers rely on it.
func ProgrammeTimes(d Day, startHHMM, endHHMM string) (start, stop time.Time, err error) {
	start, err = d.At(startHHMM)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endHour, _, err := ParseHHMM(endHHMM)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	startHour, _, _ := ParseHHMM(startHHMM)
	stopDay := d
	if endHour < startHour {
		stopDay = d.Next()
	}
	stop, err = stopDay.At(endHHMM)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, stop, nil
}
