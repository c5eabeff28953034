package datekey

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layouts accepted by Parse.
const (
	ISOLayout  = "2006-01-02"
	WireLayout = "Mon Jan 02 2006" // JS Date.toDateString, what the backend stores
	UILayout   = "02/01/2006"      // en-GB short date
)

var ErrInvalidDate = errors.New("invalid date")

// Now is the clock used by the IsToday family. Tests can swap it.
var Now = time.Now

// DateKey is a calendar day without a time component.
// The zero value is not a valid day.
type DateKey struct {
	year  int
	month time.Month
	day   int
}

func New(year int, month time.Month, day int) (DateKey, error) {
	if month < time.January || month > time.December || day < 1 {
		return DateKey{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	// time.Date normalises overflowing days, so compare the result back
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return DateKey{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return DateKey{year: year, month: month, day: day}, nil
}

func MustNew(year int, month time.Month, day int) DateKey {
	dk, err := New(year, month, day)
	if err != nil {
		panic(err)
	}
	return dk
}

// FromTime returns the local calendar day of t.
func FromTime(t time.Time) DateKey {
	return In(t, time.Local)
}

// In returns the calendar day of t as seen in loc.
func In(t time.Time, loc *time.Location) DateKey {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return DateKey{year: y, month: m, day: d}
}

func Today() DateKey {
	return FromTime(Now())
}

// Parse accepts the ISO form, the backend wire form, the en-GB UI form
// and RFC 3339 instants. Instants are converted with local semantics.
func Parse(s string) (DateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateKey{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	for _, layout := range []string{ISOLayout, WireLayout, UILayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateKey{year: t.Year(), month: t.Month(), day: t.Day()}, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return FromTime(t), nil
	}

	return DateKey{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func MustParse(s string) DateKey {
	dk, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return dk
}

func (d DateKey) Valid() bool {
	return d.month != 0
}

func (d DateKey) Year() int         { return d.year }
func (d DateKey) Month() time.Month { return d.month }
func (d DateKey) Day() int          { return d.day }

func (d DateKey) Equal(other DateKey) bool {
	return d.Valid() && other.Valid() && d == other
}

// Compare returns -1, 0 or +1 ordering by chronological day.
func (d DateKey) Compare(other DateKey) int {
	switch {
	case d.year != other.year:
		return cmpInt(d.year, other.year)
	case d.month != other.month:
		return cmpInt(int(d.month), int(other.month))
	default:
		return cmpInt(d.day, other.day)
	}
}

func (d DateKey) Before(other DateKey) bool { return d.Compare(other) < 0 }
func (d DateKey) After(other DateKey) bool  { return d.Compare(other) > 0 }

func (d DateKey) AddDays(n int) DateKey {
	t := d.Time(time.UTC).AddDate(0, 0, n)
	return DateKey{year: t.Year(), month: t.Month(), day: t.Day()}
}

// Time returns midnight of the day in loc.
func (d DateKey) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

func (d DateKey) IsToday() bool         { return d.IsTodayAt(Now()) }
func (d DateKey) IsPastOrToday() bool   { return d.IsPastOrTodayAt(Now()) }
func (d DateKey) IsFutureOrToday() bool { return d.IsFutureOrTodayAt(Now()) }

func (d DateKey) IsTodayAt(now time.Time) bool {
	return d.Compare(FromTime(now)) == 0
}

func (d DateKey) IsPastOrTodayAt(now time.Time) bool {
	return d.Compare(FromTime(now)) <= 0
}

func (d DateKey) IsFutureOrTodayAt(now time.Time) bool {
	return d.Compare(FromTime(now)) >= 0
}

// String returns the ISO form, e.g. 2024-06-10.
func (d DateKey) String() string {
	if !d.Valid() {
		return "invalid-date"
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// Wire returns the form the backend expects, e.g. "Mon Jun 10 2024".
func (d DateKey) Wire() string {
	return d.Time(time.UTC).Format(WireLayout)
}

func (d DateKey) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, ErrInvalidDate
	}
	return []byte(d.String()), nil
}

func (d *DateKey) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d DateKey) MarshalJSON() ([]byte, error) {
	text, err := d.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

func (d *DateKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, err)
	}
	return d.UnmarshalText([]byte(s))
}

// Window returns the consecutive days from center-before to center+after.
func Window(center DateKey, before, after int) []DateKey {
	if before < 0 {
		before = 0
	}
	if after < 0 {
		after = 0
	}
	days := make([]DateKey, 0, before+after+1)
	for i := -before; i <= after; i++ {
		days = append(days, center.AddDays(i))
	}
	return days
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
