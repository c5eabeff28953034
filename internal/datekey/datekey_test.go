package datekey_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/gymplanner/internal/datekey"
)

func TestNew_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		year  int
		month time.Month
		day   int
	}{
		{name: "feb 30", year: 2024, month: time.February, day: 30},
		{name: "month 13", year: 2024, month: 13, day: 1},
		{name: "month 0", year: 2024, month: 0, day: 1},
		{name: "day 0", year: 2024, month: time.June, day: 0},
		{name: "non leap", year: 2023, month: time.February, day: 29},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := datekey.New(tc.year, tc.month, tc.day)
			assert.ErrorIs(t, err, datekey.ErrInvalidDate)
		})
	}

	leap, err := datekey.New(2024, time.February, 29)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", leap.String())
}

func TestFromTime_SameDayStable(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	start := time.Date(2024, time.June, 10, 0, 0, 0, 0, berlin)
	want := datekey.In(start, berlin)
	for offset := time.Duration(0); offset < 24*time.Hour; offset += 37 * time.Minute {
		got := datekey.In(start.Add(offset), berlin)
		assert.True(t, want.Equal(got), "offset %s", offset)
	}

	// same instant seen from different zones
	instant := time.Date(2024, time.June, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-10", datekey.In(instant, time.UTC).String())
	assert.Equal(t, "2024-06-11", datekey.In(instant, berlin).String())

	// different zone representations of the same local day
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	a := datekey.In(time.Date(2024, time.June, 10, 1, 0, 0, 0, tokyo), tokyo)
	b := datekey.In(time.Date(2024, time.June, 10, 22, 0, 0, 0, berlin), berlin)
	assert.True(t, a.Equal(b))
}

func TestParse(t *testing.T) {
	want := datekey.MustNew(2024, time.June, 10)

	for _, s := range []string{
		"2024-06-10",
		"Mon Jun 10 2024",
		"10/06/2024",
		" 2024-06-10 ",
	} {
		got, err := datekey.Parse(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	instant := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.Local)
	got, err := datekey.Parse(instant.Format(time.RFC3339))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, s := range []string{"", "yesterday", "2024-02-30", "Invalid Date", "32/01/2024"} {
		_, err := datekey.Parse(s)
		assert.ErrorIs(t, err, datekey.ErrInvalidDate, s)
	}
}

func TestCompare(t *testing.T) {
	d1 := datekey.MustParse("2024-06-10")
	d2 := datekey.MustParse("2024-06-11")
	d3 := datekey.MustParse("2025-01-01")

	assert.Equal(t, -1, d1.Compare(d2))
	assert.Equal(t, 1, d3.Compare(d2))
	assert.Equal(t, 0, d1.Compare(datekey.MustParse("Mon Jun 10 2024")))
	assert.True(t, d1.Before(d2))
	assert.True(t, d3.After(d1))
	assert.False(t, datekey.DateKey{}.Equal(datekey.DateKey{}))
	assert.False(t, datekey.DateKey{}.Valid())
}

func TestAddDaysAndWindow(t *testing.T) {
	d := datekey.MustParse("2024-02-28")
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2023-12-31", datekey.MustParse("2024-01-01").AddDays(-1).String())

	window := datekey.Window(datekey.MustParse("2024-06-10"), 2, 1)
	require.Len(t, window, 4)
	assert.Equal(t, "2024-06-08", window[0].String())
	assert.Equal(t, "2024-06-11", window[3].String())
}

func TestIsTodayFamily(t *testing.T) {
	now := time.Date(2024, time.June, 10, 15, 0, 0, 0, time.Local)
	today := datekey.FromTime(now)
	yesterday := today.AddDays(-1)
	tomorrow := today.AddDays(1)

	assert.True(t, today.IsTodayAt(now))
	assert.True(t, today.IsPastOrTodayAt(now))
	assert.True(t, today.IsFutureOrTodayAt(now))
	assert.True(t, yesterday.IsPastOrTodayAt(now))
	assert.False(t, yesterday.IsFutureOrTodayAt(now))
	assert.True(t, tomorrow.IsFutureOrTodayAt(now))
	assert.False(t, tomorrow.IsPastOrTodayAt(now))

	// the package clock is read on every call
	origNow := datekey.Now
	defer func() { datekey.Now = origNow }()

	datekey.Now = func() time.Time { return now }
	assert.True(t, today.IsToday())
	datekey.Now = func() time.Time { return now.Add(24 * time.Hour) }
	assert.False(t, today.IsToday())
	assert.True(t, tomorrow.IsToday())
}

func TestWireAndJSON(t *testing.T) {
	d := datekey.MustParse("2024-06-10")
	assert.Equal(t, "Mon Jun 10 2024", d.Wire())

	b, err := json.Marshal(map[datekey.DateKey]float64{d: 12.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"2024-06-10": 12.5}`, string(b))

	var decoded map[datekey.DateKey]float64
	require.NoError(t, json.Unmarshal([]byte(`{"Mon Jun 10 2024": 3}`), &decoded))
	assert.Equal(t, 3.0, decoded[d])

	var single datekey.DateKey
	assert.ErrorIs(t, json.Unmarshal([]byte(`"nope"`), &single), datekey.ErrInvalidDate)

	_, err = json.Marshal(datekey.DateKey{})
	assert.Error(t, err)
}
