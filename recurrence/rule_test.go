package recurrence

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/calrecur/calerr"
)

func TestParseRule(t *testing.T) {
	r, err := ParseRule("RRULE:FREQ=WEEKLY;BYDAY=MO,TH,FR,SA,SU;BYHOUR=23;BYMINUTE=5")
	require.NoError(t, err)

	assert.Equal(t, Weekly, r.Frequency())
	assert.Equal(t, 1, r.Interval())
	assert.Equal(t, Days(time.Monday, time.Thursday, time.Friday, time.Saturday, time.Sunday), r.ByDay())
	assert.Equal(t, []int{23}, r.ByHour())
	assert.Equal(t, []int{5}, r.ByMinute())
	assert.Equal(t, time.Monday, r.WeekStart())
	assert.True(t, r.Count().IsAbsent())
	assert.True(t, r.Until().IsAbsent())
	assert.True(t, strings.HasPrefix(r.String(), "FREQ=WEEKLY"))
}

func TestParseRule_RoundTrip(t *testing.T) {
	rules := []string{
		"FREQ=DAILY",
		"FREQ=WEEKLY;INTERVAL=2;BYDAY=TU,TH;WKST=SU",
		"FREQ=MONTHLY;BYDAY=-1FR",
		"FREQ=MONTHLY;BYMONTHDAY=1,15;COUNT=10",
		"FREQ=YEARLY;BYMONTH=3;BYDAY=SU;BYSETPOS=-1",
		"FREQ=DAILY;UNTIL=20240131T000000Z",
	}

	for _, text := range rules {
		t.Run(text, func(t *testing.T) {
			r, err := ParseRule(text)
			require.NoError(t, err)

			again, err := ParseRule(r.String())
			require.NoError(t, err)
			assert.True(t, r.Equal(again), "%s != %s", r, again)
		})
	}
}

func TestParseRule_Parts(t *testing.T) {
	r, err := ParseRule("FREQ=MONTHLY;INTERVAL=3;BYDAY=2MO,-1FR;COUNT=4;WKST=SU")
	require.NoError(t, err)

	assert.Equal(t, Monthly, r.Frequency())
	assert.Equal(t, 3, r.Interval())
	assert.Equal(t, []Weekday{{Day: time.Monday, N: 2}, {Day: time.Friday, N: -1}}, r.ByDay())
	assert.Equal(t, time.Sunday, r.WeekStart())
	assert.Equal(t, 4, r.Count().MustGet())

	r, err = ParseRule("FREQ=DAILY;UNTIL=20240131T120000Z")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC).Equal(r.Until().MustGet()))
}

func TestParseRule_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"prefix only", "RRULE:"},
		{"unknown frequency", "FREQ=SOMETIMES"},
		{"bysecond", "FREQ=DAILY;BYSECOND=5"},
		{"byweekno", "FREQ=YEARLY;BYWEEKNO=20"},
		{"dtstart", "DTSTART=20160101T000000Z;FREQ=DAILY"},
		{"hour out of range", "FREQ=DAILY;BYHOUR=24"},
		{"minute out of range", "FREQ=DAILY;BYMINUTE=60"},
		{"ordinal on weekly", "FREQ=WEEKLY;BYDAY=1MO"},
		{"count and until", "FREQ=DAILY;COUNT=3;UNTIL=20240101T000000Z"},
		{"setpos alone", "FREQ=MONTHLY;BYSETPOS=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRule(tt.text)
			assert.Nil(t, r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, calerr.ErrInvalidRule), "got %v", err)
		})
	}
}

func TestMustParseRule_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseRule("FREQ=") })
	assert.NotPanics(t, func() { MustParseRule("FREQ=HOURLY") })
}

func TestNewRule(t *testing.T) {
	r, err := NewRule(Weekly, ByDay(Days(time.Monday, time.Wednesday)...), ByHour(9), Count(5))
	require.NoError(t, err)
	assert.Equal(t, 5, r.Count().MustGet())

	// accessors hand out copies
	days := r.ByDay()
	days[0].Day = time.Sunday
	assert.Equal(t, time.Monday, r.ByDay()[0].Day)

	_, err = NewRule(Frequency(42))
	assert.True(t, errors.Is(err, calerr.ErrInvalidRule))

	_, err = NewRule(Daily, Count(0))
	assert.True(t, errors.Is(err, calerr.ErrInvalidRule))

	_, err = NewRule(Monthly, ByMonthDay(0))
	assert.True(t, errors.Is(err, calerr.ErrInvalidRule))
}

func TestRule_Equal(t *testing.T) {
	a := MustParseRule("FREQ=WEEKLY;BYDAY=MO,TH")
	b, err := NewRule(Weekly, ByDay(Days(time.Monday, time.Thursday)...))
	require.NoError(t, err)
	c := MustParseRule("FREQ=WEEKLY;BYDAY=MO")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Rule)(nil).Equal(nil))
}

func TestFrequency_String(t *testing.T) {
	assert.Equal(t, "WEEKLY", Weekly.String())
	assert.Equal(t, "SECONDLY", Secondly.String())
	assert.Equal(t, "Frequency(9)", Frequency(9).String())
}
