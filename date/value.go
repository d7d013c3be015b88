// Package date implements the three kinds of iCalendar date values: a bare
// date, a floating date-time and a date-time anchored to a zone or to UTC.
//
// Value is a sealed interface. Only Zoned carries a zone, so code that needs
// to change a zone must hold a Zoned and the compiler enforces it; callers
// convert a Date or Floating explicitly with their In methods.
package date

import (
	"time"

	"github.com/cyp0633/calrecur/tz"
)

// Kind identifies the variant of a Value
type Kind int

const (
	KindDate     Kind = iota // DATE, no time of day
	KindFloating             // DATE-TIME without a zone
	KindZoned                // DATE-TIME in a zone or in UTC
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "DATE"
	case KindFloating:
		return "FLOATING"
	case KindZoned:
		return "ZONED"
	default:
		return "UNKNOWN"
	}
}

// Value is a date or date-time value. Implemented by Date, Floating and Zoned.
type Value interface {
	Kind() Kind
	isValue()
}

// IsDateTime reports whether v carries a time of day (VALUE=DATE-TIME)
func IsDateTime(v Value) bool {
	if v == nil {
		return false
	}
	return v.Kind() == KindFloating || v.Kind() == KindZoned
}

// Date is a calendar date without time of day or zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the fields the way time.Date does (Feb 30 becomes Mar 1 or 2)
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (Date) Kind() Kind { return KindDate }
func (Date) isValue()   {}

// In returns local midnight of the date in zone
func (d Date) In(zone *tz.Zone) Zoned {
	return NewZoned(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, zone.Location()), zone)
}

// Weekday returns the day of the week
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Floating is a wall-clock date-time that is not anchored to any zone
type Floating struct {
	// wall holds the fields in UTC; its offset carries no meaning
	wall time.Time
}

// NewFloating creates a floating date-time from calendar fields
func NewFloating(year int, month time.Month, day, hour, min, sec, nsec int) Floating {
	return Floating{wall: time.Date(year, month, day, hour, min, sec, nsec, time.UTC)}
}

// FloatingFromTime keeps the wall clock of t and drops its location
func FloatingFromTime(t time.Time) Floating {
	return NewFloating(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond())
}

func (Floating) Kind() Kind { return KindFloating }
func (Floating) isValue()   {}

// Wall returns the wall-clock fields as a time in loc
func (f Floating) Wall(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	w := f.wall
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
}

// In interprets the wall clock in zone. Wall times skipped by a DST
// transition are normalized the way time.Date does.
func (f Floating) In(zone *tz.Zone) Zoned {
	return NewZoned(f.Wall(zone.Location()), zone)
}

// Zoned is a date-time anchored to a zone. UTC values use tz.UTC.
type Zoned struct {
	t    time.Time
	zone *tz.Zone
}

// NewZoned creates a zoned date-time for the instant t. A nil zone means UTC.
func NewZoned(t time.Time, zone *tz.Zone) Zoned {
	if zone == nil {
		zone = tz.UTC
	}
	return Zoned{t: t.In(zone.Location()), zone: zone}
}

// NewUTC creates a UTC date-time for the instant t
func NewUTC(t time.Time) Zoned {
	return NewZoned(t, tz.UTC)
}

func (Zoned) Kind() Kind { return KindZoned }
func (Zoned) isValue()   {}

// Time returns the instant, located in the value's zone
func (z Zoned) Time() time.Time {
	return z.t
}

// Zone returns the associated zone
func (z Zoned) Zone() *tz.Zone {
	if z.zone == nil {
		return tz.UTC
	}
	return z.zone
}

// IsUTC reports whether the value is in UTC
func (z Zoned) IsUTC() bool {
	return z.Zone().IsUTC()
}

// WithZone returns the same instant expressed in zone. A nil zone means UTC.
func (z Zoned) WithZone(zone *tz.Zone) Zoned {
	return NewZoned(z.t, zone)
}

// Equal reports whether both values denote the same instant in the same zone
func (z Zoned) Equal(other Zoned) bool {
	return z.t.Equal(other.t) && z.Zone().Equal(other.Zone())
}

// Instant returns the absolute instant v denotes. Date values denote local
// midnight and Floating values their wall clock, both in ctx; a nil ctx means UTC.
func Instant(v Value, ctx *time.Location) time.Time {
	if ctx == nil {
		ctx = time.UTC
	}
	switch v := v.(type) {
	case Date:
		return time.Date(v.Year, v.Month, v.Day, 0, 0, 0, 0, ctx)
	case Floating:
		return v.Wall(ctx)
	case Zoned:
		return v.t
	default:
		return time.Time{}
	}
}

// Compare orders two values by their instant in ctx. It returns -1, 0 or +1.
func Compare(a, b Value, ctx *time.Location) int {
	return Instant(a, ctx).Compare(Instant(b, ctx))
}
