package period

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/cyp0633/calrecur/calerr"
)

const layoutUTC = "20060102T150405Z"

// Period is one concrete occurrence span. Bounds are kept in UTC.
// Construction never fails; callers keep end >= start.
type Period struct {
	start time.Time
	end   time.Time
}

// New creates a period from explicit bounds
func New(start, end time.Time) Period {
	return Period{start: start.UTC(), end: end.UTC()}
}

// WithDuration creates a period that starts at start and lasts d
func WithDuration(start time.Time, d time.Duration) Period {
	return New(start, start.Add(d))
}

// Start returns the start instant in UTC
func (p Period) Start() time.Time { return p.start }

// End returns the end instant in UTC
func (p Period) End() time.Time { return p.end }

// Duration returns end - start
func (p Period) Duration() time.Duration { return p.end.Sub(p.start) }

// Equal reports whether both bounds are equal
func (p Period) Equal(other Period) bool {
	return p.start.Equal(other.start) && p.end.Equal(other.end)
}

// Compare orders periods by start, then by end
func (p Period) Compare(other Period) int {
	if c := p.start.Compare(other.start); c != 0 {
		return c
	}
	return p.end.Compare(other.end)
}

// Contains reports whether t lies in [start, end)
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.start) && t.Before(p.end)
}

// Overlaps reports whether the two spans share any instant. Empty periods
// overlap a span that contains their start.
func (p Period) Overlaps(other Period) bool {
	if p.start.Equal(p.end) {
		return other.Contains(p.start) || other.start.Equal(p.start)
	}
	if other.start.Equal(other.end) {
		return p.Contains(other.start)
	}
	return p.start.Before(other.end) && other.start.Before(p.end)
}

// In returns the bounds expressed in loc
func (p Period) In(loc *time.Location) (start, end time.Time) {
	return p.start.In(loc), p.end.In(loc)
}

// String renders the explicit form "start/end" of RFC 5545 PERIOD values
func (p Period) String() string {
	return p.start.Format(layoutUTC) + "/" + p.end.Format(layoutUTC)
}

// Parse reads a PERIOD value in either the explicit "start/end" or the
// "start/duration" form. Only UTC bounds are accepted.
func Parse(text string) (Period, error) {
	startText, rest, ok := strings.Cut(strings.TrimSpace(text), "/")
	if !ok {
		return Period{}, calerr.New(calerr.InvalidInput, "invalid PERIOD %q: missing '/'", text)
	}

	start, err := time.Parse(layoutUTC, startText)
	if err != nil {
		return Period{}, calerr.Wrap(calerr.InvalidInput, err, "invalid PERIOD start %q", startText)
	}

	if strings.HasPrefix(rest, "P") || strings.HasPrefix(rest, "+P") || strings.HasPrefix(rest, "-P") {
		// go-ical already knows the DURATION grammar
		prop := ical.NewProp(ical.PropDuration)
		prop.Value = rest
		d, err := prop.Duration()
		if err != nil {
			return Period{}, calerr.Wrap(calerr.InvalidInput, err, "invalid PERIOD duration %q", rest)
		}
		if d < 0 {
			return Period{}, calerr.New(calerr.InvalidInput, "invalid PERIOD %q: negative duration", text)
		}
		return WithDuration(start, d), nil
	}

	end, err := time.Parse(layoutUTC, rest)
	if err != nil {
		return Period{}, calerr.Wrap(calerr.InvalidInput, err, "invalid PERIOD end %q", rest)
	}
	if end.Before(start) {
		return Period{}, calerr.New(calerr.InvalidInput, "invalid PERIOD %q: end before start", text)
	}
	return New(start, end), nil
}
