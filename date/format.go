package date

import (
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/tz"
)

// iCalendar basic formats
const (
	LayoutDate        = "20060102"
	LayoutDateTime    = "20060102T150405"
	LayoutDateTimeUTC = "20060102T150405Z"
)

// Format renders v in iCalendar text form. The zone of a non-UTC Zoned value
// is not part of the text; it travels in the TZID parameter.
func Format(v Value) string {
	switch v := v.(type) {
	case Date:
		return time.Date(v.Year, v.Month, v.Day, 0, 0, 0, 0, time.UTC).Format(LayoutDate)
	case Floating:
		return v.wall.Format(LayoutDateTime)
	case Zoned:
		if v.IsUTC() {
			return v.t.UTC().Format(LayoutDateTimeUTC)
		}
		return v.t.Format(LayoutDateTime)
	default:
		return ""
	}
}

// Parse reads a DATE or DATE-TIME in iCalendar text form. Date-times ending in
// Z are UTC; other date-times are zoned when zone is non-nil and floating otherwise.
func Parse(text string, zone *tz.Zone) (Value, error) {
	text = strings.TrimSpace(text)

	switch {
	case len(text) == len(LayoutDate):
		t, err := time.Parse(LayoutDate, text)
		if err != nil {
			return nil, calerr.Wrap(calerr.InvalidInput, err, "invalid DATE %q", text)
		}
		return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
	case strings.HasSuffix(text, "Z"):
		t, err := time.Parse(LayoutDateTimeUTC, text)
		if err != nil {
			return nil, calerr.Wrap(calerr.InvalidInput, err, "invalid UTC DATE-TIME %q", text)
		}
		return NewUTC(t), nil
	default:
		t, err := time.Parse(LayoutDateTime, text)
		if err != nil {
			return nil, calerr.Wrap(calerr.InvalidInput, err, "invalid DATE-TIME %q", text)
		}
		f := FloatingFromTime(t)
		if zone == nil {
			return f, nil
		}
		return f.In(zone), nil
	}
}
