package tz

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Zone is a resolved timezone. It answers the two questions the recurrence
// engine needs: whether an instant is in daylight saving time, and by how much
// daylight saving shifts the wall clock.
type Zone struct {
	id  string
	loc *time.Location
}

// UTC is the zone used for UTC date-times. Values in this zone never carry a TZID.
var UTC = &Zone{id: "UTC", loc: time.UTC}

// NewZone wraps a location. A nil location yields UTC.
func NewZone(loc *time.Location) *Zone {
	if loc == nil || loc == time.UTC {
		return UTC
	}
	return &Zone{id: loc.String(), loc: loc}
}

// Local returns the process default zone. The result depends on the
// environment (TZ variable, /etc/localtime).
func Local() *Zone {
	name := strings.TrimPrefix(os.Getenv("TZ"), ":")
	if name == "" {
		if target, err := filepath.EvalSymlinks("/etc/localtime"); err == nil {
			if i := strings.LastIndex(target, "zoneinfo/"); i >= 0 {
				name = target[i+len("zoneinfo/"):]
			}
		}
	}
	if name != "" && !filepath.IsAbs(name) {
		if loc, err := time.LoadLocation(name); err == nil {
			return NewZone(loc)
		}
	}
	local := &Zone{id: time.Local.String(), loc: time.Local}
	now := time.Now()
	if _, off := now.In(time.Local).Zone(); off == 0 && local.DSTOffset(now) == 0 {
		return UTC
	}
	return local
}

// ID returns the zone identifier as used in TZID parameters
func (z *Zone) ID() string {
	return z.id
}

// Location returns the underlying location
func (z *Zone) Location() *time.Location {
	return z.loc
}

// IsUTC reports whether the zone is UTC
func (z *Zone) IsUTC() bool {
	return z == UTC || z.loc == time.UTC
}

// InDaylightTime reports whether t falls in daylight saving time in this zone
func (z *Zone) InDaylightTime(t time.Time) bool {
	return t.In(z.loc).IsDST()
}

// DSTOffset returns the amount daylight saving time adds to the standard
// offset in the year containing t. Zones without DST return 0.
func (z *Zone) DSTOffset(t time.Time) time.Duration {
	year := t.In(z.loc).Year()
	_, jan := time.Date(year, time.January, 1, 0, 0, 0, 0, z.loc).Zone()
	_, jul := time.Date(year, time.July, 1, 0, 0, 0, 0, z.loc).Zone()
	d := jul - jan
	if d < 0 {
		d = -d
	}
	return time.Duration(d) * time.Second
}

// Equal reports whether two zones share the same identifier
func (z *Zone) Equal(other *Zone) bool {
	if z == nil || other == nil {
		return z == other
	}
	if z.IsUTC() || other.IsUTC() {
		return z.IsUTC() && other.IsUTC()
	}
	return z.id == other.id
}

func (z *Zone) String() string {
	return z.id
}
