package recurrence

import (
	"time"

	"github.com/cyp0633/calrecur/tz"
)

// window holds the per-expansion state derived from the caller's bounds.
//
// Candidates are generated on the UTC clock, so every candidate keeps the UTC
// offset the zone had at the window start. Candidates on the other side of a
// DST boundary are then moved by the DST offset to get back to the same wall
// clock time. Each candidate is compared against the DST state of the window
// start, so any number of boundaries can be corrected; Expand still refuses
// windows with more than one.
type window struct {
	zone *tz.Zone

	// generator bounds in UTC
	start time.Time
	end   time.Time

	// templateEnd is the window start's wall clock on the window end's local
	// date, plus the requested duration. It bounds generation and is never
	// returned.
	templateEnd time.Time

	startDST    bool
	crossing    bool
	transitions int
	dst         time.Duration
}

func newWindow(windowStart, windowEnd time.Time, duration time.Duration, zone *tz.Zone) window {
	loc := zone.Location()
	localStart := windowStart.In(loc)
	localEnd := windowEnd.In(loc)

	templateEnd := time.Date(localEnd.Year(), localEnd.Month(), localEnd.Day(),
		localStart.Hour(), localStart.Minute(), localStart.Second(), localStart.Nanosecond(), loc).Add(duration)

	w := window{
		zone:        zone,
		start:       localStart.UTC(),
		end:         templateEnd.UTC(),
		templateEnd: templateEnd,
		startDST:    zone.InDaylightTime(localStart),
		dst:         zone.DSTOffset(localStart),
	}
	w.transitions = countTransitions(zone, localStart, templateEnd)
	w.crossing = w.transitions > 0

	// Express the bound in the start's offset, the frame candidates live in
	if w.startDST != zone.InDaylightTime(templateEnd) {
		if w.startDST {
			w.end = w.end.Add(-w.dst)
		} else {
			w.end = w.end.Add(w.dst)
		}
	}

	return w
}

// countTransitions returns how many times the DST state of zone changes in
// (from, to]
func countTransitions(zone *tz.Zone, from, to time.Time) int {
	n := 0
	inDST := zone.InDaylightTime(from)
	t := from.In(zone.Location())
	for {
		_, next := t.ZoneBounds()
		if next.IsZero() || next.After(to) {
			return n
		}
		if zone.InDaylightTime(next) != inDST {
			inDST = !inDST
			n++
		}
		t = next
	}
}

// changeovers records the changeover days whose skipped hour has already been
// kept. Each changeover day is consumed at most once.
type changeovers map[int]bool

func changeoverKey(local time.Time) int {
	return local.Year()*1000 + local.YearDay()
}

// correct moves a generated candidate onto the wall clock time of the window
// start. used tracks the single-use flag of every changeover day.
func (w window) correct(d time.Time, used changeovers) time.Time {
	if !w.crossing || w.dst == 0 {
		return d
	}

	inDST := w.zone.InDaylightTime(d)
	var shifted time.Time
	switch {
	case w.startDST && !inDST:
		shifted = d.Add(w.dst)
	case !w.startDST && inDST:
		shifted = d.Add(-w.dst)
	default:
		return d
	}

	// The shift went back over the transition: the wall time falls in the hour
	// skipped on the changeover day (a Sunday under European and North
	// American rules). Keep the candidate, which is where time.Date puts such
	// a wall time too.
	if w.zone.InDaylightTime(shifted) != inDST && w.onChangeoverDay(d) {
		key := changeoverKey(d.In(w.zone.Location()))
		if !used[key] {
			used[key] = true
			return d
		}
	}

	return shifted
}

// onChangeoverDay reports whether the zone's offset changes during the local
// day containing d
func (w window) onChangeoverDay(d time.Time) bool {
	local := d.In(w.zone.Location())
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.zone.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	return w.zone.InDaylightTime(dayStart) != w.zone.InDaylightTime(dayEnd.Add(-time.Nanosecond))
}
