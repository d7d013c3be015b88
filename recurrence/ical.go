package recurrence

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/date"
	"github.com/cyp0633/calrecur/period"
	"github.com/cyp0633/calrecur/property"
	"github.com/cyp0633/calrecur/tz"
)

// RuleFromComponent parses the RRULE of an iCalendar component
func RuleFromComponent(comp *ical.Component) (*Rule, error) {
	prop := comp.Props.Get(ical.PropRecurrenceRule)
	if prop == nil || prop.Value == "" {
		return nil, calerr.New(calerr.InvalidRule, "%s has no %s", comp.Name, ical.PropRecurrenceRule)
	}
	return ParseRule(prop.Value)
}

// ExpandComponent expands a recurring component from its DTSTART up to
// windowEnd. The duration comes from DTEND or DURATION; occurrences listed in
// EXDATE are dropped. Floating start times are read in UTC. Unlike Expand, the
// span from DTSTART to windowEnd may cross any number of DST transitions.
func (e *Expander) ExpandComponent(comp *ical.Component, provider tz.Provider, windowEnd time.Time) ([]period.Period, error) {
	rule, err := RuleFromComponent(comp)
	if err != nil {
		return nil, err
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return nil, calerr.New(calerr.InvalidInput, "%s has no %s", comp.Name, ical.PropDateTimeStart)
	}
	dtstart, err := property.FromProp(startProp, provider)
	if err != nil {
		return nil, err
	}
	start, zone, err := startOf(dtstart)
	if err != nil {
		return nil, err
	}

	duration, err := componentDuration(comp, provider, start)
	if err != nil {
		return nil, err
	}

	periods, err := e.expandCached(rule, start, windowEnd, duration, zone, true)
	if err != nil {
		return nil, err
	}

	exdates, err := exceptionDates(comp, provider)
	if err != nil {
		return nil, err
	}
	if len(exdates) == 0 {
		return periods, nil
	}

	kept := periods[:0]
	for _, p := range periods {
		if !isExcluded(p.Start(), exdates) {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func startOf(dtstart *property.DateProperty) (time.Time, *tz.Zone, error) {
	v, ok := dtstart.Value().Get()
	if !ok {
		return time.Time{}, nil, calerr.New(calerr.InvalidInput, "%s has no value", dtstart.Name())
	}
	switch v := v.(type) {
	case date.Zoned:
		return v.Time(), v.Zone(), nil
	case date.Floating:
		return v.Wall(time.UTC), tz.UTC, nil
	default:
		return time.Time{}, nil, calerr.New(calerr.UnsupportedOperation,
			"cannot expand all-day %s %s", dtstart.Name(), date.Format(v))
	}
}

func componentDuration(comp *ical.Component, provider tz.Provider, start time.Time) (time.Duration, error) {
	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		dtend, err := property.FromProp(endProp, provider)
		if err != nil {
			return 0, err
		}
		v, ok := dtend.Value().Get()
		if !ok {
			return 0, nil
		}
		end := date.Instant(v, time.UTC)
		if end.Before(start) {
			return 0, calerr.New(calerr.InvalidInput, "%s is before %s", ical.PropDateTimeEnd, ical.PropDateTimeStart)
		}
		return end.Sub(start), nil
	}

	if durProp := comp.Props.Get(ical.PropDuration); durProp != nil {
		d, err := durProp.Duration()
		if err != nil {
			return 0, calerr.Wrap(calerr.InvalidInput, err, "parse %s %q", ical.PropDuration, durProp.Value)
		}
		return d, nil
	}

	return 0, nil
}

// exceptionDates collects EXDATE instants. Date values match occurrences
// starting on that UTC midnight.
func exceptionDates(comp *ical.Component, provider tz.Provider) ([]time.Time, error) {
	var out []time.Time
	for _, prop := range comp.Props.Values(ical.PropExceptionDates) {
		var zone *tz.Zone
		if tzid := prop.Params.Get(ical.ParamTimezoneID); tzid != "" {
			if provider == nil {
				return nil, calerr.New(calerr.UnknownZone, "%s: no provider to resolve TZID %q", prop.Name, tzid)
			}
			z, err := provider.Resolve(tzid)
			if err != nil {
				return nil, err
			}
			zone = z
		}

		for _, text := range strings.Split(prop.Value, ",") {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			v, err := date.Parse(text, zone)
			if err != nil {
				return nil, err
			}
			out = append(out, date.Instant(v, time.UTC))
		}
	}
	return out, nil
}

func isExcluded(t time.Time, exdates []time.Time) bool {
	for _, ex := range exdates {
		if t.Equal(ex) {
			return true
		}
	}
	return false
}

// Instances builds one component per period from a recurring master. Each
// instance keeps the master's properties except the recurrence ones, carries
// its own DTSTART, DTEND and RECURRENCE-ID in UTC, and shares the master's UID
// (a fresh one when the master has none).
func Instances(master *ical.Component, periods []period.Period) []*ical.Component {
	uid := ""
	if prop := master.Props.Get(ical.PropUID); prop != nil {
		uid = prop.Value
	}
	if uid == "" {
		uid = uuid.NewString()
	}
	stamp := time.Now().UTC().Truncate(time.Second)

	instances := make([]*ical.Component, 0, len(periods))
	for _, p := range periods {
		inst := cloneComponent(master)
		for _, name := range []string{
			ical.PropRecurrenceRule,
			ical.PropRecurrenceDates,
			ical.PropExceptionDates,
			ical.PropDuration,
		} {
			delete(inst.Props, name)
		}

		inst.Props.SetText(ical.PropUID, uid)
		inst.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		inst.Props.SetDateTime(ical.PropDateTimeStart, p.Start())
		inst.Props.SetDateTime(ical.PropDateTimeEnd, p.End())
		inst.Props.SetDateTime(ical.PropRecurrenceID, p.Start())

		instances = append(instances, inst)
	}
	return instances
}

func cloneComponent(comp *ical.Component) *ical.Component {
	clone := ical.NewComponent(comp.Name)
	for name, props := range comp.Props {
		copied := make([]ical.Prop, len(props))
		for i, prop := range props {
			copied[i] = ical.Prop{
				Name:   prop.Name,
				Params: make(ical.Params, len(prop.Params)),
				Value:  prop.Value,
			}
			for k, v := range prop.Params {
				copied[i].Params[k] = append([]string(nil), v...)
			}
		}
		clone.Props[name] = copied
	}
	for _, child := range comp.Children {
		clone.Children = append(clone.Children, cloneComponent(child))
	}
	return clone
}
