package recurrence

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/tz"
)

func berlinProp(name, value string) *ical.Prop {
	prop := ical.NewProp(name)
	prop.Value = value
	prop.Params.Set(ical.ParamTimezoneID, "Europe/Berlin")
	return prop
}

func ruleProp(value string) *ical.Prop {
	prop := ical.NewProp(ical.PropRecurrenceRule)
	prop.Value = value
	return prop
}

func newMaster() *ical.Component {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, "standup@example.com")
	event.Props.SetText(ical.PropSummary, "Standup")
	event.Props.Set(berlinProp(ical.PropDateTimeStart, "20160315T000500"))
	event.Props.Set(berlinProp(ical.PropDateTimeEnd, "20160315T001000"))
	event.Props.Set(ruleProp("FREQ=WEEKLY;BYDAY=MO,TH,FR,SA,SU"))
	return event.Component
}

func TestRuleFromComponent(t *testing.T) {
	r, err := RuleFromComponent(newMaster())
	require.NoError(t, err)
	assert.Equal(t, Weekly, r.Frequency())

	_, err = RuleFromComponent(ical.NewEvent().Component)
	assert.True(t, errors.Is(err, calerr.ErrInvalidRule))
}

func TestExpandComponent(t *testing.T) {
	registry := tz.NewRegistry()
	defer registry.Close()

	berlin, err := registry.Resolve("Europe/Berlin")
	require.NoError(t, err)
	windowEnd := time.Date(2016, 4, 11, 0, 0, 0, 0, berlin.Location())

	e := NewExpander()
	defer e.Close()

	master := newMaster()
	periods, err := e.ExpandComponent(master, registry, windowEnd)
	require.NoError(t, err)
	require.Len(t, periods, 20)
	assert.Equal(t, 5*time.Minute, periods[0].Duration())

	exdate := berlinProp(ical.PropExceptionDates, "20160318T000500,20160320T000500")
	master.Props.Add(exdate)

	periods, err = e.ExpandComponent(master, registry, windowEnd)
	require.NoError(t, err)
	require.Len(t, periods, 18)
	for _, p := range periods {
		local, _ := p.In(berlin.Location())
		assert.False(t, local.Day() == 18 && local.Month() == time.March)
		assert.False(t, local.Day() == 20 && local.Month() == time.March)
	}
}

func TestExpandComponent_Duration(t *testing.T) {
	registry := tz.NewRegistry()
	defer registry.Close()

	master := ical.NewEvent()
	master.Props.SetText(ical.PropUID, "daily@example.com")
	start := ical.NewProp(ical.PropDateTimeStart)
	start.Value = "20240101T090000Z"
	master.Props.Set(start)
	duration := ical.NewProp(ical.PropDuration)
	duration.Value = "PT45M"
	master.Props.Set(duration)
	master.Props.Set(ruleProp("FREQ=DAILY;COUNT=3"))

	e := NewExpander()
	defer e.Close()

	periods, err := e.ExpandComponent(master.Component, registry, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, periods, 3)
	for _, p := range periods {
		assert.Equal(t, 45*time.Minute, p.Duration())
	}
}

func TestExpandComponent_Errors(t *testing.T) {
	registry := tz.NewRegistry()
	defer registry.Close()
	windowEnd := time.Date(2016, 4, 11, 0, 0, 0, 0, time.UTC)

	e := NewExpander()
	defer e.Close()

	noStart := newMaster()
	delete(noStart.Props, ical.PropDateTimeStart)
	_, err := e.ExpandComponent(noStart, registry, windowEnd)
	assert.True(t, errors.Is(err, calerr.ErrInvalidInput), "got %v", err)

	allDay := newMaster()
	dateStart := ical.NewProp(ical.PropDateTimeStart)
	dateStart.Value = "20160315"
	dateStart.Params.Set(ical.ParamValue, "DATE")
	allDay.Props.Set(dateStart)
	delete(allDay.Props, ical.PropDateTimeEnd)
	_, err = e.ExpandComponent(allDay, registry, windowEnd)
	assert.True(t, errors.Is(err, calerr.ErrUnsupportedOperation), "got %v", err)

	unknownZone := newMaster()
	unknownZone.Props.Get(ical.PropDateTimeStart).Params.Set(ical.ParamTimezoneID, "Mars/Olympus_Mons")
	_, err = e.ExpandComponent(unknownZone, registry, windowEnd)
	assert.True(t, errors.Is(err, calerr.ErrUnknownZone), "got %v", err)

	zonedExdate := ical.NewEvent().Component
	utcStart := ical.NewProp(ical.PropDateTimeStart)
	utcStart.Value = "20160104T080000Z"
	zonedExdate.Props.Set(utcStart)
	zonedExdate.Props.Set(ruleProp("FREQ=DAILY"))
	zonedExdate.Props.Add(berlinProp(ical.PropExceptionDates, "20160105T090000"))
	_, err = e.ExpandComponent(zonedExdate, nil, windowEnd)
	assert.True(t, errors.Is(err, calerr.ErrUnknownZone), "got %v", err)
}

func TestExpandComponent_YearLong(t *testing.T) {
	registry := tz.NewRegistry()
	defer registry.Close()
	berlin, err := registry.Resolve("Europe/Berlin")
	require.NoError(t, err)

	master := ical.NewEvent()
	master.Props.SetText(ical.PropUID, "weekly@example.com")
	master.Props.Set(berlinProp(ical.PropDateTimeStart, "20160104T090000"))
	master.Props.Set(berlinProp(ical.PropDateTimeEnd, "20160104T100000"))
	master.Props.Set(ruleProp("FREQ=WEEKLY;BYDAY=MO"))

	e := NewExpander()
	defer e.Close()

	periods, err := e.ExpandComponent(master.Component, registry, time.Date(2016, 12, 26, 0, 0, 0, 0, berlin.Location()))
	require.NoError(t, err)
	require.Len(t, periods, 52)
	for _, p := range periods {
		local, _ := p.In(berlin.Location())
		assert.Equal(t, time.Monday, local.Weekday(), "period %s", p)
		assert.Equal(t, 9, local.Hour(), "period %s", p)
		assert.Equal(t, time.Hour, p.Duration())
	}
}

func TestExpandComponent_SkippedHourEveryYear(t *testing.T) {
	registry := tz.NewRegistry()
	defer registry.Close()
	berlin, err := registry.Resolve("Europe/Berlin")
	require.NoError(t, err)

	master := ical.NewEvent()
	master.Props.Set(berlinProp(ical.PropDateTimeStart, "20160320T023000"))
	master.Props.Set(ruleProp("FREQ=WEEKLY;BYDAY=SU"))

	e := NewExpander()
	defer e.Close()

	periods, err := e.ExpandComponent(master.Component, registry, time.Date(2017, 4, 2, 0, 0, 0, 0, berlin.Location()))
	require.NoError(t, err)
	require.Len(t, periods, 55)

	for _, p := range periods {
		local, _ := p.In(berlin.Location())
		wantHour := 2
		if local.Month() == time.March && (local.Day() == 27 && local.Year() == 2016 || local.Day() == 26 && local.Year() == 2017) {
			wantHour = 3
		}
		assert.Equal(t, wantHour, local.Hour(), "period %s", p)
		assert.Equal(t, 30, local.Minute(), "period %s", p)
	}
}

func TestInstances(t *testing.T) {
	registry := tz.NewRegistry()
	defer registry.Close()

	e := NewExpander()
	defer e.Close()

	master := newMaster()
	periods, err := e.ExpandComponent(master, registry, time.Date(2016, 3, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotEmpty(t, periods)

	instances := Instances(master, periods)
	require.Len(t, instances, len(periods))

	first := instances[0]
	assert.Equal(t, ical.CompEvent, first.Name)
	assert.Nil(t, first.Props.Get(ical.PropRecurrenceRule))
	assert.Equal(t, "standup@example.com", first.Props.Get(ical.PropUID).Value)
	assert.Equal(t, "Standup", first.Props.Get(ical.PropSummary).Value)
	assert.Equal(t, "20160314T230500Z", first.Props.Get(ical.PropRecurrenceID).Value)
	assert.Equal(t, "20160314T230500Z", first.Props.Get(ical.PropDateTimeStart).Value)
	assert.Equal(t, "20160314T231000Z", first.Props.Get(ical.PropDateTimeEnd).Value)
	assert.NotNil(t, first.Props.Get(ical.PropDateTimeStamp))

	// the master is left untouched
	assert.NotNil(t, master.Props.Get(ical.PropRecurrenceRule))
	assert.Equal(t, "Europe/Berlin", master.Props.Get(ical.PropDateTimeStart).Params.Get(ical.ParamTimezoneID))

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calrecur//test//EN")
	cal.Children = append(cal.Children, instances...)

	var buf bytes.Buffer
	require.NoError(t, ical.NewEncoder(&buf).Encode(cal))
	assert.Contains(t, buf.String(), "RECURRENCE-ID:20160314T230500Z")
}

func TestInstances_GeneratesUID(t *testing.T) {
	master := newMaster()
	delete(master.Props, ical.PropUID)

	e := NewExpander()
	defer e.Close()
	registry := tz.NewRegistry()
	defer registry.Close()

	periods, err := e.ExpandComponent(master, registry, time.Date(2016, 3, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	instances := Instances(master, periods)
	require.Len(t, instances, len(periods))
	uid := instances[0].Props.Get(ical.PropUID).Value
	assert.Len(t, uid, 36)
	for _, inst := range instances {
		assert.Equal(t, uid, inst.Props.Get(ical.PropUID).Value)
	}
}
