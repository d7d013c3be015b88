// Package xcal renders date properties and occurrence periods as xCal, the
// XML representation of iCalendar (RFC 6321), and reads them back.
package xcal

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/emersion/go-ical"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/date"
	"github.com/cyp0633/calrecur/period"
	"github.com/cyp0633/calrecur/property"
	"github.com/cyp0633/calrecur/tz"
)

// Namespace is the xCal namespace
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// Element names used by this package
const (
	TagICalendar  = "icalendar"
	TagVCalendar  = "vcalendar"
	TagVEvent     = "vevent"
	TagProperties = "properties"
	TagComponents = "components"
	TagParameters = "parameters"
	TagText       = "text"
	TagDate       = "date"
	TagDateTime   = "date-time"
	TagPeriod     = "period"
	TagStart      = "start"
	TagEnd        = "end"
	TagUID        = "uid"
	TagRDate      = "rdate"
)

// xCal value layouts (extended ISO 8601)
const (
	layoutDate        = "2006-01-02"
	layoutDateTime    = "2006-01-02T15:04:05"
	layoutDateTimeUTC = "2006-01-02T15:04:05Z"
)

// Event is the subset of a VEVENT this package reads and writes
type Event struct {
	UID     string
	Props   []*property.DateProperty
	Periods []period.Period
}

// Document is an xCal document under construction
type Document struct {
	doc        *etree.Document
	components *etree.Element
}

// NewDocument starts a document with a single VCALENDAR
func NewDocument(prodID string) *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(TagICalendar)
	root.CreateAttr("xmlns", Namespace)

	vcal := root.CreateElement(TagVCalendar)
	props := vcal.CreateElement(TagProperties)
	textProperty(props, "prodid", prodID)
	textProperty(props, "version", "2.0")

	return &Document{
		doc:        doc,
		components: vcal.CreateElement(TagComponents),
	}
}

// AddEvent appends a VEVENT. Periods are written as one RDATE.
func (d *Document) AddEvent(ev Event) error {
	vevent := d.components.CreateElement(TagVEvent)
	props := vevent.CreateElement(TagProperties)

	if ev.UID != "" {
		textProperty(props, TagUID, ev.UID)
	}
	for _, p := range ev.Props {
		elem, err := PropertyElement(p)
		if err != nil {
			return err
		}
		props.AddChild(elem)
	}
	if len(ev.Periods) > 0 {
		props.AddChild(PeriodsElement(TagRDate, ev.Periods))
	}
	return nil
}

// WriteTo writes the indented document
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.doc.Indent(2)
	return d.doc.WriteTo(w)
}

// String returns the indented document
func (d *Document) String() (string, error) {
	d.doc.Indent(2)
	return d.doc.WriteToString()
}

func textProperty(parent *etree.Element, name, value string) {
	parent.CreateElement(name).CreateElement(TagText).SetText(value)
}

// PropertyElement renders a date property. VALUE is expressed by the value
// element and is not repeated as a parameter.
func PropertyElement(p *property.DateProperty) (*etree.Element, error) {
	v, ok := p.Value().Get()
	if !ok {
		return nil, calerr.New(calerr.InvalidInput, "%s has no value", p.Name())
	}

	elem := etree.NewElement(strings.ToLower(p.Name()))

	params := p.Params()
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != ical.ParamValue {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		slices.Sort(keys)
		paramsElem := elem.CreateElement(TagParameters)
		for _, k := range keys {
			paramElem := paramsElem.CreateElement(strings.ToLower(k))
			for _, value := range params[k] {
				paramElem.CreateElement(TagText).SetText(value)
			}
		}
	}

	tag, text := formatValue(v)
	elem.CreateElement(tag).SetText(text)
	return elem, nil
}

func formatValue(v date.Value) (tag, text string) {
	switch v := v.(type) {
	case date.Date:
		return TagDate, time.Date(v.Year, v.Month, v.Day, 0, 0, 0, 0, time.UTC).Format(layoutDate)
	case date.Floating:
		return TagDateTime, v.Wall(time.UTC).Format(layoutDateTime)
	case date.Zoned:
		if v.IsUTC() {
			return TagDateTime, v.Time().UTC().Format(layoutDateTimeUTC)
		}
		return TagDateTime, v.Time().Format(layoutDateTime)
	default:
		return TagText, ""
	}
}

// PeriodsElement renders periods as a property named name, e.g. rdate or freebusy
func PeriodsElement(name string, periods []period.Period) *etree.Element {
	elem := etree.NewElement(name)
	for _, p := range periods {
		pe := elem.CreateElement(TagPeriod)
		pe.CreateElement(TagStart).SetText(p.Start().Format(layoutDateTimeUTC))
		pe.CreateElement(TagEnd).SetText(p.End().Format(layoutDateTimeUTC))
	}
	return elem
}

// ParsePeriods reads the period children of elem
func ParsePeriods(elem *etree.Element) ([]period.Period, error) {
	var out []period.Period
	for _, pe := range elem.SelectElements(TagPeriod) {
		startElem, endElem := pe.SelectElement(TagStart), pe.SelectElement(TagEnd)
		if startElem == nil || endElem == nil {
			return nil, calerr.New(calerr.InvalidInput, "%s: period without start or end", elem.Tag)
		}
		start, err := time.Parse(layoutDateTimeUTC, strings.TrimSpace(startElem.Text()))
		if err != nil {
			return nil, calerr.Wrap(calerr.InvalidInput, err, "%s: period start", elem.Tag)
		}
		end, err := time.Parse(layoutDateTimeUTC, strings.TrimSpace(endElem.Text()))
		if err != nil {
			return nil, calerr.Wrap(calerr.InvalidInput, err, "%s: period end", elem.Tag)
		}
		if end.Before(start) {
			return nil, calerr.New(calerr.InvalidInput, "%s: period ends before it starts", elem.Tag)
		}
		out = append(out, period.New(start, end))
	}
	return out, nil
}

// ParseProperty reads a date property element. A TZID parameter is resolved
// through provider.
func ParseProperty(elem *etree.Element, provider tz.Provider) (*property.DateProperty, error) {
	name := strings.ToUpper(elem.Tag)

	params := make(ical.Params)
	if paramsElem := elem.SelectElement(TagParameters); paramsElem != nil {
		for _, pe := range paramsElem.ChildElements() {
			key := strings.ToUpper(pe.Tag)
			for _, te := range pe.SelectElements(TagText) {
				params[key] = append(params[key], te.Text())
			}
		}
	}

	var zone *tz.Zone
	if tzid := params.Get(ical.ParamTimezoneID); tzid != "" {
		if provider == nil {
			return nil, calerr.New(calerr.UnknownZone, "%s: no provider to resolve TZID %q", name, tzid)
		}
		z, err := provider.Resolve(tzid)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		zone = z
	}

	var v date.Value
	switch {
	case elem.SelectElement(TagDate) != nil:
		text := strings.TrimSpace(elem.SelectElement(TagDate).Text())
		t, err := time.Parse(layoutDate, text)
		if err != nil {
			return nil, calerr.Wrap(calerr.InvalidInput, err, "%s: invalid date %q", name, text)
		}
		v = date.NewDate(t.Year(), t.Month(), t.Day())
		params.Set(ical.ParamValue, string(ical.ValueDate))
	case elem.SelectElement(TagDateTime) != nil:
		text := strings.TrimSpace(elem.SelectElement(TagDateTime).Text())
		if strings.HasSuffix(text, "Z") {
			t, err := time.Parse(layoutDateTimeUTC, text)
			if err != nil {
				return nil, calerr.Wrap(calerr.InvalidInput, err, "%s: invalid date-time %q", name, text)
			}
			v = date.NewUTC(t)
			break
		}
		t, err := time.Parse(layoutDateTime, text)
		if err != nil {
			return nil, calerr.Wrap(calerr.InvalidInput, err, "%s: invalid date-time %q", name, text)
		}
		f := date.FloatingFromTime(t)
		if zone != nil {
			v = f.In(zone)
		} else {
			v = f
		}
	default:
		return nil, calerr.New(calerr.InvalidInput, "%s has no date or date-time value", name)
	}

	p := property.New(name, property.WithParams(params))
	p.SetValue(v)
	return p, nil
}

// Decode reads every VEVENT of an xCal document
func Decode(r io.Reader, provider tz.Provider) ([]Event, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, calerr.Wrap(calerr.InvalidInput, err, "read xCal document")
	}

	root := doc.Root()
	if root == nil || root.Tag != TagICalendar {
		return nil, calerr.New(calerr.InvalidInput, "xCal document must have an %s root", TagICalendar)
	}

	var events []Event
	for _, vcal := range root.SelectElements(TagVCalendar) {
		components := vcal.SelectElement(TagComponents)
		if components == nil {
			continue
		}
		for _, vevent := range components.SelectElements(TagVEvent) {
			ev, err := decodeEvent(vevent, provider)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

func decodeEvent(vevent *etree.Element, provider tz.Provider) (Event, error) {
	var ev Event
	props := vevent.SelectElement(TagProperties)
	if props == nil {
		return ev, nil
	}

	for _, elem := range props.ChildElements() {
		switch {
		case elem.Tag == TagUID:
			if te := elem.SelectElement(TagText); te != nil {
				ev.UID = te.Text()
			}
		case elem.SelectElement(TagPeriod) != nil:
			periods, err := ParsePeriods(elem)
			if err != nil {
				return ev, err
			}
			ev.Periods = append(ev.Periods, periods...)
		case elem.SelectElement(TagDate) != nil, elem.SelectElement(TagDateTime) != nil:
			p, err := ParseProperty(elem, provider)
			if err != nil {
				return ev, err
			}
			ev.Props = append(ev.Props, p)
		}
	}
	return ev, nil
}
