package property

import (
	"fmt"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/date"
	"github.com/cyp0633/calrecur/tz"
)

// FromProp builds a DateProperty from a decoded go-ical property. The TZID
// parameter, if any, is resolved through provider.
func FromProp(prop *ical.Prop, provider tz.Provider, opts ...Option) (*DateProperty, error) {
	if prop == nil {
		return nil, calerr.New(calerr.InvalidInput, "nil property")
	}

	p := New(prop.Name, append([]Option{WithParams(prop.Params)}, opts...)...)

	var zone *tz.Zone
	if tzid := p.params.Get(ical.ParamTimezoneID); tzid != "" {
		if provider == nil {
			return nil, calerr.New(calerr.UnknownZone, "%s: no provider to resolve TZID %q", p.name, tzid)
		}
		z, err := provider.Resolve(tzid)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		zone = z
	}

	text := strings.TrimSpace(prop.Value)
	if text == "" {
		return p, nil
	}
	// VALUE=DATE decides the kind even when the text could be read either way
	if strings.EqualFold(p.params.Get(ical.ParamValue), string(ical.ValueDate)) && len(text) != len(date.LayoutDate) {
		return nil, calerr.New(calerr.InvalidInput, "%s: %q is not a DATE", p.name, text)
	}

	v, err := date.Parse(text, zone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}

	// The parsed value is stored as is so that Validate can report
	// disagreements between the text and its parameters.
	p.value = mo.Some(v)
	return p, nil
}

// Prop renders the property as a go-ical property
func (p *DateProperty) Prop() *ical.Prop {
	prop := ical.NewProp(p.name)
	prop.Params = cloneParams(p.params)
	if v, ok := p.value.Get(); ok {
		prop.Value = date.Format(v)
	}
	return prop
}
