package property

import (
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/date"
	"github.com/cyp0633/calrecur/tz"
)

// Validator is a validation step run by DateProperty.Validate before the
// VALUE checks. Property types restricted to DATE or DATE-TIME add theirs here.
type Validator func(p *DateProperty) error

// DateProperty is a property with a DATE or DATE-TIME value, such as DTSTART,
// DTEND, DUE or RECURRENCE-ID. It keeps the TZID parameter in agreement with
// the zone of its value.
//
// A DateProperty is not safe for concurrent mutation.
type DateProperty struct {
	name        string
	params      ical.Params
	value       mo.Option[date.Value]
	defaultZone *tz.Zone
	validators  []Validator
	logger      *slog.Logger
}

// Option represents a configuration option for a DateProperty
type Option func(*DateProperty)

// WithParams sets pre-parsed parameters. The map is copied.
func WithParams(params ical.Params) Option {
	return func(p *DateProperty) {
		p.params = cloneParams(params)
	}
}

// WithDefaultZone sets the zone SetUtc(false) anchors the value to
func WithDefaultZone(zone *tz.Zone) Option {
	return func(p *DateProperty) {
		p.defaultZone = zone
	}
}

// WithValidator appends a validation step
func WithValidator(v Validator) Option {
	return func(p *DateProperty) {
		if v != nil {
			p.validators = append(p.validators, v)
		}
	}
}

// WithLogger sets the logger for the property
func WithLogger(logger *slog.Logger) Option {
	return func(p *DateProperty) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a date property without a value
func New(name string, opts ...Option) *DateProperty {
	p := &DateProperty{
		name:   strings.ToUpper(name),
		params: make(ical.Params),
		value:  mo.None[date.Value](),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the property name
func (p *DateProperty) Name() string {
	return p.name
}

// Params returns a copy of the parameters
func (p *DateProperty) Params() ical.Params {
	return cloneParams(p.params)
}

// Value returns the date value, if set
func (p *DateProperty) Value() mo.Option[date.Value] {
	return p.value
}

// SetValue sets the date value and rewrites TZID to match it: zoned non-UTC
// values get exactly one TZID, everything else gets none.
func (p *DateProperty) SetValue(v date.Value) {
	if v == nil {
		p.value = mo.None[date.Value]()
		return
	}

	if z, ok := v.(date.Zoned); ok && !z.IsUTC() {
		p.params.Set(ical.ParamTimezoneID, z.Zone().ID())
	} else {
		p.params.Del(ical.ParamTimezoneID)
	}
	p.value = mo.Some(v)
}

// SetVTimeZone updates the zone of the value together with the TZID
// parameter. It only applies to zoned date-times; a DATE or floating value
// yields calerr.UnsupportedOperation and leaves the property untouched.
// Without a value only the parameter is updated.
func (p *DateProperty) SetVTimeZone(zone *tz.Zone) error {
	if zone == nil {
		return calerr.New(calerr.InvalidInput, "%s: nil zone", p.name)
	}

	var rezoned mo.Option[date.Value]
	if v, ok := p.value.Get(); ok {
		switch v := v.(type) {
		case date.Zoned:
			rezoned = mo.Some[date.Value](v.WithZone(zone))
		case date.Date, date.Floating:
			return calerr.New(calerr.UnsupportedOperation,
				"%s: timezone is not applicable to %s value", p.name, v.Kind())
		}
	}

	if zone.IsUTC() {
		p.params.Del(ical.ParamTimezoneID)
	} else {
		p.params.Set(ical.ParamTimezoneID, zone.ID())
	}
	if rezoned.IsPresent() {
		p.value = rezoned
	}

	p.logger.Debug("property timezone updated", "property", p.name, "tzid", zone.ID())
	return nil
}

// SetUtc moves the value to UTC when utc is true. Otherwise the value is
// anchored to the default zone: the one given with WithDefaultZone, or the
// process local zone, which makes the outcome depend on the environment.
func (p *DateProperty) SetUtc(utc bool) error {
	if utc {
		return p.SetVTimeZone(tz.UTC)
	}
	zone := p.defaultZone
	if zone == nil {
		zone = tz.Local()
	}
	return p.SetVTimeZone(zone)
}

// IsUtc reports whether the value is a UTC date-time
func (p *DateProperty) IsUtc() bool {
	v, ok := p.value.Get()
	if !ok {
		return false
	}
	z, ok := v.(date.Zoned)
	return ok && z.IsUTC()
}

// Validate checks the property without modifying it. The base checks and
// validators added with WithValidator run first.
func (p *DateProperty) Validate() error {
	if err := p.validateBase(); err != nil {
		return err
	}
	for _, validate := range p.validators {
		if err := validate(p); err != nil {
			return err
		}
	}

	v, hasValue := p.value.Get()

	valueType := ical.ValueType(strings.ToUpper(p.params.Get(ical.ParamValue)))
	switch valueType {
	case "", ical.ValueDate, ical.ValueDateTime:
	default:
		return calerr.New(calerr.Validation, "%s: invalid VALUE parameter [%s]", p.name, valueType)
	}
	if (valueType == ical.ValueDate && date.IsDateTime(v)) ||
		(valueType == ical.ValueDateTime && !date.IsDateTime(v)) {
		return calerr.New(calerr.Validation, "%s: VALUE parameter [%s] is invalid for date instance", p.name, valueType)
	}

	if !hasValue {
		return nil
	}
	tzid := p.params.Get(ical.ParamTimezoneID)
	if z, ok := v.(date.Zoned); ok && !z.IsUTC() {
		if tzid != z.Zone().ID() {
			return calerr.New(calerr.Validation, "%s: TZID [%s] does not match value zone [%s]", p.name, tzid, z.Zone().ID())
		}
	} else if tzid != "" {
		return calerr.New(calerr.Validation, "%s: TZID [%s] is not allowed on %s value", p.name, tzid, v.Kind())
	}

	return nil
}

func (p *DateProperty) validateBase() error {
	if p.name == "" {
		return calerr.New(calerr.Validation, "property name is empty")
	}
	for _, key := range []string{ical.ParamTimezoneID, ical.ParamValue} {
		if n := len(p.params[key]); n > 1 {
			return calerr.New(calerr.Validation, "%s: %s parameter occurs %d times", p.name, key, n)
		}
	}
	return nil
}

func cloneParams(params ical.Params) ical.Params {
	out := make(ical.Params, len(params))
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	return out
}
