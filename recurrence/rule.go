package recurrence

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"

	"github.com/cyp0633/calrecur/calerr"
)

// Frequency is the FREQ rule part
type Frequency int

// Values follow the ordering of rrule-go
const (
	Yearly Frequency = iota
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

func (f Frequency) String() string {
	switch f {
	case Yearly:
		return "YEARLY"
	case Monthly:
		return "MONTHLY"
	case Weekly:
		return "WEEKLY"
	case Daily:
		return "DAILY"
	case Hourly:
		return "HOURLY"
	case Minutely:
		return "MINUTELY"
	case Secondly:
		return "SECONDLY"
	default:
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
}

// Weekday is a BYDAY entry. N selects the nth occurrence within the month or
// year (negative counts from the end); 0 means every such weekday.
type Weekday struct {
	Day time.Weekday
	N   int
}

// Days builds plain BYDAY entries
func Days(days ...time.Weekday) []Weekday {
	out := make([]Weekday, len(days))
	for i, d := range days {
		out[i] = Weekday{Day: d}
	}
	return out
}

var toRRuleWeekday = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// rrule-go numbers weekdays from Monday
func fromRRuleDay(day int) time.Weekday {
	return time.Weekday((day + 1) % 7)
}

// Rule is a recurrence rule. It is immutable once constructed; accessors
// return copies.
type Rule struct {
	freq       Frequency
	interval   int
	byDay      []Weekday
	byHour     []int
	byMinute   []int
	byMonth    []int
	byMonthDay []int
	bySetPos   []int
	weekStart  time.Weekday
	count      mo.Option[int]
	until      mo.Option[time.Time]
}

// RuleOption sets a rule part
type RuleOption func(*Rule)

// Interval sets INTERVAL
func Interval(n int) RuleOption {
	return func(r *Rule) { r.interval = n }
}

// ByDay sets BYDAY
func ByDay(days ...Weekday) RuleOption {
	return func(r *Rule) { r.byDay = slices.Clone(days) }
}

// ByHour sets BYHOUR
func ByHour(hours ...int) RuleOption {
	return func(r *Rule) { r.byHour = slices.Clone(hours) }
}

// ByMinute sets BYMINUTE
func ByMinute(minutes ...int) RuleOption {
	return func(r *Rule) { r.byMinute = slices.Clone(minutes) }
}

// ByMonth sets BYMONTH
func ByMonth(months ...int) RuleOption {
	return func(r *Rule) { r.byMonth = slices.Clone(months) }
}

// ByMonthDay sets BYMONTHDAY
func ByMonthDay(days ...int) RuleOption {
	return func(r *Rule) { r.byMonthDay = slices.Clone(days) }
}

// BySetPos sets BYSETPOS
func BySetPos(pos ...int) RuleOption {
	return func(r *Rule) { r.bySetPos = slices.Clone(pos) }
}

// WeekStart sets WKST
func WeekStart(d time.Weekday) RuleOption {
	return func(r *Rule) { r.weekStart = d }
}

// Count sets COUNT
func Count(n int) RuleOption {
	return func(r *Rule) { r.count = mo.Some(n) }
}

// Until sets UNTIL. The instant is kept in UTC.
func Until(t time.Time) RuleOption {
	return func(r *Rule) { r.until = mo.Some(t.UTC()) }
}

// NewRule builds and validates a rule
func NewRule(freq Frequency, opts ...RuleOption) (*Rule, error) {
	r := &Rule{
		freq:      freq,
		interval:  1,
		weekStart: time.Monday,
		count:     mo.None[int](),
		until:     mo.None[time.Time](),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// unsupportedParts lists rule parts the data model does not represent
var unsupportedParts = []string{"BYSECOND", "BYYEARDAY", "BYWEEKNO", "BYEASTER"}

// ParseRule parses an RRULE value such as
// "FREQ=WEEKLY;BYDAY=MO,TH,FR,SA,SU;BYHOUR=23;BYMINUTE=5". A leading "RRULE:"
// is accepted.
func ParseRule(text string) (*Rule, error) {
	text = strings.TrimSpace(text)
	if len(text) >= 6 && strings.EqualFold(text[:6], "RRULE:") {
		text = text[6:]
	}
	if text == "" {
		return nil, calerr.New(calerr.InvalidRule, "empty rule")
	}

	upper := strings.ToUpper(text)
	for _, part := range strings.Split(upper, ";") {
		key, _, _ := strings.Cut(part, "=")
		if slices.Contains(unsupportedParts, key) {
			return nil, calerr.New(calerr.InvalidRule, "unsupported rule part %s in %q", key, text)
		}
		if key == "DTSTART" {
			return nil, calerr.New(calerr.InvalidRule, "DTSTART is not a rule part in %q", text)
		}
	}

	opt, err := rrule.StrToROption(text)
	if err != nil {
		return nil, calerr.Wrap(calerr.InvalidRule, err, "parse %q", text)
	}

	opts := []RuleOption{
		ByHour(opt.Byhour...),
		ByMinute(opt.Byminute...),
		ByMonth(opt.Bymonth...),
		ByMonthDay(opt.Bymonthday...),
		BySetPos(opt.Bysetpos...),
		WeekStart(fromRRuleDay(opt.Wkst.Day())),
	}
	if opt.Interval > 0 {
		opts = append(opts, Interval(opt.Interval))
	}
	if len(opt.Byweekday) > 0 {
		days := make([]Weekday, 0, len(opt.Byweekday))
		for _, wd := range opt.Byweekday {
			days = append(days, Weekday{Day: fromRRuleDay(wd.Day()), N: wd.N()})
		}
		opts = append(opts, ByDay(days...))
	}
	if opt.Count > 0 {
		opts = append(opts, Count(opt.Count))
	}
	if !opt.Until.IsZero() {
		opts = append(opts, Until(opt.Until))
	}

	return NewRule(Frequency(opt.Freq), opts...)
}

// MustParseRule is like ParseRule but panics on error
func MustParseRule(text string) *Rule {
	r, err := ParseRule(text)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Rule) validate() error {
	if r.freq < Yearly || r.freq > Secondly {
		return calerr.New(calerr.InvalidRule, "unsupported frequency %d", int(r.freq))
	}
	if r.interval < 1 {
		return calerr.New(calerr.InvalidRule, "INTERVAL must be positive, got %d", r.interval)
	}
	if err := checkRange("BYHOUR", r.byHour, 0, 23, true); err != nil {
		return err
	}
	if err := checkRange("BYMINUTE", r.byMinute, 0, 59, true); err != nil {
		return err
	}
	if err := checkRange("BYMONTH", r.byMonth, 1, 12, false); err != nil {
		return err
	}
	if err := checkRange("BYMONTHDAY", r.byMonthDay, -31, 31, false); err != nil {
		return err
	}
	if err := checkRange("BYSETPOS", r.bySetPos, -366, 366, false); err != nil {
		return err
	}
	for _, d := range r.byDay {
		if d.Day < time.Sunday || d.Day > time.Saturday {
			return calerr.New(calerr.InvalidRule, "invalid BYDAY weekday %d", int(d.Day))
		}
		if d.N != 0 && r.freq != Monthly && r.freq != Yearly {
			return calerr.New(calerr.InvalidRule, "BYDAY ordinal %d requires MONTHLY or YEARLY, got %s", d.N, r.freq)
		}
		if d.N < -53 || d.N > 53 {
			return calerr.New(calerr.InvalidRule, "BYDAY ordinal %d out of range", d.N)
		}
	}
	if len(r.bySetPos) > 0 && len(r.byDay)+len(r.byHour)+len(r.byMinute)+len(r.byMonth)+len(r.byMonthDay) == 0 {
		return calerr.New(calerr.InvalidRule, "BYSETPOS requires another BYxxx rule part")
	}
	if n, ok := r.count.Get(); ok && n < 1 {
		return calerr.New(calerr.InvalidRule, "COUNT must be positive, got %d", n)
	}
	if r.count.IsPresent() && r.until.IsPresent() {
		return calerr.New(calerr.InvalidRule, "COUNT and UNTIL are mutually exclusive")
	}
	return nil
}

// checkRange validates rule part values. Zero is only allowed when zeroOK.
func checkRange(part string, values []int, lo, hi int, zeroOK bool) error {
	for _, v := range values {
		if v < lo || v > hi || (v == 0 && !zeroOK) {
			return calerr.New(calerr.InvalidRule, "%s value %d out of range", part, v)
		}
	}
	return nil
}

// Frequency returns FREQ
func (r *Rule) Frequency() Frequency { return r.freq }

// Interval returns INTERVAL
func (r *Rule) Interval() int { return r.interval }

// ByDay returns BYDAY
func (r *Rule) ByDay() []Weekday { return slices.Clone(r.byDay) }

// ByHour returns BYHOUR
func (r *Rule) ByHour() []int { return slices.Clone(r.byHour) }

// ByMinute returns BYMINUTE
func (r *Rule) ByMinute() []int { return slices.Clone(r.byMinute) }

// ByMonth returns BYMONTH
func (r *Rule) ByMonth() []int { return slices.Clone(r.byMonth) }

// ByMonthDay returns BYMONTHDAY
func (r *Rule) ByMonthDay() []int { return slices.Clone(r.byMonthDay) }

// BySetPos returns BYSETPOS
func (r *Rule) BySetPos() []int { return slices.Clone(r.bySetPos) }

// WeekStart returns WKST
func (r *Rule) WeekStart() time.Weekday { return r.weekStart }

// Count returns COUNT, if set
func (r *Rule) Count() mo.Option[int] { return r.count }

// Until returns UNTIL, if set
func (r *Rule) Until() mo.Option[time.Time] { return r.until }

// options converts the rule for rrule-go, seeded at dtstart
func (r *Rule) options(dtstart time.Time) rrule.ROption {
	opt := rrule.ROption{
		Freq:       rrule.Frequency(r.freq),
		Dtstart:    dtstart,
		Interval:   r.interval,
		Wkst:       toRRuleWeekday[r.weekStart],
		Byhour:     slices.Clone(r.byHour),
		Byminute:   slices.Clone(r.byMinute),
		Bymonth:    slices.Clone(r.byMonth),
		Bymonthday: slices.Clone(r.byMonthDay),
		Bysetpos:   slices.Clone(r.bySetPos),
		Count:      r.count.OrElse(0),
		Until:      r.until.OrElse(time.Time{}),
	}
	for _, d := range r.byDay {
		wd := toRRuleWeekday[d.Day]
		if d.N != 0 {
			wd = wd.Nth(d.N)
		}
		opt.Byweekday = append(opt.Byweekday, wd)
	}
	return opt
}

// String renders the rule as an RRULE value
func (r *Rule) String() string {
	opt := r.options(time.Time{})
	return opt.RRuleString()
}

// Equal reports whether both rules describe the same recurrence
func (r *Rule) Equal(other *Rule) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.String() == other.String()
}
