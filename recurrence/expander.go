package recurrence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/internal/cache"
	"github.com/cyp0633/calrecur/period"
	"github.com/cyp0633/calrecur/tz"
)

const day = 24 * time.Hour

// Expander turns a rule and a window into concrete occurrences. Expansion is
// a pure function of its inputs; the optional cache only memoizes results.
// An Expander is safe for concurrent use.
type Expander struct {
	cache  *cache.Cache[string, []period.Period]
	config Config
	logger *slog.Logger
}

// Option represents a configuration option for the Expander
type Option func(*Expander)

// WithLogger sets the logger for the expander
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConfig replaces DisabledCacheConfig, the default configuration
func WithConfig(config Config) Option {
	return func(e *Expander) {
		e.config = config
	}
}

// NewExpander creates a new expander
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		config: DisabledCacheConfig,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.config.CacheEnabled {
		e.cache = cache.New[string, []period.Period](e.config.CacheConfig)
	}

	return e
}

// Close stops the cache cleanup goroutine, if any
func (e *Expander) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// CacheStats returns statistics of the result cache; zero when caching is disabled
func (e *Expander) CacheStats() cache.Stats {
	if e.cache == nil {
		return cache.Stats{}
	}
	return e.cache.Stats()
}

// Occurrences returns the DST-corrected start instants of rule between
// windowStart and windowEnd, in UTC, ascending and without duplicates.
func (e *Expander) Occurrences(rule *Rule, windowStart, windowEnd time.Time, zone *tz.Zone) ([]time.Time, error) {
	periods, err := e.Expand(rule, windowStart, windowEnd, 0, zone)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(periods))
	for i, p := range periods {
		out[i] = p.Start()
	}
	return out, nil
}

// Expand returns one period per occurrence of rule between windowStart and
// windowEnd. Each period starts at the same wall clock time as windowStart in
// zone and lasts duration truncated to less than a day. The window end is
// taken on the same wall clock time as the start, extended by duration.
//
// The window may contain at most one DST transition of zone; a window with
// more fails with InvalidInput.
func (e *Expander) Expand(rule *Rule, windowStart, windowEnd time.Time, duration time.Duration, zone *tz.Zone) ([]period.Period, error) {
	return e.expandCached(rule, windowStart, windowEnd, duration, zone, false)
}

func (e *Expander) expandCached(rule *Rule, windowStart, windowEnd time.Time, duration time.Duration, zone *tz.Zone, multiTransition bool) ([]period.Period, error) {
	if rule == nil {
		return nil, calerr.New(calerr.InvalidRule, "nil rule")
	}
	if zone == nil {
		return nil, calerr.New(calerr.InvalidRule, "no timezone for rule %s", rule)
	}
	if windowEnd.Before(windowStart) {
		return nil, calerr.New(calerr.InvalidInput, "window end %s is before start %s",
			windowEnd.Format(time.RFC3339), windowStart.Format(time.RFC3339))
	}
	if duration < 0 {
		return nil, calerr.New(calerr.InvalidInput, "negative duration %s", duration)
	}

	var key string
	if e.cache != nil {
		key = cacheKey(rule, windowStart, windowEnd, duration, zone)
		if cached, ok := e.cache.Get(key); ok {
			return slices.Clone(cached), nil
		}
	}

	periods, err := e.expand(rule, windowStart, windowEnd, duration, zone, multiTransition)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(key, slices.Clone(periods))
	}
	return periods, nil
}

func (e *Expander) expand(rule *Rule, windowStart, windowEnd time.Time, duration time.Duration, zone *tz.Zone, multiTransition bool) ([]period.Period, error) {
	w := newWindow(windowStart, windowEnd, duration, zone)
	if w.transitions > 1 && !multiTransition {
		return nil, calerr.New(calerr.InvalidInput,
			"window %s to %s crosses %d DST transitions of %s, at most one is supported",
			windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339), w.transitions, zone.ID())
	}
	e.logger.Debug("expanding recurrence",
		"rule", rule.String(),
		"tzid", zone.ID(),
		"start", w.start,
		"end", w.end,
		"template_end", w.templateEnd,
		"start_dst", w.startDST,
		"dst_transitions", w.transitions)

	candidates, err := e.generate(rule, w)
	if err != nil {
		return nil, err
	}

	// Sub-day part only: every occurrence gets the same short duration
	duration %= day

	used := make(changeovers)
	periods := make([]period.Period, 0, len(candidates))
	for _, d := range candidates {
		corrected := w.correct(d, used)
		if !corrected.Equal(d) {
			e.logger.Debug("corrected occurrence for DST", "candidate", d, "corrected", corrected)
		}
		periods = append(periods, period.WithDuration(corrected, duration))
	}

	slices.SortStableFunc(periods, func(a, b period.Period) int {
		return a.Start().Compare(b.Start())
	})
	periods = slices.CompactFunc(periods, func(a, b period.Period) bool {
		return a.Start().Equal(b.Start())
	})

	return periods, nil
}

// generate runs rrule-go between the window bounds on the UTC clock
func (e *Expander) generate(rule *Rule, w window) ([]time.Time, error) {
	r, err := rrule.NewRRule(rule.options(w.start.Truncate(time.Second)))
	if err != nil {
		return nil, calerr.Wrap(calerr.InvalidRule, err, "rule %s", rule)
	}

	limit := e.config.MaxOccurrences
	var candidates []time.Time
	next := r.Iterator()
	for {
		d, ok := next()
		if !ok || d.After(w.end) {
			break
		}
		if d.Before(w.start) {
			continue
		}
		if limit > 0 && len(candidates) == limit {
			return nil, calerr.New(calerr.LimitExceeded,
				"rule %s yields more than %d occurrences between %s and %s", rule, limit, w.start, w.end)
		}
		candidates = append(candidates, d.UTC())
	}

	return candidates, nil
}

// String describes the expander configuration, mainly for logs
func (e *Expander) String() string {
	return fmt.Sprintf("Expander{cache=%t, maxOccurrences=%d}", e.cache != nil, e.config.MaxOccurrences)
}

// cacheKey hashes every input that influences an expansion
func cacheKey(rule *Rule, windowStart, windowEnd time.Time, duration time.Duration, zone *tz.Zone) string {
	hasher := sha256.New()
	hasher.Write([]byte(rule.String()))
	hasher.Write([]byte{0})
	hasher.Write([]byte(zone.ID()))
	hasher.Write([]byte{0})
	hasher.Write([]byte(windowStart.UTC().Format(time.RFC3339Nano)))
	hasher.Write([]byte(windowEnd.UTC().Format(time.RFC3339Nano)))
	hasher.Write([]byte(duration.String()))
	return hex.EncodeToString(hasher.Sum(nil))
}
