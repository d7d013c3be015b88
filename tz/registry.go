package tz

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cyp0633/calrecur/calerr"
	"github.com/cyp0633/calrecur/internal/cache"
)

// Provider resolves timezone identifiers
type Provider interface {
	// Resolve returns the zone named by id. Unknown identifiers yield an error
	// of type calerr.UnknownZone.
	Resolve(id string) (*Zone, error)
}

// utcAliases are identifiers that resolve to UTC itself
var utcAliases = map[string]bool{
	"UTC":     true,
	"Z":       true,
	"ETC/UTC": true,
	"GMT":     true,
	"ETC/GMT": true,
}

// Registry is a Provider backed by the IANA database of the Go runtime. Loaded
// zones are cached; a Registry is safe for concurrent use.
type Registry struct {
	zones  *cache.Cache[string, *Zone]
	load   func(name string) (*time.Location, error)
	logger *slog.Logger
}

// Option represents a configuration option for the Registry
type Option func(*Registry)

// WithLogger sets the logger for the registry
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCacheConfig replaces the default zone cache configuration
func WithCacheConfig(config cache.Config) Option {
	return func(r *Registry) {
		r.zones.Close()
		r.zones = cache.New[string, *Zone](config)
	}
}

// WithLoader replaces time.LoadLocation, e.g. to serve zones from embedded data
func WithLoader(load func(name string) (*time.Location, error)) Option {
	return func(r *Registry) {
		if load != nil {
			r.load = load
		}
	}
}

// NewRegistry creates a new zone registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		// Zone rules don't change while the process runs
		zones:  cache.New[string, *Zone](cache.Config{MaxEntries: 512}),
		load:   time.LoadLocation,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve implements Provider
func (r *Registry) Resolve(id string) (*Zone, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, calerr.New(calerr.UnknownZone, "empty zone identifier")
	}
	if utcAliases[strings.ToUpper(id)] {
		return UTC, nil
	}

	if z, ok := r.zones.Get(id); ok {
		return z, nil
	}

	loc, err := r.load(id)
	if err != nil {
		r.logger.Warn("failed to load zone", "tzid", id, "error", err)
		return nil, calerr.Wrap(calerr.UnknownZone, err, "zone %q", id)
	}

	z := &Zone{id: id, loc: loc}
	r.zones.Set(id, z)
	r.logger.Debug("zone loaded", "tzid", id)

	return z, nil
}

// Close releases the registry cache
func (r *Registry) Close() {
	r.zones.Close()
}
