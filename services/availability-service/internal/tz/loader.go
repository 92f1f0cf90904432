package tz

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultFallback is used when a provider has no usable timezone.
const DefaultFallback = "America/New_York"

// Loader resolves IANA names to locations, caching results. Unknown or empty
// names resolve to the fallback zone.
type Loader struct {
	fallback     *time.Location
	fallbackName string
	logger       *slog.Logger
	cache        sync.Map // name -> *time.Location
}

func NewLoader(fallback string, logger *slog.Logger) (*Loader, error) {
	if fallback == "" {
		fallback = DefaultFallback
	}
	loc, err := time.LoadLocation(fallback)
	if err != nil {
		return nil, fmt.Errorf("tz.NewLoader: fallback %q: %w", fallback, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fallback: loc, fallbackName: fallback, logger: logger}, nil
}

func (l *Loader) FallbackName() string { return l.fallbackName }

// Load returns the location for name and the name actually used.
func (l *Loader) Load(name string) (*time.Location, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return l.fallback, l.fallbackName
	}
	if v, ok := l.cache.Load(name); ok {
		loc := v.(*time.Location)
		return loc, loc.String()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		l.logger.Warn("unknown timezone, using fallback", "timezone", name, "fallback", l.fallbackName, "err", err)
		loc = l.fallback
	}
	actual, _ := l.cache.LoadOrStore(name, loc)
	loc = actual.(*time.Location)
	return loc, loc.String()
}
