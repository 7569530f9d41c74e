package app

import (
	"context"
	"sync"

	"github.com/fd1az/swap-router/business/aggregator/domain"
	venue "github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/ratelimit"
)

// VenueConfigs is the mutable venue configuration read on every request. Each
// venue owns a rate limiter sized from its RateLimit.
type VenueConfigs struct {
	mu       sync.RWMutex
	configs  map[venue.Venue]domain.VenueConfig
	limiters map[venue.Venue]*ratelimit.Limiter
}

// NewVenueConfigs validates and installs the initial configuration.
func NewVenueConfigs(initial map[venue.Venue]domain.VenueConfig) (*VenueConfigs, error) {
	c := &VenueConfigs{
		configs:  make(map[venue.Venue]domain.VenueConfig, len(initial)),
		limiters: make(map[venue.Venue]*ratelimit.Limiter, len(initial)),
	}
	for v, cfg := range initial {
		if err := cfg.RateLimit.Validate(); err != nil {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithCause(err),
				apperror.WithContext(v.String()))
		}
		c.configs[v] = cfg
		c.limiters[v] = ratelimit.NewPerWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	return c, nil
}

// Config returns the configuration of v.
func (c *VenueConfigs) Config(v venue.Venue) (domain.VenueConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.configs[v]
	return cfg, ok
}

// Enabled reports whether v is configured and enabled.
func (c *VenueConfigs) Enabled(v venue.Venue) bool {
	cfg, ok := c.Config(v)
	return ok && cfg.Enabled
}

// Update applies patch to v. The venue's limiter picks up a new rate in
// place, so callers already waiting on it see the change.
func (c *VenueConfigs) Update(v venue.Venue, patch domain.VenueConfigPatch) (domain.VenueConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, ok := c.configs[v]
	if !ok {
		return domain.VenueConfig{}, apperror.New(apperror.CodeVenueNotRegistered, apperror.WithContext(v.String()))
	}
	next := cfg.Apply(patch)
	if err := next.RateLimit.Validate(); err != nil {
		return cfg, err
	}

	c.configs[v] = next
	if patch.RateLimit != nil {
		c.limiters[v].SetWindow(next.RateLimit.Requests, next.RateLimit.Window)
	}
	return next, nil
}

// Snapshot returns a copy of every venue configuration.
func (c *VenueConfigs) Snapshot() map[venue.Venue]domain.VenueConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[venue.Venue]domain.VenueConfig, len(c.configs))
	for v, cfg := range c.configs {
		out[v] = cfg
	}
	return out
}

// Wait blocks on v's limiter. Unknown venues are not limited.
func (c *VenueConfigs) Wait(ctx context.Context, v venue.Venue) error {
	c.mu.RLock()
	l := c.limiters[v]
	c.mu.RUnlock()
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}
