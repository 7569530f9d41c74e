// Package domain holds the aggregator's runtime venue configuration.
package domain

import (
	"time"

	"github.com/fd1az/swap-router/internal/apperror"
)

// RateLimit allows Requests calls per Window. Zero Requests means unlimited.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// VenueConfig is the runtime switchboard for one venue.
type VenueConfig struct {
	Enabled   bool
	RateLimit RateLimit
}

// VenueConfigPatch is a partial update; nil fields are left unchanged.
type VenueConfigPatch struct {
	Enabled   *bool
	RateLimit *RateLimit
}

// Validate rejects negative budgets and a budget without a window.
func (r RateLimit) Validate() error {
	if r.Requests < 0 {
		return apperror.New(apperror.CodeValidationError,
			apperror.WithMessage("rate limit requests must not be negative"))
	}
	if r.Requests > 0 && r.Window <= 0 {
		return apperror.New(apperror.CodeValidationError,
			apperror.WithMessage("rate limit window must be positive"))
	}
	return nil
}

// Apply returns c with p's non-nil fields applied.
func (c VenueConfig) Apply(p VenueConfigPatch) VenueConfig {
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.RateLimit != nil {
		c.RateLimit = *p.RateLimit
	}
	return c
}
