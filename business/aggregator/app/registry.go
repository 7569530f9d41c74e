// Package app contains the aggregation engine: the venue registry, runtime
// venue configuration, the error handler and the quote fan-out.
package app

import (
	"sync"

	venueApp "github.com/fd1az/swap-router/business/venue/app"
	venue "github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
)

// Registry maps venues to adapters. Enumeration order is registration order
// and breaks quote ties.
type Registry struct {
	mu       sync.RWMutex
	order    []venue.Venue
	adapters map[venue.Venue]venueApp.Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[venue.Venue]venueApp.Adapter)}
}

// Register adds a. A venue can only be registered once.
func (r *Registry) Register(a venueApp.Adapter) error {
	if a == nil {
		return apperror.New(apperror.CodeValidationError, apperror.WithMessage("adapter is nil"))
	}
	v := a.Venue()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.adapters[v]; ok {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("venue already registered"),
			apperror.WithContext(v.String()))
	}
	r.adapters[v] = a
	r.order = append(r.order, v)
	return nil
}

// Get returns the adapter for v.
func (r *Registry) Get(v venue.Venue) (venueApp.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[v]
	return a, ok
}

// Venues returns the registered venues in registration order.
func (r *Registry) Venues() []venue.Venue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]venue.Venue, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
