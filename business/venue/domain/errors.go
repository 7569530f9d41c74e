package domain

import (
	"fmt"
	"time"

	"github.com/fd1az/swap-router/internal/apperror"
)

// VenueError is a normalized venue failure. Typed is true when Code came from
// the failing component itself and false when it was inferred from an
// untyped error.
type VenueError struct {
	Code      apperror.Code
	Message   string
	Venue     Venue
	Timestamp time.Time
	Typed     bool

	cause error
}

// NewVenueError creates a VenueError stamped with the current time.
func NewVenueError(venue Venue, code apperror.Code, message string, typed bool, cause error) *VenueError {
	return &VenueError{
		Code:      code,
		Message:   message,
		Venue:     venue,
		Timestamp: time.Now(),
		Typed:     typed,
		cause:     cause,
	}
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Venue, e.Message)
}

func (e *VenueError) Unwrap() error {
	return e.cause
}
