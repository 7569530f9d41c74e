// Package domain contains the venue-neutral swap types shared by every adapter.
package domain

import (
	"github.com/fd1az/swap-router/internal/apperror"
)

// Venue identifies a liquidity venue.
type Venue string

const (
	Jupiter  Venue = "jupiter"
	Raydium  Venue = "raydium"
	PumpSwap Venue = "pumpswap"
	Meteora  Venue = "meteora"
)

// All returns every known venue in enumeration order.
func All() []Venue {
	return []Venue{Jupiter, Raydium, PumpSwap, Meteora}
}

// Parse resolves a venue name.
func Parse(s string) (Venue, error) {
	for _, v := range All() {
		if string(v) == s {
			return v, nil
		}
	}
	return "", apperror.New(apperror.CodeVenueNotRegistered, apperror.WithContext(s))
}

func (v Venue) String() string {
	return string(v)
}
