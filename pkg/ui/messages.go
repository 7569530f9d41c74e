// Package ui provides the Bubble Tea quote board.
package ui

import (
	"time"

	"github.com/fd1az/swap-router/pkg/ui/components"
)

// QuoteBoardMsg carries one fan-out round.
type QuoteBoardMsg struct {
	Pair    string
	Amount  string
	Rows    []components.QuoteRow
	Latency time.Duration
}

// VenueStatsMsg carries venue enablement and error counts.
type VenueStatsMsg struct {
	Venues []components.VenueStatus
}

// ConnectionStatusMsg is sent when the RPC connection changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

type ErrorMsg struct {
	Error error
}

// TickMsg drives animations.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// StartupMsg reports progress of one startup step.
type StartupMsg struct {
	Step   string // config, solana, venues
	Status string // connecting, connected, failed
}
