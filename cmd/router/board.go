package main

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	aggregatorApp "github.com/fd1az/swap-router/business/aggregator/app"
	aggregatorDI "github.com/fd1az/swap-router/business/aggregator/di"
	blockchainDI "github.com/fd1az/swap-router/business/blockchain/di"
	pricing "github.com/fd1az/swap-router/business/pricing/domain"
	venue "github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/monolith"
	"github.com/fd1az/swap-router/pkg/ui"
	"github.com/fd1az/swap-router/pkg/ui/components"
)

// monolithApp is what the board needs from the container beyond Monolith.
type monolithApp interface {
	monolith.Monolith
	StartModules(ctx context.Context, modules ...monolith.Module) error
}

func runTUI(ctx context.Context, mono monolithApp, modules []monolith.Module, opts options) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	refresh := make(chan struct{}, 1)
	ui.OnRefresh = func() {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}
	var paused atomic.Bool
	ui.OnPauseToggle = paused.Store

	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		ui.Send(ui.StartupMsg{Step: "solana", Status: "connecting"})
		if err := mono.StartModules(ctx, modules...); err != nil {
			ui.Send(ui.StartupMsg{Step: "solana", Status: "failed"})
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}
		ui.Send(ui.StartupMsg{Step: "solana", Status: "connected"})
		ui.Send(ui.StartupMsg{Step: "venues", Status: "done"})

		b := &board{
			agg:    aggregatorDI.GetAggregator(mono.Services()),
			health: blockchainDI.GetService(mono.Services()).Health,
			cli:    &cli{agg: aggregatorDI.GetAggregator(mono.Services()), tokens: tokenDecimals(mono)},
			opts:   opts,
		}
		b.loop(ctx, refresh, &paused)
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-time.After(shutdownTimeout):
		return nil
	}
}

// board polls the aggregator and feeds the quote board.
type board struct {
	agg    *aggregatorApp.Aggregator
	health func(ctx context.Context) error
	cli    *cli
	opts   options
}

func (b *board) loop(ctx context.Context, refresh <-chan struct{}, paused *atomic.Bool) {
	interval := b.opts.interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.round(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh:
			b.round(ctx)
		case <-ticker.C:
			if !paused.Load() {
				b.round(ctx)
			}
		}
	}
}

func (b *board) round(ctx context.Context) {
	start := time.Now()
	err := b.health(ctx)
	ui.Send(ui.ConnectionStatusMsg{Name: "Solana", Connected: err == nil, Latency: time.Since(start)})

	req, err := b.cli.request(ctx, b.opts)
	if err != nil {
		ui.Send(ui.ErrorMsg{Error: err})
		return
	}

	start = time.Now()
	quotes, err := b.agg.GetAllQuotes(ctx, req)
	latency := time.Since(start)
	if err != nil {
		ui.Send(ui.ErrorMsg{Error: err})
	}

	ui.Send(ui.QuoteBoardMsg{
		Pair:    b.opts.in + " -> " + b.opts.out,
		Amount:  b.opts.amount + " " + b.opts.in,
		Rows:    b.rows(ctx, req, quotes, b.failedSince(start)),
		Latency: latency,
	})
	ui.Send(ui.VenueStatsMsg{Venues: b.venueStats()})
}

// failedSince reports the venues that logged an error at or after t.
func (b *board) failedSince(t time.Time) map[venue.Venue]bool {
	failed := make(map[venue.Venue]bool)
	for _, e := range b.agg.Errors().ErrorLog() {
		if !e.Timestamp.Before(t) {
			failed[e.Venue] = true
		}
	}
	return failed
}

// rows lists the venues of one round in enumeration order. A venue without a
// quote either failed this round or had no pool to quote.
func (b *board) rows(ctx context.Context, req venue.SwapRequest, quotes map[venue.Venue]*venue.Quote, failed map[venue.Venue]bool) []components.QuoteRow {
	best := b.agg.BestOf(quotes)
	var bestOut *big.Int
	if q := quotes[best]; q != nil {
		bestOut = q.OutputAmount
	}
	decimals, known := b.cli.tokens(ctx, req.OutputAsset)

	toHuman := func(raw *big.Int) decimal.Decimal {
		if known {
			return asset.ToDecimal(raw, decimals)
		}
		if raw == nil {
			return decimal.Zero
		}
		return decimal.NewFromBigInt(raw, 0)
	}

	rows := make([]components.QuoteRow, 0, len(quotes))
	for _, v := range b.agg.Venues() {
		q, ok := quotes[v]
		switch {
		case !ok:
			continue
		case q == nil && failed[v]:
			rows = append(rows, components.QuoteRow{Venue: v.String(), Status: "error"})
		case q == nil:
			rows = append(rows, components.QuoteRow{Venue: v.String(), Status: "no pool"})
		default:
			rows = append(rows, components.QuoteRow{
				Venue:       v.String(),
				Output:      toHuman(q.OutputAmount),
				Fee:         toHuman(q.Fee),
				PriceImpact: q.PriceImpact,
				SpreadBps:   pricing.QuoteSpread(bestOut, q.OutputAmount).BasisPoints,
				Best:        v == best,
			})
		}
	}
	return rows
}

func (b *board) venueStats() []components.VenueStatus {
	stats := b.agg.Errors().ErrorStats()
	configs := b.agg.Configs()

	out := make([]components.VenueStatus, 0, len(configs))
	for _, v := range b.agg.Venues() {
		out = append(out, components.VenueStatus{
			Name:    v.String(),
			Enabled: configs[v].Enabled,
			Errors:  stats[v],
		})
	}
	return out
}
