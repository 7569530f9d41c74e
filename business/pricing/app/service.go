// Package app keeps cached token prices fresh.
package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swap-router/internal/logger"
)

const meterName = "pricing"

// PriceService refreshes the USD price of every cached token.
type PriceService struct {
	source PriceSource
	tokens TokenStore
	logger logger.LoggerInterface

	refreshed metric.Int64Counter
	missed    metric.Int64Counter
}

func NewPriceService(source PriceSource, tokens TokenStore, log logger.LoggerInterface) (*PriceService, error) {
	s := &PriceService{source: source, tokens: tokens, logger: log}

	meter := otel.Meter(meterName)
	var err error
	if s.refreshed, err = meter.Int64Counter("token_prices_refreshed_total",
		metric.WithDescription("Token prices written to the cache")); err != nil {
		return nil, err
	}
	if s.missed, err = meter.Int64Counter("token_prices_missed_total",
		metric.WithDescription("Tokens no venue could price")); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh prices every cached token once and returns how many were updated.
// A token no venue can price keeps its previous price.
func (s *PriceService) Refresh(ctx context.Context) (int, error) {
	tokens, err := s.tokens.GetAllTokens(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, t := range tokens {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}

		price, err := s.source.GetAssetPrice(ctx, t.Address)
		if err != nil {
			s.missed.Add(ctx, 1)
			s.logger.Debug(ctx, "token price unavailable", "token", t.Symbol, "error", err)
			continue
		}
		if err := s.tokens.UpdateTokenPrice(ctx, t.Address, price); err != nil {
			s.logger.Warn(ctx, "storing token price", "token", t.Symbol, "error", err)
			continue
		}
		s.refreshed.Add(ctx, 1)
		updated++
	}
	return updated, nil
}

// Run refreshes immediately and then every interval until ctx is done.
func (s *PriceService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn(ctx, "price refresh failed", "error", err)
		} else {
			s.logger.Debug(ctx, "prices refreshed", "updated", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
