// Package pricing keeps the token cache's USD prices current.
package pricing

import (
	"context"

	aggregatorDI "github.com/fd1az/swap-router/business/aggregator/di"
	marketDI "github.com/fd1az/swap-router/business/market/di"
	"github.com/fd1az/swap-router/business/pricing/app"
	pricingDI "github.com/fd1az/swap-router/business/pricing/di"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.PriceService, func(sr di.ServiceRegistry) *app.PriceService {
		log := sr.Get("logger").(logger.LoggerInterface)
		svc, err := app.NewPriceService(
			aggregatorDI.GetAggregator(sr),
			marketDI.GetRepository(sr),
			log,
		)
		if err != nil {
			panic("failed to create price service: " + err.Error())
		}
		return svc
	})
	return nil
}

// Startup starts the background refresh for long-running modes. One-shot
// commands price on demand instead.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()

	interval := cfg.Pricing.RefreshInterval
	if !cfg.App.TUIMode || interval <= 0 {
		log.Info(ctx, "pricing module started", "refresh", "on demand")
		return nil
	}

	go pricingDI.GetPriceService(mono.Services()).Run(ctx, interval)
	log.Info(ctx, "pricing module started", "refresh", interval.String())
	return nil
}
