// Package aggregator implements the quote aggregation and routing context.
package aggregator

import (
	"context"

	"github.com/fd1az/swap-router/business/aggregator/app"
	aggregatorDI "github.com/fd1az/swap-router/business/aggregator/di"
	"github.com/fd1az/swap-router/business/aggregator/domain"
	blockchainDI "github.com/fd1az/swap-router/business/blockchain/di"
	marketDI "github.com/fd1az/swap-router/business/market/di"
	venueDI "github.com/fd1az/swap-router/business/venue/di"
	venue "github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the aggregator bounded context.
type Module struct{}

// RegisterServices registers the aggregator and its collaborators.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, aggregatorDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		registry := app.NewRegistry()
		for _, a := range venueDI.GetAdapters(sr) {
			if err := registry.Register(a); err != nil {
				panic("failed to register venue: " + err.Error())
			}
		}
		return registry
	})

	di.RegisterToken(c, aggregatorDI.VenueConfigs, func(sr di.ServiceRegistry) *app.VenueConfigs {
		cfg := sr.Get("config").(*config.Config)

		initial := make(map[venue.Venue]domain.VenueConfig)
		for _, v := range aggregatorDI.GetRegistry(sr).Venues() {
			vc, _ := cfg.Venue(v.String())
			initial[v] = domain.VenueConfig{
				Enabled: vc.Enabled,
				RateLimit: domain.RateLimit{
					Requests: vc.RateLimit.Requests,
					Window:   vc.RateLimit.Window,
				},
			}
		}

		configs, err := app.NewVenueConfigs(initial)
		if err != nil {
			panic("invalid venue configuration: " + err.Error())
		}
		return configs
	})

	di.RegisterToken(c, aggregatorDI.ErrorHandler, func(sr di.ServiceRegistry) *app.ErrorHandler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		h, err := app.NewErrorHandler(cfg.Aggregator.ErrorLogSize, log)
		if err != nil {
			panic("failed to create error handler: " + err.Error())
		}
		return h
	})

	di.RegisterToken(c, aggregatorDI.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		agg, err := app.New(
			aggregatorDI.GetRegistry(sr),
			aggregatorDI.GetVenueConfigs(sr),
			aggregatorDI.GetErrorHandler(sr),
			marketDI.GetRepository(sr),
			log,
			app.Options{
				VenueTimeout:   cfg.Aggregator.VenueTimeout,
				RequestTimeout: cfg.Aggregator.RequestTimeout,
				Signer:         blockchainDI.GetService(sr).PublicKey(),
			},
		)
		if err != nil {
			panic("failed to create aggregator: " + err.Error())
		}
		return agg
	})

	return nil
}

// Startup logs the enabled venue set.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	agg := aggregatorDI.GetAggregator(mono.Services())

	var enabled []string
	for _, v := range agg.Venues() {
		if cfg := agg.Configs()[v]; cfg.Enabled {
			enabled = append(enabled, v.String())
		}
	}
	mono.Logger().Info(ctx, "aggregator module started", "enabled_venues", enabled)
	return nil
}
