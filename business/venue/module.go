// Package venue implements the liquidity venue adapters: remote venues quoted
// over their HTTP APIs and simulated venues priced locally from pool reserves.
package venue

import (
	"context"

	blockchainDI "github.com/fd1az/swap-router/business/blockchain/di"
	marketDI "github.com/fd1az/swap-router/business/market/di"
	"github.com/fd1az/swap-router/business/venue/app"
	venueDI "github.com/fd1az/swap-router/business/venue/di"
	"github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/business/venue/infra/jupiter"
	"github.com/fd1az/swap-router/business/venue/infra/meteora"
	"github.com/fd1az/swap-router/business/venue/infra/pumpswap"
	"github.com/fd1az/swap-router/business/venue/infra/raydium"
	"github.com/fd1az/swap-router/business/venue/infra/shyft"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the venue bounded context.
type Module struct{}

// RegisterServices registers the Shyft client and the venue adapters.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, venueDI.Shyft, func(sr di.ServiceRegistry) *shyft.Client {
		cfg := sr.Get("config").(*config.Config)

		client, err := shyft.NewClient(shyft.Config{
			URL:     cfg.Shyft.URL,
			APIKey:  cfg.Shyft.APIKey,
			Network: cfg.Shyft.Network,
		})
		if err != nil {
			panic("failed to create shyft client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, venueDI.Adapters, func(sr di.ServiceRegistry) []app.Adapter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		adapters := make([]app.Adapter, 0, len(domain.All()))
		for _, v := range domain.All() {
			vc, ok := cfg.Venue(v.String())
			if !ok {
				continue
			}
			a, err := newAdapter(sr, v, vc, log)
			if err != nil {
				panic("failed to create " + v.String() + " adapter: " + err.Error())
			}
			adapters = append(adapters, a)
		}
		return adapters
	})

	return nil
}

func newAdapter(sr di.ServiceRegistry, v domain.Venue, vc config.VenueConfig, log logger.LoggerInterface) (app.Adapter, error) {
	repo := marketDI.GetRepository(sr)
	chain := blockchainDI.GetService(sr)

	switch v {
	case domain.Jupiter:
		return jupiter.NewAdapter(jupiter.Config{BaseURL: vc.APIURL, APIKey: vc.APIKey}, repo, chain, log)
	case domain.Raydium:
		return raydium.NewAdapter(raydium.Config{APIURL: vc.APIURL, TxURL: vc.TxURL}, repo, chain, log)
	case domain.PumpSwap:
		return pumpswap.NewAdapter(feeOr(vc.FeeBps, pumpswap.DefaultFeeBps), venueDI.GetShyft(sr), chain, repo, log)
	case domain.Meteora:
		return meteora.NewAdapter(feeOr(vc.FeeBps, meteora.DefaultFeeBps), venueDI.GetShyft(sr), chain, repo, log)
	}
	return nil, apperror.New(apperror.CodeVenueNotRegistered, apperror.WithContext(v.String()))
}

func feeOr(bps, fallback uint32) uint32 {
	if bps == 0 {
		return fallback
	}
	return bps
}

// Startup builds the adapters so configuration errors surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	adapters := venueDI.GetAdapters(mono.Services())

	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Venue().String())
	}
	mono.Logger().Info(ctx, "venue module started", "venues", names)
	return nil
}
