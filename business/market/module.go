// Package market implements the pool and token cache shared by venue adapters.
package market

import (
	"context"

	"github.com/fd1az/swap-router/business/market/app"
	marketDI "github.com/fd1az/swap-router/business/market/di"
	"github.com/fd1az/swap-router/business/market/infra/memory"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
	"github.com/fd1az/swap-router/internal/retry"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers the repository and its store.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.Store, func(sr di.ServiceRegistry) app.Store {
		return memory.NewStore()
	})

	di.RegisterToken(c, marketDI.Repository, func(sr di.ServiceRegistry) *app.Repository {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		policy := retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
		}
		return app.NewRepository(marketDI.GetStore(sr), policy, log)
	})

	return nil
}

// Startup seeds the token cache with well-known mints.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	repo := marketDI.GetRepository(mono.Services())
	if err := repo.SeedWellKnown(ctx); err != nil {
		return err
	}

	tokens, err := repo.GetAllTokens(ctx)
	if err != nil {
		return err
	}
	mono.Logger().Info(ctx, "market module started", "tokens", len(tokens))
	return nil
}
