// Package blockchain implements the Solana execution context: wallet signing,
// transaction submission and confirmation tracking.
package blockchain

import (
	"context"

	"github.com/fd1az/swap-router/business/blockchain/app"
	blockchainDI "github.com/fd1az/swap-router/business/blockchain/di"
	"github.com/fd1az/swap-router/business/blockchain/domain"
	"github.com/fd1az/swap-router/business/blockchain/infra/solana"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct {
	services di.ServiceRegistry
}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.RPC, func(sr di.ServiceRegistry) *solana.RPCClient {
		cfg := sr.Get("config").(*config.Config)

		rpc, err := solana.NewRPCClient(cfg.Solana.RPCURL, domain.Commitment(cfg.Solana.Commitment))
		if err != nil {
			panic("failed to create solana rpc client: " + err.Error())
		}
		return rpc
	})

	di.RegisterToken(c, blockchainDI.Watcher, func(sr di.ServiceRegistry) *solana.Watcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return solana.NewWatcher(cfg.Solana.WSURL, cfg.Solana.MaxReconnects, log)
	})

	di.RegisterToken(c, blockchainDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var key *domain.Keypair
		if cfg.Wallet.SecretKey != "" {
			k, err := domain.ParseKeypair(cfg.Wallet.SecretKey)
			if err != nil {
				// never echo the secret
				panic("invalid wallet secret key: " + string(apperror.GetCode(err)))
			}
			key = k
		}

		return app.NewService(
			blockchainDI.GetRPC(sr),
			blockchainDI.GetWatcher(sr),
			key,
			app.Config{
				Commitment:     domain.Commitment(cfg.Solana.Commitment),
				ConfirmTimeout: cfg.Solana.ConfirmTimeout,
				PollInterval:   cfg.Solana.PollInterval,
			},
			log,
		)
	})

	return nil
}

// Startup checks the RPC node. An unhealthy node is logged, not fatal: quotes
// do not need it.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	m.services = mono.Services()
	svc := blockchainDI.GetService(m.services)

	if err := svc.Health(ctx); err != nil {
		log.Warn(ctx, "solana rpc unhealthy", "error", err)
	}

	if svc.HasWallet() {
		log.Info(ctx, "blockchain module started", "wallet", svc.PublicKey())
	} else {
		log.Info(ctx, "blockchain module started", "wallet", "none (execution disabled)")
	}
	return nil
}

// Close drops the PubSub connection.
func (m *Module) Close(ctx context.Context) error {
	if m.services == nil {
		return nil
	}
	return blockchainDI.GetWatcher(m.services).Close()
}
