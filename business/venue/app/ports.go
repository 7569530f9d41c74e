// Package app contains the venue adapter contract and the helpers shared by
// its implementations.
package app

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"

	market "github.com/fd1az/swap-router/business/market/domain"
	"github.com/fd1az/swap-router/business/venue/domain"
)

// Adapter normalizes one venue's quote and execution calls.
type Adapter interface {
	Venue() domain.Venue

	// RequiresPool reports whether Quote needs a concrete pool.
	RequiresPool() bool

	// Quote prices req. pool is nil for venues that do not require one.
	Quote(ctx context.Context, req domain.SwapRequest, pool *market.Pool) (*domain.Quote, error)

	// Execute submits a previously returned Quote.Raw on behalf of signer.
	Execute(ctx context.Context, raw json.RawMessage, signer string) (*domain.SwapResult, error)

	// DiscoverPools fetches the venue's pools holding asset and caches them.
	DiscoverPools(ctx context.Context, asset string) ([]market.Pool, error)

	// GetAssetPrice returns the USD price of asset.
	GetAssetPrice(ctx context.Context, asset string) (decimal.Decimal, error)

	// GetBestPool returns the cached pool with the most liquidity, or nil.
	GetBestPool(ctx context.Context, asset string, minLiquidity decimal.Decimal) (*market.Pool, error)
}

// PairPoolFinder is implemented by pool-based adapters that can look up the
// deepest cached pool for an exact pair, not just for one of its assets.
type PairPoolFinder interface {
	GetBestPoolForPair(ctx context.Context, input, output string, minLiquidity decimal.Decimal) (*market.Pool, error)
}

// Executor signs and submits venue-built transactions.
type Executor interface {
	PublicKey() string
	// SignAndSubmit signs a base64 serialized transaction and returns its signature.
	SignAndSubmit(ctx context.Context, txBase64 string) (string, error)
}

// PoolRepository is the part of the market repository adapters use.
type PoolRepository interface {
	GetPoolsByVenue(ctx context.Context, venue, asset string) ([]market.Pool, error)
	GetPool(ctx context.Context, address string) (*market.Pool, error)
	AddPool(ctx context.Context, pool market.Pool) error
	GetToken(ctx context.Context, address string) (*market.Token, error)
	AddToken(ctx context.Context, token market.Token) error
	HasToken(ctx context.Context, address string) bool
	UpdateTokenPrice(ctx context.Context, address string, price decimal.Decimal) error
	Price(ctx context.Context, address string) (decimal.Decimal, bool)
	Decimals(ctx context.Context, address string) (uint8, bool)
}

// BalanceReader reads SPL token account balances from the chain.
type BalanceReader interface {
	TokenAccountBalance(ctx context.Context, account string) (amount *big.Int, decimals uint8, err error)
}
