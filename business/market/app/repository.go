package app

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/business/market/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/retry"
)

// Repository is the venue-agnostic pool and token cache. Every read goes
// through the retry policy so a fallible Store can sit behind it.
type Repository struct {
	store  Store
	policy retry.Policy
	logger logger.LoggerInterface
}

// NewRepository creates a Repository over store.
func NewRepository(store Store, policy retry.Policy, log logger.LoggerInterface) *Repository {
	r := &Repository{store: store, policy: policy, logger: log}
	r.policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn(context.Background(), "repository read failed, retrying",
			"attempt", attempt, "delay", delay, "error", err)
	}
	return r
}

func read[T any](ctx context.Context, r *Repository, op func(ctx context.Context) (T, error)) (T, error) {
	return retry.Run(ctx, r.policy, op)
}

// --- pools ---

// GetPoolsByAsset returns cached pools holding asset. A positive minLiquidity
// drops pools whose liquidity is unknown or lower.
func (r *Repository) GetPoolsByAsset(ctx context.Context, assetAddr string, minLiquidity decimal.Decimal) ([]domain.Pool, error) {
	if err := asset.ValidateAddress(assetAddr); err != nil {
		return nil, err
	}

	return read(ctx, r, func(ctx context.Context) ([]domain.Pool, error) {
		pools, err := r.store.Pools(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Pool, 0, len(pools))
		for _, p := range pools {
			if !p.References(assetAddr) {
				continue
			}
			if minLiquidity.IsPositive() && (p.Liquidity == nil || p.Liquidity.LessThan(minLiquidity)) {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	})
}

// GetPoolsByVenue returns the venue's cached pools, restricted to assetAddr when set.
func (r *Repository) GetPoolsByVenue(ctx context.Context, venue, assetAddr string) ([]domain.Pool, error) {
	if assetAddr != "" {
		if err := asset.ValidateAddress(assetAddr); err != nil {
			return nil, err
		}
	}

	return read(ctx, r, func(ctx context.Context) ([]domain.Pool, error) {
		pools, err := r.store.Pools(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Pool, 0, len(pools))
		for _, p := range pools {
			if p.Venue != venue {
				continue
			}
			if assetAddr != "" && !p.References(assetAddr) {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	})
}

// GetPool returns the pool at address, or nil when it is not cached.
func (r *Repository) GetPool(ctx context.Context, address string) (*domain.Pool, error) {
	if err := asset.ValidateAddress(address); err != nil {
		return nil, err
	}

	return read(ctx, r, func(ctx context.Context) (*domain.Pool, error) {
		p, ok, err := r.store.Pool(ctx, address)
		if err != nil || !ok {
			return nil, err
		}
		return &p, nil
	})
}

// GetAllPools returns every cached pool in first-seen order.
func (r *Repository) GetAllPools(ctx context.Context) ([]domain.Pool, error) {
	return read(ctx, r, r.store.Pools)
}

// AddPool caches pool, replacing any pool with the same address.
func (r *Repository) AddPool(ctx context.Context, pool domain.Pool) error {
	if err := asset.ValidateAddress(pool.Address); err != nil {
		return err
	}
	return r.store.PutPool(ctx, pool)
}

// RemovePool drops the pool at address and reports whether it was cached.
func (r *Repository) RemovePool(ctx context.Context, address string) (bool, error) {
	return r.store.DeletePool(ctx, address)
}

func (r *Repository) ClearPools(ctx context.Context) error {
	return r.store.ResetPools(ctx)
}

// --- tokens ---

// GetToken returns the token at address, or nil when it is not cached.
func (r *Repository) GetToken(ctx context.Context, address string) (*domain.Token, error) {
	if err := asset.ValidateAddress(address); err != nil {
		return nil, err
	}

	return read(ctx, r, func(ctx context.Context) (*domain.Token, error) {
		t, ok, err := r.store.Token(ctx, address)
		if err != nil || !ok {
			return nil, err
		}
		return &t, nil
	})
}

// GetTokensBySymbol matches symbols case-insensitively.
func (r *Repository) GetTokensBySymbol(ctx context.Context, symbol string) ([]domain.Token, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, apperror.New(apperror.CodeValidationError,
			apperror.WithMessage("token symbol must not be empty"))
	}

	return read(ctx, r, func(ctx context.Context) ([]domain.Token, error) {
		tokens, err := r.store.Tokens(ctx)
		if err != nil {
			return nil, err
		}
		var out []domain.Token
		for _, t := range tokens {
			if strings.EqualFold(t.Symbol, symbol) {
				out = append(out, t)
			}
		}
		return out, nil
	})
}

func (r *Repository) GetAllTokens(ctx context.Context) ([]domain.Token, error) {
	return read(ctx, r, r.store.Tokens)
}

// UpdateTokenPrice sets the USD price of a cached token.
func (r *Repository) UpdateTokenPrice(ctx context.Context, address string, price decimal.Decimal) error {
	if err := asset.ValidateAddress(address); err != nil {
		return err
	}
	if price.IsNegative() {
		return apperror.New(apperror.CodeInvalidPrice,
			apperror.WithContext(price.String()))
	}

	t, err := r.GetToken(ctx, address)
	if err != nil {
		return err
	}
	if t == nil {
		return apperror.New(apperror.CodeTokenNotFound, apperror.WithContext(address))
	}

	t.Price = &price
	return r.store.PutToken(ctx, *t)
}

func (r *Repository) AddToken(ctx context.Context, token domain.Token) error {
	if err := asset.ValidateAddress(token.Address); err != nil {
		return err
	}
	return r.store.PutToken(ctx, token)
}

func (r *Repository) RemoveToken(ctx context.Context, address string) (bool, error) {
	return r.store.DeleteToken(ctx, address)
}

func (r *Repository) ClearTokens(ctx context.Context) error {
	return r.store.ResetTokens(ctx)
}

// HasToken reports whether address is cached. A store that keeps failing
// after retries counts as absent.
func (r *Repository) HasToken(ctx context.Context, address string) bool {
	_, ok := r.lookupToken(ctx, address)
	return ok
}

// lookupToken is the retried single-token read behind the boolean accessors.
func (r *Repository) lookupToken(ctx context.Context, address string) (domain.Token, bool) {
	t, err := read(ctx, r, func(ctx context.Context) (*domain.Token, error) {
		t, ok, err := r.store.Token(ctx, address)
		if err != nil || !ok {
			return nil, err
		}
		return &t, nil
	})
	if err != nil || t == nil {
		return domain.Token{}, false
	}
	return *t, true
}

// SeedWellKnown caches SOL, USDC and USDT metadata, keeping any cached entry.
func (r *Repository) SeedWellKnown(ctx context.Context) error {
	for _, a := range asset.WellKnown() {
		if r.HasToken(ctx, a.Mint()) {
			continue
		}
		if err := r.AddToken(ctx, domain.TokenFromAsset(a)); err != nil {
			return err
		}
	}
	return nil
}

// Decimals returns the cached decimals of a mint.
func (r *Repository) Decimals(ctx context.Context, address string) (uint8, bool) {
	t, ok := r.lookupToken(ctx, address)
	if !ok {
		return 0, false
	}
	return t.Decimals, true
}

// Price returns the cached USD price of a mint.
func (r *Repository) Price(ctx context.Context, address string) (decimal.Decimal, bool) {
	t, ok := r.lookupToken(ctx, address)
	if !ok || t.Price == nil {
		return decimal.Zero, false
	}
	return *t.Price, true
}
