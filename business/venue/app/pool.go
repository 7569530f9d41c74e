package app

import (
	"context"

	"github.com/shopspring/decimal"

	market "github.com/fd1az/swap-router/business/market/domain"
	"github.com/fd1az/swap-router/business/venue/domain"
)

// SelectBestPool returns the pool with the largest liquidity. Unknown
// liquidity counts as zero, ties keep the earlier pool and pools below
// minLiquidity are ignored.
func SelectBestPool(pools []market.Pool, minLiquidity decimal.Decimal) *market.Pool {
	var best *market.Pool
	for i := range pools {
		liq := pools[i].LiquidityOrZero()
		if minLiquidity.IsPositive() && (pools[i].Liquidity == nil || liq.LessThan(minLiquidity)) {
			continue
		}
		if best == nil || liq.GreaterThan(best.LiquidityOrZero()) {
			best = &pools[i]
		}
	}
	if best == nil {
		return nil
	}
	p := best.Clone()
	return &p
}

// BestCachedPool applies SelectBestPool to the venue's cached pools for asset.
func BestCachedPool(ctx context.Context, repo PoolRepository, venue domain.Venue, asset string, minLiquidity decimal.Decimal) (*market.Pool, error) {
	pools, err := repo.GetPoolsByVenue(ctx, venue.String(), asset)
	if err != nil {
		return nil, err
	}
	return SelectBestPool(pools, minLiquidity), nil
}

// SelectBestPairPool is SelectBestPool over the pools that trade a against b.
func SelectBestPairPool(pools []market.Pool, a, b string, minLiquidity decimal.Decimal) *market.Pool {
	paired := make([]market.Pool, 0, len(pools))
	for _, p := range pools {
		if p.Pairs(a, b) {
			paired = append(paired, p)
		}
	}
	return SelectBestPool(paired, minLiquidity)
}

// BestCachedPairPool is BestCachedPool restricted to pools pairing input with
// output. Nil means the venue has no cached pool for the pair.
func BestCachedPairPool(ctx context.Context, repo PoolRepository, venue domain.Venue, input, output string, minLiquidity decimal.Decimal) (*market.Pool, error) {
	pools, err := repo.GetPoolsByVenue(ctx, venue.String(), input)
	if err != nil {
		return nil, err
	}
	return SelectBestPairPool(pools, input, output, minLiquidity), nil
}
