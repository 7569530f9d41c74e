// Package meteora lists Meteora DLMM pairs through Shyft's account indexer.
// Pairs are quoted as constant-product pools over their reserve vaults.
package meteora

import (
	"context"

	market "github.com/fd1az/swap-router/business/market/domain"
	"github.com/fd1az/swap-router/business/venue/app"
	"github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/business/venue/infra/simulated"
	"github.com/fd1az/swap-router/internal/logger"
)

const DefaultFeeBps = 30

const pairsQuery = `query GetMeteoraPairs($mint: String!) {
  meteora_dlmm_LbPair(where: {_or: [{tokenXMint: {_eq: $mint}}, {tokenYMint: {_eq: $mint}}]}) {
    pubkey
    tokenXMint
    tokenYMint
    reserveX
    reserveY
  }
}`

// Querier runs GraphQL operations against the account indexer.
type Querier interface {
	Query(ctx context.Context, operation, query string, variables map[string]any, out any) error
}

// lbPair carries the pair's mints; reserveX and reserveY are vault accounts.
type lbPair struct {
	Pubkey     string `json:"pubkey"`
	TokenXMint string `json:"tokenXMint"`
	TokenYMint string `json:"tokenYMint"`
	ReserveX   string `json:"reserveX"`
	ReserveY   string `json:"reserveY"`
}

type Source struct {
	q Querier
}

func NewSource(q Querier) *Source {
	return &Source{q: q}
}

// FetchPools lists pairs holding mint on either side.
func (s *Source) FetchPools(ctx context.Context, mint string) ([]market.Pool, error) {
	var out struct {
		Pairs []lbPair `json:"meteora_dlmm_LbPair"`
	}
	if err := s.q.Query(ctx, "GetMeteoraPairs", pairsQuery, map[string]any{"mint": mint}, &out); err != nil {
		return nil, err
	}

	pools := make([]market.Pool, 0, len(out.Pairs))
	for _, p := range out.Pairs {
		pools = append(pools, market.Pool{
			Address:    p.Pubkey,
			BaseAsset:  p.TokenXMint,
			QuoteAsset: p.TokenYMint,
			Venue:      domain.Meteora.String(),
			BaseVault:  p.ReserveX,
			QuoteVault: p.ReserveY,
		})
	}
	return pools, nil
}

// NewAdapter wires a Meteora source into a simulated adapter.
func NewAdapter(feeBps uint32, q Querier, balances app.BalanceReader, repo app.PoolRepository, log logger.LoggerInterface) (*simulated.Adapter, error) {
	return simulated.NewAdapter(domain.Meteora, feeBps, NewSource(q), balances, repo, log)
}
