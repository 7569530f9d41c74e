// Package pumpswap lists PumpSwap AMM pools through Shyft's account indexer
// and quotes them with the simulated constant-product adapter.
package pumpswap

import (
	"context"

	market "github.com/fd1az/swap-router/business/market/domain"
	"github.com/fd1az/swap-router/business/venue/app"
	"github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/business/venue/infra/simulated"
	"github.com/fd1az/swap-router/internal/logger"
)

// DefaultFeeBps is the PumpSwap LP plus protocol fee.
const DefaultFeeBps = 25

const poolsQuery = `query GetPumpSwapPools($mint: String!) {
  pump_fun_amm_Pool(where: {base_mint: {_eq: $mint}}) {
    pubkey
    base_mint
    quote_mint
    pool_base_token_account
    pool_quote_token_account
  }
}`

// Querier runs GraphQL operations against the account indexer.
type Querier interface {
	Query(ctx context.Context, operation, query string, variables map[string]any, out any) error
}

type poolAccount struct {
	Pubkey                string `json:"pubkey"`
	BaseMint              string `json:"base_mint"`
	QuoteMint             string `json:"quote_mint"`
	PoolBaseTokenAccount  string `json:"pool_base_token_account"`
	PoolQuoteTokenAccount string `json:"pool_quote_token_account"`
}

// Source lists PumpSwap pools whose base mint is the requested asset.
type Source struct {
	q Querier
}

func NewSource(q Querier) *Source {
	return &Source{q: q}
}

func (s *Source) FetchPools(ctx context.Context, mint string) ([]market.Pool, error) {
	var out struct {
		Pools []poolAccount `json:"pump_fun_amm_Pool"`
	}
	if err := s.q.Query(ctx, "GetPumpSwapPools", poolsQuery, map[string]any{"mint": mint}, &out); err != nil {
		return nil, err
	}

	pools := make([]market.Pool, 0, len(out.Pools))
	for _, p := range out.Pools {
		pools = append(pools, market.Pool{
			Address:    p.Pubkey,
			BaseAsset:  p.BaseMint,
			QuoteAsset: p.QuoteMint,
			Venue:      domain.PumpSwap.String(),
			BaseVault:  p.PoolBaseTokenAccount,
			QuoteVault: p.PoolQuoteTokenAccount,
		})
	}
	return pools, nil
}

// NewAdapter wires a PumpSwap source into a simulated adapter.
func NewAdapter(feeBps uint32, q Querier, balances app.BalanceReader, repo app.PoolRepository, log logger.LoggerInterface) (*simulated.Adapter, error) {
	return simulated.NewAdapter(domain.PumpSwap, feeBps, NewSource(q), balances, repo, log)
}
