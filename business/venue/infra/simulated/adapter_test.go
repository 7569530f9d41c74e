package simulated

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	marketApp "github.com/fd1az/swap-router/business/market/app"
	market "github.com/fd1az/swap-router/business/market/domain"
	"github.com/fd1az/swap-router/business/market/infra/memory"
	"github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/retry"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

const (
	solUsdcPool = "7qbRF6YsyGuLUVs6Y1q64bdVrfe4ZcUUz1JRdoVNUJnm"
	brokenPool  = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"
)

type fakeSource struct {
	pools []market.Pool
	err   error
}

func (f *fakeSource) FetchPools(context.Context, string) ([]market.Pool, error) {
	return f.pools, f.err
}

type balance struct {
	amount   int64
	decimals uint8
}

type fakeBalances map[string]balance

func (f fakeBalances) TokenAccountBalance(_ context.Context, account string) (*big.Int, uint8, error) {
	b, ok := f[account]
	if !ok {
		return nil, 0, errors.New("account not found")
	}
	return big.NewInt(b.amount), b.decimals, nil
}

func newTestAdapter(t *testing.T, source PoolSource) (*Adapter, *marketApp.Repository) {
	t.Helper()
	ctx := context.Background()

	repo := marketApp.NewRepository(memory.NewStore(), retry.Policy{MaxAttempts: 1}, &mockLogger{})
	if err := repo.SeedWellKnown(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repo.UpdateTokenPrice(ctx, asset.MintUSDC, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("price: %v", err)
	}

	balances := fakeBalances{
		"vault-sol":  {amount: 1_000_000_000_000, decimals: 9},
		"vault-usdc": {amount: 150_000_000_000, decimals: 6},
	}

	a, err := NewAdapter(domain.PumpSwap, 25, source, balances, repo, &mockLogger{})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return a, repo
}

func listedPools() *fakeSource {
	return &fakeSource{pools: []market.Pool{
		{Address: solUsdcPool, BaseAsset: asset.MintWrappedSOL, QuoteAsset: asset.MintUSDC, BaseVault: "vault-sol", QuoteVault: "vault-usdc"},
		{Address: brokenPool, BaseAsset: asset.MintWrappedSOL, QuoteAsset: asset.MintUSDT, BaseVault: "vault-sol", QuoteVault: "missing"},
	}}
}

func solToUSDC(amount int64) domain.SwapRequest {
	return domain.SwapRequest{
		InputAsset:  asset.MintWrappedSOL,
		OutputAsset: asset.MintUSDC,
		Amount:      big.NewInt(amount),
		SlippageBps: 100,
	}
}

func TestAdapter_DiscoverPools(t *testing.T) {
	ctx := context.Background()
	a, repo := newTestAdapter(t, listedPools())

	pools, err := a.DiscoverPools(ctx, asset.MintWrappedSOL)
	if err != nil {
		t.Fatalf("DiscoverPools: %v", err)
	}
	if len(pools) != 1 || pools[0].Address != solUsdcPool {
		t.Fatalf("expected only the readable pool, got %+v", pools)
	}

	p := pools[0]
	if p.Venue != "pumpswap" {
		t.Errorf("venue = %q", p.Venue)
	}
	if !p.BaseReserve.Equal(decimal.NewFromInt(1000)) || !p.QuoteReserve.Equal(decimal.NewFromInt(150_000)) {
		t.Errorf("reserves = %s / %s", p.BaseReserve, p.QuoteReserve)
	}
	// only USDC is priced, so liquidity is twice the USDC side
	if p.Liquidity == nil || !p.Liquidity.Equal(decimal.NewFromInt(300_000)) {
		t.Errorf("liquidity = %v", p.Liquidity)
	}

	cached, err := repo.GetPool(ctx, solUsdcPool)
	if err != nil || cached == nil {
		t.Fatalf("pool not cached: %v", err)
	}
	best, err := a.GetBestPool(ctx, asset.MintWrappedSOL, decimal.Zero)
	if err != nil || best == nil || best.Address != solUsdcPool {
		t.Errorf("GetBestPool = %+v, %v", best, err)
	}
}

func TestAdapter_GetBestPoolForPair(t *testing.T) {
	ctx := context.Background()
	a, repo := newTestAdapter(t, &fakeSource{})

	for _, p := range []market.Pool{
		{Address: solUsdcPool, Venue: "pumpswap", BaseAsset: asset.MintWrappedSOL, QuoteAsset: asset.MintUSDC,
			Liquidity: market.DecimalPtr(decimal.NewFromInt(300_000))},
		{Address: brokenPool, Venue: "pumpswap", BaseAsset: asset.MintWrappedSOL, QuoteAsset: asset.MintUSDT,
			Liquidity: market.DecimalPtr(decimal.NewFromInt(30_000))},
	} {
		if err := repo.AddPool(ctx, p); err != nil {
			t.Fatalf("AddPool: %v", err)
		}
	}

	deepest, err := a.GetBestPool(ctx, asset.MintWrappedSOL, decimal.Zero)
	if err != nil || deepest == nil || deepest.Address != solUsdcPool {
		t.Fatalf("GetBestPool = %+v, %v", deepest, err)
	}

	tests := []struct {
		input, output string
		want          string
	}{
		{asset.MintWrappedSOL, asset.MintUSDT, brokenPool},
		{asset.MintUSDC, asset.MintWrappedSOL, solUsdcPool},
		{asset.MintUSDC, asset.MintUSDT, ""},
	}
	for _, tt := range tests {
		got, err := a.GetBestPoolForPair(ctx, tt.input, tt.output, decimal.Zero)
		if err != nil {
			t.Fatalf("GetBestPoolForPair: %v", err)
		}
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("%s/%s: expected no pool, got %s", tt.input, tt.output, got.Address)
		case tt.want != "" && (got == nil || got.Address != tt.want):
			t.Errorf("%s/%s: expected %s, got %+v", tt.input, tt.output, tt.want, got)
		}
	}
}

func TestAdapter_DiscoverPoolsSourceError(t *testing.T) {
	a, _ := newTestAdapter(t, &fakeSource{err: errors.New("indexer down")})

	_, err := a.DiscoverPools(context.Background(), asset.MintWrappedSOL)
	if apperror.GetCode(err) != apperror.CodePoolDiscoveryFailed {
		t.Errorf("expected POOL_DISCOVERY_FAILED, got %v", err)
	}
}

func TestAdapter_Quote(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t, listedPools())
	pools, err := a.DiscoverPools(ctx, asset.MintWrappedSOL)
	if err != nil {
		t.Fatalf("DiscoverPools: %v", err)
	}

	q, err := a.Quote(ctx, solToUSDC(1_000_000_000), &pools[0])
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	// floor(1e9*9975*150e9 / (1e12*10000 + 1e9*9975))
	if q.OutputAmount.Int64() != 149_475_897 {
		t.Errorf("output = %s", q.OutputAmount)
	}
	if q.Fee.Int64() != 374_252 {
		t.Errorf("fee = %s", q.Fee)
	}
	if !q.PriceImpact.Equal(decimal.RequireFromString("0.00349402")) {
		t.Errorf("impact = %s", q.PriceImpact)
	}
	if q.Venue != domain.PumpSwap {
		t.Errorf("venue = %s", q.Venue)
	}

	var snap snapshot
	if err := json.Unmarshal(q.Raw, &snap); err != nil {
		t.Fatalf("raw: %v", err)
	}
	if !snap.Simulated || snap.Pool.Address != solUsdcPool || snap.AmountOut != "149475897" {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	// reverse direction uses the same pool
	back, err := a.Quote(ctx, domain.SwapRequest{
		InputAsset:  asset.MintUSDC,
		OutputAsset: asset.MintWrappedSOL,
		Amount:      big.NewInt(150_000_000),
	}, &pools[0])
	if err != nil {
		t.Fatalf("reverse Quote: %v", err)
	}
	if back.OutputAmount.Sign() <= 0 || back.OutputAmount.Cmp(big.NewInt(1_000_000_000)) >= 0 {
		t.Errorf("reverse output = %s", back.OutputAmount)
	}
}

func TestAdapter_QuoteErrors(t *testing.T) {
	a, _ := newTestAdapter(t, listedPools())
	ctx := context.Background()

	unpriced := market.Pool{Address: solUsdcPool, BaseAsset: asset.MintWrappedSOL, QuoteAsset: asset.MintUSDC}
	wrongPair := market.Pool{
		Address:      solUsdcPool,
		BaseAsset:    asset.MintWrappedSOL,
		QuoteAsset:   asset.MintUSDT,
		BaseReserve:  market.DecimalPtr(decimal.NewFromInt(10)),
		QuoteReserve: market.DecimalPtr(decimal.NewFromInt(10)),
	}

	tests := []struct {
		name         string
		pool         *market.Pool
		wantReserves bool
	}{
		{"no pool", nil, false},
		{"pool does not pair assets", &wrongPair, false},
		{"missing reserves", &unpriced, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Quote(ctx, solToUSDC(1_000), tt.pool)
			if apperror.GetCode(err) != apperror.CodeVenueQuoteError {
				t.Fatalf("expected VENUE_QUOTE_ERROR, got %v", err)
			}
			if got := apperror.HasCode(err, apperror.CodeInvalidReserves); got != tt.wantReserves {
				t.Errorf("INVALID_RESERVES in chain = %v, want %v", got, tt.wantReserves)
			}
		})
	}
}

func TestAdapter_Execute(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t, listedPools())
	pools, _ := a.DiscoverPools(ctx, asset.MintWrappedSOL)

	q, err := a.Quote(ctx, solToUSDC(1_000_000_000), &pools[0])
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	res, err := a.Execute(ctx, q.Raw, "signer")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(res.TransactionID, TransactionPrefix) {
		t.Errorf("transaction id = %q", res.TransactionID)
	}
	if res.Status != domain.StatusPending || res.Venue != domain.PumpSwap {
		t.Errorf("unexpected result %+v", res)
	}
	if res.OutputAmount.Cmp(q.OutputAmount) != 0 || res.Fee.Cmp(q.Fee) != 0 {
		t.Errorf("re-priced %s/%s, quoted %s/%s", res.OutputAmount, res.Fee, q.OutputAmount, q.Fee)
	}

	again, _ := a.Execute(ctx, q.Raw, "signer")
	if again.TransactionID == res.TransactionID {
		t.Error("transaction ids must be unique")
	}
}

func TestAdapter_ExecuteRejectsForeignPayload(t *testing.T) {
	a, _ := newTestAdapter(t, listedPools())
	meteora, err := NewAdapter(domain.Meteora, 30, listedPools(), fakeBalances{}, nil, &mockLogger{})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	ctx := context.Background()
	pool := market.Pool{
		Address:      solUsdcPool,
		BaseAsset:    asset.MintWrappedSOL,
		QuoteAsset:   asset.MintUSDC,
		BaseReserve:  market.DecimalPtr(decimal.NewFromInt(1000)),
		QuoteReserve: market.DecimalPtr(decimal.NewFromInt(150_000)),
		BaseDecimals: 9, QuoteDecimals: 6,
	}
	q, err := meteora.Quote(ctx, solToUSDC(1_000_000), &pool)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	for name, raw := range map[string]json.RawMessage{
		"other venue": q.Raw,
		"not json":    json.RawMessage(`nope`),
		"remote":      json.RawMessage(`{"outAmount":"1"}`),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Execute(ctx, raw, "signer")
			if apperror.GetCode(err) != apperror.CodeVenueExecutionError {
				t.Errorf("expected VENUE_EXECUTION_ERROR, got %v", err)
			}
		})
	}
}

func TestAdapter_GetAssetPrice(t *testing.T) {
	ctx := context.Background()
	a, repo := newTestAdapter(t, listedPools())

	// no cached pool: discovery runs first
	price, err := a.GetAssetPrice(ctx, asset.MintWrappedSOL)
	if err != nil {
		t.Fatalf("GetAssetPrice: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("price = %s, want 150", price)
	}
	if cached, ok := repo.Price(ctx, asset.MintWrappedSOL); !ok || !cached.Equal(price) {
		t.Errorf("token price not refreshed: %s %v", cached, ok)
	}

	empty, _ := newTestAdapter(t, &fakeSource{})
	if _, err := empty.GetAssetPrice(ctx, asset.MintWrappedSOL); apperror.GetCode(err) != apperror.CodePriceUnavailable {
		t.Errorf("expected PRICE_UNAVAILABLE, got %v", err)
	}
}

func TestNewAdapter_RejectsFee(t *testing.T) {
	if _, err := NewAdapter(domain.Meteora, 10_001, &fakeSource{}, fakeBalances{}, nil, &mockLogger{}); apperror.GetCode(err) != apperror.CodeConfigurationError {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}
