package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/business/market/app"
	"github.com/fd1az/swap-router/business/market/domain"
	"github.com/fd1az/swap-router/business/market/infra/memory"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/retry"
)

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
	poolA    = "PoolAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1"
	poolB    = "PoolBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB1"
	poolC    = "PoolCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC1"
	memeMint = "MemeMintMemeMintMemeMintMemeMintMemeMint11"
)

func newRepo() *app.Repository {
	return app.NewRepository(memory.NewStore(), retry.Policy{MaxAttempts: 3}, &mockLogger{})
}

func liq(v int64) *decimal.Decimal {
	return domain.DecimalPtr(decimal.NewFromInt(v))
}

func TestRepository_GetPoolsByAsset(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()

	pools := []domain.Pool{
		{Address: poolA, BaseAsset: memeMint, QuoteAsset: asset.MintWrappedSOL, Venue: "pumpswap", Liquidity: liq(500)},
		{Address: poolB, BaseAsset: asset.MintUSDC, QuoteAsset: memeMint, Venue: "meteora"},
		{Address: poolC, BaseAsset: asset.MintUSDC, QuoteAsset: asset.MintWrappedSOL, Venue: "raydium", Liquidity: liq(9000)},
	}
	for _, p := range pools {
		if err := repo.AddPool(ctx, p); err != nil {
			t.Fatalf("AddPool: %v", err)
		}
	}

	got, err := repo.GetPoolsByAsset(ctx, memeMint, decimal.Zero)
	if err != nil {
		t.Fatalf("GetPoolsByAsset: %v", err)
	}
	if len(got) != 2 || got[0].Address != poolA || got[1].Address != poolB {
		t.Fatalf("unexpected pools: %+v", got)
	}

	// unknown liquidity is excluded once a minimum is set
	got, _ = repo.GetPoolsByAsset(ctx, memeMint, decimal.NewFromInt(100))
	if len(got) != 1 || got[0].Address != poolA {
		t.Fatalf("expected only %s, got %+v", poolA, got)
	}

	got, _ = repo.GetPoolsByAsset(ctx, memeMint, decimal.NewFromInt(501))
	if len(got) != 0 {
		t.Fatalf("expected no pools, got %d", len(got))
	}
}

func TestRepository_InvalidAddress(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()

	if _, err := repo.GetPoolsByAsset(ctx, "short", decimal.Zero); apperror.GetCode(err) != apperror.CodeInvalidAddress {
		t.Errorf("GetPoolsByAsset: expected INVALID_ADDRESS, got %v", err)
	}
	if _, err := repo.GetToken(ctx, "x"); apperror.GetCode(err) != apperror.CodeInvalidAddress {
		t.Errorf("GetToken: expected INVALID_ADDRESS, got %v", err)
	}
	tooLong := memeMint + memeMint
	if err := repo.AddPool(ctx, domain.Pool{Address: tooLong}); apperror.GetCode(err) != apperror.CodeInvalidAddress {
		t.Errorf("AddPool: expected INVALID_ADDRESS, got %v", err)
	}
}

func TestRepository_PoolOverwriteKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()

	repo.AddPool(ctx, domain.Pool{Address: poolA, BaseAsset: memeMint, Venue: "pumpswap", Liquidity: liq(1)})
	repo.AddPool(ctx, domain.Pool{Address: poolB, BaseAsset: memeMint, Venue: "pumpswap", Liquidity: liq(2)})
	repo.AddPool(ctx, domain.Pool{Address: poolA, BaseAsset: memeMint, Venue: "pumpswap", Liquidity: liq(3)})

	all, err := repo.GetAllPools(ctx)
	if err != nil {
		t.Fatalf("GetAllPools: %v", err)
	}
	if len(all) != 2 || all[0].Address != poolA {
		t.Fatalf("unexpected order: %+v", all)
	}
	if !all[0].Liquidity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("last write should win, got %s", all[0].Liquidity)
	}

	removed, _ := repo.RemovePool(ctx, poolA)
	if !removed {
		t.Error("expected pool to be removed")
	}
	p, err := repo.GetPool(ctx, poolA)
	if err != nil || p != nil {
		t.Errorf("expected nil pool, got %+v (%v)", p, err)
	}

	repo.ClearPools(ctx)
	all, _ = repo.GetAllPools(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty cache, got %d", len(all))
	}
}

func TestRepository_GetPoolsByVenue(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()

	repo.AddPool(ctx, domain.Pool{Address: poolA, BaseAsset: memeMint, QuoteAsset: asset.MintWrappedSOL, Venue: "pumpswap"})
	repo.AddPool(ctx, domain.Pool{Address: poolB, BaseAsset: asset.MintUSDC, QuoteAsset: asset.MintWrappedSOL, Venue: "pumpswap"})
	repo.AddPool(ctx, domain.Pool{Address: poolC, BaseAsset: memeMint, QuoteAsset: asset.MintWrappedSOL, Venue: "meteora"})

	all, _ := repo.GetPoolsByVenue(ctx, "pumpswap", "")
	if len(all) != 2 {
		t.Errorf("expected 2 pumpswap pools, got %d", len(all))
	}
	meme, _ := repo.GetPoolsByVenue(ctx, "pumpswap", memeMint)
	if len(meme) != 1 || meme[0].Address != poolA {
		t.Errorf("unexpected pools: %+v", meme)
	}
}

func TestRepository_Tokens(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()

	if err := repo.SeedWellKnown(ctx); err != nil {
		t.Fatalf("SeedWellKnown: %v", err)
	}

	usdc, err := repo.GetTokensBySymbol(ctx, "usdc")
	if err != nil {
		t.Fatalf("GetTokensBySymbol: %v", err)
	}
	if len(usdc) != 1 || usdc[0].Address != asset.MintUSDC || usdc[0].Decimals != 6 {
		t.Fatalf("unexpected tokens: %+v", usdc)
	}

	if _, err := repo.GetTokensBySymbol(ctx, "  "); apperror.GetCode(err) != apperror.CodeValidationError {
		t.Errorf("expected VALIDATION_ERROR for blank symbol, got %v", err)
	}

	if err := repo.UpdateTokenPrice(ctx, asset.MintWrappedSOL, decimal.NewFromInt(-1)); apperror.GetCode(err) != apperror.CodeInvalidPrice {
		t.Errorf("expected INVALID_PRICE, got %v", err)
	}
	if err := repo.UpdateTokenPrice(ctx, memeMint, decimal.NewFromInt(1)); apperror.GetCode(err) != apperror.CodeTokenNotFound {
		t.Errorf("expected TOKEN_NOT_FOUND, got %v", err)
	}
	if err := repo.UpdateTokenPrice(ctx, asset.MintWrappedSOL, decimal.NewFromInt(150)); err != nil {
		t.Fatalf("UpdateTokenPrice: %v", err)
	}
	price, ok := repo.Price(ctx, asset.MintWrappedSOL)
	if !ok || !price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("price = %s (%v)", price, ok)
	}

	removed, _ := repo.RemoveToken(ctx, asset.MintUSDT)
	if !removed || repo.HasToken(ctx, asset.MintUSDT) {
		t.Error("USDT should be gone")
	}

	// seeding again keeps the cached price
	repo.SeedWellKnown(ctx)
	if price, _ := repo.Price(ctx, asset.MintWrappedSOL); !price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("seed overwrote price: %s", price)
	}

	repo.ClearTokens(ctx)
	all, _ := repo.GetAllTokens(ctx)
	if len(all) != 0 {
		t.Errorf("expected no tokens, got %d", len(all))
	}
}

// flakyStore fails the first n pool listings and, separately, the first
// tokenFailures single-token reads.
type flakyStore struct {
	*memory.Store
	failures int
	calls    int

	tokenFailures int
	tokenCalls    int
}

func (f *flakyStore) Token(ctx context.Context, address string) (domain.Token, bool, error) {
	f.tokenCalls++
	if f.tokenCalls <= f.tokenFailures {
		return domain.Token{}, false, errors.New("store unavailable")
	}
	return f.Store.Token(ctx, address)
}

func (f *flakyStore) Pools(ctx context.Context) ([]domain.Pool, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("store unavailable")
	}
	return f.Store.Pools(ctx)
}

func TestRepository_ReadsAreRetried(t *testing.T) {
	ctx := context.Background()
	noWait := func(context.Context, time.Duration) error { return nil }

	store := &flakyStore{Store: memory.NewStore(), failures: 2}
	repo := app.NewRepository(store, retry.Policy{MaxAttempts: 3, Sleep: noWait}, &mockLogger{})

	if _, err := repo.GetAllPools(ctx); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if store.calls != 3 {
		t.Errorf("expected 3 calls, got %d", store.calls)
	}

	store = &flakyStore{Store: memory.NewStore(), failures: 5}
	repo = app.NewRepository(store, retry.Policy{MaxAttempts: 3, Sleep: noWait}, &mockLogger{})

	_, err := repo.GetPoolsByAsset(ctx, memeMint, decimal.Zero)
	if apperror.GetCode(err) != apperror.CodeMaxRetriesExceeded {
		t.Errorf("expected MAX_RETRIES_EXCEEDED, got %v", err)
	}
}

func TestRepository_TokenAccessorsAreRetried(t *testing.T) {
	ctx := context.Background()
	noWait := func(context.Context, time.Duration) error { return nil }

	store := &flakyStore{Store: memory.NewStore()}
	repo := app.NewRepository(store, retry.Policy{MaxAttempts: 3, Sleep: noWait}, &mockLogger{})
	if err := repo.SeedWellKnown(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repo.UpdateTokenPrice(ctx, asset.MintUSDC, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("price: %v", err)
	}

	tests := []struct {
		name  string
		check func() bool
	}{
		{"HasToken", func() bool { return repo.HasToken(ctx, asset.MintUSDC) }},
		{"Decimals", func() bool { d, ok := repo.Decimals(ctx, asset.MintUSDC); return ok && d == 6 }},
		{"Price", func() bool { p, ok := repo.Price(ctx, asset.MintUSDC); return ok && p.Equal(decimal.NewFromInt(1)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.tokenCalls, store.tokenFailures = 0, 2
			if !tt.check() {
				t.Error("expected success after two transient failures")
			}
			if store.tokenCalls != 3 {
				t.Errorf("expected 3 store reads, got %d", store.tokenCalls)
			}

			store.tokenCalls, store.tokenFailures = 0, 5
			if tt.check() {
				t.Error("expected absent when every attempt fails")
			}
		})
	}
}

func TestRepository_ConcurrentWritesAndReads(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()

	const writers, perWriter, readers = 8, 50, 8

	var writes sync.WaitGroup
	for w := 0; w < writers; w++ {
		writes.Add(1)
		go func() {
			defer writes.Done()
			for i := 0; i < perWriter; i++ {
				p := domain.Pool{
					Address:    fmt.Sprintf("Pool%02d%038d", w, i),
					Venue:      "pumpswap",
					BaseAsset:  memeMint,
					QuoteAsset: asset.MintUSDC,
					Liquidity:  liq(int64(i)),
				}
				if err := repo.AddPool(ctx, p); err != nil {
					t.Errorf("AddPool: %v", err)
					return
				}
			}
		}()
	}

	stop := make(chan struct{})
	var reads sync.WaitGroup
	for r := 0; r < readers; r++ {
		reads.Add(1)
		go func() {
			defer reads.Done()
			seen := 0
			for {
				select {
				case <-stop:
					return
				default:
				}
				pools, err := repo.GetPoolsByAsset(ctx, memeMint, decimal.Zero)
				if err != nil {
					t.Errorf("GetPoolsByAsset: %v", err)
					return
				}
				if len(pools) < seen {
					t.Errorf("pool count went from %d to %d without removals", seen, len(pools))
					return
				}
				seen = len(pools)
				for _, p := range pools {
					if !p.References(memeMint) {
						t.Errorf("pool %s does not reference the asset", p.Address)
						return
					}
				}
			}
		}()
	}

	writes.Wait()
	close(stop)
	reads.Wait()

	pools, err := repo.GetPoolsByAsset(ctx, memeMint, decimal.Zero)
	if err != nil {
		t.Fatalf("GetPoolsByAsset: %v", err)
	}
	if len(pools) != writers*perWriter {
		t.Errorf("got %d pools, want %d", len(pools), writers*perWriter)
	}
}
