package raydium

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	marketApp "github.com/fd1az/swap-router/business/market/app"
	"github.com/fd1az/swap-router/business/market/infra/memory"
	"github.com/fd1az/swap-router/business/venue/app"
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

type fakeExecutor struct {
	submitted []string
}

func (f *fakeExecutor) PublicKey() string { return "WaLLetWaLLetWaLLetWaLLetWaLLetWaLLet1111" }

func (f *fakeExecutor) SignAndSubmit(_ context.Context, tx string) (string, error) {
	f.submitted = append(f.submitted, tx)
	return "sig-" + tx, nil
}

const (
	raydiumPool = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"

	computeBody = `{"id":"1","success":true,"version":"V1","data":{"swapType":"BaseIn",` +
		`"inputMint":"So11111111111111111111111111111111111111112","inputAmount":"1000000000",` +
		`"outputMint":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","outputAmount":"150000000",` +
		`"otherAmountThreshold":"149250000","slippageBps":50,"priceImpactPct":0.25,` +
		`"routePlan":[{"poolId":"58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2",` +
		`"inputMint":"So11111111111111111111111111111111111111112",` +
		`"outputMint":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",` +
		`"feeMint":"So11111111111111111111111111111111111111112","feeRate":25,"feeAmount":"2500000"}]}}`
)

type stub struct {
	compute     string
	keyRequests atomic.Int32
	// mintA overrides the first mint reported in the pool keys.
	mintA string
}

func (s *stub) keyMintA() string {
	if s.mintA != "" {
		return s.mintA
	}
	return asset.MintWrappedSOL
}

func (s *stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case computeEndpoint:
		w.Write([]byte(s.compute))
	case poolKeysEndpoint:
		s.keyRequests.Add(1)
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		var entries []string
		for _, id := range ids {
			if id == raydiumPool {
				entries = append(entries, `{"id":"`+id+`","programId":"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",`+
					`"mintA":{"address":"`+s.keyMintA()+`"},"mintB":{"address":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"}}`)
			} else {
				entries = append(entries, `null`)
			}
		}
		w.Write([]byte(`{"success":true,"data":[` + strings.Join(entries, ",") + `]}`))
	case transactionEndpoint:
		var req transactionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.WrapSol || req.UnwrapSol || req.TxVersion != txVersion {
			w.Write([]byte(`{"success":false,"msg":"bad request"}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":[{"transaction":"setup"},{"transaction":"swap"}]}`))
	case poolsByMintEndpoint:
		w.Write([]byte(`{"success":true,"data":{"count":1,"data":[{"id":"` + raydiumPool + `","type":"Standard",` +
			`"mintA":{"address":"So11111111111111111111111111111111111111112","symbol":"WSOL","decimals":9},` +
			`"mintB":{"address":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","symbol":"USDC","decimals":6},` +
			`"mintAmountA":1000.5,"mintAmountB":150075.25,"tvl":300150.5,"feeRate":0.0025}]}}`))
	case mintPriceEndpoint:
		w.Write([]byte(`{"success":true,"data":{"So11111111111111111111111111111111111111112":"150.5"}}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestAdapter(t *testing.T, s *stub, exec app.Executor) (*Adapter, *marketApp.Repository) {
	t.Helper()
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)

	repo := marketApp.NewRepository(memory.NewStore(), retry.Policy{MaxAttempts: 1}, &mockLogger{})
	a, err := NewAdapter(Config{APIURL: server.URL, TxURL: server.URL}, repo, exec, &mockLogger{})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return a, repo
}

func swapRequest() domain.SwapRequest {
	return domain.SwapRequest{
		InputAsset:  asset.MintWrappedSOL,
		OutputAsset: asset.MintUSDC,
		Amount:      big.NewInt(1_000_000_000),
		SlippageBps: 50,
	}
}

func TestAdapter_Quote(t *testing.T) {
	a, _ := newTestAdapter(t, &stub{compute: computeBody}, nil)

	quote, err := a.Quote(context.Background(), swapRequest(), nil)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.OutputAmount.Int64() != 150_000_000 {
		t.Errorf("output = %s", quote.OutputAmount)
	}
	// 0.25% expressed as a fraction
	if !quote.PriceImpact.Equal(decimal.RequireFromString("0.0025")) {
		t.Errorf("impact = %s", quote.PriceImpact)
	}
	// 2500000 lamports at 0.15 USDC units per lamport
	if quote.Fee.Int64() != 375_000 {
		t.Errorf("fee = %s", quote.Fee)
	}
}

func TestAdapter_QuoteUnsuccessful(t *testing.T) {
	a, _ := newTestAdapter(t, &stub{compute: `{"success":false,"msg":"ROUTE_NOT_FOUND"}`}, nil)

	_, err := a.Quote(context.Background(), swapRequest(), nil)
	if apperror.GetCode(err) != apperror.CodeVenueQuoteError {
		t.Fatalf("expected VENUE_QUOTE_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "ROUTE_NOT_FOUND") {
		t.Errorf("expected venue message in error, got %v", err)
	}
}

func TestAdapter_Execute(t *testing.T) {
	s := &stub{compute: computeBody}
	exec := &fakeExecutor{}
	a, _ := newTestAdapter(t, s, exec)
	ctx := context.Background()

	result, err := a.Execute(ctx, json.RawMessage(computeBody), exec.PublicKey())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.TransactionID != "sig-swap" || result.Status != domain.StatusPending {
		t.Errorf("unexpected result %+v", result)
	}
	if len(exec.submitted) != 2 {
		t.Errorf("expected both transactions submitted, got %v", exec.submitted)
	}

	// pool keys are served from the cache the second time
	if _, err := a.Execute(ctx, json.RawMessage(computeBody), exec.PublicKey()); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if got := s.keyRequests.Load(); got != 1 {
		t.Errorf("expected 1 pool keys request, got %d", got)
	}
}

func TestAdapter_ExecuteUnknownPool(t *testing.T) {
	body := strings.ReplaceAll(computeBody, raydiumPool, "UnknownPoo1UnknownPoo1UnknownPoo1UnknownPoo")
	a, _ := newTestAdapter(t, &stub{compute: body}, &fakeExecutor{})

	_, err := a.Execute(context.Background(), json.RawMessage(body), "signer")
	if apperror.GetCode(err) != apperror.CodeVenueExecutionError {
		t.Errorf("expected VENUE_EXECUTION_ERROR, got %v", err)
	}
}

func TestAdapter_ExecuteRouteMintMismatch(t *testing.T) {
	exec := &fakeExecutor{}
	a, _ := newTestAdapter(t, &stub{compute: computeBody, mintA: asset.MintUSDT}, exec)

	_, err := a.Execute(context.Background(), json.RawMessage(computeBody), exec.PublicKey())
	if apperror.GetCode(err) != apperror.CodeVenueExecutionError {
		t.Fatalf("expected VENUE_EXECUTION_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "does not trade") {
		t.Errorf("unexpected message: %v", err)
	}
	if len(exec.submitted) != 0 {
		t.Errorf("nothing should be submitted, got %v", exec.submitted)
	}
}

func TestAdapter_DiscoverPools(t *testing.T) {
	a, repo := newTestAdapter(t, &stub{}, nil)
	ctx := context.Background()

	pools, err := a.DiscoverPools(ctx, asset.MintWrappedSOL)
	if err != nil {
		t.Fatalf("DiscoverPools: %v", err)
	}
	if len(pools) != 1 || pools[0].Address != raydiumPool {
		t.Fatalf("unexpected pools %+v", pools)
	}
	if !pools[0].Liquidity.Equal(decimal.RequireFromString("300150.5")) {
		t.Errorf("liquidity = %s", pools[0].Liquidity)
	}

	best, err := a.GetBestPool(ctx, asset.MintWrappedSOL, decimal.Zero)
	if err != nil || best == nil || best.Address != raydiumPool {
		t.Errorf("GetBestPool = %+v, %v", best, err)
	}
	if !repo.HasToken(ctx, asset.MintUSDC) {
		t.Error("pool tokens should be cached")
	}
}

func TestAdapter_GetAssetPrice(t *testing.T) {
	a, _ := newTestAdapter(t, &stub{}, nil)

	price, err := a.GetAssetPrice(context.Background(), asset.MintWrappedSOL)
	if err != nil {
		t.Fatalf("GetAssetPrice: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("price = %s", price)
	}
}
