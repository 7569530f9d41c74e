// Package jupiter implements the venue adapter for the Jupiter swap aggregator.
package jupiter

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	market "github.com/fd1az/swap-router/business/market/domain"
	"github.com/fd1az/swap-router/business/venue/app"
	"github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/logger"
)

const priceTTL = 30 * time.Second

// Ensure Adapter implements app.Adapter.
var _ app.Adapter = (*Adapter)(nil)

// Config configures the Jupiter adapter.
type Config struct {
	BaseURL string
	APIKey  string
}

// Adapter quotes through Jupiter's routing API. Jupiter routes across pools
// itself, so it never needs a pool and discovers none.
type Adapter struct {
	client   *client
	repo     app.PoolRepository
	executor app.Executor
	logger   logger.LoggerInterface

	quoteCB *circuitbreaker.CircuitBreaker[*quoteResult]
	swapCB  *circuitbreaker.CircuitBreaker[*swapResponse]
	prices  *cache.Cache[string, decimal.Decimal]
	inst    *app.Instruments
}

type quoteResult struct {
	parsed *quoteResponse
	raw    json.RawMessage
}

// NewAdapter creates a Jupiter adapter. executor may be nil, in which case
// Execute fails.
func NewAdapter(cfg Config, repo app.PoolRepository, executor app.Executor, log logger.LoggerInterface) (*Adapter, error) {
	c, err := newClient(cfg.BaseURL, cfg.APIKey)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("jupiter http client"))
	}

	inst, err := app.NewInstruments(domain.Jupiter)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		client:   c,
		repo:     repo,
		executor: executor,
		logger:   log,
		quoteCB:  circuitbreaker.New[*quoteResult](circuitbreaker.DefaultConfig("jupiter-quote")),
		swapCB:   circuitbreaker.New[*swapResponse](circuitbreaker.DefaultConfig("jupiter-swap")),
		prices:   cache.New[string, decimal.Decimal](priceTTL),
		inst:     inst,
	}, nil
}

func (a *Adapter) Venue() domain.Venue { return domain.Jupiter }

func (a *Adapter) RequiresPool() bool { return false }

// Quote calls GET /swap/v1/quote. A response without outAmount is rejected.
func (a *Adapter) Quote(ctx context.Context, req domain.SwapRequest, _ *market.Pool) (quote *domain.Quote, err error) {
	ctx, span, start := a.inst.StartQuote(ctx, req)
	defer func() { a.inst.EndQuote(ctx, span, start, quote, err) }()

	res, err := a.quoteCB.Execute(func() (*quoteResult, error) {
		parsed, raw, err := a.client.quote(ctx, req.InputAsset, req.OutputAsset, req.Amount.String(), req.SlippageBps)
		if err != nil {
			return nil, err
		}
		return &quoteResult{parsed: parsed, raw: raw}, nil
	})
	if err != nil {
		return nil, quoteError(err, "quote request failed")
	}

	out, ok := new(big.Int).SetString(res.parsed.OutAmount, 10)
	if !ok || out.Sign() < 0 {
		return nil, apperror.New(apperror.CodeVenueQuoteError,
			apperror.WithContext("jupiter: missing outAmount"))
	}

	fee := big.NewInt(0)
	if res.parsed.PlatformFee != nil {
		if f, ok := new(big.Int).SetString(res.parsed.PlatformFee.Amount, 10); ok {
			fee = f
		}
	}

	impact := decimal.Zero
	if res.parsed.PriceImpactPct != nil {
		impact = *res.parsed.PriceImpactPct
	}

	quote = &domain.Quote{
		Venue:        domain.Jupiter,
		InputAmount:  new(big.Int).Set(req.Amount),
		OutputAmount: out,
		PriceImpact:  impact,
		Fee:          fee,
		Raw:          res.raw,
	}

	a.logger.Debug(ctx, "jupiter quote",
		"input_mint", req.InputAsset,
		"output_mint", req.OutputAsset,
		"amount_in", req.Amount.String(),
		"amount_out", out.String(),
	)
	return quote, nil
}

// Execute builds the swap transaction from a quote body and hands it to the executor.
func (a *Adapter) Execute(ctx context.Context, raw json.RawMessage, signer string) (result *domain.SwapResult, err error) {
	ctx, span := a.inst.Tracer().Start(ctx, "jupiter.execute",
		trace.WithAttributes(attribute.String("signer", signer)))
	defer span.End()
	defer func() { a.inst.RecordExecution(ctx, err) }()

	if a.executor == nil {
		return nil, executionError(nil, "no executor configured")
	}

	var parsed quoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.OutAmount == "" {
		return nil, executionError(err, "raw payload is not a jupiter quote")
	}

	swap, err := a.swapCB.Execute(func() (*swapResponse, error) {
		return a.client.swap(ctx, raw, signer)
	})
	if err != nil {
		return nil, executionError(err, "swap build failed")
	}
	if swap.SwapTransaction == "" {
		return nil, executionError(nil, "no swapTransaction returned")
	}

	sig, err := a.executor.SignAndSubmit(ctx, swap.SwapTransaction)
	if err != nil {
		return nil, executionError(err, "submit failed")
	}
	span.SetAttributes(attribute.String("signature", sig))

	result = &domain.SwapResult{
		TransactionID: sig,
		Status:        domain.StatusPending,
		Venue:         domain.Jupiter,
		InputAmount:   parseInt(parsed.InAmount),
		OutputAmount:  parseInt(parsed.OutAmount),
		Fee:           big.NewInt(0),
	}
	if parsed.PlatformFee != nil {
		result.Fee = parseInt(parsed.PlatformFee.Amount)
	}

	a.logger.Info(ctx, "jupiter swap submitted", "signature", sig)
	return result, nil
}

// DiscoverPools returns nothing: Jupiter exposes routes, not pools.
func (a *Adapter) DiscoverPools(_ context.Context, _ string) ([]market.Pool, error) {
	return nil, nil
}

// GetBestPool always returns nil for the same reason.
func (a *Adapter) GetBestPool(_ context.Context, _ string, _ decimal.Decimal) (*market.Pool, error) {
	return nil, nil
}

// GetAssetPrice queries /price/v3 and refreshes the cached token price. The
// cached token price is used when the API has no answer.
func (a *Adapter) GetAssetPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	if p, ok := a.prices.Get(ctx, mint); ok {
		return p, nil
	}

	price, err := a.client.price(ctx, mint)
	if err != nil || price == nil {
		if cached, ok := a.repo.Price(ctx, mint); ok {
			return cached, nil
		}
		return decimal.Zero, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("jupiter: "+mint))
	}

	a.prices.Set(ctx, mint, *price, priceTTL)
	if a.repo.HasToken(ctx, mint) {
		if err := a.repo.UpdateTokenPrice(ctx, mint, *price); err != nil {
			a.logger.Warn(ctx, "failed to cache token price", "mint", mint, "error", err)
		}
	}
	return *price, nil
}

func quoteError(err error, msg string) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.New(apperror.CodeVenueQuoteError,
		apperror.WithCause(err),
		apperror.WithContext("jupiter: "+msg))
}

func executionError(err error, msg string) error {
	if err != nil && apperror.IsAppError(err) {
		return err
	}
	return apperror.New(apperror.CodeVenueExecutionError,
		apperror.WithCause(err),
		apperror.WithContext("jupiter: "+msg))
}

func parseInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
