// Package raydium implements the venue adapter for Raydium's routing API.
package raydium

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
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/cache"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	poolKeysTTL  = 10 * time.Minute
	poolKeysSize = 512
	priceTTL     = 30 * time.Second
)

// Ensure Adapter implements app.Adapter.
var _ app.Adapter = (*Adapter)(nil)

// Config configures the Raydium adapter.
type Config struct {
	APIURL string
	TxURL  string
}

// Adapter quotes through Raydium's swap computation endpoint and builds
// transactions through its transaction API.
type Adapter struct {
	client   *client
	repo     app.PoolRepository
	executor app.Executor
	logger   logger.LoggerInterface

	cb       *circuitbreaker.CircuitBreaker[json.RawMessage]
	poolKeys *cache.Cache[string, poolKeys]
	prices   *cache.Cache[string, decimal.Decimal]
	inst     *app.Instruments
}

// NewAdapter creates a Raydium adapter. executor may be nil, in which case
// Execute fails.
func NewAdapter(cfg Config, repo app.PoolRepository, executor app.Executor, log logger.LoggerInterface) (*Adapter, error) {
	c, err := newClient(cfg.APIURL, cfg.TxURL)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("raydium http client"))
	}

	inst, err := app.NewInstruments(domain.Raydium)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		client:   c,
		repo:     repo,
		executor: executor,
		logger:   log,
		cb:       circuitbreaker.New[json.RawMessage](circuitbreaker.DefaultConfig("raydium")),
		poolKeys: cache.NewWithSize[string, poolKeys](poolKeysSize, poolKeysTTL),
		prices:   cache.New[string, decimal.Decimal](priceTTL),
		inst:     inst,
	}, nil
}

func (a *Adapter) Venue() domain.Venue { return domain.Raydium }

func (a *Adapter) RequiresPool() bool { return false }

// Quote calls the swap-base-in computation. success=false is a quote error
// carrying Raydium's msg.
func (a *Adapter) Quote(ctx context.Context, req domain.SwapRequest, _ *market.Pool) (quote *domain.Quote, err error) {
	ctx, span, start := a.inst.StartQuote(ctx, req)
	defer func() { a.inst.EndQuote(ctx, span, start, quote, err) }()

	var data *computeData
	raw, err := a.cb.Execute(func() (json.RawMessage, error) {
		d, raw, err := a.client.compute(ctx, req.InputAsset, req.OutputAsset, req.Amount.String(), req.SlippageBps)
		data = d
		return raw, err
	})
	if err != nil {
		return nil, wrap(apperror.CodeVenueQuoteError, err, "compute request failed")
	}

	out, ok := new(big.Int).SetString(data.OutputAmount, 10)
	if !ok || out.Sign() < 0 {
		return nil, apperror.New(apperror.CodeVenueQuoteError,
			apperror.WithContext("raydium: missing outputAmount"))
	}

	impact := decimal.Zero
	if data.PriceImpactPct != nil {
		impact = data.PriceImpactPct.Div(decimal.NewFromInt(100))
	}

	quote = &domain.Quote{
		Venue:        domain.Raydium,
		InputAmount:  new(big.Int).Set(req.Amount),
		OutputAmount: out,
		PriceImpact:  impact,
		Fee:          feeInOutput(data, req.Amount, out),
		Raw:          raw,
	}

	a.logger.Debug(ctx, "raydium quote",
		"input_mint", req.InputAsset,
		"output_mint", req.OutputAsset,
		"amount_in", req.Amount.String(),
		"amount_out", out.String(),
		"hops", len(data.RoutePlan),
	)
	return quote, nil
}

// feeInOutput sums route fees, converting input-denominated fees at the
// quote's average rate.
func feeInOutput(data *computeData, amountIn, amountOut *big.Int) *big.Int {
	total := big.NewInt(0)
	for _, hop := range data.RoutePlan {
		fee, ok := new(big.Int).SetString(hop.FeeAmount, 10)
		if !ok {
			continue
		}
		switch hop.FeeMint {
		case data.OutputMint:
			total.Add(total, fee)
		case data.InputMint:
			if amountIn.Sign() > 0 {
				fee.Mul(fee, amountOut)
				total.Add(total, fee.Quo(fee, amountIn))
			}
		}
	}
	return total
}

// Execute resolves the route's pool keys, builds the swap transactions and
// submits each through the executor. The last signature identifies the swap.
func (a *Adapter) Execute(ctx context.Context, raw json.RawMessage, signer string) (result *domain.SwapResult, err error) {
	ctx, span := a.inst.Tracer().Start(ctx, "raydium.execute",
		trace.WithAttributes(attribute.String("signer", signer)))
	defer span.End()
	defer func() { a.inst.RecordExecution(ctx, err) }()

	if a.executor == nil {
		return nil, apperror.New(apperror.CodeVenueExecutionError,
			apperror.WithContext("raydium: no executor configured"))
	}

	var compute envelope[computeData]
	if err := json.Unmarshal(raw, &compute); err != nil || !compute.Success || compute.Data.OutputAmount == "" {
		return nil, apperror.New(apperror.CodeVenueExecutionError,
			apperror.WithCause(err),
			apperror.WithContext("raydium: raw payload is not a swap computation"))
	}

	ids := make([]string, 0, len(compute.Data.RoutePlan))
	for _, hop := range compute.Data.RoutePlan {
		ids = append(ids, hop.PoolID)
	}
	keys, err := a.resolvePoolKeys(ctx, ids)
	if err != nil {
		return nil, err
	}
	programs := make([]string, 0, len(keys))
	for i, hop := range compute.Data.RoutePlan {
		if !keys[i].trades(hop.InputMint, hop.OutputMint) {
			return nil, apperror.New(apperror.CodeVenueExecutionError,
				apperror.WithContext("raydium: pool "+hop.PoolID+" does not trade "+hop.InputMint+"/"+hop.OutputMint))
		}
		programs = append(programs, keys[i].ProgramID)
	}
	span.SetAttributes(attribute.StringSlice("programs", programs))

	txs, err := a.client.buildTransactions(ctx, transactionRequest{
		ComputeUnitPriceMicroLamports: defaultComputeUnitPrice,
		SwapResponse:                  raw,
		TxVersion:                     txVersion,
		Wallet:                        signer,
		WrapSol:                       compute.Data.InputMint == asset.MintWrappedSOL,
		UnwrapSol:                     compute.Data.OutputMint == asset.MintWrappedSOL,
	})
	if err != nil {
		return nil, wrap(apperror.CodeVenueExecutionError, err, "transaction build failed")
	}
	if len(txs) == 0 {
		return nil, apperror.New(apperror.CodeVenueExecutionError,
			apperror.WithContext("raydium: no transactions returned"))
	}

	var sig string
	for _, tx := range txs {
		sig, err = a.executor.SignAndSubmit(ctx, tx.Transaction)
		if err != nil {
			return nil, wrap(apperror.CodeVenueExecutionError, err, "submit failed")
		}
	}
	span.SetAttributes(attribute.String("signature", sig), attribute.Int("transactions", len(txs)))

	in := parseInt(compute.Data.InputAmount)
	out := parseInt(compute.Data.OutputAmount)

	a.logger.Info(ctx, "raydium swap submitted", "signature", sig, "transactions", len(txs))
	return &domain.SwapResult{
		TransactionID: sig,
		Status:        domain.StatusPending,
		Venue:         domain.Raydium,
		InputAmount:   in,
		OutputAmount:  out,
		Fee:           feeInOutput(&compute.Data, in, out),
	}, nil
}

// resolvePoolKeys returns keys for every id, fetching only those not cached.
func (a *Adapter) resolvePoolKeys(ctx context.Context, ids []string) ([]poolKeys, error) {
	if len(ids) == 0 {
		return nil, apperror.New(apperror.CodeVenueExecutionError,
			apperror.WithContext("raydium: empty route plan"))
	}

	var missing []string
	for _, id := range ids {
		if _, ok := a.poolKeys.Get(ctx, id); !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		fetched, err := a.client.poolKeys(ctx, missing)
		if err != nil {
			return nil, wrap(apperror.CodeVenueExecutionError, err, "pool keys request failed")
		}
		for _, k := range fetched {
			a.poolKeys.Set(ctx, k.ID, k, poolKeysTTL)
		}
	}

	keys := make([]poolKeys, 0, len(ids))
	for _, id := range ids {
		k, ok := a.poolKeys.Get(ctx, id)
		if !ok {
			return nil, apperror.New(apperror.CodeVenueExecutionError,
				apperror.WithContext("raydium: no keys for pool "+id))
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// DiscoverPools lists the pools holding mint, largest liquidity first, and
// caches them together with unknown token metadata.
func (a *Adapter) DiscoverPools(ctx context.Context, mint string) ([]market.Pool, error) {
	infos, err := a.client.poolsByMint(ctx, mint)
	if err != nil {
		return nil, wrap(apperror.CodePoolDiscoveryFailed, err, "pool listing failed")
	}

	pools := make([]market.Pool, 0, len(infos))
	for _, info := range infos {
		p := market.Pool{
			Address:       info.ID,
			BaseAsset:     info.MintA.Address,
			QuoteAsset:    info.MintB.Address,
			Venue:         domain.Raydium.String(),
			BaseReserve:   market.DecimalPtr(info.MintAmountA),
			QuoteReserve:  market.DecimalPtr(info.MintAmountB),
			BaseDecimals:  info.MintA.Decimals,
			QuoteDecimals: info.MintB.Decimals,
			Liquidity:     info.TVL,
		}
		if err := a.repo.AddPool(ctx, p); err != nil {
			a.logger.Warn(ctx, "skipping raydium pool", "pool", info.ID, "error", err)
			continue
		}
		a.cacheToken(ctx, info.MintA)
		a.cacheToken(ctx, info.MintB)
		pools = append(pools, p)
	}

	a.logger.Debug(ctx, "raydium pools discovered", "mint", mint, "pools", len(pools))
	return pools, nil
}

func (a *Adapter) cacheToken(ctx context.Context, m mintInfo) {
	if m.Address == "" || a.repo.HasToken(ctx, m.Address) {
		return
	}
	_ = a.repo.AddToken(ctx, market.Token{
		Address:  m.Address,
		Symbol:   m.Symbol,
		Name:     m.Name,
		Decimals: m.Decimals,
	})
}

func (a *Adapter) GetBestPool(ctx context.Context, mint string, minLiquidity decimal.Decimal) (*market.Pool, error) {
	return app.BestCachedPool(ctx, a.repo, domain.Raydium, mint, minLiquidity)
}

// GetAssetPrice queries /mint/price, falling back to the cached token price.
func (a *Adapter) GetAssetPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	if p, ok := a.prices.Get(ctx, mint); ok {
		return p, nil
	}

	price, err := a.client.mintPrice(ctx, mint)
	if err != nil || price == nil {
		if cached, ok := a.repo.Price(ctx, mint); ok {
			return cached, nil
		}
		return decimal.Zero, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("raydium: "+mint))
	}

	a.prices.Set(ctx, mint, *price, priceTTL)
	if a.repo.HasToken(ctx, mint) {
		if err := a.repo.UpdateTokenPrice(ctx, mint, *price); err != nil {
			a.logger.Warn(ctx, "failed to cache token price", "mint", mint, "error", err)
		}
	}
	return *price, nil
}

// wrap keeps typed errors and wraps anything else once under code.
func wrap(code apperror.Code, err error, msg string) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.New(code,
		apperror.WithCause(err),
		apperror.WithContext("raydium: "+msg))
}

func parseInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
