// Package simulated implements venue adapters that price swaps locally with
// the constant-product model over reserves read from chain. Execution is
// simulated; no instruction is built.
package simulated

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	market "github.com/fd1az/swap-router/business/market/domain"
	pricing "github.com/fd1az/swap-router/business/pricing/domain"
	"github.com/fd1az/swap-router/business/venue/app"
	"github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/logger"
)

// TransactionPrefix marks transaction ids that never reached the chain.
const TransactionPrefix = "simulated-"

// Ensure Adapter implements app.Adapter.
var (
	_ app.Adapter        = (*Adapter)(nil)
	_ app.PairPoolFinder = (*Adapter)(nil)
)

// PoolSource lists a venue's pools holding mint. Returned pools carry
// addresses, mints and vaults; reserves are filled by the adapter.
type PoolSource interface {
	FetchPools(ctx context.Context, mint string) ([]market.Pool, error)
}

// snapshot is the Raw payload of a simulated quote.
type snapshot struct {
	Simulated   bool        `json:"simulated"`
	Venue       string      `json:"venue"`
	Pool        market.Pool `json:"pool"`
	InputMint   string      `json:"inputMint"`
	OutputMint  string      `json:"outputMint"`
	AmountIn    string      `json:"amountIn"`
	AmountOut   string      `json:"amountOut"`
	Fee         string      `json:"fee"`
	SlippageBps uint32      `json:"slippageBps"`
}

// Adapter is a pool-based venue quoted with the constant-product formula.
type Adapter struct {
	venue    domain.Venue
	fee      pricing.Fee
	source   PoolSource
	balances app.BalanceReader
	repo     app.PoolRepository
	logger   logger.LoggerInterface
	inst     *app.Instruments
}

// NewAdapter creates a simulated adapter charging feeBps on the input.
func NewAdapter(venue domain.Venue, feeBps uint32, source PoolSource, balances app.BalanceReader, repo app.PoolRepository, log logger.LoggerInterface) (*Adapter, error) {
	if feeBps > pricing.BpsDenominator {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(venue.String()+": fee_bps above 10000"))
	}

	inst, err := app.NewInstruments(venue)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		venue:    venue,
		fee:      pricing.FeeFromBps(feeBps),
		source:   source,
		balances: balances,
		repo:     repo,
		logger:   log,
		inst:     inst,
	}, nil
}

func (a *Adapter) Venue() domain.Venue { return a.venue }

func (a *Adapter) RequiresPool() bool { return true }

// Quote prices req against pool. The pool must pair the request's assets and
// carry both reserves.
func (a *Adapter) Quote(ctx context.Context, req domain.SwapRequest, pool *market.Pool) (quote *domain.Quote, err error) {
	ctx, span, start := a.inst.StartQuote(ctx, req)
	defer func() { a.inst.EndQuote(ctx, span, start, quote, err) }()

	if pool == nil {
		return nil, a.quoteErr(nil, "no pool supplied")
	}
	if !pool.Pairs(req.InputAsset, req.OutputAsset) {
		return nil, a.quoteErr(nil, "pool "+pool.Address+" does not pair "+req.InputAsset+"/"+req.OutputAsset)
	}

	reserveIn, reserveOut, err := rawReserves(*pool, req.InputAsset)
	if err != nil {
		return nil, a.quoteErr(err, "pool "+pool.Address)
	}

	out, fee, impact, err := a.price(req.Amount, reserveIn, reserveOut)
	if err != nil {
		return nil, a.quoteErr(err, "pool "+pool.Address)
	}

	raw, err := json.Marshal(snapshot{
		Simulated:   true,
		Venue:       a.venue.String(),
		Pool:        pool.Clone(),
		InputMint:   req.InputAsset,
		OutputMint:  req.OutputAsset,
		AmountIn:    req.Amount.String(),
		AmountOut:   out.String(),
		Fee:         fee.String(),
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		return nil, a.quoteErr(err, "snapshot encoding")
	}

	return &domain.Quote{
		Venue:        a.venue,
		InputAmount:  new(big.Int).Set(req.Amount),
		OutputAmount: out,
		PriceImpact:  impact,
		Fee:          fee,
		Raw:          raw,
	}, nil
}

func (a *Adapter) price(amountIn, reserveIn, reserveOut *big.Int) (out, fee *big.Int, impact decimal.Decimal, err error) {
	out, err = pricing.ComputeConstantProductOutput(amountIn, reserveIn, reserveOut, a.fee)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	fee, err = pricing.OutputFee(amountIn, reserveIn, reserveOut, a.fee)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	return out, fee, pricing.PriceImpact(amountIn, reserveIn, reserveOut, out), nil
}

// rawReserves orients the pool's reserves for a swap from input and scales
// them to base units.
func rawReserves(p market.Pool, input string) (reserveIn, reserveOut *big.Int, err error) {
	if !p.HasReserves() {
		return nil, nil, apperror.New(apperror.CodeInvalidReserves,
			apperror.WithContext("pool "+p.Address+" has no reserves"))
	}

	base, err := asset.ToRawFloor(*p.BaseReserve, p.BaseDecimals)
	if err != nil {
		return nil, nil, apperror.New(apperror.CodeInvalidReserves, apperror.WithCause(err))
	}
	quote, err := asset.ToRawFloor(*p.QuoteReserve, p.QuoteDecimals)
	if err != nil {
		return nil, nil, apperror.New(apperror.CodeInvalidReserves, apperror.WithCause(err))
	}

	if input == p.BaseAsset {
		return base, quote, nil
	}
	return quote, base, nil
}

// Execute re-prices the quoted pool snapshot and reports a pending swap
// under a generated id.
func (a *Adapter) Execute(ctx context.Context, raw json.RawMessage, signer string) (result *domain.SwapResult, err error) {
	ctx, span := a.inst.Tracer().Start(ctx, a.venue.String()+".execute",
		trace.WithAttributes(attribute.String("signer", signer)))
	defer span.End()
	defer func() { a.inst.RecordExecution(ctx, err) }()

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil || !snap.Simulated {
		return nil, apperror.New(apperror.CodeVenueExecutionError,
			apperror.WithCause(err),
			apperror.WithContext(a.venue.String()+": raw payload is not a simulated quote"))
	}
	if snap.Venue != a.venue.String() {
		return nil, apperror.New(apperror.CodeVenueExecutionError,
			apperror.WithContext(a.venue.String()+": quote belongs to "+snap.Venue))
	}

	amountIn, ok := new(big.Int).SetString(snap.AmountIn, 10)
	if !ok {
		return nil, apperror.New(apperror.CodeVenueExecutionError,
			apperror.WithContext(a.venue.String()+": bad amountIn "+snap.AmountIn))
	}

	reserveIn, reserveOut, err := rawReserves(snap.Pool, snap.InputMint)
	if err != nil {
		return nil, a.execErr(err)
	}
	out, fee, _, err := a.price(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, a.execErr(err)
	}

	id := TransactionPrefix + uuid.NewString()
	span.SetAttributes(attribute.String("signature", id))

	a.logger.Info(ctx, "simulated swap",
		"venue", a.venue.String(),
		"pool", snap.Pool.Address,
		"amount_in", amountIn.String(),
		"amount_out", out.String(),
		"transaction_id", id,
	)

	return &domain.SwapResult{
		TransactionID: id,
		Status:        domain.StatusPending,
		Venue:         a.venue,
		InputAmount:   amountIn,
		OutputAmount:  out,
		Fee:           fee,
	}, nil
}

// DiscoverPools lists the venue's pools for mint, reads vault balances and
// caches every pool whose reserves could be read.
func (a *Adapter) DiscoverPools(ctx context.Context, mint string) ([]market.Pool, error) {
	listed, err := a.source.FetchPools(ctx, mint)
	if err != nil {
		return nil, a.discoveryErr(err)
	}

	pools := make([]market.Pool, 0, len(listed))
	for _, p := range listed {
		p.Venue = a.venue.String()
		if err := a.fillReserves(ctx, &p); err != nil {
			a.logger.Warn(ctx, "skipping pool without readable reserves",
				"venue", a.venue.String(), "pool", p.Address, "error", err)
			continue
		}
		p.Liquidity = a.liquidityUSD(ctx, p)

		if err := a.repo.AddPool(ctx, p); err != nil {
			a.logger.Warn(ctx, "skipping pool", "venue", a.venue.String(), "pool", p.Address, "error", err)
			continue
		}
		a.rememberToken(ctx, p.BaseAsset, p.BaseDecimals)
		a.rememberToken(ctx, p.QuoteAsset, p.QuoteDecimals)
		pools = append(pools, p)
	}

	a.logger.Debug(ctx, "pools discovered", "venue", a.venue.String(), "mint", mint,
		"listed", len(listed), "cached", len(pools))
	return pools, nil
}

func (a *Adapter) fillReserves(ctx context.Context, p *market.Pool) error {
	if p.BaseVault == "" || p.QuoteVault == "" {
		return apperror.New(apperror.CodeInvalidReserves, apperror.WithContext("pool has no vaults"))
	}

	baseRaw, baseDec, err := a.balances.TokenAccountBalance(ctx, p.BaseVault)
	if err != nil {
		return err
	}
	quoteRaw, quoteDec, err := a.balances.TokenAccountBalance(ctx, p.QuoteVault)
	if err != nil {
		return err
	}

	p.BaseDecimals, p.QuoteDecimals = baseDec, quoteDec
	p.BaseReserve = market.DecimalPtr(asset.ToDecimal(baseRaw, baseDec))
	p.QuoteReserve = market.DecimalPtr(asset.ToDecimal(quoteRaw, quoteDec))
	return nil
}

// liquidityUSD values both sides at known prices. With one price known the
// pool is assumed balanced; with none it is unknown.
func (a *Adapter) liquidityUSD(ctx context.Context, p market.Pool) *decimal.Decimal {
	basePrice, baseOK := a.repo.Price(ctx, p.BaseAsset)
	quotePrice, quoteOK := a.repo.Price(ctx, p.QuoteAsset)

	two := decimal.NewFromInt(2)
	switch {
	case baseOK && quoteOK:
		return market.DecimalPtr(p.BaseReserve.Mul(basePrice).Add(p.QuoteReserve.Mul(quotePrice)))
	case baseOK:
		return market.DecimalPtr(p.BaseReserve.Mul(basePrice).Mul(two))
	case quoteOK:
		return market.DecimalPtr(p.QuoteReserve.Mul(quotePrice).Mul(two))
	}
	return nil
}

func (a *Adapter) rememberToken(ctx context.Context, mint string, decimals uint8) {
	if a.repo.HasToken(ctx, mint) {
		return
	}
	_ = a.repo.AddToken(ctx, market.Token{Address: mint, Symbol: shortSymbol(mint), Decimals: decimals})
}

func (a *Adapter) GetBestPool(ctx context.Context, mint string, minLiquidity decimal.Decimal) (*market.Pool, error) {
	return app.BestCachedPool(ctx, a.repo, a.venue, mint, minLiquidity)
}

// GetBestPoolForPair is GetBestPool restricted to pools trading input against
// output.
func (a *Adapter) GetBestPoolForPair(ctx context.Context, input, output string, minLiquidity decimal.Decimal) (*market.Pool, error) {
	return app.BestCachedPairPool(ctx, a.repo, a.venue, input, output, minLiquidity)
}

// GetAssetPrice derives a USD price from the deepest pool's reserve ratio and
// the counter asset's known price. Pools are discovered when none is cached.
func (a *Adapter) GetAssetPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	pool, err := a.GetBestPool(ctx, mint, decimal.Zero)
	if err == nil && pool == nil {
		if _, derr := a.DiscoverPools(ctx, mint); derr == nil {
			pool, err = a.GetBestPool(ctx, mint, decimal.Zero)
		}
	}
	if err != nil || pool == nil || !pool.HasReserves() {
		return decimal.Zero, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(a.venue.String()+": no priced pool for "+mint))
	}

	own, counter, counterMint := *pool.BaseReserve, *pool.QuoteReserve, pool.QuoteAsset
	if pool.QuoteAsset == mint {
		own, counter, counterMint = *pool.QuoteReserve, *pool.BaseReserve, pool.BaseAsset
	}

	counterPrice, ok := a.repo.Price(ctx, counterMint)
	if !ok || own.IsZero() {
		return decimal.Zero, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithContext(a.venue.String()+": counter asset "+counterMint+" has no price"))
	}

	price := counter.Div(own).Mul(counterPrice)
	if a.repo.HasToken(ctx, mint) {
		if err := a.repo.UpdateTokenPrice(ctx, mint, price); err != nil {
			a.logger.Warn(ctx, "failed to cache token price", "mint", mint, "error", err)
		}
	}
	return price, nil
}

func (a *Adapter) quoteErr(cause error, msg string) error {
	return apperror.New(apperror.CodeVenueQuoteError,
		apperror.WithCause(cause),
		apperror.WithContext(a.venue.String()+": "+msg))
}

func (a *Adapter) execErr(cause error) error {
	return apperror.New(apperror.CodeVenueExecutionError,
		apperror.WithCause(cause),
		apperror.WithContext(a.venue.String()+": re-pricing failed"))
}

func (a *Adapter) discoveryErr(err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.New(apperror.CodePoolDiscoveryFailed,
		apperror.WithCause(err),
		apperror.WithContext(a.venue.String()+": pool listing failed"))
}

func shortSymbol(mint string) string {
	if len(mint) <= 6 {
		return strings.ToUpper(mint)
	}
	return strings.ToUpper(mint[:4])
}
