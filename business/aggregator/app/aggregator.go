package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/aggregator/domain"
	market "github.com/fd1az/swap-router/business/market/domain"
	venueApp "github.com/fd1az/swap-router/business/venue/app"
	venue "github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	DefaultVenueTimeout   = 5 * time.Second
	DefaultRequestTimeout = 15 * time.Second

	tracerName = "aggregator"
)

// Options bounds the fan-out and names the execution signer.
type Options struct {
	VenueTimeout   time.Duration
	RequestTimeout time.Duration
	// Signer is the wallet address handed to Adapter.Execute.
	Signer string
}

// PoolReader is the part of the market repository the aggregator reads.
type PoolReader interface {
	GetPoolsByAsset(ctx context.Context, asset string, minLiquidity decimal.Decimal) ([]market.Pool, error)
}

// Aggregator fans swap requests out to the enabled venues, picks the best
// quote and dispatches execution. It keeps no state between requests besides
// its collaborators.
type Aggregator struct {
	registry *Registry
	configs  *VenueConfigs
	errors   *ErrorHandler
	pools    PoolReader
	logger   logger.LoggerInterface
	opts     Options

	tracer    trace.Tracer
	requests  metric.Int64Counter
	latencyMs metric.Float64Histogram
}

// New creates an aggregator over explicitly constructed collaborators.
func New(registry *Registry, configs *VenueConfigs, errors *ErrorHandler, pools PoolReader, log logger.LoggerInterface, opts Options) (*Aggregator, error) {
	if opts.VenueTimeout <= 0 {
		opts.VenueTimeout = DefaultVenueTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	a := &Aggregator{
		registry: registry,
		configs:  configs,
		errors:   errors,
		pools:    pools,
		logger:   log,
		opts:     opts,
		tracer:   otel.Tracer(tracerName),
	}
	if err := a.initMetrics(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Aggregator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.requests, err = meter.Int64Counter(
		"aggregator_requests_total",
		metric.WithDescription("Aggregation requests by operation and outcome"),
	)
	if err != nil {
		return err
	}

	a.latencyMs, err = meter.Float64Histogram(
		"aggregator_fanout_latency_ms",
		metric.WithDescription("Wall time of a quote fan-out"),
		metric.WithUnit("ms"),
	)
	return err
}

// Errors exposes the error handler for stats and log inspection.
func (a *Aggregator) Errors() *ErrorHandler {
	return a.errors
}

// Venues returns the registered venues in enumeration order.
func (a *Aggregator) Venues() []venue.Venue {
	return a.registry.Venues()
}

// outcome is one venue's answer in a fan-out. A nil quote with a nil err
// means the venue was skipped.
type outcome struct {
	index int
	venue venue.Venue
	quote *venue.Quote
	err   error
}

// GetBestQuote returns the quote with the largest output among the enabled
// venues. Ties go to the venue registered first.
func (a *Aggregator) GetBestQuote(ctx context.Context, req venue.SwapRequest) (*venue.Quote, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.best_quote")
	defer span.End()

	outcomes, err := a.fanOut(ctx, req)
	if err != nil {
		a.record(ctx, "best_quote", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	best := selectBest(outcomes)
	if best == nil {
		err := apperror.New(apperror.CodeAggregationNoQuotes,
			apperror.WithContext(req.InputAsset+" -> "+req.OutputAsset),
			apperror.WithTrace(ctx))
		a.record(ctx, "best_quote", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("venue", best.Venue.String()),
		attribute.String("amount_out", best.OutputAmount.String()),
	)
	a.record(ctx, "best_quote", nil)
	return best, nil
}

// selectBest scans outcomes in enumeration order.
func selectBest(outcomes []outcome) *venue.Quote {
	var best *venue.Quote
	for _, o := range outcomes {
		if beats(o.quote, best) {
			best = o.quote
		}
	}
	return best
}

// beats reports whether q replaces best: only a strictly larger output does,
// so ties keep the earlier venue.
func beats(q, best *venue.Quote) bool {
	if q == nil || q.OutputAmount == nil {
		return false
	}
	return best == nil || q.OutputAmount.Cmp(best.OutputAmount) > 0
}

// BestOf applies the GetBestQuote selection to a GetAllQuotes result and
// returns the winning venue, or "" when nothing quoted.
func (a *Aggregator) BestOf(quotes map[venue.Venue]*venue.Quote) venue.Venue {
	var best *venue.Quote
	for _, v := range a.Venues() {
		if q := quotes[v]; beats(q, best) {
			best = q
		}
	}
	if best == nil {
		return ""
	}
	return best.Venue
}

// GetAllQuotes returns every queried venue's quote, nil for venues that failed
// or were skipped. Venue failures never fail the call.
func (a *Aggregator) GetAllQuotes(ctx context.Context, req venue.SwapRequest) (map[venue.Venue]*venue.Quote, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.all_quotes")
	defer span.End()

	outcomes, err := a.fanOut(ctx, req)
	if err != nil {
		a.record(ctx, "all_quotes", err)
		span.RecordError(err)
		return nil, err
	}

	quotes := make(map[venue.Venue]*venue.Quote, len(outcomes))
	for _, o := range outcomes {
		quotes[o.venue] = o.quote
	}
	a.record(ctx, "all_quotes", nil)
	return quotes, nil
}

// ExecuteBestSwap quotes every venue and executes the winning quote.
func (a *Aggregator) ExecuteBestSwap(ctx context.Context, req venue.SwapRequest) (*venue.SwapResult, error) {
	best, err := a.GetBestQuote(ctx, req)
	if err != nil {
		return nil, err
	}
	adapter, _ := a.registry.Get(best.Venue)
	return a.execute(ctx, adapter, best.Raw)
}

// ExecuteSwapOnVenue executes raw on v without quoting other venues.
func (a *Aggregator) ExecuteSwapOnVenue(ctx context.Context, v venue.Venue, raw json.RawMessage, req venue.SwapRequest) (*venue.SwapResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	adapter, err := a.enabledAdapter(v)
	if err != nil {
		return nil, err
	}
	return a.execute(ctx, adapter, raw)
}

func (a *Aggregator) execute(ctx context.Context, adapter venueApp.Adapter, raw json.RawMessage) (*venue.SwapResult, error) {
	v := adapter.Venue()
	ctx, span := a.tracer.Start(ctx, "aggregator.execute", trace.WithAttributes(attribute.String("venue", v.String())))
	defer span.End()

	result, err := callWithTimeout(ctx, a.opts.VenueTimeout, v, func(ctx context.Context) (*venue.SwapResult, error) {
		if err := a.configs.Wait(ctx, v); err != nil {
			return nil, RateLimitError(v)
		}
		return adapter.Execute(ctx, raw, a.opts.Signer)
	})
	if err != nil {
		return nil, a.fail(ctx, err, v, "execute", span)
	}

	a.logger.Info(ctx, "swap submitted",
		"venue", v.String(),
		"tx", result.TransactionID,
		"status", string(result.Status),
	)
	a.record(ctx, "execute", nil)
	return result, nil
}

// GetQuoteFromVenue quotes a single enabled venue. A pool-requiring venue
// without a cached pool fails with POOL_NOT_FOUND.
func (a *Aggregator) GetQuoteFromVenue(ctx context.Context, v venue.Venue, req venue.SwapRequest) (*venue.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	adapter, err := a.enabledAdapter(v)
	if err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "aggregator.venue_quote", trace.WithAttributes(attribute.String("venue", v.String())))
	defer span.End()

	o := a.quoteVenue(ctx, 0, adapter, req)
	switch {
	case o.err != nil:
		return nil, a.fail(ctx, o.err, v, "quote", span)
	case o.quote == nil:
		return nil, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(v.String()+": "+req.InputAsset+"/"+req.OutputAsset))
	}
	a.record(ctx, "venue_quote", nil)
	return o.quote, nil
}

// DiscoverPools asks v for the pools holding asset.
func (a *Aggregator) DiscoverPools(ctx context.Context, v venue.Venue, mint string) ([]market.Pool, error) {
	if err := validateMint(mint); err != nil {
		return nil, err
	}
	adapter, err := a.enabledAdapter(v)
	if err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "aggregator.discover_pools", trace.WithAttributes(attribute.String("venue", v.String())))
	defer span.End()

	pools, err := callWithTimeout(ctx, a.opts.VenueTimeout, v, func(ctx context.Context) ([]market.Pool, error) {
		if err := a.configs.Wait(ctx, v); err != nil {
			return nil, RateLimitError(v)
		}
		return adapter.DiscoverPools(ctx, mint)
	})
	if err != nil {
		return nil, a.fail(ctx, err, v, "discover", span)
	}
	a.record(ctx, "discover_pools", nil)
	return pools, nil
}

// Pools lists the cached pools holding mint across venues.
func (a *Aggregator) Pools(ctx context.Context, mint string, minLiquidity decimal.Decimal) ([]market.Pool, error) {
	return a.pools.GetPoolsByAsset(ctx, mint, minLiquidity)
}

// GetAssetPrice returns the USD price from the first enabled venue that has
// one, in enumeration order.
func (a *Aggregator) GetAssetPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	if err := validateMint(mint); err != nil {
		return decimal.Zero, err
	}

	ctx, span := a.tracer.Start(ctx, "aggregator.asset_price")
	defer span.End()

	for _, v := range a.registry.Venues() {
		if !a.configs.Enabled(v) {
			continue
		}
		adapter, _ := a.registry.Get(v)

		price, err := callWithTimeout(ctx, a.opts.VenueTimeout, v, func(ctx context.Context) (decimal.Decimal, error) {
			if err := a.configs.Wait(ctx, v); err != nil {
				return decimal.Zero, RateLimitError(v)
			}
			return adapter.GetAssetPrice(ctx, mint)
		})
		if err != nil {
			a.errors.Handle(ctx, err, v, "price")
			continue
		}
		if price.IsPositive() {
			span.SetAttributes(attribute.String("venue", v.String()))
			a.record(ctx, "asset_price", nil)
			return price, nil
		}
	}

	err := apperror.New(apperror.CodePriceUnavailable, apperror.WithContext(mint))
	a.record(ctx, "asset_price", err)
	return decimal.Zero, err
}

// UpdateVenueConfig applies patch to v at runtime.
func (a *Aggregator) UpdateVenueConfig(v venue.Venue, patch domain.VenueConfigPatch) (domain.VenueConfig, error) {
	cfg, err := a.configs.Update(v, patch)
	if err != nil {
		return cfg, err
	}
	a.logger.Info(context.Background(), "venue config updated",
		"venue", v.String(),
		"enabled", cfg.Enabled,
		"requests", cfg.RateLimit.Requests,
		"window", cfg.RateLimit.Window.String(),
	)
	return cfg, nil
}

func (a *Aggregator) SetVenueEnabled(v venue.Venue, enabled bool) error {
	_, err := a.UpdateVenueConfig(v, domain.VenueConfigPatch{Enabled: &enabled})
	return err
}

// Configs returns a snapshot of the venue configuration.
func (a *Aggregator) Configs() map[venue.Venue]domain.VenueConfig {
	return a.configs.Snapshot()
}

// fanOut validates req and queries the target venues concurrently. Venues
// that have not answered when the request deadline passes are treated as
// failed; completed quotes are kept.
func (a *Aggregator) fanOut(ctx context.Context, req venue.SwapRequest) ([]outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	targets, err := a.targets(req.VenueHint)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.opts.RequestTimeout)
	defer cancel()

	outcomes := make([]outcome, len(targets))
	done := make([]bool, len(targets))
	results := make(chan outcome, len(targets))

	for i, adapter := range targets {
		outcomes[i] = outcome{index: i, venue: adapter.Venue()}
		go func() {
			results <- a.quoteVenue(ctx, i, adapter, req)
		}()
	}

collect:
	for received := 0; received < len(targets); received++ {
		select {
		case o := <-results:
			outcomes[o.index] = o
			done[o.index] = true
		case <-ctx.Done():
			break collect
		}
	}

	for i := range outcomes {
		if !done[i] {
			outcomes[i].err = apperror.New(apperror.CodeServiceTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext("request deadline passed before "+outcomes[i].venue.String()+" answered"))
		}
		if outcomes[i].err != nil {
			a.errors.Handle(ctx, outcomes[i].err, outcomes[i].venue, "quote")
		}
	}

	a.latencyMs.Record(ctx, float64(time.Since(start).Microseconds())/1000,
		metric.WithAttributes(attribute.Int("venues", len(targets))))
	return outcomes, nil
}

// targets returns the enabled adapters to query, in enumeration order.
func (a *Aggregator) targets(hint venue.Venue) ([]venueApp.Adapter, error) {
	if hint != "" {
		adapter, ok := a.registry.Get(hint)
		if !ok {
			return nil, apperror.New(apperror.CodeVenueNotRegistered, apperror.WithContext(hint.String()))
		}
		if !a.configs.Enabled(hint) {
			return nil, nil
		}
		return []venueApp.Adapter{adapter}, nil
	}

	var out []venueApp.Adapter
	for _, v := range a.registry.Venues() {
		if !a.configs.Enabled(v) {
			continue
		}
		adapter, _ := a.registry.Get(v)
		out = append(out, adapter)
	}
	return out, nil
}

// quoteVenue runs one venue's quote within the venue timeout. A venue that
// needs a pool and has none cached is skipped.
func (a *Aggregator) quoteVenue(ctx context.Context, index int, adapter venueApp.Adapter, req venue.SwapRequest) outcome {
	v := adapter.Venue()
	o := outcome{index: index, venue: v}

	o.quote, o.err = callWithTimeout(ctx, a.opts.VenueTimeout, v, func(ctx context.Context) (*venue.Quote, error) {
		if err := a.configs.Wait(ctx, v); err != nil {
			return nil, RateLimitError(v)
		}

		var pool *market.Pool
		if adapter.RequiresPool() {
			p, err := pairPool(ctx, adapter, req)
			if err != nil {
				return nil, err
			}
			if p == nil {
				a.logger.Debug(ctx, "no cached pool for pair, skipping venue",
					"venue", v.String(), "input", req.InputAsset, "output", req.OutputAsset)
				return nil, nil
			}
			pool = p
		}

		q, err := adapter.Quote(ctx, req, pool)
		if err == nil && (q == nil || q.OutputAmount == nil) {
			err = apperror.New(apperror.CodeVenueQuoteError,
				apperror.WithMessage("venue returned no output amount"),
				apperror.WithContext(v.String()))
		}
		return q, err
	})
	if o.err != nil {
		o.quote = nil
	}
	return o
}

// pairPool resolves the deepest cached pool trading the request's pair. An
// adapter without a pair lookup falls back to its deepest pool for the input
// asset, which only counts when it pairs the output too.
func pairPool(ctx context.Context, adapter venueApp.Adapter, req venue.SwapRequest) (*market.Pool, error) {
	if f, ok := adapter.(venueApp.PairPoolFinder); ok {
		return f.GetBestPoolForPair(ctx, req.InputAsset, req.OutputAsset, decimal.Zero)
	}
	p, err := adapter.GetBestPool(ctx, req.InputAsset, decimal.Zero)
	if err != nil || p == nil || !p.Pairs(req.InputAsset, req.OutputAsset) {
		return nil, err
	}
	return p, nil
}

// callWithTimeout runs fn under a deadline of d and stops waiting when it
// passes, even if fn ignores its context.
func callWithTimeout[T any](ctx context.Context, d time.Duration, v venue.Venue, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		ch <- result{val, err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, TimeoutError(v, d)
	}
}

func (a *Aggregator) enabledAdapter(v venue.Venue) (venueApp.Adapter, error) {
	adapter, ok := a.registry.Get(v)
	if !ok {
		return nil, apperror.New(apperror.CodeVenueNotRegistered, apperror.WithContext(v.String()))
	}
	if !a.configs.Enabled(v) {
		return nil, apperror.New(apperror.CodeVenueDisabled, apperror.WithContext(v.String()))
	}
	return adapter, nil
}

// fail records err once and returns it in AppError form. Typed errors keep
// their code; untyped ones get the code the handler inferred.
func (a *Aggregator) fail(ctx context.Context, err error, v venue.Venue, operation string, span trace.Span) error {
	ve := a.errors.Handle(ctx, err, v, operation)
	out := apperror.Wrap(err, ve.Code, v.String())
	span.RecordError(out)
	span.SetStatus(codes.Error, out.Error())
	a.record(ctx, operation, out)
	return out
}

func (a *Aggregator) record(ctx context.Context, operation string, err error) {
	result := "ok"
	if err != nil {
		result = string(apperror.GetCode(err))
	}
	a.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
}

func validateMint(mint string) error {
	if err := asset.ValidateAddress(mint); err != nil {
		return err
	}
	if !asset.IsBase58(mint) {
		return apperror.New(apperror.CodeInvalidAddress, apperror.WithContext(mint))
	}
	return nil
}
