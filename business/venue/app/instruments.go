package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/venue/domain"
)

const instrumentationName = "venue"

// Instruments holds the tracer and OTEL metric instruments of one adapter.
type Instruments struct {
	venue  domain.Venue
	tracer trace.Tracer
	attrs  metric.MeasurementOption

	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
	executions   metric.Int64Counter
}

// NewInstruments registers the venue_* instruments for venue.
func NewInstruments(venue domain.Venue) (*Instruments, error) {
	meter := otel.Meter(instrumentationName)
	i := &Instruments{
		venue:  venue,
		tracer: otel.Tracer(instrumentationName),
		attrs:  metric.WithAttributes(attribute.String("venue", venue.String())),
	}

	var err error
	i.quotesTotal, err = meter.Int64Counter(
		"venue_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return nil, err
	}

	i.quoteLatency, err = meter.Float64Histogram(
		"venue_quote_latency_ms",
		metric.WithDescription("Quote latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	i.quoteErrors, err = meter.Int64Counter(
		"venue_quote_errors_total",
		metric.WithDescription("Total failed quotes"),
	)
	if err != nil {
		return nil, err
	}

	i.executions, err = meter.Int64Counter(
		"venue_executions_total",
		metric.WithDescription("Total swap executions"),
	)
	if err != nil {
		return nil, err
	}

	return i, nil
}

// Tracer returns the adapter tracer.
func (i *Instruments) Tracer() trace.Tracer {
	return i.tracer
}

// StartQuote opens the quote span and counts the request.
func (i *Instruments) StartQuote(ctx context.Context, req domain.SwapRequest) (context.Context, trace.Span, time.Time) {
	ctx, span := i.tracer.Start(ctx, i.venue.String()+".quote",
		trace.WithAttributes(
			attribute.String("venue", i.venue.String()),
			attribute.String("input_mint", req.InputAsset),
			attribute.String("output_mint", req.OutputAsset),
			attribute.String("amount_in", req.Amount.String()),
			attribute.Int("slippage_bps", int(req.SlippageBps)),
		),
	)
	i.quotesTotal.Add(ctx, 1, i.attrs)
	return ctx, span, time.Now()
}

// EndQuote records latency and outcome, then ends the span.
func (i *Instruments) EndQuote(ctx context.Context, span trace.Span, start time.Time, q *domain.Quote, err error) {
	defer span.End()

	i.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()), i.attrs)
	if err != nil {
		i.quoteErrors.Add(ctx, 1, i.attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("amount_out", q.OutputAmount.String()),
		attribute.String("price_impact", q.PriceImpact.String()),
	)
	span.SetStatus(codes.Ok, "quote received")
}

// RecordExecution counts an execution attempt by outcome.
func (i *Instruments) RecordExecution(ctx context.Context, err error) {
	i.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", i.venue.String()),
		attribute.Bool("success", err == nil),
	))
}
