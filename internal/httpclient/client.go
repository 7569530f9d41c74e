package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 16 << 20

	// venues and RPC nodes throttle per connection; keep the pool small
	dialKeepAlive         = 15 * time.Second
	maxConnsPerHost       = 8
	maxIdleConnsPerHost   = 4
	idleConnTimeout       = 90 * time.Second
	expectContinueTimeout = 100 * time.Millisecond

	instrumentationName = "github.com/fd1az/swap-router/internal/httpclient"
)

// Client builds requests against one upstream.
type Client interface {
	NewRequest(opts ...RequestOption) Request
}

// InstrumentedClient is the default Client.
type InstrumentedClient struct {
	http         *http.Client
	name         string
	baseURL      string
	headers      map[string]string
	maxBodyBytes int64

	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// New creates an instrumented client.
func New(opts ...Option) (*InstrumentedClient, error) {
	o := options{timeout: defaultTimeout, maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = "default"
	}

	transport := o.transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{KeepAlive: dialKeepAlive}).DialContext,
			MaxConnsPerHost:       maxConnsPerHost,
			MaxIdleConnsPerHost:   maxIdleConnsPerHost,
			IdleConnTimeout:       idleConnTimeout,
			ExpectContinueTimeout: expectContinueTimeout,
			ForceAttemptHTTP2:     true,
		}
	}

	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter(
		"http_client_requests_total",
		metric.WithDescription("Outbound HTTP requests by client, endpoint and status class"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"http_client_request_duration_ms",
		metric.WithDescription("Outbound HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"Accept": "application/json"}
	for k, v := range o.headers {
		headers[k] = v
	}

	return &InstrumentedClient{
		http: &http.Client{
			Timeout: o.timeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
					return otelhttptrace.NewClientTrace(ctx)
				}),
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return o.name + " " + r.Method + " " + r.URL.Path
				}),
			),
		},
		name:         o.name,
		baseURL:      o.baseURL,
		headers:      headers,
		maxBodyBytes: o.maxBodyBytes,
		tracer:       otel.Tracer(instrumentationName),
		requests:     requests,
		latency:      latency,
	}, nil
}

// NewRequest starts a request carrying the client's default headers.
func (c *InstrumentedClient) NewRequest(opts ...RequestOption) Request {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.errorHandler == nil {
		ro.errorHandler = StatusErrorHandler
	}
	if ro.endpoint == "" {
		ro.endpoint = "unknown"
	}

	headers := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		headers[k] = v
	}
	return &request{client: c, opts: ro, headers: headers}
}
