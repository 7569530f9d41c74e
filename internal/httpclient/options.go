// Package httpclient is the instrumented JSON-over-HTTP client shared by the
// venue adapters and the Solana RPC client. Every request gets an OTel span,
// a request counter and a latency histogram tagged with the client name and
// endpoint.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
)

type options struct {
	name          string
	baseURL       string
	timeout       time.Duration
	headers       map[string]string
	transport     http.RoundTripper
	meterProvider metric.MeterProvider
	maxBodyBytes  int64
}

// Option configures a client.
type Option func(*options)

// WithName tags metrics and spans, e.g. "jupiter" or "solana-rpc".
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithBaseURL is prefixed to relative request paths.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithHeader sets a header sent with every request. Empty values are ignored
// so optional API keys can be passed unconditionally.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if value == "" {
			return
		}
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithTransport replaces the pooled default transport. It is still wrapped
// with otelhttp.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

type requestOptions struct {
	endpoint     string
	errorHandler ErrorHandler
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

// WithEndpoint names the logical endpoint for metrics ("quote", "swap",
// "getSignatureStatuses").
func WithEndpoint(endpoint string) RequestOption {
	return func(o *requestOptions) { o.endpoint = endpoint }
}

// ErrorHandler decides whether a response is a failure. Returning nil
// accepts it.
type ErrorHandler func(statusCode int, header http.Header, body []byte) error

// WithErrorHandler replaces StatusErrorHandler for one request.
func WithErrorHandler(h ErrorHandler) RequestOption {
	return func(o *requestOptions) { o.errorHandler = h }
}
