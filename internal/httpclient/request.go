package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request is a one-shot request builder. Setters return the same Request.
type Request interface {
	Get(ctx context.Context, url string) (*Response, error)
	Post(ctx context.Context, url string) (*Response, error)

	// SetBody sends []byte and string as they are and JSON-encodes anything else.
	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	// SetResult decodes a JSON body into result. A body that does not decode
	// leaves Response.Result nil rather than failing the request.
	SetResult(result any) Request
}

// Response is a fully read HTTP response.
type Response struct {
	*http.Response
	body   []byte
	result any
}

func (r *Response) Body() []byte { return r.body }

func (r *Response) IsSuccess() bool {
	return r.StatusCode < http.StatusBadRequest
}

// Result is the decoded value passed to SetResult, or nil when decoding
// failed or was not requested.
func (r *Response) Result() any { return r.result }

type request struct {
	client  *InstrumentedClient
	opts    requestOptions
	headers map[string]string
	query   neturl.Values
	body    any
	result  any
}

func (r *request) Get(ctx context.Context, url string) (*Response, error) {
	return r.do(ctx, http.MethodGet, url)
}

func (r *request) Post(ctx context.Context, url string) (*Response, error) {
	return r.do(ctx, http.MethodPost, url)
}

func (r *request) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *request) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *request) SetQueryParam(key, value string) Request {
	if r.query == nil {
		r.query = make(neturl.Values)
	}
	r.query.Set(key, value)
	return r
}

func (r *request) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *request) url(path string) string {
	full := path
	if r.client.baseURL != "" && !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		full = strings.TrimSuffix(r.client.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) == 0 {
		return full
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + r.query.Encode()
}

func (r *request) encodeBody() (io.Reader, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
		return bytes.NewReader(data), nil
	}
}

func (r *request) do(ctx context.Context, method, path string) (*Response, error) {
	c := r.client
	ctx, span := c.tracer.Start(ctx, "httpclient."+r.opts.endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.client", c.name),
			attribute.String("http.endpoint", r.opts.endpoint),
			attribute.String("http.method", method),
		),
	)
	defer span.End()

	start := time.Now()
	status := "error"
	defer func() {
		attrs := metric.WithAttributes(
			attribute.String("client", c.name),
			attribute.String("endpoint", r.opts.endpoint),
			attribute.String("status", status),
		)
		c.requests.Add(ctx, 1, attrs)
		c.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	}()

	fail := func(err error) (*Response, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	body, err := r.encodeBody()
	if err != nil {
		return fail(err)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.url(path), body)
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		return fail(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return fail(fmt.Errorf("read response body: %w", err))
	}

	status = strconv.Itoa(resp.StatusCode/100) + "xx"
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	out := &Response{Response: resp, body: data}
	if r.result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, r.result); err != nil {
			span.AddEvent("response.decode_failed", trace.WithAttributes(attribute.String("error", err.Error())))
		} else {
			out.result = r.result
		}
	}

	if err := r.opts.errorHandler(resp.StatusCode, resp.Header, data); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	return out, nil
}

// StatusError is a response with status >= 400.
type StatusError struct {
	StatusCode int
	Body       []byte
	// RetryAfter is the upstream's Retry-After in seconds form, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := string(e.Body)
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, body)
}

// HTTPStatus lets error classifiers read the status without importing this package.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// StatusErrorHandler rejects status >= 400 with a *StatusError.
func StatusErrorHandler(statusCode int, header http.Header, body []byte) error {
	if statusCode < http.StatusBadRequest {
		return nil
	}
	e := &StatusError{StatusCode: statusCode, Body: body}
	if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil && secs > 0 {
		e.RetryAfter = time.Duration(secs) * time.Second
	}
	return e
}
