// Package apperror is the typed error used across the router. Every failure
// that reaches a component boundary carries a Code; untyped errors are wrapped
// once, as close to their origin as possible, and typed ones pass through.
package apperror

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AppError is a coded error with an optional cause.
type AppError struct {
	Code       Code      `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Context    string    `json:"context,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	cause      error
}

// Error renders "CODE: message (context): cause".
func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (" + e.Context + ")")
	}
	if e.cause != nil {
		sb.WriteString(": " + e.cause.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches another *AppError by code, so errors.Is(err, New(code)) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// New creates an AppError. The message defaults to the catalog entry for
// code, or the code itself.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:       code,
		Message:    messages[code],
		StatusCode: defaultStatusCode(code),
		Timestamp:  time.Now(),
	}
	for _, opt := range opts {
		opt(err)
	}
	if err.Message == "" {
		err.Message = string(code)
	}
	return err
}

// Option configures an AppError.
type Option func(*AppError)

func WithMessage(message string) Option {
	return func(e *AppError) { e.Message = message }
}

// WithContext names where the error happened: a venue, a mint pair, an RPC method.
func WithContext(context string) Option {
	return func(e *AppError) { e.Context = context }
}

func WithStatusCode(statusCode int) Option {
	return func(e *AppError) { e.StatusCode = statusCode }
}

func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// WithTrace stamps the trace id of the span active in ctx, if any.
func WithTrace(ctx context.Context) Option {
	return func(e *AppError) {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			e.TraceID = sc.TraceID().String()
		}
	}
}

// Wrap converts err into an AppError with code. An error that already is an
// AppError is returned untouched so its code survives every boundary.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(code, WithContext(context), WithCause(err))
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.cause
	}
	return false
}

// GetCode returns the code of the outermost AppError, or UNKNOWN_ERROR.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

func defaultStatusCode(code Code) int {
	c := string(code)
	if status, ok := strings.CutPrefix(c, "HTTP_"); ok {
		if n, err := strconv.Atoi(status); err == nil && n >= 100 && n < 600 {
			return n
		}
	}

	switch {
	case strings.HasSuffix(c, "NOT_FOUND"), code == CodeVenueNotRegistered:
		return http.StatusNotFound
	case strings.HasPrefix(c, "INVALID_"), code == CodeValidationError, code == CodeTransactionInvalid:
		return http.StatusBadRequest
	case code == CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case code == CodeServiceTimeout:
		return http.StatusGatewayTimeout
	case strings.HasPrefix(c, "VENUE_"),
		code == CodeAggregationNoQuotes,
		code == CodeNetworkError,
		code == CodeSolanaRPCError:
		return http.StatusBadGateway
	case code == CodeCircuitOpen,
		code == CodeMaxRetriesExceeded,
		code == CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
