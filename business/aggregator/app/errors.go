package app

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	venue "github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

// DefaultErrorLogSize bounds the rolling error log.
const DefaultErrorLogSize = 1000

const meterName = "aggregator"

// ErrorHandler turns venue failures into VenueErrors and keeps the most
// recent ones.
type ErrorHandler struct {
	mu       sync.RWMutex
	entries  []venue.VenueError
	capacity int
	seen     map[venue.Venue]struct{}

	logger logger.LoggerInterface
	total  metric.Int64Counter
}

// NewErrorHandler creates a handler keeping at most capacity entries.
func NewErrorHandler(capacity int, log logger.LoggerInterface) (*ErrorHandler, error) {
	if capacity <= 0 {
		capacity = DefaultErrorLogSize
	}

	total, err := otel.Meter(meterName).Int64Counter(
		"venue_errors_total",
		metric.WithDescription("Venue failures by venue and code"),
	)
	if err != nil {
		return nil, err
	}

	seen := make(map[venue.Venue]struct{})
	for _, v := range venue.All() {
		seen[v] = struct{}{}
	}

	return &ErrorHandler{
		entries:  make([]venue.VenueError, 0, capacity),
		capacity: capacity,
		seen:     seen,
		logger:   log,
		total:    total,
	}, nil
}

// httpStatuser is implemented by transport errors carrying a response status.
type httpStatuser interface {
	HTTPStatus() int
}

// Handle normalizes err for v, records it and returns it. operation, when
// set, prefixes the message.
func (h *ErrorHandler) Handle(ctx context.Context, err error, v venue.Venue, operation string) *venue.VenueError {
	if err == nil {
		return nil
	}

	code, msg, typed := classify(err)
	if operation != "" {
		msg = operation + ": " + msg
	}
	ve := venue.NewVenueError(v, code, msg, typed, err)

	h.mu.Lock()
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.capacity-1]
	}
	h.entries = append(h.entries, *ve)
	h.seen[v] = struct{}{}
	h.mu.Unlock()

	h.total.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", v.String()),
		attribute.String("code", string(code)),
	))
	h.logger.Warn(ctx, "venue error",
		"venue", v.String(),
		"code", string(code),
		"typed", typed,
		"message", msg,
	)
	return ve
}

// classify picks the taxonomy code for err. Codes carried by err itself win;
// everything else is inferred once here.
func classify(err error) (code apperror.Code, msg string, typed bool) {
	var ve *venue.VenueError
	if errors.As(err, &ve) {
		return ve.Code, ve.Message, true
	}

	var ae *apperror.AppError
	if errors.As(err, &ae) {
		return ae.Code, ae.Error(), true
	}

	var hs httpStatuser
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperror.CodeServiceTimeout, err.Error(), false
	case errors.As(err, &hs):
		return apperror.HTTPStatusCode(hs.HTTPStatus()), err.Error(), false
	case errors.As(err, &ne):
		if ne.Timeout() {
			return apperror.CodeServiceTimeout, err.Error(), false
		}
		return apperror.CodeNetworkError, err.Error(), false
	}
	return apperror.CodeUnknownError, err.Error(), false
}

// ErrorLog returns a copy of the log, oldest first.
func (h *ErrorHandler) ErrorLog() []venue.VenueError {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]venue.VenueError, len(h.entries))
	copy(out, h.entries)
	return out
}

// ErrorStats counts logged errors per venue. Every known venue is present.
func (h *ErrorHandler) ErrorStats() map[venue.Venue]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := make(map[venue.Venue]int, len(h.seen))
	for v := range h.seen {
		stats[v] = 0
	}
	for _, e := range h.entries {
		stats[e.Venue]++
	}
	return stats
}

func (h *ErrorHandler) ClearErrorLog() {
	h.mu.Lock()
	h.entries = h.entries[:0]
	h.mu.Unlock()
}

func (h *ErrorHandler) ErrorsByVenue(v venue.Venue) []venue.VenueError {
	return h.filter(func(e venue.VenueError) bool { return e.Venue == v })
}

func (h *ErrorHandler) ErrorsByCode(code apperror.Code) []venue.VenueError {
	return h.filter(func(e venue.VenueError) bool { return e.Code == code })
}

func (h *ErrorHandler) filter(keep func(venue.VenueError) bool) []venue.VenueError {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []venue.VenueError
	for _, e := range h.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// NetworkError reports that url could not be reached.
func NetworkError(v venue.Venue, url string) *venue.VenueError {
	return venue.NewVenueError(v, apperror.CodeNetworkError, "cannot reach "+url, true, nil)
}

// ValidationError reports a rejected request field.
func ValidationError(v venue.Venue, field, value string) *venue.VenueError {
	return venue.NewVenueError(v, apperror.CodeValidationError, "invalid "+field+": "+value, true, nil)
}

// RateLimitError reports that the venue's request budget was exhausted.
func RateLimitError(v venue.Venue) *venue.VenueError {
	return venue.NewVenueError(v, apperror.CodeRateLimitExceeded, "rate limit exceeded", true, nil)
}

// TimeoutError reports a call that did not finish within d.
func TimeoutError(v venue.Venue, d time.Duration) *venue.VenueError {
	return venue.NewVenueError(v, apperror.CodeServiceTimeout, "no answer within "+d.String(), true, nil)
}
