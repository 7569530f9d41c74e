package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	venue "github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/httpclient"
	"github.com/fd1az/swap-router/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

func newHandler(t *testing.T, capacity int) *ErrorHandler {
	t.Helper()
	h, err := NewErrorHandler(capacity, &mockLogger{})
	if err != nil {
		t.Fatalf("NewErrorHandler: %v", err)
	}
	return h
}

func TestErrorHandler_Classify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  apperror.Code
		wantTyped bool
	}{
		{
			name:      "app error keeps its code",
			err:       apperror.New(apperror.CodeVenueQuoteError, apperror.WithMessage("no route")),
			wantCode:  apperror.CodeVenueQuoteError,
			wantTyped: true,
		},
		{
			name:      "wrapped app error keeps its code",
			err:       fmt.Errorf("outer: %w", apperror.New(apperror.CodeInvalidReserves)),
			wantCode:  apperror.CodeInvalidReserves,
			wantTyped: true,
		},
		{
			name:      "venue error passes through",
			err:       RateLimitError(venue.Raydium),
			wantCode:  apperror.CodeRateLimitExceeded,
			wantTyped: true,
		},
		{
			name:     "http status",
			err:      &httpclient.StatusError{StatusCode: 502, Body: []byte("bad gateway")},
			wantCode: apperror.HTTPStatusCode(502),
		},
		{
			name:     "transport failure",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			wantCode: apperror.CodeNetworkError,
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("quote: %w", context.DeadlineExceeded),
			wantCode: apperror.CodeServiceTimeout,
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			wantCode: apperror.CodeUnknownError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(t, 10)
			ve := h.Handle(context.Background(), tt.err, venue.Jupiter, "")
			if ve.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", ve.Code, tt.wantCode)
			}
			if ve.Typed != tt.wantTyped {
				t.Errorf("typed = %v, want %v", ve.Typed, tt.wantTyped)
			}
			if ve.Venue != venue.Jupiter {
				t.Errorf("venue = %s", ve.Venue)
			}
			if ve.Timestamp.IsZero() {
				t.Error("timestamp not set")
			}
			if !errors.Is(ve, tt.err) {
				t.Error("cause lost")
			}
		})
	}
}

func TestErrorHandler_MessagePrefix(t *testing.T) {
	h := newHandler(t, 10)
	ve := h.Handle(context.Background(), errors.New("boom"), venue.Meteora, "quote")
	if ve.Message != "quote: boom" {
		t.Errorf("message = %q", ve.Message)
	}
	if h.Handle(context.Background(), nil, venue.Meteora, "quote") != nil {
		t.Error("nil error must not be recorded")
	}
	if len(h.ErrorLog()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(h.ErrorLog()))
	}
}

func TestErrorHandler_LogCap(t *testing.T) {
	h := newHandler(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.Handle(ctx, fmt.Errorf("err %d", i), venue.Jupiter, "")
	}

	log := h.ErrorLog()
	if len(log) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(log))
	}
	for i, e := range log {
		want := fmt.Sprintf("err %d", i+2)
		if e.Message != want {
			t.Errorf("entry %d = %q, want %q", i, e.Message, want)
		}
	}
}

func TestErrorHandler_DefaultCap(t *testing.T) {
	h := newHandler(t, 0)
	ctx := context.Background()
	for i := 0; i < DefaultErrorLogSize+10; i++ {
		h.Handle(ctx, errors.New("x"), venue.Raydium, "")
	}
	if got := len(h.ErrorLog()); got != DefaultErrorLogSize {
		t.Errorf("expected %d entries, got %d", DefaultErrorLogSize, got)
	}
}

func TestErrorHandler_StatsAndFilters(t *testing.T) {
	h := newHandler(t, 10)
	ctx := context.Background()

	h.Handle(ctx, errors.New("a"), venue.Jupiter, "")
	h.Handle(ctx, errors.New("b"), venue.Jupiter, "")
	h.Handle(ctx, TimeoutError(venue.Raydium, time.Second), venue.Raydium, "")

	stats := h.ErrorStats()
	for _, v := range venue.All() {
		if _, ok := stats[v]; !ok {
			t.Errorf("stats missing venue %s", v)
		}
	}
	if stats[venue.Jupiter] != 2 || stats[venue.Raydium] != 1 || stats[venue.PumpSwap] != 0 {
		t.Errorf("unexpected stats %v", stats)
	}

	if got := len(h.ErrorsByVenue(venue.Jupiter)); got != 2 {
		t.Errorf("ErrorsByVenue = %d", got)
	}
	timeouts := h.ErrorsByCode(apperror.CodeServiceTimeout)
	if len(timeouts) != 1 || !strings.Contains(timeouts[0].Message, "1s") {
		t.Errorf("ErrorsByCode = %+v", timeouts)
	}

	// the returned log is a copy
	log := h.ErrorLog()
	log[0].Message = "changed"
	if h.ErrorLog()[0].Message == "changed" {
		t.Error("ErrorLog exposed internal state")
	}

	h.ClearErrorLog()
	if len(h.ErrorLog()) != 0 {
		t.Error("log not cleared")
	}
	if h.ErrorStats()[venue.Jupiter] != 0 {
		t.Error("stats not reset")
	}
}

func TestErrorFactories(t *testing.T) {
	tests := []struct {
		err  *venue.VenueError
		code apperror.Code
	}{
		{NetworkError(venue.Jupiter, "https://lite-api.jup.ag"), apperror.CodeNetworkError},
		{ValidationError(venue.Raydium, "amount", "-1"), apperror.CodeValidationError},
		{RateLimitError(venue.PumpSwap), apperror.CodeRateLimitExceeded},
		{TimeoutError(venue.Meteora, 5*time.Second), apperror.CodeServiceTimeout},
	}
	for _, tt := range tests {
		if tt.err.Code != tt.code || !tt.err.Typed {
			t.Errorf("%s: code %s typed %v", tt.err.Venue, tt.err.Code, tt.err.Typed)
		}
	}
}
