package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuoteSpread(t *testing.T) {
	tests := []struct {
		name          string
		best          int64
		output        int64
		wantShortfall int64
		wantBPS       string
	}{
		{"same output", 150_000_000, 150_000_000, 0, "0"},
		{"one percent short", 150_000_000, 148_500_000, 1_500_000, "100"},
		{"one bps short", 10_000, 9_999, 1, "1"},
		{"fractional bps", 3, 2, 1, "3333.33"},
		{"better than best", 100, 101, -1, "-100"},
		{"zero best", 0, 0, 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := QuoteSpread(big.NewInt(tt.best), big.NewInt(tt.output))
			if s.Shortfall.Int64() != tt.wantShortfall {
				t.Errorf("shortfall = %s, want %d", s.Shortfall, tt.wantShortfall)
			}
			if !s.BasisPoints.Equal(decimal.RequireFromString(tt.wantBPS)) {
				t.Errorf("bps = %s, want %s", s.BasisPoints, tt.wantBPS)
			}
		})
	}
}

func TestQuoteSpread_NilInputs(t *testing.T) {
	s := QuoteSpread(nil, big.NewInt(5))
	if s.Shortfall.Int64() != -5 || !s.BasisPoints.IsZero() {
		t.Errorf("unexpected spread %+v", s)
	}
}

func TestSpreadBps(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"150", "151.5", "100"},
		{"150", "148.5", "-100"},
		{"0", "10", "0"},
		{"0.001", "0.00101", "100"},
	}

	for _, tt := range tests {
		got := SpreadBps(decimal.RequireFromString(tt.a), decimal.RequireFromString(tt.b))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("SpreadBps(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}
