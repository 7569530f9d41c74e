package domain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
)

func TestSwapRequest_Validate(t *testing.T) {
	valid := SwapRequest{
		InputAsset:  asset.MintWrappedSOL,
		OutputAsset: asset.MintUSDC,
		Amount:      big.NewInt(1_000_000),
		SlippageBps: 50,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*SwapRequest)
	}{
		{"zero amount", func(r *SwapRequest) { r.Amount = big.NewInt(0) }},
		{"negative amount", func(r *SwapRequest) { r.Amount = big.NewInt(-1) }},
		{"nil amount", func(r *SwapRequest) { r.Amount = nil }},
		{"slippage above 100%", func(r *SwapRequest) { r.SlippageBps = 10500 }},
		{"short input", func(r *SwapRequest) { r.InputAsset = "abc" }},
		{"long output", func(r *SwapRequest) { r.OutputAsset = strings.Repeat("A", 45) }},
		{"non base58", func(r *SwapRequest) { r.OutputAsset = strings.Repeat("0", 40) }},
		{"same asset", func(r *SwapRequest) { r.OutputAsset = r.InputAsset }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			if err := req.Validate(); apperror.GetCode(err) != apperror.CodeValidationError {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}

	edge := valid
	edge.SlippageBps = 10000
	if err := edge.Validate(); err != nil {
		t.Errorf("10000 bps should be accepted: %v", err)
	}
}

func TestParse(t *testing.T) {
	for _, v := range All() {
		got, err := Parse(v.String())
		if err != nil || got != v {
			t.Errorf("Parse(%q) = %q, %v", v, got, err)
		}
	}
	if _, err := Parse("orca"); apperror.GetCode(err) != apperror.CodeVenueNotRegistered {
		t.Errorf("expected VENUE_NOT_REGISTERED, got %v", err)
	}
}

func TestQuote_MinimumOutput(t *testing.T) {
	q := &Quote{Venue: Jupiter, OutputAmount: big.NewInt(1000)}
	got, err := q.MinimumOutput(500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int64() != 950 {
		t.Errorf("expected 950, got %s", got)
	}
}
