package domain

import (
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"

	pricing "github.com/fd1az/swap-router/business/pricing/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
)

// SwapRequest asks for InputAsset -> OutputAsset of Amount smallest units.
type SwapRequest struct {
	InputAsset  string
	OutputAsset string
	Amount      *big.Int
	SlippageBps uint32
	VenueHint   Venue // empty queries every enabled venue
}

// Validate rejects malformed requests with VALIDATION_ERROR.
func (r SwapRequest) Validate() error {
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return validation("amount", "must be positive")
	}
	if r.SlippageBps > pricing.BpsDenominator {
		return validation("slippageBps", "must be between 0 and 10000")
	}
	if !validMint(r.InputAsset) {
		return validation("inputAsset", "is not a valid address")
	}
	if !validMint(r.OutputAsset) {
		return validation("outputAsset", "is not a valid address")
	}
	if r.InputAsset == r.OutputAsset {
		return validation("outputAsset", "must differ from inputAsset")
	}
	return nil
}

func validMint(addr string) bool {
	return asset.ValidateAddress(addr) == nil && asset.IsBase58(addr)
}

func validation(field, reason string) error {
	return apperror.New(apperror.CodeValidationError,
		apperror.WithMessage(field+" "+reason))
}

// Quote is a venue's answer to a SwapRequest. Fee is in output units. Raw is
// the venue payload needed to execute the quote.
type Quote struct {
	Venue        Venue
	InputAmount  *big.Int
	OutputAmount *big.Int
	PriceImpact  decimal.Decimal
	Fee          *big.Int
	Raw          json.RawMessage
}

// MinimumOutput applies slippageBps to the quoted output.
func (q *Quote) MinimumOutput(slippageBps uint32) (*big.Int, error) {
	return pricing.ComputeMinimumOutput(q.OutputAmount, slippageBps)
}

// Status of a submitted swap.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// SwapResult is returned by Execute. A pending result is final only once the
// chain confirms TransactionID.
type SwapResult struct {
	TransactionID string
	Status        Status
	Venue         Venue
	InputAmount   *big.Int
	OutputAmount  *big.Int
	Fee           *big.Int
}
