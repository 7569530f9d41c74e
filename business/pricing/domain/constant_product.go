// Package domain contains the constant-product pricing model used to quote
// venues that expose pool reserves but no quoting endpoint.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/internal/apperror"
)

// BpsDenominator is the basis-point scale (100% = 10000).
const BpsDenominator = 10000

// Fee is the fraction of the input kept by the pool, Numerator/Denominator.
// 997/1000 means a 0.3% fee taken from the input side.
type Fee struct {
	Numerator   int64
	Denominator int64
}

// DefaultFee is the classic 0.3% AMM fee.
var DefaultFee = Fee{Numerator: 997, Denominator: 1000}

// FeeFromBps builds a Fee charging bps basis points.
func FeeFromBps(bps uint32) Fee {
	return Fee{Numerator: BpsDenominator - int64(bps), Denominator: BpsDenominator}
}

// Bps returns the fee in basis points, rounded down.
func (f Fee) Bps() int64 {
	if f.Denominator == 0 {
		return 0
	}
	return (f.Denominator - f.Numerator) * BpsDenominator / f.Denominator
}

func (f Fee) validate() error {
	if f.Denominator <= 0 || f.Numerator < 0 || f.Numerator > f.Denominator {
		return apperror.New(apperror.CodeValidationError,
			apperror.WithMessage("fee must satisfy 0 <= numerator <= denominator and denominator > 0"))
	}
	return nil
}

// ComputeConstantProductOutput returns
//
//	floor(amountIn*num*reserveOut / (reserveIn*den + amountIn*num))
//
// using exact integer arithmetic.
func ComputeConstantProductOutput(amountIn, reserveIn, reserveOut *big.Int, fee Fee) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInvalidAmount)
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() < 0 || reserveOut.Sign() < 0 {
		return nil, apperror.New(apperror.CodeInvalidReserves,
			apperror.WithContext("reserves must be non-negative"))
	}
	if err := fee.validate(); err != nil {
		return nil, err
	}

	num := big.NewInt(fee.Numerator)
	den := big.NewInt(fee.Denominator)

	amountInWithFee := new(big.Int).Mul(amountIn, num)

	// reserveIn + amountInWithFee/den == 0 means there is nothing to trade against.
	effectiveIn := new(big.Int).Quo(amountInWithFee, den)
	if effectiveIn.Add(effectiveIn, reserveIn).Sign() == 0 {
		return nil, apperror.New(apperror.CodeInvalidReserves,
			apperror.WithContext("input reserve is empty"))
	}

	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, den)
	denominator.Add(denominator, amountInWithFee)
	if denominator.Sign() == 0 {
		// zero fee numerator on an empty input reserve
		return nil, apperror.New(apperror.CodeInvalidReserves,
			apperror.WithContext("input reserve is empty"))
	}

	return numerator.Quo(numerator, denominator), nil
}

// ComputeMinimumOutput returns floor(amountOut*(10000-slippageBps)/10000).
func ComputeMinimumOutput(amountOut *big.Int, slippageBps uint32) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() < 0 {
		return nil, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithMessage("output amount must be non-negative"))
	}
	if slippageBps > BpsDenominator {
		return nil, apperror.New(apperror.CodeValidationError,
			apperror.WithMessage("slippage tolerance must be between 0 and 10000 bps"))
	}

	out := new(big.Int).Mul(amountOut, big.NewInt(int64(BpsDenominator-slippageBps)))
	return out.Quo(out, big.NewInt(BpsDenominator)), nil
}

// FeeAmount is the part of amountIn retained as fee, in input units.
func FeeAmount(amountIn *big.Int, fee Fee) *big.Int {
	if amountIn == nil || fee.Denominator <= 0 {
		return big.NewInt(0)
	}
	kept := new(big.Int).Mul(amountIn, big.NewInt(fee.Numerator))
	kept.Quo(kept, big.NewInt(fee.Denominator))
	return kept.Sub(amountIn, kept)
}

// OutputFee is the fee expressed in output units: the output of a fee-free
// swap minus the output under fee.
func OutputFee(amountIn, reserveIn, reserveOut *big.Int, fee Fee) (*big.Int, error) {
	withFee, err := ComputeConstantProductOutput(amountIn, reserveIn, reserveOut, fee)
	if err != nil {
		return nil, err
	}
	noFee, err := ComputeConstantProductOutput(amountIn, reserveIn, reserveOut, Fee{Numerator: 1, Denominator: 1})
	if err != nil {
		return nil, err
	}
	return noFee.Sub(noFee, withFee), nil
}

// PriceImpact compares the execution price with the pool's spot price:
// 1 - (amountOut/amountIn) / (reserveOut/reserveIn), floored at zero.
// The fee is part of the impact.
func PriceImpact(amountIn, reserveIn, reserveOut, amountOut *big.Int) decimal.Decimal {
	if amountIn == nil || amountIn.Sign() <= 0 ||
		reserveIn == nil || reserveIn.Sign() <= 0 ||
		reserveOut == nil || reserveOut.Sign() <= 0 ||
		amountOut == nil {
		return decimal.Zero
	}

	// (amountOut*reserveIn) / (amountIn*reserveOut)
	execOverSpot := decimal.NewFromBigInt(new(big.Int).Mul(amountOut, reserveIn), 0).
		DivRound(decimal.NewFromBigInt(new(big.Int).Mul(amountIn, reserveOut), 0), 18)

	impact := decimal.NewFromInt(1).Sub(execOverSpot)
	if impact.IsNegative() {
		return decimal.Zero
	}
	return impact
}
