// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fees computes the fee split applied to every cross-chain transfer.
// All arithmetic is integer math over raw base units (the reference
// deployment uses 6-decimal fixed point, so 1 whole unit == 1_000_000 base
// units) with floor division, so the same inputs always produce the same
// split whether called to preview a quote or to execute a transfer.
package fees

import (
	"errors"
	"math/big"
)

// Basis point denominator
const BpsDenominator = 10_000

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidSchedule = errors.New("invalid fee schedule")
)

// Schedule is the fixed fee schedule for a bridge deployment.
type Schedule struct {
	LPRateBps       uint32   // Share accrued to liquidity providers (basis points)
	ProtocolRateBps uint32   // Share accrued to the protocol (basis points)
	Cap             *big.Int // Absolute cap on the combined fee (base units)
}

// Validate checks the schedule is usable.
func (s Schedule) Validate() error {
	if s.LPRateBps+s.ProtocolRateBps >= BpsDenominator {
		return ErrInvalidSchedule
	}
	if s.Cap == nil || s.Cap.Sign() < 0 {
		return ErrInvalidSchedule
	}
	return nil
}

// Quote is the deterministic fee breakdown for one amount.
// Invariant: LPFee + ProtocolFee == TotalFee and TotalFee + AmountAfterFee
// equals the input amount.
type Quote struct {
	LPFee          *big.Int
	ProtocolFee    *big.Int
	TotalFee       *big.Int
	AmountAfterFee *big.Int
}

// Compute returns the fee split for amount under schedule s.
//
// lpFee and protocolFee floor independently; when their sum exceeds the cap
// the total clamps to the cap and is re-split in the lp:protocol ratio, with
// the protocol side absorbing the rounding remainder so the two parts always
// sum to the cap exactly.
func Compute(amount *big.Int, s Schedule) (Quote, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Quote{}, ErrInvalidAmount
	}
	if err := s.Validate(); err != nil {
		return Quote{}, err
	}

	den := big.NewInt(BpsDenominator)

	lpFee := new(big.Int).Mul(amount, big.NewInt(int64(s.LPRateBps)))
	lpFee.Div(lpFee, den)

	protocolFee := new(big.Int).Mul(amount, big.NewInt(int64(s.ProtocolRateBps)))
	protocolFee.Div(protocolFee, den)

	totalFee := new(big.Int).Add(lpFee, protocolFee)

	if s.Cap.Sign() > 0 && totalFee.Cmp(s.Cap) > 0 {
		combined := int64(s.LPRateBps) + int64(s.ProtocolRateBps)
		totalFee = new(big.Int).Set(s.Cap)
		lpFee = new(big.Int).Mul(s.Cap, big.NewInt(int64(s.LPRateBps)))
		lpFee.Div(lpFee, big.NewInt(combined))
		protocolFee = new(big.Int).Sub(totalFee, lpFee)
	}

	return Quote{
		LPFee:          lpFee,
		ProtocolFee:    protocolFee,
		TotalFee:       totalFee,
		AmountAfterFee: new(big.Int).Sub(amount, totalFee),
	}, nil
}
