// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/poolbridge/pool"
)

// LiquiditySource supplies the destination-side funds for an inbound
// instruction. The orchestrator core is polymorphic over this: the
// pool-backed and swap-sourced bridge variants differ only in their source.
type LiquiditySource interface {
	// Release pays amount (or its swap-converted equivalent) to recipient.
	// The returned value is the amount actually released and is what the
	// completion event reports. Failure leaves no state changed.
	Release(recipient common.Address, amount *big.Int) (*big.Int, error)
}

// PoolSource draws inbound releases from the LP share pool's principal.
type PoolSource struct {
	Pool    *pool.SharePool
	Custody Custody
}

var _ LiquiditySource = (*PoolSource)(nil)

// Release debits pool principal and pays the recipient from custody.
func (s *PoolSource) Release(recipient common.Address, amount *big.Int) (*big.Int, error) {
	if err := s.Pool.RemoveLiquidity(amount); err != nil {
		return nil, ErrInsufficientLiquidity
	}
	if err := s.Custody.TransferOut(recipient, amount); err != nil {
		// Restore the debit so a custody fault is all-or-nothing.
		s.Pool.AddLiquidity(amount)
		return nil, fmt.Errorf("custody release: %w", err)
	}
	return new(big.Int).Set(amount), nil
}

// Basis point scale shared by the slippage buffer and the oracle rate.
const (
	bpsDenominator = 10_000

	// DefaultSlippageBufferBps is the design-default 5% buffer applied to
	// the estimated native spend.
	DefaultSlippageBufferBps = 500

	// RateScale is the fixed-point scale of the oracle rate: target base
	// units per native base unit, times RateScale.
	RateScale = 1_000_000
)

// ReserveSource funds inbound releases by converting a native-asset reserve
// through an external swap venue instead of drawing pooled liquidity.
// Slippage within the buffer is absorbed by the reserve; the venue enforces
// the minimum-output floor.
type ReserveSource struct {
	Venue             SwapVenue
	OracleRate        *big.Int // target per native, scaled by RateScale
	SlippageBufferBps uint32

	reserve *big.Int
	mu      sync.Mutex
}

var _ LiquiditySource = (*ReserveSource)(nil)

// NewReserveSource creates a swap-sourced liquidity source holding an
// initial native reserve.
func NewReserveSource(venue SwapVenue, oracleRate *big.Int, reserve *big.Int) *ReserveSource {
	return &ReserveSource{
		Venue:             venue,
		OracleRate:        new(big.Int).Set(oracleRate),
		SlippageBufferBps: DefaultSlippageBufferBps,
		reserve:           new(big.Int).Set(reserve),
	}
}

// Reserve returns the remaining native balance.
func (s *ReserveSource) Reserve() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.reserve)
}

// Fund adds native balance to the reserve.
func (s *ReserveSource) Fund(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserve.Add(s.reserve, amount)
}

// NativeNeeded estimates the buffered native spend for a target amount:
// amount * RateScale / rate, scaled up by the slippage buffer.
func (s *ReserveSource) NativeNeeded(amount *big.Int) *big.Int {
	needed := new(big.Int).Mul(amount, big.NewInt(RateScale))
	needed.Div(needed, s.OracleRate)
	needed.Mul(needed, big.NewInt(int64(bpsDenominator+s.SlippageBufferBps)))
	needed.Div(needed, big.NewInt(bpsDenominator))
	return needed
}

// Release swaps buffered native reserve into the target asset, paying
// recipient directly. The instruction amount is the minimum-output floor;
// the venue's returned amount is what the caller reports.
func (s *ReserveSource) Release(recipient common.Address, amount *big.Int) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spend := s.NativeNeeded(amount)
	if s.reserve.Cmp(spend) < 0 {
		return nil, ErrInsufficientReserve
	}

	out, err := s.Venue.Swap(spend, amount, recipient)
	if err != nil {
		return nil, fmt.Errorf("swap venue: %w", err)
	}

	s.reserve.Sub(s.reserve, spend)
	return out, nil
}
