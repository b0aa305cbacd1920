// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements the share-based liquidity ledger backing one
// bridge domain. Providers deposit the bridged asset and receive shares;
// LP fees accrue to a separate fee pool without minting shares, which is
// what raises the share price over time.
//
// Every share/amount conversion floors, always in the pool's favor: a
// deposit never over-mints shares and a withdrawal never over-pays. This
// rounding direction is solvency-critical and must not change.
package pool

import (
	"errors"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrZeroShares              = errors.New("deposit too small to mint shares")
	ErrInvalidShares           = errors.New("invalid share count")
	ErrInsufficientPoolBalance = errors.New("insufficient pool balance")
)

// SharePool is the per-domain liquidity ledger. One instance exists per
// orchestrator; it is constructed explicitly and passed by reference, never
// held as a package-level global.
type SharePool struct {
	// Principal backing inbound transfers. Excludes undistributed fees.
	TotalLiquidity *big.Int

	// Accrued LP fees, redeemable pro-rata through withdrawal.
	FeePool *big.Int

	// Total shares outstanding across all providers.
	TotalShares *big.Int

	// Owner-claimable protocol fees. Not part of the share price.
	ProtocolFees *big.Int

	// Lifetime statistics.
	TotalVolume *big.Int
	TxCount     uint64

	shares map[common.Address]*big.Int

	mu sync.RWMutex
}

// NewSharePool creates an empty liquidity ledger.
func NewSharePool() *SharePool {
	return &SharePool{
		TotalLiquidity: big.NewInt(0),
		FeePool:        big.NewInt(0),
		TotalShares:    big.NewInt(0),
		ProtocolFees:   big.NewInt(0),
		TotalVolume:    big.NewInt(0),
		shares:         make(map[common.Address]*big.Int),
	}
}

// Deposit mints shares for a provider contributing amount of the underlying
// asset. The caller must already have moved the asset into custody; the
// ledger only records the claim.
//
// The very first depositor sets the share price 1:1. A zero-liquidity pool
// accepts that first deposit unconditionally; this bootstrap is a documented
// dependency of the design.
func (p *SharePool) Deposit(provider common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var minted *big.Int
	if p.TotalShares.Sign() == 0 {
		minted = new(big.Int).Set(amount)
	} else {
		// shares = amount * totalShares / (totalLiquidity + feePool)
		minted = new(big.Int).Mul(amount, p.TotalShares)
		minted.Div(minted, p.value())
	}

	if minted.Sign() == 0 {
		return nil, ErrZeroShares
	}

	bal := p.shares[provider]
	if bal == nil {
		bal = big.NewInt(0)
		p.shares[provider] = bal
	}
	bal.Add(bal, minted)

	p.TotalShares.Add(p.TotalShares, minted)
	p.TotalLiquidity.Add(p.TotalLiquidity, amount)

	return minted, nil
}

// Withdraw burns shares and returns the amount of underlying they redeem
// for. Principal is paid out of TotalLiquidity first; any excess comes from
// FeePool, preserving principal in preference to fee earnings.
func (p *SharePool) Withdraw(provider common.Address, shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, ErrInvalidShares
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bal := p.shares[provider]
	if bal == nil || bal.Cmp(shares) < 0 {
		return nil, ErrInvalidShares
	}

	// amount = shares * (totalLiquidity + feePool) / totalShares
	amount := new(big.Int).Mul(shares, p.value())
	amount.Div(amount, p.TotalShares)

	if amount.Cmp(p.value()) > 0 {
		return nil, ErrInsufficientPoolBalance
	}

	bal.Sub(bal, shares)
	if bal.Sign() == 0 {
		delete(p.shares, provider)
	}
	p.TotalShares.Sub(p.TotalShares, shares)

	if amount.Cmp(p.TotalLiquidity) <= 0 {
		p.TotalLiquidity.Sub(p.TotalLiquidity, amount)
	} else {
		excess := new(big.Int).Sub(amount, p.TotalLiquidity)
		p.TotalLiquidity.SetInt64(0)
		p.FeePool.Sub(p.FeePool, excess)
	}

	// totalShares == 0 implies both buckets drained; sweep any floor dust
	// left behind so the zero-state invariant holds.
	if p.TotalShares.Sign() == 0 {
		p.TotalLiquidity.SetInt64(0)
		p.FeePool.SetInt64(0)
	}

	return amount, nil
}

// PreviewWithdraw computes what Withdraw would return for the same inputs
// without mutating anything. Callers that must move custody before burning
// shares use this to fail early.
func (p *SharePool) PreviewWithdraw(provider common.Address, shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, ErrInvalidShares
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	bal := p.shares[provider]
	if bal == nil || bal.Cmp(shares) < 0 {
		return nil, ErrInvalidShares
	}

	amount := new(big.Int).Mul(shares, p.value())
	amount.Div(amount, p.TotalShares)
	return amount, nil
}

// AccrueFee adds an LP fee to the fee pool without minting shares.
func (p *SharePool) AccrueFee(lpFee *big.Int) {
	if lpFee == nil || lpFee.Sign() <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FeePool.Add(p.FeePool, lpFee)
}

// AddLiquidity increases principal directly. Used by the orchestrator when
// an outbound transfer leaves its post-fee amount behind as pooled backing.
func (p *SharePool) AddLiquidity(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TotalLiquidity.Add(p.TotalLiquidity, amount)
}

// RemoveLiquidity decreases principal for an inbound release. Fails when
// principal cannot cover the amount; the fee pool is never drawn here.
func (p *SharePool) RemoveLiquidity(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TotalLiquidity.Cmp(amount) < 0 {
		return ErrInsufficientPoolBalance
	}
	p.TotalLiquidity.Sub(p.TotalLiquidity, amount)
	return nil
}

// AddProtocolFees credits the owner-claimable bucket.
func (p *SharePool) AddProtocolFees(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProtocolFees.Add(p.ProtocolFees, amount)
}

// TakeProtocolFees zeroes the protocol-fee bucket and returns its balance.
func (p *SharePool) TakeProtocolFees() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	taken := new(big.Int).Set(p.ProtocolFees)
	p.ProtocolFees.SetInt64(0)
	return taken
}

// AccrueVolume adds to the lifetime volume counter. Never fails.
func (p *SharePool) AccrueVolume(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TotalVolume.Add(p.TotalVolume, amount)
}

// IncrementTxCount bumps the lifetime transfer counter. Never fails.
func (p *SharePool) IncrementTxCount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TxCount++
}

// SharesOf returns the provider's share balance (zero if none).
func (p *SharePool) SharesOf(provider common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	bal := p.shares[provider]
	if bal == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

// Liquidity returns the principal currently available for inbound releases.
func (p *SharePool) Liquidity() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.TotalLiquidity)
}

// SharePrice reports the pool value and outstanding shares; their ratio is
// the share price. Returned as a pair so callers compare without division.
func (p *SharePool) SharePrice() (value, shares *big.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Add(p.TotalLiquidity, p.FeePool), new(big.Int).Set(p.TotalShares)
}

// value is the redeemable pool value (principal + undistributed LP fees).
// Caller must hold the lock.
func (p *SharePool) value() *big.Int {
	return new(big.Int).Add(p.TotalLiquidity, p.FeePool)
}
