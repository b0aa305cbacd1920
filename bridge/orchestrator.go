// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"

	"github.com/luxfi/poolbridge/fees"
	"github.com/luxfi/poolbridge/pool"
)

// Orchestrator is one domain's transfer state machine. It owns the pool,
// peer registry, and processed-guid set for that domain; two domains'
// orchestrators never share memory and communicate only through the
// transport.
//
// Every public operation is synchronous and all-or-nothing: external
// collaborator calls (custody, dispatch) complete before any ledger
// mutation, and a failed external call unwinds whatever preceded it. A
// reentrant call made from inside a collaborator is rejected.
type Orchestrator struct {
	domainID uint32
	owner    common.Address
	schedule fees.Schedule

	pool      *pool.SharePool
	peers     *PeerRegistry
	transport Transport
	custody   Custody
	source    LiquiditySource
	seen      *GuidStore

	log    log.Logger
	events []Event

	busy bool
	mu   sync.Mutex
}

// Config collects the collaborators for one orchestrator instance.
type Config struct {
	DomainID  uint32
	Owner     common.Address
	Schedule  fees.Schedule
	Pool      *pool.SharePool
	Peers     *PeerRegistry
	Transport Transport
	Custody   Custody
	Source    LiquiditySource
	Seen      *GuidStore
	Log       log.Logger
}

// New wires an orchestrator. Pool, Peers, Transport, Custody, and Seen are
// required; Source defaults to drawing from the pool.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if cfg.Pool == nil || cfg.Peers == nil || cfg.Transport == nil || cfg.Custody == nil || cfg.Seen == nil {
		return nil, fmt.Errorf("incomplete orchestrator config")
	}
	source := cfg.Source
	if source == nil {
		source = &PoolSource{Pool: cfg.Pool, Custody: cfg.Custody}
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}
	return &Orchestrator{
		domainID:  cfg.DomainID,
		owner:     cfg.Owner,
		schedule:  cfg.Schedule,
		pool:      cfg.Pool,
		peers:     cfg.Peers,
		transport: cfg.Transport,
		custody:   cfg.Custody,
		source:    source,
		seen:      cfg.Seen,
		log:       logger,
	}, nil
}

// DomainID returns the domain this orchestrator serves.
func (o *Orchestrator) DomainID() uint32 { return o.domainID }

// Pool exposes the liquidity ledger for inspection.
func (o *Orchestrator) Pool() *pool.SharePool { return o.pool }

// begin arms the reentrancy guard for one logical transfer.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return ErrReentrant
	}
	o.busy = true
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
}

func (o *Orchestrator) emit(ev Event) {
	o.mu.Lock()
	o.events = append(o.events, ev)
	o.mu.Unlock()
}

// Events returns a copy of the audit log.
func (o *Orchestrator) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

// Initiate locks amount from caller, accrues fees, grows pooled liquidity by
// the post-fee amount, and hands the instruction to the transport.
//
// Ordering: validation and the fee quote first, then both external calls
// (custody pull, dispatch), then ledger mutation. A dispatch failure refunds
// the custody pull, so no path leaves partial state.
func (o *Orchestrator) Initiate(
	caller common.Address,
	destDomain uint32,
	recipient common.Address,
	amount *big.Int,
	messagingBudget *big.Int,
) (*TransferInstruction, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroRecipient
	}
	if _, ok := o.peers.PeerFor(destDomain); !ok {
		return nil, ErrUnknownDomain
	}

	quote, err := fees.Compute(amount, o.schedule)
	if err != nil {
		return nil, err
	}

	payload, err := EncodePayload(recipient, quote.AmountAfterFee)
	if err != nil {
		return nil, err
	}

	msgFee, err := o.transport.EstimateFee(destDomain, payload)
	if err != nil {
		return nil, fmt.Errorf("estimate messaging fee: %w", err)
	}
	if messagingBudget == nil || messagingBudget.Cmp(msgFee) < 0 {
		return nil, ErrInsufficientMessagingBudget
	}

	if err := o.custody.TransferIn(caller, amount); err != nil {
		return nil, fmt.Errorf("custody pull: %w", err)
	}

	guid, seq, err := o.transport.Dispatch(destDomain, payload, messagingBudget, caller)
	if err != nil {
		if refundErr := o.custody.TransferOut(caller, amount); refundErr != nil {
			o.log.Error("dispatch refund failed", "caller", caller, "amount", amount, "err", refundErr)
		}
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	o.pool.AccrueFee(quote.LPFee)
	o.pool.AddProtocolFees(quote.ProtocolFee)
	o.pool.AddLiquidity(quote.AmountAfterFee)
	o.pool.AccrueVolume(amount)
	o.pool.IncrementTxCount()

	instr := &TransferInstruction{
		GUID:         guid,
		SourceDomain: o.domainID,
		DestDomain:   destDomain,
		Recipient:    recipient,
		Amount:       quote.AmountAfterFee,
		Sequence:     seq,
	}

	o.emit(TransferInitiated{GUID: guid, Amount: quote.AmountAfterFee, TotalFee: quote.TotalFee})
	o.log.Info("transfer initiated",
		"guid", guid, "dest", destDomain, "recipient", recipient,
		"amount", quote.AmountAfterFee, "fee", quote.TotalFee, "seq", seq)

	return instr, nil
}

// Receive applies an inbound instruction exactly once. The origin must be
// the registered peer for sourceDomain; a redelivered guid is dropped as an
// observable no-op; insufficient liquidity is terminal for this delivery
// attempt and mutates nothing.
func (o *Orchestrator) Receive(origin common.Address, sourceDomain uint32, guid ids.ID, payload []byte) error {
	if err := o.begin(); err != nil {
		return err
	}
	defer o.end()

	if !o.peers.IsTrusted(sourceDomain, origin) {
		return ErrUntrustedOrigin
	}

	done, err := o.seen.Processed(guid)
	if err != nil {
		return fmt.Errorf("guid lookup: %w", err)
	}
	if done {
		o.emit(DuplicateDelivery{GUID: guid})
		o.log.Warn("duplicate delivery dropped", "guid", guid, "source", sourceDomain)
		return ErrDuplicateInstruction
	}

	recipient, amount, err := DecodePayload(payload)
	if err != nil {
		return err
	}

	released, err := o.source.Release(recipient, amount)
	if err != nil {
		return err
	}

	if err := o.seen.Mark(guid); err != nil {
		return fmt.Errorf("guid persist: %w", err)
	}

	o.emit(TransferCompleted{GUID: guid, Amount: released})
	o.log.Info("transfer completed",
		"guid", guid, "source", sourceDomain, "recipient", recipient, "amount", released)

	return nil
}

// Quote previews the cost of a transfer without mutating anything. The fee
// split is the same computation Initiate runs, so preview and execution
// never drift.
func (o *Orchestrator) Quote(destDomain uint32, amount *big.Int) (QuoteResult, error) {
	if _, ok := o.peers.PeerFor(destDomain); !ok {
		return QuoteResult{}, ErrUnknownDomain
	}

	quote, err := fees.Compute(amount, o.schedule)
	if err != nil {
		return QuoteResult{}, err
	}

	// Payloads are fixed-size, so a placeholder recipient estimates the
	// same fee the real dispatch would pay.
	payload, err := EncodePayload(common.Address{1}, quote.AmountAfterFee)
	if err != nil {
		return QuoteResult{}, err
	}
	msgFee, err := o.transport.EstimateFee(destDomain, payload)
	if err != nil {
		return QuoteResult{}, fmt.Errorf("estimate messaging fee: %w", err)
	}

	return QuoteResult{
		MessagingFee:    msgFee,
		LPFee:           quote.LPFee,
		ProtocolFee:     quote.ProtocolFee,
		TotalFee:        quote.TotalFee,
		AmountToReceive: quote.AmountAfterFee,
	}, nil
}

// AddLiquidity pulls amount from the provider into custody and mints pool
// shares for it.
func (o *Orchestrator) AddLiquidity(provider common.Address, amount *big.Int) (*big.Int, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	if err := o.custody.TransferIn(provider, amount); err != nil {
		return nil, fmt.Errorf("custody pull: %w", err)
	}
	shares, err := o.pool.Deposit(provider, amount)
	if err != nil {
		if refundErr := o.custody.TransferOut(provider, amount); refundErr != nil {
			o.log.Error("deposit refund failed", "provider", provider, "amount", amount, "err", refundErr)
		}
		return nil, err
	}
	o.log.Info("liquidity added", "provider", provider, "amount", amount, "shares", shares)
	return shares, nil
}

// RemoveLiquidity burns shares and pays the redeemed amount out of custody.
// A custody shortfall surfaces as ErrInsufficientPoolBalance before the
// ledger is touched.
func (o *Orchestrator) RemoveLiquidity(provider common.Address, shares *big.Int) (*big.Int, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	amount, err := o.pool.PreviewWithdraw(provider, shares)
	if err != nil {
		return nil, err
	}
	if err := o.custody.TransferOut(provider, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", pool.ErrInsufficientPoolBalance, err)
	}
	// Same inputs as the preview; the guard serialized any interleaving.
	if _, err := o.pool.Withdraw(provider, shares); err != nil {
		return nil, err
	}
	o.log.Info("liquidity removed", "provider", provider, "shares", shares, "amount", amount)
	return amount, nil
}

// SetPeer registers the trusted counterpart for a domain. Owner-only.
func (o *Orchestrator) SetPeer(caller common.Address, domain uint32, peer common.Address) error {
	if caller != o.owner {
		return ErrUnauthorized
	}
	o.peers.Set(domain, peer)
	o.log.Info("peer registered", "domain", domain, "peer", peer)
	return nil
}

// WithdrawProtocolFees zeroes the protocol-fee bucket and transfers it to
// the owner. Owner-only.
func (o *Orchestrator) WithdrawProtocolFees(caller common.Address) (*big.Int, error) {
	if caller != o.owner {
		return nil, ErrUnauthorized
	}
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	taken := o.pool.TakeProtocolFees()
	if taken.Sign() == 0 {
		return taken, nil
	}
	if err := o.custody.TransferOut(o.owner, taken); err != nil {
		o.pool.AddProtocolFees(taken)
		return nil, fmt.Errorf("custody release: %w", err)
	}
	o.log.Info("protocol fees withdrawn", "owner", o.owner, "amount", taken)
	return taken, nil
}
