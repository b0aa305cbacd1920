// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge implements the cross-domain value-transfer core: the
// orchestrator that turns a locked amount on a source domain into a release
// on a destination domain, the peer registry gating inbound instructions,
// the processed-guid store enforcing exactly-once application, and the two
// destination liquidity sources (pooled LP liquidity and a swap-converted
// native reserve).
//
// Transport, asset custody, and the swap venue are external collaborators;
// the package only defines their interfaces.
package bridge

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// Known domain IDs. The peer registry, not this list, decides which domains
// a deployment actually accepts.
const (
	DomainLux      uint32 = 96369
	DomainHanzo    uint32 = 36963
	DomainZoo      uint32 = 200200
	DomainEthereum uint32 = 1
	DomainBase     uint32 = 8453
)

// TransferInstruction is the unit exchanged between domains. A given GUID is
// applied on the destination at most once; the orchestrator, not the
// transport, enforces that.
type TransferInstruction struct {
	GUID         ids.ID         // Correlation id binding initiate to receive
	SourceDomain uint32         // Originating domain
	DestDomain   uint32         // Destination domain
	Recipient    common.Address // Recipient on the destination domain
	Amount       *big.Int       // Net amount, post-fee
	Sequence     uint64         // Monotonic per source->destination channel
}

// QuoteResult is the user-facing preview of a transfer. It is derived, never
// persisted, and matches exactly what Initiate would charge for the same
// inputs at the same pool state.
type QuoteResult struct {
	MessagingFee    *big.Int
	LPFee           *big.Int
	ProtocolFee     *big.Int
	TotalFee        *big.Int
	AmountToReceive *big.Int
}

// Event is an audit record appended by the orchestrator.
type Event interface {
	eventGUID() ids.ID
}

// TransferInitiated is emitted on the source domain after a successful
// initiate. Amount is the post-fee amount handed to the transport.
type TransferInitiated struct {
	GUID     ids.ID
	Amount   *big.Int
	TotalFee *big.Int
}

// TransferCompleted is emitted on the destination domain after funds are
// released. Amount is the released amount, which for the swap-sourced
// variant is the venue's authoritative output rather than the instruction
// amount.
type TransferCompleted struct {
	GUID   ids.ID
	Amount *big.Int
}

// DuplicateDelivery records a redelivered instruction that was dropped as a
// no-op. Kept observable for auditing.
type DuplicateDelivery struct {
	GUID ids.ID
}

func (e TransferInitiated) eventGUID() ids.ID { return e.GUID }
func (e TransferCompleted) eventGUID() ids.ID { return e.GUID }
func (e DuplicateDelivery) eventGUID() ids.ID { return e.GUID }

// Validation errors. Rejected synchronously, no state change.
var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrZeroRecipient  = errors.New("recipient must not be zero")
	ErrUnknownDomain  = errors.New("destination domain not registered")
	ErrInvalidPayload = errors.New("invalid payload encoding")
)

// Resource errors. Destination-side insufficient liquidity is terminal for
// that delivery attempt; recovery needs an LP top-up and an external
// redelivery.
var (
	ErrInsufficientLiquidity       = errors.New("insufficient destination liquidity")
	ErrInsufficientReserve         = errors.New("insufficient native reserve")
	ErrInsufficientMessagingBudget = errors.New("messaging budget below estimated fee")
)

// Trust and authorization errors.
var (
	ErrUntrustedOrigin      = errors.New("instruction origin is not the registered peer")
	ErrDuplicateInstruction = errors.New("instruction already applied")
	ErrUnauthorized         = errors.New("caller is not the owner")
	ErrReentrant            = errors.New("reentrant call rejected")
)
