// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/zeebo/blake3"
)

// Delivery is one dispatched payload captured by the loopback relay,
// carrying everything the destination's Receive needs.
type Delivery struct {
	SourceDomain uint32
	DestDomain   uint32
	GUID         ids.ID
	Sequence     uint64
	Payload      []byte
}

// LoopbackRelay is an in-process Transport for local wiring and delivery
// simulation. It assigns monotonic per-channel sequence numbers and
// blake3-derived guids, and captures every dispatch so a harness can replay
// deliveries in any order and any number of times, which is exactly the
// at-least-once, unordered behavior the real relay exhibits.
type LoopbackRelay struct {
	sourceDomain uint32
	fee          *big.Int

	sequences map[uint64]uint64 // channel (src<<32|dest) -> last sequence
	outbox    []Delivery

	mu sync.Mutex
}

var _ Transport = (*LoopbackRelay)(nil)

// NewLoopbackRelay creates a relay for one source domain with a flat
// messaging fee.
func NewLoopbackRelay(sourceDomain uint32, fee *big.Int) *LoopbackRelay {
	return &LoopbackRelay{
		sourceDomain: sourceDomain,
		fee:          new(big.Int).Set(fee),
		sequences:    make(map[uint64]uint64),
	}
}

// EstimateFee returns the flat fee regardless of destination or payload.
func (r *LoopbackRelay) EstimateFee(destDomain uint32, payload []byte) (*big.Int, error) {
	return new(big.Int).Set(r.fee), nil
}

// Dispatch assigns a sequence and guid and queues the delivery.
func (r *LoopbackRelay) Dispatch(destDomain uint32, payload []byte, budget *big.Int, refundTo common.Address) (ids.ID, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if budget == nil || budget.Cmp(r.fee) < 0 {
		return ids.Empty, 0, ErrInsufficientMessagingBudget
	}

	channel := uint64(r.sourceDomain)<<32 | uint64(destDomain)
	r.sequences[channel]++
	seq := r.sequences[channel]

	guid := deriveGUID(r.sourceDomain, destDomain, seq, payload)
	r.outbox = append(r.outbox, Delivery{
		SourceDomain: r.sourceDomain,
		DestDomain:   destDomain,
		GUID:         guid,
		Sequence:     seq,
		Payload:      append([]byte(nil), payload...),
	})

	return guid, seq, nil
}

// Deliveries returns a copy of everything dispatched so far.
func (r *LoopbackRelay) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.outbox...)
}

// deriveGUID binds the guid to channel, sequence, and payload so the same
// logical instruction always correlates to the same id.
func deriveGUID(sourceDomain, destDomain uint32, sequence uint64, payload []byte) ids.ID {
	h := blake3.New()
	h.Write([]byte{
		byte(sourceDomain >> 24), byte(sourceDomain >> 16), byte(sourceDomain >> 8), byte(sourceDomain),
		byte(destDomain >> 24), byte(destDomain >> 16), byte(destDomain >> 8), byte(destDomain),
		byte(sequence >> 56), byte(sequence >> 48), byte(sequence >> 40), byte(sequence >> 32),
		byte(sequence >> 24), byte(sequence >> 16), byte(sequence >> 8), byte(sequence),
	})
	h.Write(payload)

	var guid ids.ID
	copy(guid[:], h.Sum(nil))
	return guid
}
