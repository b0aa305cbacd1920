// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"errors"
	"math/big"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/poolbridge/pool"
)

// mockVenue records swaps and returns a configurable output.
type mockVenue struct {
	out     *big.Int
	err     error
	lastIn  *big.Int
	lastMin *big.Int
	lastTo  common.Address
}

func (v *mockVenue) Swap(nativeIn, minOut *big.Int, recipient common.Address) (*big.Int, error) {
	if v.err != nil {
		return nil, v.err
	}
	v.lastIn = new(big.Int).Set(nativeIn)
	v.lastMin = new(big.Int).Set(minOut)
	v.lastTo = recipient
	if v.out != nil {
		return new(big.Int).Set(v.out), nil
	}
	return new(big.Int).Set(minOut), nil
}

// Rate of 2 target base units per native base unit.
func twoToOneRate() *big.Int { return big.NewInt(2 * RateScale) }

func TestReserveSourceNativeNeeded(t *testing.T) {
	s := NewReserveSource(&mockVenue{}, twoToOneRate(), big.NewInt(0))

	// 1_000_000 target / rate 2 = 500_000 native, +5% buffer = 525_000.
	needed := s.NativeNeeded(big.NewInt(1_000_000))
	if needed.Int64() != 525_000 {
		t.Errorf("Expected 525000, got %v", needed)
	}
}

func TestReserveSourceRelease(t *testing.T) {
	venue := &mockVenue{}
	s := NewReserveSource(venue, twoToOneRate(), big.NewInt(600_000))

	released, err := s.Release(recipient, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released.Int64() != 1_000_000 {
		t.Errorf("Expected 1000000 released, got %v", released)
	}

	// Buffered spend left the venue, reserve absorbed it.
	if venue.lastIn.Int64() != 525_000 {
		t.Errorf("Expected native spend 525000, got %v", venue.lastIn)
	}
	if venue.lastMin.Int64() != 1_000_000 {
		t.Errorf("Expected min-out floor 1000000, got %v", venue.lastMin)
	}
	if venue.lastTo != recipient {
		t.Error("Swap recipient mismatch")
	}
	if s.Reserve().Int64() != 75_000 {
		t.Errorf("Expected reserve 75000, got %v", s.Reserve())
	}
}

func TestReserveSourceInsufficientReserve(t *testing.T) {
	s := NewReserveSource(&mockVenue{}, twoToOneRate(), big.NewInt(500_000))

	// Unbuffered need (500_000) fits, buffered (525_000) does not.
	_, err := s.Release(recipient, big.NewInt(1_000_000))
	if !errors.Is(err, ErrInsufficientReserve) {
		t.Errorf("Expected ErrInsufficientReserve, got %v", err)
	}
	if s.Reserve().Int64() != 500_000 {
		t.Error("Failed release must not spend reserve")
	}

	// Funding the gap lets the same release through.
	s.Fund(big.NewInt(25_000))
	if _, err := s.Release(recipient, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("Release after funding failed: %v", err)
	}
}

func TestReserveSourceSwapOutputAuthoritative(t *testing.T) {
	// Venue returns more than the floor; the surplus is what gets reported.
	venue := &mockVenue{out: big.NewInt(1_003_000)}
	s := NewReserveSource(venue, twoToOneRate(), big.NewInt(600_000))

	released, err := s.Release(recipient, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released.Int64() != 1_003_000 {
		t.Errorf("Expected venue output 1003000, got %v", released)
	}
}

func TestReserveSourceVenueFailure(t *testing.T) {
	venue := &mockVenue{err: errors.New("price moved")}
	s := NewReserveSource(venue, twoToOneRate(), big.NewInt(600_000))

	_, err := s.Release(recipient, big.NewInt(1_000_000))
	if err == nil {
		t.Fatal("Expected venue error")
	}
	if s.Reserve().Int64() != 600_000 {
		t.Error("Failed swap must not spend reserve")
	}
}

// TestSwapSourcedReceive runs the full receive path with the swap-sourced
// variant standing in for the pool draw.
func TestSwapSourcedReceive(t *testing.T) {
	src := newTestDomain(t, DomainLux)
	_ = src.orch.SetPeer(owner, DomainEthereum, peerAddr)

	venue := &mockVenue{out: big.NewInt(998_500)}
	reserve := NewReserveSource(venue, twoToOneRate(), big.NewInt(1_000_000))

	dstCustody := newMockCustody()
	dst, err := New(Config{
		DomainID:  DomainEthereum,
		Owner:     owner,
		Schedule:  testSchedule(),
		Pool:      pool.NewSharePool(),
		Peers:     NewPeerRegistry(),
		Transport: NewLoopbackRelay(DomainEthereum, big.NewInt(100)),
		Custody:   dstCustody,
		Source:    reserve,
		Seen:      NewGuidStore(memdb.New()),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_ = dst.SetPeer(owner, DomainLux, peerAddr)

	_, _ = src.orch.Initiate(sender, DomainEthereum, recipient, big.NewInt(1_000_000), big.NewInt(100))
	d := src.relay.Deliveries()[0]

	if err := dst.Receive(peerAddr, d.SourceDomain, d.GUID, d.Payload); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	// Completion reports the venue's authoritative output, and the
	// redelivered guid is still rejected in this variant.
	events := dst.Events()
	done, ok := events[len(events)-1].(TransferCompleted)
	if !ok {
		t.Fatalf("Expected TransferCompleted, got %T", events[len(events)-1])
	}
	if done.Amount.Int64() != 998_500 {
		t.Errorf("Expected authoritative output 998500, got %v", done.Amount)
	}
	if err := dst.Receive(peerAddr, d.SourceDomain, d.GUID, d.Payload); !errors.Is(err, ErrDuplicateInstruction) {
		t.Errorf("Expected ErrDuplicateInstruction, got %v", err)
	}
}
