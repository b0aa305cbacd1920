// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"errors"
	"math/big"
	"testing"
)

func TestPayloadRoundTrip(t *testing.T) {
	amount := new(big.Int).Mul(big.NewInt(123_456_789), big.NewInt(1_000_000))

	payload, err := EncodePayload(recipient, amount)
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}
	if len(payload) != payloadLength {
		t.Errorf("Expected %d bytes, got %d", payloadLength, len(payload))
	}

	gotRecipient, gotAmount, err := DecodePayload(payload)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if gotRecipient != recipient {
		t.Error("Recipient mismatch")
	}
	if gotAmount.Cmp(amount) != 0 {
		t.Errorf("Expected %v, got %v", amount, gotAmount)
	}
}

func TestEncodePayloadRejectsBadAmounts(t *testing.T) {
	if _, err := EncodePayload(recipient, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := EncodePayload(recipient, tooWide); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for >256-bit amount, got %v", err)
	}
}

func TestDecodePayloadRejectsMalformed(t *testing.T) {
	valid, _ := EncodePayload(recipient, big.NewInt(1))

	for name, data := range map[string][]byte{
		"empty":         nil,
		"short":         valid[:payloadLength-1],
		"long":          append(append([]byte(nil), valid...), 0),
		"wrong version": append([]byte{9}, valid[1:]...),
	} {
		if _, _, err := DecodePayload(data); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("%s: expected ErrInvalidPayload, got %v", name, err)
		}
	}
}

func TestRelaySequencesPerChannel(t *testing.T) {
	relay := NewLoopbackRelay(DomainLux, big.NewInt(1))
	payload, _ := EncodePayload(recipient, big.NewInt(1))
	budget := big.NewInt(1)

	// Sequences advance independently per destination channel.
	_, s1, _ := relay.Dispatch(DomainEthereum, payload, budget, sender)
	_, s2, _ := relay.Dispatch(DomainEthereum, payload, budget, sender)
	_, s3, _ := relay.Dispatch(DomainBase, payload, budget, sender)
	if s1 != 1 || s2 != 2 || s3 != 1 {
		t.Errorf("Expected sequences 1,2,1, got %d,%d,%d", s1, s2, s3)
	}

	// Same channel and payload, different sequence: distinct guids.
	d := relay.Deliveries()
	if d[0].GUID == d[1].GUID {
		t.Error("Expected distinct guids for distinct sequences")
	}

	if _, _, err := relay.Dispatch(DomainEthereum, payload, big.NewInt(0), sender); !errors.Is(err, ErrInsufficientMessagingBudget) {
		t.Errorf("Expected ErrInsufficientMessagingBudget, got %v", err)
	}
}
