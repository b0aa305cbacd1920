// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Payload wire format: version byte, 20-byte recipient, 32-byte big-endian
// amount word. The transport treats it as opaque bytes.
const (
	PayloadVersion byte = 1
	payloadLength       = 1 + common.AddressLength + 32
)

// EncodePayload serializes {recipient, amount} for dispatch. The amount must
// be positive and fit a 256-bit word.
func EncodePayload(recipient common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	word, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrInvalidAmount
	}

	buf := make([]byte, payloadLength)
	buf[0] = PayloadVersion
	copy(buf[1:1+common.AddressLength], recipient.Bytes())
	b := word.Bytes32()
	copy(buf[1+common.AddressLength:], b[:])
	return buf, nil
}

// DecodePayload parses a payload produced by EncodePayload.
func DecodePayload(data []byte) (common.Address, *big.Int, error) {
	if len(data) != payloadLength || data[0] != PayloadVersion {
		return common.Address{}, nil, ErrInvalidPayload
	}

	recipient := common.BytesToAddress(data[1 : 1+common.AddressLength])

	word := new(uint256.Int).SetBytes32(data[1+common.AddressLength:])
	amount := word.ToBig()
	if amount.Sign() <= 0 {
		return common.Address{}, nil, ErrInvalidPayload
	}
	return recipient, amount, nil
}
