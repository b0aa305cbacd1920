// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// Transport is the external messaging relay that carries payloads between
// domains. Delivery is asynchronous, at-least-once, and unordered; the
// receive path compensates with per-guid idempotence.
type Transport interface {
	// EstimateFee returns the native fee for dispatching payload to
	// destDomain.
	EstimateFee(destDomain uint32, payload []byte) (*big.Int, error)

	// Dispatch hands the payload to the relay with a native-fee budget.
	// Unused budget is refunded to refundTo. Returns the assigned guid and
	// the channel sequence number.
	Dispatch(destDomain uint32, payload []byte, budget *big.Int, refundTo common.Address) (ids.ID, uint64, error)
}

// Custody moves the underlying asset in and out of the bridge's keeping.
// Both operations fail atomically with the whole call on insufficient
// balance or allowance.
type Custody interface {
	TransferIn(from common.Address, amount *big.Int) error
	TransferOut(to common.Address, amount *big.Int) error
}

// SwapVenue converts native reserve into the target asset. Used only by the
// swap-sourced liquidity variant. The returned output amount is
// authoritative; slippage beyond minOut fails the swap.
type SwapVenue interface {
	Swap(nativeIn, minOut *big.Int, recipient common.Address) (*big.Int, error)
}
