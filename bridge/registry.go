// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"sync"

	"github.com/luxfi/geth/common"
)

// PeerRegistry maps destination domain ids to the trusted counterpart
// contract on that domain. It is consulted before dispatching to a domain
// and before accepting anything from one; an instruction from an
// unregistered or mismatched origin is rejected outright.
//
// Mutation is owner-gated at the orchestrator surface.
type PeerRegistry struct {
	peers map[uint32]common.Address
	mu    sync.RWMutex
}

// NewPeerRegistry creates an empty registry.
func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{peers: make(map[uint32]common.Address)}
}

// Set registers or replaces the trusted peer for a domain. A zero peer
// unregisters the domain.
func (r *PeerRegistry) Set(domain uint32, peer common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if peer == (common.Address{}) {
		delete(r.peers, domain)
		return
	}
	r.peers[domain] = peer
}

// PeerFor returns the registered peer for a domain.
func (r *PeerRegistry) PeerFor(domain uint32) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peer, ok := r.peers[domain]
	return peer, ok
}

// IsTrusted reports whether origin is the registered peer for domain.
func (r *PeerRegistry) IsTrusted(domain uint32, origin common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peer, ok := r.peers[domain]
	return ok && peer == origin
}
