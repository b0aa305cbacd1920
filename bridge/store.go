// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"github.com/luxfi/database"
	"github.com/luxfi/ids"
)

var guidPrefix = []byte("guid:")

// GuidStore is the persisted set of applied instruction guids. It is the
// exactly-once proof: the transport may redeliver, reorder, or duplicate,
// but a guid present here is never applied again, across restarts included.
type GuidStore struct {
	db database.Database
}

// NewGuidStore wraps a key-value database as a guid set.
func NewGuidStore(db database.Database) *GuidStore {
	return &GuidStore{db: db}
}

// Processed reports whether guid has already been applied.
func (s *GuidStore) Processed(guid ids.ID) (bool, error) {
	return s.db.Has(guidKey(guid))
}

// Mark records guid as applied.
func (s *GuidStore) Mark(guid ids.ID) error {
	return s.db.Put(guidKey(guid), []byte{1})
}

func guidKey(guid ids.ID) []byte {
	key := make([]byte, 0, len(guidPrefix)+len(guid))
	key = append(key, guidPrefix...)
	return append(key, guid[:]...)
}
