// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package checkpoints

import (
	"errors"
	"sort"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/ltcsuite/ltcspv/blockstore"
)

// MaintainerKey is a compressed secp256k1 public key a checkpoint bundle's
// signatures are checked against.
type MaintainerKey = *secp256k1.PublicKey

// ParseMaintainerKey decodes a compressed or uncompressed serialized public
// key into a MaintainerKey.
func ParseMaintainerKey(serialized []byte) (MaintainerKey, error) {
	return secp256k1.ParsePubKey(serialized)
}

// ErrNoValidSignatures is returned when a bundle carries zero signatures
// that recover to any compiled-in maintainer key.
var ErrNoValidSignatures = errors.New("checkpoints: bundle has no valid signatures")

// Manager holds a verified bundle's checkpoints, sorted by height, and
// answers the height/time lookups ChainEngine needs to seed a fresh store.
type Manager struct {
	checkpoints []*blockstore.StoredBlock
}

// NewManager verifies bundle against maintainerKeys and returns a Manager
// over its checkpoints sorted by height. Returns ErrNoValidSignatures if no
// signature recovers to a known key.
func NewManager(bundle *Bundle, maintainerKeys []MaintainerKey) (*Manager, error) {
	if bundle.VerifySignatures(maintainerKeys) == 0 {
		return nil, ErrNoValidSignatures
	}

	sorted := make([]*blockstore.StoredBlock, len(bundle.Checkpoints))
	copy(sorted, bundle.Checkpoints)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Height < sorted[j].Height
	})

	return &Manager{checkpoints: sorted}, nil
}

// GetCheckpointBefore returns the latest checkpoint with header time no
// later than t, or nil if every checkpoint is after t (the caller should
// fall back to genesis in that case).
func (m *Manager) GetCheckpointBefore(t time.Time) *blockstore.StoredBlock {
	var latest *blockstore.StoredBlock
	for _, cp := range m.checkpoints {
		if cp.Header.Timestamp.After(t) {
			break
		}
		latest = cp
	}
	return latest
}

// GetCheckpointsBefore returns [predecessor, latest]: the checkpoint
// immediately before the latest one not after t, plus the latest itself.
// Litecoin's difficulty retarget at height H consults the header at
// H-interval (not H-(interval-1) as Bitcoin does), so a fresh store needs
// both checkpoints to be immediately usable for the next retarget after
// seeding. Returns a shorter slice if fewer than two checkpoints qualify.
func (m *Manager) GetCheckpointsBefore(t time.Time) []*blockstore.StoredBlock {
	var idx = -1
	for i, cp := range m.checkpoints {
		if cp.Header.Timestamp.After(t) {
			break
		}
		idx = i
	}
	if idx < 0 {
		return nil
	}
	if idx == 0 {
		return []*blockstore.StoredBlock{m.checkpoints[0]}
	}
	return []*blockstore.StoredBlock{m.checkpoints[idx-1], m.checkpoints[idx]}
}

// SeedStore subtracts 7 days from t to tolerate clock drift, then inserts
// into store the checkpoints GetCheckpointsBefore returns for the adjusted
// time (at most two) and sets the later one as head. Returns ErrUnsupportedOperation if store is nil —
// checkpoint seeding is an SPV-only shortcut; this module has no
// full-pruned store implementation to reject here, since it never builds
// a full validating node, but callers wrapping a foreign BlockStore that
// represents one should reject before calling SeedStore at all.
func SeedStore(bundle *Bundle, maintainerKeys []MaintainerKey, store blockstore.BlockStore, t time.Time) error {
	if store == nil {
		return ErrUnsupportedOperation
	}

	mgr, err := NewManager(bundle, maintainerKeys)
	if err != nil {
		return err
	}

	adjusted := t.Add(-7 * 24 * time.Hour)
	pair := mgr.GetCheckpointsBefore(adjusted)
	if len(pair) == 0 {
		return ErrNoCheckpoints
	}

	for _, cp := range pair {
		if err := store.Put(cp); err != nil {
			return err
		}
	}

	return store.SetChainHead(pair[len(pair)-1])
}
