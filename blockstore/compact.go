// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ltcsuite/ltcspv/wire"
)

// CompactSize is the length in bytes of a StoredBlock's on-disk form: a
// 12-byte big-endian chainWork, a 4-byte big-endian height, and the
// 80-byte header.
const CompactSize = 12 + 4 + wire.MaxBlockHeaderPayload

// ErrChainWorkOverflow is returned by EncodeCompact when ChainWork does not
// fit in 96 bits, which should never happen at any height reachable before
// the heat death of the universe but is checked anyway since a corrupt
// value here would silently truncate.
var ErrChainWorkOverflow = errors.New("blockstore: chainWork exceeds 96 bits")

// EncodeCompact serializes a StoredBlock to its 96-byte on-disk form.
func EncodeCompact(b *StoredBlock) ([]byte, error) {
	out := make([]byte, CompactSize)

	workBytes := b.ChainWork.Bytes()
	if len(workBytes) > 12 {
		return nil, ErrChainWorkOverflow
	}
	copy(out[12-len(workBytes):12], workBytes)

	binary.BigEndian.PutUint32(out[12:16], uint32(b.Height))

	buf := bytes.NewBuffer(out[16:16])
	if err := b.Header.Serialize(buf); err != nil {
		return nil, err
	}
	copy(out[16:], buf.Bytes())

	return out, nil
}

// DecodeCompact parses a 96-byte on-disk record back into a StoredBlock.
func DecodeCompact(data []byte) (*StoredBlock, error) {
	if len(data) != CompactSize {
		return nil, errors.New("blockstore: compact record has wrong length")
	}

	chainWork := new(big.Int).SetBytes(data[:12])
	height := int32(binary.BigEndian.Uint32(data[12:16]))

	var header wire.BlockHeader
	if err := header.Deserialize(bytes.NewReader(data[16:])); err != nil {
		return nil, err
	}

	return &StoredBlock{
		Header:    header,
		ChainWork: chainWork,
		Height:    height,
	}, nil
}
