// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainengine

import (
	"bytes"

	"golang.org/x/crypto/scrypt"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/wire"
)

// Litecoin's original proof-of-work function parameters: N=1024, r=1, p=1,
// 32-byte output, header bytes used as both password and salt.
const (
	scryptN      = 1024
	scryptR      = 1
	scryptP      = 1
	scryptKeyLen = 32
)

// ScryptHash returns the scrypt digest of header's canonical 80-byte
// serialization, the value real Litecoin miners and full nodes historically
// compare against the target. AddHeader never consults this: this
// engine's proof-of-work check uses the double-SHA256 BlockHash per spec
// §3, and ScryptHash exists only so logs and diagnostics can display the
// same hash a block explorer or full node would show for the same header.
func ScryptHash(header *wire.BlockHeader) (chainhash.Hash, error) {
	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		return chainhash.Hash{}, err
	}

	digest, err := scrypt.Key(buf.Bytes(), buf.Bytes(), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return chainhash.Hash{}, err
	}

	var hash chainhash.Hash
	copy(hash[:], digest)
	return hash, nil
}
