// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package checkpoints parses and verifies the signed checkpoint bundles a
// new client seeds its BlockStore from, so it can skip downloading and
// validating headers all the way back to genesis.
package checkpoints

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/ltcsuite/ltcspv/blockstore"
)

// binaryMagic is the fixed prefix identifying a binary-format bundle.
const binaryMagic = "CHECKPOINTS 1"

// textMagic is the fixed first line of a textual-format bundle.
const textMagic = "TXT CHECKPOINTS 1"

// maxSignatures bounds numSignatures in either format.
const maxSignatures = 256

// signatureSize is the length in bytes of one compact recoverable ECDSA
// signature: a 1-byte recovery id followed by 32-byte r and 32-byte s.
const signatureSize = 65

// ErrMalformedBundle is returned when a bundle doesn't match either format's
// grammar.
var ErrMalformedBundle = errors.New("checkpoints: malformed bundle")

// ErrTooManySignatures is returned when numSignatures exceeds maxSignatures.
var ErrTooManySignatures = errors.New("checkpoints: numSignatures exceeds 256")

// ErrNoCheckpoints is returned when numCheckpoints is zero.
var ErrNoCheckpoints = errors.New("checkpoints: bundle has zero checkpoints")

// ErrUnsupportedOperation is returned by SeedStore when store is nil.
// SeedStore does not inspect what kind of store it is given, so a store
// with full-node (non-SPV) semantics is not rejected.
var ErrUnsupportedOperation = errors.New("checkpoints: store does not support checkpoint seeding")

// Bundle is a parsed, not-yet-verified checkpoint file: the raw signatures
// alongside the checkpoint records they cover and the hash those
// signatures were computed over.
type Bundle struct {
	Signatures  [][]byte
	Checkpoints []*blockstore.StoredBlock
	SignedHash  [32]byte
}

// ParseBinary parses the binary bundle format: ASCII magic, BE u32
// numSignatures, that many 65-byte signatures, BE u32 numCheckpoints, that
// many 96-byte compact StoredBlock records.
func ParseBinary(r io.Reader) (*Bundle, error) {
	magic := make([]byte, len(binaryMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, ErrMalformedBundle
	}
	if string(magic) != binaryMagic {
		return nil, ErrMalformedBundle
	}

	var numSignatures uint32
	if err := binary.Read(r, binary.BigEndian, &numSignatures); err != nil {
		return nil, ErrMalformedBundle
	}
	if numSignatures > maxSignatures {
		return nil, ErrTooManySignatures
	}

	sigs := make([][]byte, numSignatures)
	for i := range sigs {
		sig := make([]byte, signatureSize)
		if _, err := io.ReadFull(r, sig); err != nil {
			return nil, ErrMalformedBundle
		}
		sigs[i] = sig
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrMalformedBundle
	}
	if len(rest) < 4 {
		return nil, ErrMalformedBundle
	}

	numCheckpoints := binary.BigEndian.Uint32(rest[:4])
	if numCheckpoints == 0 {
		return nil, ErrNoCheckpoints
	}

	records := rest[4:]
	if len(records) != int(numCheckpoints)*blockstore.CompactSize {
		return nil, ErrMalformedBundle
	}

	checkpoints := make([]*blockstore.StoredBlock, numCheckpoints)
	for i := range checkpoints {
		start := i * blockstore.CompactSize
		sb, err := blockstore.DecodeCompact(records[start : start+blockstore.CompactSize])
		if err != nil {
			return nil, ErrMalformedBundle
		}
		checkpoints[i] = sb
	}

	return &Bundle{
		Signatures:  sigs,
		Checkpoints: checkpoints,
		SignedHash:  sha256.Sum256(rest),
	}, nil
}

// ParseText parses the textual bundle format, which mirrors the binary
// format line by line so it hashes over the exact same bytes
// (BE(numCheckpoints) || concat(records)) and therefore verifies against
// the same signatures.
func ParseText(r io.Reader) (*Bundle, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	readLine := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return scanner.Text(), nil
	}

	magic, err := readLine()
	if err != nil || magic != textMagic {
		return nil, ErrMalformedBundle
	}

	numSigLine, err := readLine()
	if err != nil {
		return nil, ErrMalformedBundle
	}
	numSignatures, err := strconv.ParseUint(numSigLine, 10, 32)
	if err != nil {
		return nil, ErrMalformedBundle
	}
	if numSignatures > maxSignatures {
		return nil, ErrTooManySignatures
	}

	sigs := make([][]byte, numSignatures)
	for i := range sigs {
		line, err := readLine()
		if err != nil {
			return nil, ErrMalformedBundle
		}
		sig, err := base64.StdEncoding.DecodeString(line)
		if err != nil || len(sig) != signatureSize {
			return nil, ErrMalformedBundle
		}
		sigs[i] = sig
	}

	numCpLine, err := readLine()
	if err != nil {
		return nil, ErrMalformedBundle
	}
	numCheckpoints, err := strconv.ParseUint(numCpLine, 10, 32)
	if err != nil {
		return nil, ErrMalformedBundle
	}
	if numCheckpoints == 0 {
		return nil, ErrNoCheckpoints
	}

	checkpoints := make([]*blockstore.StoredBlock, numCheckpoints)
	records := make([]byte, 0, int(numCheckpoints)*blockstore.CompactSize)
	for i := range checkpoints {
		line, err := readLine()
		if err != nil {
			return nil, ErrMalformedBundle
		}
		record, err := base64.StdEncoding.DecodeString(line)
		if err != nil || len(record) != blockstore.CompactSize {
			return nil, ErrMalformedBundle
		}
		sb, err := blockstore.DecodeCompact(record)
		if err != nil {
			return nil, ErrMalformedBundle
		}
		checkpoints[i] = sb
		records = append(records, record...)
	}

	var countBE [4]byte
	binary.BigEndian.PutUint32(countBE[:], uint32(numCheckpoints))
	signedBytes := append(append([]byte{}, countBE[:]...), records...)

	return &Bundle{
		Signatures:  sigs,
		Checkpoints: checkpoints,
		SignedHash:  sha256.Sum256(signedBytes),
	}, nil
}

// VerifySignatures checks each of the bundle's signatures against the
// compiled-in maintainer keys, returning the count that recovered to a
// known key. A signature that doesn't match any key is simply not
// counted — bundles may carry signatures from a rotated-out key without
// the bundle as a whole being invalid, as long as enough current
// signatures remain.
func (b *Bundle) VerifySignatures(maintainerKeys []MaintainerKey) (valid int) {
	for _, sig := range b.Signatures {
		pubKey, _, err := ecdsa.RecoverCompact(sig, b.SignedHash[:])
		if err != nil {
			continue
		}
		for _, mk := range maintainerKeys {
			if bytes.Equal(pubKey.SerializeCompressed(), mk.SerializeCompressed()) {
				valid++
				break
			}
		}
	}
	return valid
}

// String renders a compact human-readable summary, useful in logs.
func (b *Bundle) String() string {
	return fmt.Sprintf("Bundle{sigs=%d, checkpoints=%d}", len(b.Signatures), len(b.Checkpoints))
}
