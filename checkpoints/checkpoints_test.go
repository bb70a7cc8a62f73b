// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package checkpoints_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"math/big"
	"strconv"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/ltcsuite/ltcspv/blockstore"
	"github.com/ltcsuite/ltcspv/checkpoints"
	"github.com/ltcsuite/ltcspv/wire"
)

func recordFor(t time.Time, height int32, work int64) []byte {
	sb := &blockstore.StoredBlock{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: t,
			Bits:      0x1e0ffff0,
		},
		ChainWork: big.NewInt(work),
		Height:    height,
	}
	data, err := blockstore.EncodeCompact(sb)
	if err != nil {
		panic(err)
	}
	return data
}

func buildSignedBinaryBundle(t *testing.T, records [][]byte, key *secp256k1.PrivateKey) []byte {
	t.Helper()

	var body bytes.Buffer
	var countBE [4]byte
	binary.BigEndian.PutUint32(countBE[:], uint32(len(records)))
	body.Write(countBE[:])
	for _, r := range records {
		body.Write(r)
	}

	hash := sha256.Sum256(body.Bytes())
	sig := ecdsa.SignCompact(key, hash[:], true)

	var out bytes.Buffer
	out.WriteString("CHECKPOINTS 1")
	var numSigBE [4]byte
	binary.BigEndian.PutUint32(numSigBE[:], 1)
	out.Write(numSigBE[:])
	out.Write(sig)
	out.Write(body.Bytes())

	return out.Bytes()
}

func TestParseBinaryAndVerify(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}

	r1 := recordFor(time.Unix(1000, 0), 0, 1)
	r2 := recordFor(time.Unix(2000, 0), 2016, 2)
	raw := buildSignedBinaryBundle(t, [][]byte{r1, r2}, key)

	bundle, err := checkpoints.ParseBinary(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseBinary: %v", err)
	}
	if len(bundle.Checkpoints) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(bundle.Checkpoints))
	}

	valid := bundle.VerifySignatures([]checkpoints.MaintainerKey{key.PubKey()})
	if valid != 1 {
		t.Fatalf("expected 1 valid signature, got %d", valid)
	}
}

func TestVerifySignaturesRejectsUnknownKey(t *testing.T) {
	key, _ := secp256k1.GeneratePrivateKey()
	other, _ := secp256k1.GeneratePrivateKey()

	r1 := recordFor(time.Unix(1000, 0), 0, 1)
	raw := buildSignedBinaryBundle(t, [][]byte{r1}, key)

	bundle, err := checkpoints.ParseBinary(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseBinary: %v", err)
	}

	valid := bundle.VerifySignatures([]checkpoints.MaintainerKey{other.PubKey()})
	if valid != 0 {
		t.Fatalf("expected 0 valid signatures against the wrong key, got %d", valid)
	}
}

func TestParseTextMatchesBinaryHash(t *testing.T) {
	key, _ := secp256k1.GeneratePrivateKey()
	r1 := recordFor(time.Unix(1000, 0), 0, 1)
	r2 := recordFor(time.Unix(2000, 0), 2016, 2)

	raw := buildSignedBinaryBundle(t, [][]byte{r1, r2}, key)
	binBundle, err := checkpoints.ParseBinary(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseBinary: %v", err)
	}

	var text bytes.Buffer
	text.WriteString("TXT CHECKPOINTS 1\n")
	text.WriteString(strconv.Itoa(len(binBundle.Signatures)) + "\n")
	for _, sig := range binBundle.Signatures {
		text.WriteString(base64.StdEncoding.EncodeToString(sig) + "\n")
	}
	text.WriteString(strconv.Itoa(len(binBundle.Checkpoints)) + "\n")
	for _, r := range [][]byte{r1, r2} {
		text.WriteString(base64.StdEncoding.EncodeToString(r) + "\n")
	}

	textBundle, err := checkpoints.ParseText(&text)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}

	if textBundle.SignedHash != binBundle.SignedHash {
		t.Fatalf("text and binary bundle hashes must match: %x vs %x",
			textBundle.SignedHash, binBundle.SignedHash)
	}
}

func TestGetCheckpointBeforeFallsBackAcrossTime(t *testing.T) {
	key, _ := secp256k1.GeneratePrivateKey()
	r1 := recordFor(time.Unix(1000, 0), 0, 1)
	r2 := recordFor(time.Unix(5000, 0), 2016, 2)
	raw := buildSignedBinaryBundle(t, [][]byte{r1, r2}, key)

	bundle, err := checkpoints.ParseBinary(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseBinary: %v", err)
	}
	mgr, err := checkpoints.NewManager(bundle, []checkpoints.MaintainerKey{key.PubKey()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	before := mgr.GetCheckpointBefore(time.Unix(2000, 0))
	if before == nil || before.Height != 0 {
		t.Fatalf("expected the height-0 checkpoint, got %+v", before)
	}

	none := mgr.GetCheckpointBefore(time.Unix(500, 0))
	if none != nil {
		t.Fatalf("expected nil for a time before every checkpoint, got %+v", none)
	}

	pair := mgr.GetCheckpointsBefore(time.Unix(5000, 0))
	if len(pair) != 2 || pair[0].Height != 0 || pair[1].Height != 2016 {
		t.Fatalf("unexpected checkpoint pair: %+v", pair)
	}
}

func TestNewManagerRejectsUnsignedBundle(t *testing.T) {
	key, _ := secp256k1.GeneratePrivateKey()
	other, _ := secp256k1.GeneratePrivateKey()
	r1 := recordFor(time.Unix(1000, 0), 0, 1)
	raw := buildSignedBinaryBundle(t, [][]byte{r1}, key)

	bundle, err := checkpoints.ParseBinary(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseBinary: %v", err)
	}

	if _, err := checkpoints.NewManager(bundle, []checkpoints.MaintainerKey{other.PubKey()}); err != checkpoints.ErrNoValidSignatures {
		t.Fatalf("expected ErrNoValidSignatures, got %v", err)
	}
}
