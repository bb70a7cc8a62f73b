// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
)

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

// MaxScriptSize is the enforced upper bound on any single script or witness
// field decoded off the wire, per the codec contract's 10 MB cap.
const MaxScriptSize = 10 * 1024 * 1024

// binaryFreeList is a concurrency-safe free list of byte slices used to
// avoid the overhead of repeated allocations when reading/writing fixed
// size primitives from/to a Reader/Writer.
type binaryFreeList chan []byte

var binarySerializer binaryFreeList = make(chan []byte, 64)

func (l binaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-l:
	default:
		buf = make([]byte, 8)
	}
	return buf[:8]
}

func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
	}
}

func (l binaryFreeList) Uint8(r io.Reader) (uint8, error) {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (l binaryFreeList) Uint16(r io.Reader, byteOrder binary.ByteOrder) (uint16, error) {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return byteOrder.Uint16(buf), nil
}

func (l binaryFreeList) Uint32(r io.Reader, byteOrder binary.ByteOrder) (uint32, error) {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(buf), nil
}

func (l binaryFreeList) Uint64(r io.Reader, byteOrder binary.ByteOrder) (uint64, error) {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return byteOrder.Uint64(buf), nil
}

func (l binaryFreeList) PutUint8(w io.Writer, val uint8) error {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	buf[0] = val
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint16(w io.Writer, byteOrder binary.ByteOrder, val uint16) error {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	byteOrder.PutUint16(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint32(w io.Writer, byteOrder binary.ByteOrder, val uint32) error {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	byteOrder.PutUint32(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint64(w io.Writer, byteOrder binary.ByteOrder, val uint64) error {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	byteOrder.PutUint64(buf, val)
	_, err := w.Write(buf)
	return err
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64, using the standard 1/3/5/9-byte prefix scheme.
func ReadVarInt(r io.Reader, offset int) (uint64, int, error) {
	discriminant, err := binarySerializer.Uint8(r)
	if err != nil {
		return 0, 1, CodecError{Kind: ErrBadVarInt, Offset: offset, Detail: err.Error()}
	}

	var rv uint64
	consumed := 1
	switch discriminant {
	case 0xff:
		sv, err := binarySerializer.Uint64(r, binary.LittleEndian)
		if err != nil {
			return 0, consumed, CodecError{Kind: ErrBadVarInt, Offset: offset, Detail: err.Error()}
		}
		rv = sv
		consumed += 8

		if rv < 0x100000000 {
			return 0, consumed, CodecError{Kind: ErrBadVarInt, Offset: offset, Detail: "non-canonical varint"}
		}
	case 0xfe:
		sv, err := binarySerializer.Uint32(r, binary.LittleEndian)
		if err != nil {
			return 0, consumed, CodecError{Kind: ErrBadVarInt, Offset: offset, Detail: err.Error()}
		}
		rv = uint64(sv)
		consumed += 4

		if rv < 0x10000 {
			return 0, consumed, CodecError{Kind: ErrBadVarInt, Offset: offset, Detail: "non-canonical varint"}
		}
	case 0xfd:
		sv, err := binarySerializer.Uint16(r, binary.LittleEndian)
		if err != nil {
			return 0, consumed, CodecError{Kind: ErrBadVarInt, Offset: offset, Detail: err.Error()}
		}
		rv = uint64(sv)
		consumed += 2

		if rv < 0xfd {
			return 0, consumed, CodecError{Kind: ErrBadVarInt, Offset: offset, Detail: "non-canonical varint"}
		}
	default:
		rv = uint64(discriminant)
	}

	return rv, consumed, nil
}

// WriteVarInt serializes val to w using the variable length integer
// encoding.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		return binarySerializer.PutUint8(w, uint8(val))
	}

	if val <= 0xffff {
		if err := binarySerializer.PutUint8(w, 0xfd); err != nil {
			return err
		}
		return binarySerializer.PutUint16(w, binary.LittleEndian, uint16(val))
	}

	if val <= 0xffffffff {
		if err := binarySerializer.PutUint8(w, 0xfe); err != nil {
			return err
		}
		return binarySerializer.PutUint32(w, binary.LittleEndian, uint32(val))
	}

	if err := binarySerializer.PutUint8(w, 0xff); err != nil {
		return err
	}
	return binarySerializer.PutUint64(w, binary.LittleEndian, val)
}

// VarIntSerializeSize returns the number of bytes it would take to
// serialize val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	if val <= 0xffff {
		return 3
	}
	if val <= 0xffffffff {
		return 5
	}
	return 9
}

// ReadVarBytes reads a variable length byte array, failing the decode if the
// encoded length exceeds maxAllowed, matching the codec's oversize-field
// contract.
func ReadVarBytes(r io.Reader, offset int, maxAllowed uint64, fieldName string) ([]byte, int, error) {
	count, n, err := ReadVarInt(r, offset)
	if err != nil {
		return nil, n, err
	}
	if count > maxAllowed {
		return nil, n, CodecError{
			Kind:   ErrOversizeField,
			Offset: offset + n,
			Detail: fmt.Sprintf("%s exceeds max allowed size [count %d, max %d]", fieldName, count, maxAllowed),
		}
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, n, CodecError{Kind: ErrIO, Offset: offset + n, Detail: err.Error()}
	}
	return b, n + int(count), nil
}

// WriteVarBytes serializes a variable length byte array to w.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// uint32Time represents a unix timestamp encoded with a uint32 on the wire,
// matching the codec's 2106-limited timestamp fields.
type uint32Time time.Time

func readUint32Time(r io.Reader) (time.Time, error) {
	sec, err := binarySerializer.Uint32(r, binary.LittleEndian)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(sec), 0), nil
}

func writeUint32Time(w io.Writer, t time.Time) error {
	return binarySerializer.PutUint32(w, binary.LittleEndian, uint32(t.Unix()))
}

// readHash reads a fixed 32-byte hash from r in its on-the-wire byte order.
func readHash(r io.Reader, h *chainhash.Hash) error {
	_, err := io.ReadFull(r, h[:])
	return err
}

func writeHash(w io.Writer, h *chainhash.Hash) error {
	_, err := w.Write(h[:])
	return err
}

// doubleSHA256 double-hashes b and returns the full digest (not reversed).
func doubleSHA256(b []byte) chainhash.Hash {
	return chainhash.DoubleHashH(b)
}
