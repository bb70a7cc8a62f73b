// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "fmt"

// ErrorKind identifies a class of codec failure, matching the taxonomy in
// the error handling design: bad framing, bad varint, oversized field.
type ErrorKind int

const (
	// ErrBadMagic indicates the stream did not resync on the network magic
	// within the resync scan window.
	ErrBadMagic ErrorKind = iota

	// ErrBadCommand indicates a command string was not valid ASCII or was
	// missing its NUL padding.
	ErrBadCommand

	// ErrBadChecksum indicates the payload checksum did not match the
	// header.
	ErrBadChecksum

	// ErrBadVarInt indicates a malformed or non-canonical variable length
	// integer.
	ErrBadVarInt

	// ErrOversizeField indicates a length-prefixed field exceeded its
	// maximum allowed size.
	ErrOversizeField

	// ErrUnknownMessage indicates the command does not map to a known
	// message type.
	ErrUnknownMessage

	// ErrIO indicates the underlying reader/writer failed.
	ErrIO
)

func (k ErrorKind) String() string {
	switch k {
	case ErrBadMagic:
		return "bad magic"
	case ErrBadCommand:
		return "bad command"
	case ErrBadChecksum:
		return "bad checksum"
	case ErrBadVarInt:
		return "bad varint"
	case ErrOversizeField:
		return "oversize field"
	case ErrUnknownMessage:
		return "unknown message"
	case ErrIO:
		return "io error"
	default:
		return "unknown codec error"
	}
}

// CodecError is returned by ReadMessage and the message decoders when a
// message is malformed. Offset is the byte offset within the current
// message (payload-relative) at which the problem was detected, not an
// offset into the whole connection stream. ReadMessage returns no message
// alongside a CodecError; a message's BtcDecode may already have set some
// of its fields when it fails.
type CodecError struct {
	Kind   ErrorKind
	Offset int
	Detail string
}

func (e CodecError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("codec error: %s at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("codec error: %s at offset %d: %s", e.Kind, e.Offset, e.Detail)
}

// messageError creates a CodecError for a message-specific encode/decode
// failure unrelated to framing.
func messageError(kind ErrorKind, op, detail string) error {
	return CodecError{Kind: kind, Detail: op + ": " + detail}
}
