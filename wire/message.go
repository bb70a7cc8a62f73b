// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// CommandSize is the fixed size in bytes of a message command field, ASCII
// text NUL-padded to this length.
const CommandSize = 12

// MaxPayloadSize is the absolute ceiling on a message payload regardless of
// message type, guarding against a corrupt or hostile length field before
// any type-specific bound is applied.
const MaxPayloadSize = 32 * 1024 * 1024

// Message command strings.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdAddr        = "addr"
	CmdInv         = "inv"
	CmdGetData     = "getdata"
	CmdNotFound    = "notfound"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
	CmdTx          = "tx"
	CmdBlock       = "block"
	CmdMemPool     = "mempool"
	CmdFilterLoad  = "filterload"
	CmdFilterAdd   = "filteradd"
	CmdFilterClear = "filterclear"
	CmdReject      = "reject"
)

// Message is implemented by every wire protocol message type. Command
// reports the fixed command string used in the message header;
// MaxPayloadLength bounds the payload this message type will accept at the
// given protocol version, before any field-level bound is applied.
type Message interface {
	BtcDecode(r io.Reader, pver uint32) error
	BtcEncode(w io.Writer, pver uint32) error
	Command() string
	MaxPayloadLength(pver uint32) uint32
}

// messageHeader is the header every message is framed with:
// [magic:4][command:12][length:4][checksum:4].
type messageHeader struct {
	magic    BitcoinNet
	command  string
	length   uint32
	checksum [4]byte
}

const messageHeaderLength = 4 + CommandSize + 4 + 4

func makeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdPong:
		return &MsgPong{}, nil
	case CmdAddr:
		return &MsgAddr{}, nil
	case CmdInv:
		return &MsgInv{}, nil
	case CmdGetData:
		return &MsgGetData{}, nil
	case CmdNotFound:
		return &MsgNotFound{}, nil
	case CmdGetHeaders:
		return &MsgGetHeaders{}, nil
	case CmdHeaders:
		return &MsgHeaders{}, nil
	case CmdTx:
		return &MsgTx{}, nil
	case CmdBlock:
		return &MsgBlock{}, nil
	case CmdMemPool:
		return &MsgMemPool{}, nil
	case CmdFilterLoad:
		return &MsgFilterLoad{}, nil
	case CmdFilterAdd:
		return &MsgFilterAdd{}, nil
	case CmdFilterClear:
		return &MsgFilterClear{}, nil
	case CmdReject:
		return &MsgReject{}, nil
	default:
		return nil, CodecError{Kind: ErrUnknownMessage, Detail: command}
	}
}

// encodeCommand writes the fixed 12-byte, NUL-padded command string.
func encodeCommand(command string) ([CommandSize]byte, error) {
	var buf [CommandSize]byte
	if len(command) > CommandSize {
		return buf, messageError(ErrBadCommand, "encodeCommand",
			fmt.Sprintf("command %q exceeds %d bytes", command, CommandSize))
	}
	copy(buf[:], command)
	return buf, nil
}

func decodeCommand(buf [CommandSize]byte) (string, error) {
	end := 0
	for end < CommandSize && buf[end] != 0 {
		end++
	}
	for i := end; i < CommandSize; i++ {
		if buf[i] != 0 {
			return "", CodecError{Kind: ErrBadCommand, Detail: "missing NUL padding"}
		}
	}
	return string(buf[:end]), nil
}

// WriteMessage serializes and frames msg to w for the given network magic
// and protocol version: [magic][command][length][checksum][payload].
func WriteMessage(w io.Writer, msg Message, pver uint32, btcnet BitcoinNet) error {
	var payloadBuf bytes.Buffer
	if err := msg.BtcEncode(&payloadBuf, pver); err != nil {
		return err
	}
	payload := payloadBuf.Bytes()
	lenp := len(payload)

	cmdBytes, err := encodeCommand(msg.Command())
	if err != nil {
		return err
	}

	maxPayload := msg.MaxPayloadLength(pver)
	if uint32(lenp) > maxPayload {
		return messageError(ErrOversizeField, "WriteMessage",
			fmt.Sprintf("message payload is too large - encoded %d bytes, but maximum message payload is %d bytes", lenp, maxPayload))
	}

	var hdrBuf bytes.Buffer
	if err := binary.Write(&hdrBuf, binary.LittleEndian, uint32(btcnet)); err != nil {
		return err
	}
	if _, err := hdrBuf.Write(cmdBytes[:]); err != nil {
		return err
	}
	if err := binary.Write(&hdrBuf, binary.LittleEndian, uint32(lenp)); err != nil {
		return err
	}
	checksum := chainChecksum(payload)
	if _, err := hdrBuf.Write(checksum[:]); err != nil {
		return err
	}

	if _, err := w.Write(hdrBuf.Bytes()); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

func chainChecksum(payload []byte) [4]byte {
	h := doubleSHA256(payload)
	var sum [4]byte
	copy(sum[:], h[:4])
	return sum
}

// ReadMessageHeader reads and validates a message header from r, resyncing
// on the network magic first: bytes are discarded one at a time until four
// consecutive bytes match btcnet's magic, per the framing contract's
// resync-on-magic requirement. It returns the number of bytes discarded
// before resync, for diagnostics.
func ReadMessageHeader(r io.Reader, btcnet BitcoinNet) (messageHeader, int, error) {
	var want [4]byte
	binary.LittleEndian.PutUint32(want[:], uint32(btcnet))

	var window [4]byte
	if _, err := io.ReadFull(r, window[:]); err != nil {
		return messageHeader{}, 0, CodecError{Kind: ErrIO, Detail: err.Error()}
	}

	discarded := 0
	one := make([]byte, 1)
	for window != want {
		copy(window[:3], window[1:])
		if _, err := io.ReadFull(r, one); err != nil {
			return messageHeader{}, discarded, CodecError{Kind: ErrIO, Detail: err.Error()}
		}
		window[3] = one[0]
		discarded++

		if discarded > 24*1024*1024 {
			return messageHeader{}, discarded, CodecError{Kind: ErrBadMagic, Detail: "resync window exceeded without finding magic"}
		}
	}

	var cmdBuf [CommandSize]byte
	if _, err := io.ReadFull(r, cmdBuf[:]); err != nil {
		return messageHeader{}, discarded, CodecError{Kind: ErrIO, Offset: 4, Detail: err.Error()}
	}
	command, err := decodeCommand(cmdBuf)
	if err != nil {
		return messageHeader{}, discarded, err
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return messageHeader{}, discarded, CodecError{Kind: ErrIO, Offset: 4 + CommandSize, Detail: err.Error()}
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])

	var checksum [4]byte
	if _, err := io.ReadFull(r, checksum[:]); err != nil {
		return messageHeader{}, discarded, CodecError{Kind: ErrIO, Offset: 4 + CommandSize + 4, Detail: err.Error()}
	}

	return messageHeader{
		magic:    btcnet,
		command:  command,
		length:   length,
		checksum: checksum,
	}, discarded, nil
}

// ReadMessage reads, resyncs, validates the checksum of, and decodes the
// next message from r. On a CodecError the returned Message is always nil
// and no partial value is produced; the caller should resync by calling
// ReadMessage again (framing has already discarded bytes up to the next
// magic candidate).
func ReadMessage(r io.Reader, pver uint32, btcnet BitcoinNet) (Message, []byte, error) {
	hdr, _, err := ReadMessageHeader(r, btcnet)
	if err != nil {
		return nil, nil, err
	}

	if hdr.length > MaxPayloadSize {
		return nil, nil, CodecError{Kind: ErrOversizeField, Offset: 4 + CommandSize,
			Detail: fmt.Sprintf("payload length %d exceeds max %d", hdr.length, MaxPayloadSize)}
	}

	payload := make([]byte, hdr.length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, CodecError{Kind: ErrIO, Detail: err.Error()}
	}

	checksum := chainChecksum(payload)
	if checksum != hdr.checksum {
		return nil, nil, CodecError{Kind: ErrBadChecksum,
			Detail: fmt.Sprintf("command %q: checksum mismatch", hdr.command)}
	}

	msg, err := makeEmptyMessage(hdr.command)
	if err != nil {
		return nil, payload, err
	}

	if uint32(len(payload)) > msg.MaxPayloadLength(pver) {
		return nil, payload, CodecError{Kind: ErrOversizeField,
			Detail: fmt.Sprintf("command %q: payload exceeds max allowed for type", hdr.command)}
	}

	if err := msg.BtcDecode(bytes.NewReader(payload), pver); err != nil {
		return nil, payload, err
	}
	return msg, payload, nil
}
