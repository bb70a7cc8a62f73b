// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// NetAddress defines a peer on the network, as advertised in version and
// addr messages.
type NetAddress struct {
	Timestamp time.Time
	Services  ServiceFlag
	IP        net.IP
	Port      uint16
}

func readNetAddress(r io.Reader, na *NetAddress, hasTimestamp bool) error {
	if hasTimestamp {
		ts, err := readUint32Time(r)
		if err != nil {
			return CodecError{Kind: ErrIO, Detail: err.Error()}
		}
		na.Timestamp = ts
	}

	services, err := binarySerializer.Uint64(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	na.Services = ServiceFlag(services)

	var ip [16]byte
	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	na.IP = net.IP(ip[:])

	port, err := binarySerializer.Uint16(r, binary.BigEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	na.Port = port
	return nil
}

func writeNetAddress(w io.Writer, na *NetAddress, hasTimestamp bool) error {
	if hasTimestamp {
		if err := writeUint32Time(w, na.Timestamp); err != nil {
			return err
		}
	}

	if err := binarySerializer.PutUint64(w, binary.LittleEndian, uint64(na.Services)); err != nil {
		return err
	}

	var ip [16]byte
	if ip4 := na.IP.To4(); ip4 != nil {
		copy(ip[:], []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff})
		copy(ip[12:], ip4)
	} else if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	return binarySerializer.PutUint16(w, binary.BigEndian, na.Port)
}

func (na *NetAddress) String() string {
	return fmt.Sprintf("%s:%d", na.IP, na.Port)
}
