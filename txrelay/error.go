// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txrelay

import "fmt"

// Kind identifies why a Tracker operation failed.
type Kind int

const (
	// NoDownloadPeer means an operation needed the elected download
	// peer and none is currently elected.
	NoDownloadPeer Kind = iota

	// NotTracked means Status was asked about a txid Submit was never
	// called for (or that has since been Forgotten).
	NotTracked
)

func (k Kind) String() string {
	switch k {
	case NoDownloadPeer:
		return "no download peer"
	case NotTracked:
		return "not tracked"
	default:
		return "unknown"
	}
}

// Error is returned by Tracker operations that fail for a reason a caller
// may want to branch on.
type Error struct {
	Kind   Kind
	Detail string
}

func (e Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("txrelay: %s", e.Kind)
	}
	return fmt.Sprintf("txrelay: %s: %s", e.Kind, e.Detail)
}
