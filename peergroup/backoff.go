// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peergroup

import "time"

const (
	backoffInitial = 1 * time.Second
	backoffMax     = 5 * time.Minute
)

// backoffState tracks the reconnection delay for one remote address.
type backoffState struct {
	next    time.Duration
	readyAt time.Time // address may be dialed again once time.Now() is at or after this
}

// recordBackoff doubles addr's delay (capped at backoffMax) and schedules
// its next eligible dial time, called whenever a dial of addr fails or a
// connection to addr ends, whether or not it had reached Ready.
func (g *PeerGroup) recordBackoff(addr string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.backoff[addr]
	if !ok {
		b = &backoffState{next: backoffInitial}
		g.backoff[addr] = b
	} else {
		b.next *= 2
		if b.next > backoffMax {
			b.next = backoffMax
		}
	}
	b.readyAt = time.Now().Add(b.next)
}

// resetBackoff clears addr's delay, called once it reaches Ready.
func (g *PeerGroup) resetBackoff(addr string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.backoff, addr)
}

// backoffReady reports whether addr is past its scheduled retry time (or
// was never backed off).
func (g *PeerGroup) backoffReady(addr string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.backoff[addr]
	if !ok {
		return true
	}
	return !time.Now().Before(b.readyAt)
}
