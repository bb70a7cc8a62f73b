// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/wire"
)

// GetHeaders requests headers starting after the most recent hash in
// locatorHashes that the remote recognizes, stopping at hashStop (the zero
// hash requests as many as the remote is willing to send, up to
// wire.MaxHeadersPerMsg). Multiple GetHeaders calls may be outstanding on
// one connection at once; replies are matched to requests in FIFO order,
// since getheaders carries no correlation nonce and a compliant peer
// answers in the order it received requests.
func (p *Peer) GetHeaders(ctx context.Context, locatorHashes []*chainhash.Hash, hashStop chainhash.Hash) (*wire.MsgHeaders, error) {
	if p.State() != StateReady {
		return nil, Error{Kind: Closed, Detail: "not ready"}
	}

	ch := p.pending.registerHeaders()
	msg := &wire.MsgGetHeaders{HashStop: hashStop}
	for _, h := range locatorHashes {
		if err := msg.AddBlockLocatorHash(h); err != nil {
			p.pending.forgetHeaders(ch)
			return nil, err
		}
	}
	if err := p.Send(msg); err != nil {
		p.pending.forgetHeaders(ch)
		return nil, err
	}

	timer := time.NewTimer(pendingTimeout)
	defer timer.Stop()

	select {
	case headers, ok := <-ch:
		if !ok {
			return nil, Error{Kind: Closed, Detail: "connection closed while waiting"}
		}
		return headers, nil
	case <-timer.C:
		p.pending.forgetHeaders(ch)
		return nil, Error{Kind: PeerTimeout, Detail: "getheaders timed out"}
	case <-ctx.Done():
		p.pending.forgetHeaders(ch)
		return nil, Error{Kind: Cancelled, Detail: ctx.Err().Error()}
	case <-p.quitCh:
		return nil, Error{Kind: Closed, Detail: "connection closed"}
	}
}
