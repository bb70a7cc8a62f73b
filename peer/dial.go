// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"net"

	"github.com/btcsuite/go-socks/socks"
)

// dial opens addr directly, or through a SOCKS5 proxy at proxyAddr if one
// is configured. This is transport-layer only: it has no effect on the
// handshake state machine that follows.
func dial(ctx context.Context, proxyAddr, addr string) (net.Conn, error) {
	if proxyAddr == "" {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}

	proxy := &socks.Proxy{Addr: proxyAddr}
	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := proxy.Dial("tcp", addr)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case res := <-resultCh:
		return res.conn, res.err
	case <-ctx.Done():
		// The dial above keeps running in the background until it
		// times out on its own side; we simply stop waiting on it.
		return nil, ctx.Err()
	}
}
