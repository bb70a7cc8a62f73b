// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peergroup

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ltcsuite/ltcspv/peer"
	"github.com/ltcsuite/ltcspv/wire"
)

// resolveSeeds populates the address pool from configured DNS seeds, HTTP
// seeds, and explicit addresses, each bounded by SeedTimeout. Seed
// failures are logged and otherwise ignored; a group with no reachable
// seed and no ExplicitAddrs starts with an empty pool and makes no
// connections. Addresses that peers relay in addr messages are not added
// to the pool.
func (g *PeerGroup) resolveSeeds(ctx context.Context) {
	for _, seed := range g.cfg.ChainParams.DNSSeeds {
		g.resolveDNSSeed(ctx, seed.Host)
	}
	for _, url := range g.cfg.HTTPSeeds {
		g.resolveHTTPSeed(ctx, url)
	}
	for _, addr := range g.cfg.ExplicitAddrs {
		na, err := parseNetAddress(addr, g.cfg.ChainParams.DefaultPort)
		if err != nil {
			log.Warnf("peergroup: explicit address %q: %v", addr, err)
			continue
		}
		g.addrs.AddAddress(na, na)
	}
}

func (g *PeerGroup) resolveDNSSeed(ctx context.Context, host string) {
	seedCtx, cancel := context.WithTimeout(ctx, g.cfg.SeedTimeout)
	defer cancel()

	ips, err := net.DefaultResolver.LookupIPAddr(seedCtx, host)
	if err != nil {
		log.Warnf("peergroup: DNS seed %s: %v", host, err)
		return
	}

	port, _ := strconv.Atoi(g.cfg.ChainParams.DefaultPort)
	for _, ip := range ips {
		na := &wire.NetAddress{
			Timestamp: time.Now(),
			IP:        ip.IP,
			Port:      uint16(port),
		}
		g.addrs.AddAddress(na, na)
	}
}

// resolveHTTPSeed fetches a newline-separated list of host:port addresses
// from url.
func (g *PeerGroup) resolveHTTPSeed(ctx context.Context, url string) {
	seedCtx, cancel := context.WithTimeout(ctx, g.cfg.SeedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(seedCtx, http.MethodGet, url, nil)
	if err != nil {
		log.Warnf("peergroup: HTTP seed %s: %v", url, err)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Warnf("peergroup: HTTP seed %s: %v", url, err)
		return
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		na, err := parseNetAddress(line, g.cfg.ChainParams.DefaultPort)
		if err != nil {
			continue
		}
		g.addrs.AddAddress(na, na)
	}
}

// parseNetAddress parses a host:port string (defaulting to defaultPort if
// the port is omitted) into a wire.NetAddress suitable for the address
// manager.
func parseNetAddress(addr, defaultPort string) (*wire.NetAddress, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		portStr = defaultPort
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil, err
		}
		ip = ips[0]
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	return &wire.NetAddress{
		Timestamp: time.Now(),
		IP:        ip,
		Port:      uint16(port),
	}, nil
}

// maintainLoop keeps the pool at TargetSize, dialing new addresses as
// slots free up and honoring per-address backoff.
func (g *PeerGroup) maintainLoop() {
	defer g.wg.Done()

	g.maintainConnections()

	ticker := time.NewTicker(maintainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.maintainConnections()
		case <-g.quitCh:
			return
		}
	}
}

func (g *PeerGroup) maintainConnections() {
	g.mu.RLock()
	have := len(g.managed)
	g.mu.RUnlock()

	needed := g.cfg.TargetSize - have
	for i := 0; i < needed; i++ {
		addr := g.pickCandidate()
		if addr == "" {
			return
		}
		g.dialOne(addr)
	}
}

// pickCandidate returns the next dial-eligible address from the pool, or
// "" if none is available right now (everything known is already managed,
// banned, or still backing off).
func (g *PeerGroup) pickCandidate() string {
	g.mu.RLock()
	bannedTil := g.bannedTil
	managed := g.managed
	g.mu.RUnlock()

	for attempt := 0; attempt < 64; attempt++ {
		ka := g.addrs.GetAddress()
		if ka == nil {
			return ""
		}
		na := ka.NetAddress()
		addr := net.JoinHostPort(na.IP.String(), strconv.Itoa(int(na.Port)))

		g.mu.RLock()
		_, isManaged := managed[addr]
		until, isBanned := bannedTil[addr]
		g.mu.RUnlock()

		if isManaged {
			continue
		}
		if isBanned && time.Now().Before(until) {
			continue
		}
		if !g.backoffReady(addr) {
			continue
		}
		return addr
	}
	return ""
}

func (g *PeerGroup) dialOne(addr string) {
	p := peer.NewOutbound(g.peerConfig(addr), addr)

	g.mu.Lock()
	g.addPeerLocked(addr, p)
	g.mu.Unlock()

	na := dialAddrToNetAddress(addr)
	g.addrs.Attempt(na)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-g.quitCh:
				cancel()
			case <-ctx.Done():
			}
		}()

		if err := p.Connect(ctx); err != nil {
			log.Debugf("peergroup: connect %s: %v", addr, err)
			g.mu.Lock()
			g.removePeerLocked(addr)
			g.mu.Unlock()
			g.recordBackoff(addr)
			return
		}

		g.resetBackoff(addr)
		na.Services = p.RemoteServices()
		g.addrs.Good(na)
		g.applyCurrentFilter(p)

		g.readyMu.Lock()
		g.readyCond.Broadcast()
		g.readyMu.Unlock()

		g.maybeElect()
	}()
}

// dialAddrToNetAddress converts a dial address (as constructed by
// pickCandidate from an addrmgr-known address) back into a
// wire.NetAddress, so Attempt/Good can look it up by the same key
// addrmgr.AddAddress used.
func dialAddrToNetAddress(addr string) *wire.NetAddress {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return &wire.NetAddress{}
	}
	port, _ := strconv.Atoi(portStr)
	return &wire.NetAddress{IP: net.ParseIP(host), Port: uint16(port)}
}
