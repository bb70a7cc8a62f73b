// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// ltcspv-demo wires chainengine and peergroup together into a
// minimal running node: it syncs headers from the network, prints each
// new best block, and exits cleanly on Ctrl+C. It is a demonstration of
// the public API this module exposes, not a wallet.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ltcsuite/ltcspv/blockstore"
	"github.com/ltcsuite/ltcspv/chainengine"
	"github.com/ltcsuite/ltcspv/config"
	"github.com/ltcsuite/ltcspv/peergroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ltcspv-demo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := config.LoadConfig("ltcspv-demo", os.Args[1:])
	if err != nil {
		return err
	}

	store, err := blockstore.OpenFileStore(
		filepath.Join(cfg.DataDir, "blocks.dat"),
		filepath.Join(cfg.DataDir, "blocks.idx"),
	)
	if err != nil {
		return fmt.Errorf("opening block store: %w", err)
	}
	defer store.Close()

	engine, err := chainengine.New(chainengine.Config{
		Params: cfg.Params,
		Store:  store,
	})
	if err != nil {
		return fmt.Errorf("starting chain engine: %w", err)
	}
	defer engine.Stop()

	engine.Subscribe(printingObserver{})

	// --noseed: drop DNS and HTTP seeds so only --connect/--addpeer are used.
	chainParams, httpSeeds := cfg.Params, cfg.HTTPSeeds
	if cfg.NoSeed {
		noSeedParams := *cfg.Params
		noSeedParams.DNSSeeds = nil
		chainParams, httpSeeds = &noSeedParams, nil
	}

	group := peergroup.New(peergroup.Config{
		ChainParams: chainParams,
		Services:    0, // an SPV core serves nothing; it only downloads.
		UserAgent:   cfg.UserAgent,
		BestHeight: func() int32 {
			tip, err := engine.Tip()
			if err != nil {
				return 0
			}
			return tip.Height
		},
		ProxyAddr:     cfg.ProxyAddr,
		DialTimeout:   time.Duration(cfg.DialTimeout) * time.Second,
		TargetSize:    cfg.TargetPeers,
		ExplicitAddrs: append(append([]string{}, cfg.ConnectPeers...), cfg.AddPeers...),
		HTTPSeeds:     httpSeeds,
		HeaderSink:    engine,
	})

	// A wallet embedding this module would construct its own
	// txrelay.NewTracker(group) here and call Submit as it creates
	// outgoing transactions; this demo only syncs headers.

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group.Start(ctx)
	defer group.Stop()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("ltcspv-demo: syncing %s, target %d peers\n", cfg.Params.Name, cfg.TargetPeers)

	waitCtx, waitCancel := context.WithTimeout(ctx, 30*time.Second)
	defer waitCancel()
	if err := group.WaitForPeers(waitCtx, 1); err != nil {
		fmt.Fprintf(os.Stderr, "ltcspv-demo: no peers after 30s, will keep retrying: %v\n", err)
	}

	<-interrupt
	fmt.Println("\nltcspv-demo: shutting down")
	return nil
}

// printingObserver satisfies chainengine.Observer by printing each new
// best block and reorg to stdout.
type printingObserver struct{}

func (printingObserver) OnBestBlock(sb *blockstore.StoredBlock) {
	hash := sb.Hash()
	fmt.Printf("best block: height=%d hash=%s time=%s\n",
		sb.Height, hash, sb.Header.Timestamp.Format(time.RFC3339))
}

func (printingObserver) OnReorganize(detached, attached []*blockstore.StoredBlock) {
	fmt.Printf("reorg: detached %d block(s), attached %d block(s)\n",
		len(detached), len(attached))
}
