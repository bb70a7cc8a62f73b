// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/ltcsuite/ltcspv/chaincfg"
)

func TestSelectParamsDefaultsToMainNet(t *testing.T) {
	params, err := selectParams(false, false, false)
	if err != nil {
		t.Fatalf("selectParams: %v", err)
	}
	if params != &chaincfg.MainNetParams {
		t.Fatalf("expected MainNetParams, got %v", params.Name)
	}
}

func TestSelectParamsRegTest(t *testing.T) {
	params, err := selectParams(false, true, false)
	if err != nil {
		t.Fatalf("selectParams: %v", err)
	}
	if params != &chaincfg.RegressionNetParams {
		t.Fatalf("expected RegressionNetParams, got %v", params.Name)
	}
}

func TestSelectParamsRejectsMultipleNetworks(t *testing.T) {
	if _, err := selectParams(true, true, false); err == nil {
		t.Fatal("expected an error when --testnet and --regtest are both set")
	}
}

func TestNormalizePeerAddr(t *testing.T) {
	params := &chaincfg.MainNetParams

	withPort := NormalizePeerAddr("10.0.0.1:1234", params)
	if withPort != "10.0.0.1:1234" {
		t.Fatalf("expected an already-ported address to pass through unchanged, got %s", withPort)
	}

	bare := NormalizePeerAddr("10.0.0.1", params)
	want := "10.0.0.1:" + params.DefaultPort
	if bare != want {
		t.Fatalf("expected %s, got %s", want, bare)
	}
}
