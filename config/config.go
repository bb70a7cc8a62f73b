// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config builds a ChainConfig value from command-line options,
// replacing the global mutable settings object a full node typically
// carries with one struct passed explicitly into every constructor:
// chainengine.Config, peergroup.Config, and the paths passed to
// blockstore.OpenFileStore.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/ltcsuite/ltcspv/chaincfg"
	"github.com/ltcsuite/ltcspv/log"
)

const (
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "ltcspv.log"
	defaultTargetPeers    = 4
	defaultDebugLevel     = "info"
	defaultDialTimeoutSec = 10
)

// Options is the set of jessevdk/go-flags-tagged command line and config
// file options. LoadConfig turns this into a ChainConfig; nothing else
// in this module reads Options directly.
type Options struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"Directory to store block headers and peer addresses"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- Alternatively, specify <subsystem>=<level>,<subsystem2>=<level2>,... to set the log level for individual subsystems"`

	TestNet4 bool `long:"testnet" description:"Use the test network"`
	RegTest  bool `long:"regtest" description:"Use the regression test network"`
	SigNet   bool `long:"signet" description:"Use the signet test network"`

	ConnectPeers []string `long:"connect" description:"Connect to the specified peers at startup (added to the address pool like --addpeer; seeding stays on unless --noseed)"`
	AddPeers     []string `short:"a" long:"addpeer" description:"Add a peer to the address pool (in addition to DNS/HTTP seeding)"`
	HTTPSeeds    []string `long:"httpseed" description:"URL of a newline-delimited host:port peer list to seed the address pool from"`
	NoSeed       bool     `long:"noseed" description:"Disable DNS/HTTP peer discovery; rely only on --connect/--addpeer"`
	TargetPeers  int      `long:"maxpeers" description:"Target number of outbound peer connections to maintain"`
	Proxy        string   `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	UserAgent    string   `long:"useragent" description:"Custom comment appended to this node's user agent string"`
	DialTimeout  int      `long:"dialtimeout" description:"Seconds to wait for an outbound connection to complete"`
}

// ChainConfig is the resolved, immutable configuration passed into
// chainengine, peergroup, and blockstore constructors. Unlike Options, it
// carries no CLI concerns (no flag tags, no config-file path) and is
// safe to construct directly in a test or embedder without going
// through LoadConfig.
type ChainConfig struct {
	Params *chaincfg.Params

	DataDir string
	LogDir  string

	ConnectPeers []string
	AddPeers     []string
	HTTPSeeds    []string
	NoSeed       bool
	TargetPeers  int
	ProxyAddr    string
	UserAgent    string
	DialTimeout  int
}

// LoadConfig parses command line arguments (and, if --configfile names
// one, an ini-format config file) into a
// ChainConfig. appName is used to build the default data/log directories
// under the user's home directory, following the per-OS convention
// btcutil.AppDataDir implements in the wider btcsuite family; here it is
// inlined since this module has no dependency on btcutil.
func LoadConfig(appName string, args []string) (*ChainConfig, []string, error) {
	opts := Options{
		DataDir:     filepath.Join(appDataDir(appName), defaultDataDirname),
		LogDir:      filepath.Join(appDataDir(appName), defaultLogDirname),
		DebugLevel:  defaultDebugLevel,
		TargetPeers: defaultTargetPeers,
		DialTimeout: defaultDialTimeoutSec,
	}

	parser := flags.NewParser(&opts, flags.Default)
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	if opts.ConfigFile != "" {
		if err := flags.IniParse(opts.ConfigFile, &opts); err != nil {
			if !os.IsNotExist(err) {
				return nil, nil, fmt.Errorf("config: reading %s: %w", opts.ConfigFile, err)
			}
		}
		// Command line flags take precedence over the config file, so
		// re-apply them on top of whatever the ini file set.
		if _, err := parser.ParseArgs(args); err != nil {
			return nil, nil, fmt.Errorf("config: %w", err)
		}
	}

	params, err := selectParams(opts.TestNet4, opts.RegTest, opts.SigNet)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(opts.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("config: creating data directory: %w", err)
	}
	if err := os.MkdirAll(opts.LogDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("config: creating log directory: %w", err)
	}

	if err := log.InitLogRotator(filepath.Join(opts.LogDir, defaultLogFilename)); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log.SetLogLevels(defaultDebugLevel)
	if err := parseAndSetDebugLevels(opts.DebugLevel); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	if opts.Proxy != "" {
		if _, _, err := net.SplitHostPort(opts.Proxy); err != nil {
			return nil, nil, fmt.Errorf("config: --proxy %q: %w", opts.Proxy, err)
		}
	}

	connectPeers := make([]string, len(opts.ConnectPeers))
	for i, addr := range opts.ConnectPeers {
		connectPeers[i] = NormalizePeerAddr(addr, params)
	}
	addPeers := make([]string, len(opts.AddPeers))
	for i, addr := range opts.AddPeers {
		addPeers[i] = NormalizePeerAddr(addr, params)
	}

	userAgent := "/ltcspv:0.1.0/"
	if opts.UserAgent != "" {
		userAgent = fmt.Sprintf("/ltcspv:0.1.0/%s/", opts.UserAgent)
	}

	cfg := &ChainConfig{
		Params:       params,
		DataDir:      opts.DataDir,
		LogDir:       opts.LogDir,
		ConnectPeers: connectPeers,
		AddPeers:     addPeers,
		HTTPSeeds:    opts.HTTPSeeds,
		NoSeed:       opts.NoSeed,
		TargetPeers:  opts.TargetPeers,
		ProxyAddr:    opts.Proxy,
		UserAgent:    userAgent,
		DialTimeout:  opts.DialTimeout,
	}

	return cfg, remaining, nil
}

// selectParams resolves the mutually exclusive network flags to a
// chaincfg.Params, defaulting to MainNetParams when none are set.
func selectParams(testnet4, regtest, signet bool) (*chaincfg.Params, error) {
	set := 0
	var params *chaincfg.Params
	if testnet4 {
		set++
		params = &chaincfg.TestNet4Params
	}
	if regtest {
		set++
		params = &chaincfg.RegressionNetParams
	}
	if signet {
		set++
		params = &chaincfg.SigNetParams
	}
	if set > 1 {
		return nil, fmt.Errorf("config: --testnet, --regtest, and --signet are mutually exclusive")
	}
	if set == 0 {
		return &chaincfg.MainNetParams, nil
	}
	return params, nil
}

// parseAndSetDebugLevels applies a --debuglevel value, which is either a
// single level applied to every subsystem, or a comma-separated list of
// SUBSYSTEM=LEVEL pairs.
func parseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, "=") {
		log.SetLogLevels(debugLevel)
		return nil
	}

	supported := make(map[string]struct{})
	for _, s := range log.SupportedSubsystems() {
		supported[s] = struct{}{}
	}

	for _, pair := range strings.Split(debugLevel, ",") {
		fields := strings.SplitN(pair, "=", 2)
		if len(fields) != 2 {
			return fmt.Errorf("invalid debuglevel entry %q", pair)
		}
		subsysID, level := fields[0], fields[1]
		if _, ok := supported[subsysID]; !ok {
			return fmt.Errorf("unknown subsystem %q", subsysID)
		}
		log.SetLogLevel(subsysID, level)
	}
	return nil
}

// appDataDir returns the default per-user application data directory for
// appName, following the same os.UserHomeDir (and %LOCALAPPDATA% on
// Windows) convention btcutil.AppDataDir uses across the btcsuite family,
// inlined here since
// this module doesn't otherwise depend on btcutil.
func appDataDir(appName string) string {
	if appName == "" || appName == "." {
		return "."
	}
	appName = strings.TrimPrefix(appName, ".")

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = home
		}
		return filepath.Join(appData, strings.ToUpper(appName[:1])+appName[1:])
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, "."+strings.ToLower(appName))
	}
}

// DefaultTargetPeers is exported for callers that want to print the
// default without duplicating the constant.
const DefaultTargetPeers = defaultTargetPeers

// NormalizePeerAddr appends params' default port to addr if addr has no
// port of its own, matching the shorthand a user typing --connect or
// --addpeer expects (bare host, no port).
func NormalizePeerAddr(addr string, params *chaincfg.Params) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, params.DefaultPort)
}
