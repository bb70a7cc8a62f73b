// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/wire"
)

// These variables are the chain proof-of-work limit parameters for each
// default network.
var (
	// bigOne is 1 represented as a big.Int. Defined once to avoid the
	// overhead of creating it on every comparison.
	bigOne = big.NewInt(1)

	// mainPowLimit is the highest proof of work value a Litecoin block can
	// have for the main network: 0x0fffff0000...0.
	mainPowLimit, _ = new(big.Int).SetString("0fffff000000000000000000000000000000000000000000000000000000", 16)

	// regressionPowLimit is the highest proof of work value a block can
	// have on the regression test network. It is the value 2^255 - 1.
	regressionPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	// testNet4PowLimit is the highest proof of work value a block can have
	// on the test network (version 4). Same ceiling as mainnet.
	testNet4PowLimit, _ = new(big.Int).SetString("0fffff000000000000000000000000000000000000000000000000000000", 16)
)

// Checkpoint identifies a known-good point in the chain by height and hash.
// ChainEngine does not read Params.Checkpoints: incoming headers are not
// compared against this list, and a header chain that disagrees with a
// checkpoint is accepted if it passes the engine's other checks.
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// DNSSeed identifies a DNS seed PeerGroup can query for address discovery.
type DNSSeed struct {
	// Host is the seed's hostname.
	Host string

	// HasFiltering reports whether the seed supports filtering results by
	// service bit (wire.ServiceFlag), via the undocumented but widely
	// supported "x" subdomain convention.
	HasFiltering bool
}

// Params defines a Litecoin network by the parameters an SPV client needs
// to validate headers and talk to peers on it: nothing here governs script
// execution or mempool admission, since this core does neither.
type Params struct {
	// Name is a human-readable identifier for the network.
	Name string

	// Net is the magic value placed in a message header to identify the
	// network a message is for.
	Net wire.BitcoinNet

	// DefaultPort is the default peer-to-peer port for the network.
	DefaultPort string

	// DNSSeeds lists the DNS seeds used to discover peers.
	DNSSeeds []DNSSeed

	// GenesisBlock is the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the hash of GenesisBlock's header. Nothing in this
	// module recomputes that hash to compare it with this value.
	GenesisHash *chainhash.Hash

	// PowLimit is the highest allowed proof-of-work value for a block, as
	// a uint256.
	PowLimit *big.Int

	// PowLimitBits is PowLimit in compact form.
	PowLimitBits uint32

	// CoinbaseMaturity is the number of blocks required before a coinbase
	// output may be spent. Not enforced by ChainEngine itself (it never
	// sees spends), kept for callers building a wallet on top of this
	// core.
	CoinbaseMaturity uint16

	// SubsidyReductionInterval is the number of blocks between subsidy
	// halvings.
	SubsidyReductionInterval int32

	// TargetTimespan is the interval over which the difficulty retarget
	// is evaluated.
	TargetTimespan time.Duration

	// TargetTimePerBlock is the intended average time between blocks.
	TargetTimePerBlock time.Duration

	// RetargetAdjustmentFactor bounds how far a single retarget can move
	// the difficulty: the new target is clamped to
	// [old/RetargetAdjustmentFactor, old*RetargetAdjustmentFactor].
	RetargetAdjustmentFactor int64

	// ReduceMinDifficulty enables the testnet rule allowing maxTarget
	// blocks after a sufficiently long gap since the previous block.
	ReduceMinDifficulty bool

	// MinDiffReductionTime is the gap after which ReduceMinDifficulty
	// permits a maxTarget block. Only meaningful when ReduceMinDifficulty
	// is true.
	MinDiffReductionTime time.Duration

	// AllowLegacyRetargetLookback permits a historic one-off in
	// Litecoin's early chain: the very first retarget computed its
	// timespan over interval-1 blocks rather than interval. Leave this
	// on for mainnet header validation against the real chain; networks
	// started fresh (regtest, a private signet) have no such block and
	// should leave it off.
	AllowLegacyRetargetLookback bool

	// Checkpoints, ordered from oldest to newest.
	Checkpoints []Checkpoint

	// Bech32HRPSegwit is the human-readable part used for Bech32-encoded
	// segwit addresses, per BIP 173.
	Bech32HRPSegwit string

	// Address encoding magics.
	PubKeyHashAddrID       byte
	ScriptHashAddrID       byte
	PrivateKeyID           byte
	WitnessPubKeyHashAddrID byte
	WitnessScriptHashAddrID byte

	// HD extended key magics, BIP 32.
	HDPrivateKeyID [4]byte
	HDPublicKeyID  [4]byte

	// HDCoinType is the BIP 44 coin type for this network.
	HDCoinType uint32
}

// MainNetParams defines the parameters for the main Litecoin network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "9333",
	DNSSeeds: []DNSSeed{
		{"seed-a.litecoin.loshan.co.uk", true},
		{"dnsseed.thrasher.io", true},
		{"dnsseed.litecointools.com", false},
		{"dnsseed.litecoinpool.org", false},
		{"dnsseed.koin-project.com", false},
	},

	GenesisBlock: &genesisBlock,
	GenesisHash:  genesisHash,
	PowLimit:     mainPowLimit,
	PowLimitBits: 504365055,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 840000,
	TargetTimespan:           (time.Hour * 24 * 3) + (time.Hour * 12), // 3.5 days
	TargetTimePerBlock:       (time.Minute * 2) + (time.Second * 30),  // 2.5 minutes
	RetargetAdjustmentFactor: 4,
	ReduceMinDifficulty:      false,

	AllowLegacyRetargetLookback: true,

	Checkpoints: []Checkpoint{
		{1500, newHashFromStr("841a2965955dd288cfa707a755d05a54e45f8bd476835ec9af4402a2b59a2967")},
		{4032, newHashFromStr("9ce90e427198fc0ef05e5905ce3503725b80e26afd35a987965fd7e3d9cf0846")},
		{8064, newHashFromStr("eb984353fc5190f210651f150c40b8a4bab9eeeff0b729fcb3987da694430d70")},
		{16128, newHashFromStr("602edf1859b7f9a6af809f1d9b0e6cb66fdc1d4d9dcd7a4bec03e12a1ccd153d")},
		{23420, newHashFromStr("d80fdf9ca81afd0bd2b2a90ac3a9fe547da58f2530ec874e978fce0b5101b507")},
		{50000, newHashFromStr("69dc37eb029b68f075a5012dcc0419c127672adb4f3a32882b2b3e71d07a20a6")},
		{80000, newHashFromStr("4fcb7c02f676a300503f49c764a89955a8f920b46a8cbecb4867182ecdb2e90a")},
		{120000, newHashFromStr("bd9d26924f05f6daa7f0155f32828ec89e8e29cee9e7121b026a7a3552ac6131")},
		{161500, newHashFromStr("dbe89880474f4bb4f75c227c77ba1cdc024991123b28b8418dbbf7798471ff43")},
		{179620, newHashFromStr("2ad9c65c990ac00426d18e446e0fd7be2ffa69e9a7dcb28358a50b2b78b9f709")},
		{240000, newHashFromStr("7140d1c4b4c2157ca217ee7636f24c9c73db39c4590c4e6eab2e3ea1555088aa")},
		{383640, newHashFromStr("2b6809f094a9215bafc65eb3f110a35127a34be94b7d0590a096c3f126c6f364")},
		{409004, newHashFromStr("487518d663d9f1fa08611d9395ad74d982b667fbdc0e77e9cf39b4f1355908a3")},
		{456000, newHashFromStr("bf34f71cc6366cd487930d06be22f897e34ca6a40501ac7d401be32456372004")},
		{638902, newHashFromStr("15238656e8ec63d28de29a8c75fcf3a5819afc953dcd9cc45cecc53baec74f38")},
		{721000, newHashFromStr("198a7b4de1df9478e2463bd99d75b714eab235a2e63e741641dc8a759a9840e5")},
	},

	Bech32HRPSegwit: "ltc",

	PubKeyHashAddrID:        0x30,
	ScriptHashAddrID:        0x32,
	PrivateKeyID:            0xB0,
	WitnessPubKeyHashAddrID: 0x06,
	WitnessScriptHashAddrID: 0x0A,

	HDPrivateKeyID: [4]byte{0x04, 0x88, 0xad, 0xe4},
	HDPublicKeyID:  [4]byte{0x04, 0x88, 0xb2, 0x1e},

	HDCoinType: 2,
}

// TestNet4Params defines the parameters for the Litecoin test network
// (version 4).
var TestNet4Params = Params{
	Name:        "testnet4",
	Net:         wire.TestNet,
	DefaultPort: "19335",
	DNSSeeds: []DNSSeed{
		{"testnet-seed.litecointools.com", false},
		{"seed-b.litecoin.loshan.co.uk", true},
		{"dnsseed-testnet.thrasher.io", true},
	},

	GenesisBlock: &testNet4GenesisBlock,
	GenesisHash:  testNet4GenesisHash,
	PowLimit:     testNet4PowLimit,
	PowLimitBits: 504365055,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 840000,
	TargetTimespan:           (time.Hour * 24 * 3) + (time.Hour * 12),
	TargetTimePerBlock:       (time.Minute * 2) + (time.Second * 30),
	RetargetAdjustmentFactor: 4,
	ReduceMinDifficulty:      true,
	MinDiffReductionTime:     time.Minute * 5,

	AllowLegacyRetargetLookback: false,

	Checkpoints: []Checkpoint{
		{26115, newHashFromStr("817d5b509e91ab5e439652eee2f59271bbc7ba85021d720cdb6da6565b43c14f")},
		{43928, newHashFromStr("7d86614c153f5ef6ad878483118ae523e248cd0dd0345330cb148e812493cbb4")},
		{69296, newHashFromStr("66c2f58da3cfd282093b55eb09c1f5287d7a18801a8ff441830e67e8771010df")},
		{99949, newHashFromStr("8dd471cb5aecf5ead91e7e4b1e932c79a0763060f8d93671b6801d115bfc6cde")},
		{159256, newHashFromStr("ab5b0b9968842f5414804591119d6db829af606864b1959a25d6f5c114afb2b7")},
	},

	Bech32HRPSegwit: "tltc",

	PubKeyHashAddrID:        0x6f,
	ScriptHashAddrID:        0x3a,
	WitnessPubKeyHashAddrID: 0x52,
	WitnessScriptHashAddrID: 0x31,
	PrivateKeyID:            0xef,

	HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf},

	HDCoinType: 1,
}

// RegressionNetParams defines the parameters for the regression test
// network. Not to be confused with TestNet4Params — this is the network
// sometimes simply called "regtest", generated on demand rather than
// followed via DNS discovery.
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.RegTest,
	DefaultPort: "19444",
	DNSSeeds:    []DNSSeed{},

	GenesisBlock: &regTestGenesisBlock,
	GenesisHash:  regTestGenesisHash,
	PowLimit:     regressionPowLimit,
	PowLimitBits: 0x207fffff,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 150,
	TargetTimespan:           time.Hour * 24 * 14,
	TargetTimePerBlock:       time.Minute * 10,
	RetargetAdjustmentFactor: 4,
	ReduceMinDifficulty:      true,
	MinDiffReductionTime:     time.Minute * 20,

	AllowLegacyRetargetLookback: false,

	Checkpoints: nil,

	Bech32HRPSegwit: "rltc",

	PubKeyHashAddrID: 0x6f,
	ScriptHashAddrID: 0xc4,
	PrivateKeyID:     0xef,

	HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf},

	HDCoinType: 1,
}

// SigNetParams defines the parameters for a Litecoin signet: a network
// restricted to a fixed set of block signers rather than open proof of
// work, useful for deterministic peer-group integration tests without the
// cost of regtest's manual block generation.
var SigNetParams = Params{
	Name:        "signet",
	Net:         wire.SigNet,
	DefaultPort: "19444",
	DNSSeeds:    []DNSSeed{},

	GenesisBlock: &sigNetGenesisBlock,
	GenesisHash:  sigNetGenesisHash,
	PowLimit:     regressionPowLimit,
	PowLimitBits: 0x1e0ffff0,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 840000,
	TargetTimespan:           (time.Hour * 24 * 3) + (time.Hour * 12),
	TargetTimePerBlock:       (time.Minute * 2) + (time.Second * 30),
	RetargetAdjustmentFactor: 4,
	ReduceMinDifficulty:      false,

	AllowLegacyRetargetLookback: false,

	Checkpoints: nil,

	Bech32HRPSegwit: "tltc",

	PubKeyHashAddrID: 0x6f,
	ScriptHashAddrID: 0x3a,
	PrivateKeyID:     0xef,

	HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf},

	HDCoinType: 1,
}

var (
	// ErrDuplicateNet describes an error where the parameters for a
	// network could not be registered because the network magic is
	// already registered, either as one of the default networks or via a
	// previous Register call.
	ErrDuplicateNet = errors.New("duplicate Litecoin network")

	// ErrUnknownHDKeyID describes an error where the supplied HD private
	// extended key id is not registered.
	ErrUnknownHDKeyID = errors.New("unknown hd private extended key bytes")

	// ErrInvalidHDKeyID describes an error where the supplied HD version
	// bytes are the wrong length.
	ErrInvalidHDKeyID = errors.New("invalid hd extended key version bytes")
)

var (
	registeredNets       = make(map[wire.BitcoinNet]struct{})
	pubKeyHashAddrIDs    = make(map[byte]struct{})
	scriptHashAddrIDs    = make(map[byte]struct{})
	bech32SegwitPrefixes = make(map[string]struct{})
	hdPrivToPubKeyIDs    = make(map[[4]byte][]byte)
)

// String returns the hostname of the DNS seed in human-readable form.
func (d DNSSeed) String() string {
	return d.Host
}

// Register makes the given network parameters available for lookup by
// address-prefix helpers elsewhere in this module. It returns
// ErrDuplicateNet if the network's magic is already registered.
//
// A main package should register every network it intends to run against
// as early as possible, before any peer or address parsing begins.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Net] = struct{}{}
	pubKeyHashAddrIDs[params.PubKeyHashAddrID] = struct{}{}
	scriptHashAddrIDs[params.ScriptHashAddrID] = struct{}{}

	if err := RegisterHDKeyID(params.HDPublicKeyID[:], params.HDPrivateKeyID[:]); err != nil {
		return err
	}

	bech32SegwitPrefixes[params.Bech32HRPSegwit+"1"] = struct{}{}
	return nil
}

// mustRegister is Register, except it panics on error. Only call this from
// a package init function, where the error can only ever come from a
// programming mistake in this package's own tables.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// IsPubKeyHashAddrID reports whether id prefixes a P2PKH address on any
// registered network.
func IsPubKeyHashAddrID(id byte) bool {
	_, ok := pubKeyHashAddrIDs[id]
	return ok
}

// IsScriptHashAddrID reports whether id prefixes a P2SH address on any
// registered network.
func IsScriptHashAddrID(id byte) bool {
	_, ok := scriptHashAddrIDs[id]
	return ok
}

// IsBech32SegwitPrefix reports whether prefix (including the trailing '1'
// separator) is a known segwit address prefix on any registered network.
func IsBech32SegwitPrefix(prefix string) bool {
	prefix = strings.ToLower(prefix)
	_, ok := bech32SegwitPrefixes[prefix]
	return ok
}

// RegisterHDKeyID registers a public/private HD extended key id pair so
// HDPrivateKeyToPublicKeyID can translate between them.
func RegisterHDKeyID(hdPublicKeyID []byte, hdPrivateKeyID []byte) error {
	if len(hdPublicKeyID) != 4 || len(hdPrivateKeyID) != 4 {
		return ErrInvalidHDKeyID
	}

	var keyID [4]byte
	copy(keyID[:], hdPrivateKeyID)
	hdPrivToPubKeyIDs[keyID] = hdPublicKeyID

	return nil
}

// HDPrivateKeyToPublicKeyID returns the public key id registered against
// the given private key id, or ErrUnknownHDKeyID if none is registered.
func HDPrivateKeyToPublicKeyID(id []byte) ([]byte, error) {
	if len(id) != 4 {
		return nil, ErrUnknownHDKeyID
	}

	var key [4]byte
	copy(key[:], id)
	pubBytes, ok := hdPrivToPubKeyIDs[key]
	if !ok {
		return nil, ErrUnknownHDKeyID
	}

	return pubBytes, nil
}

// newHashFromStr converts a big-endian hex string into a chainhash.Hash. It
// panics on error, which is fine here since it is only ever called against
// hard-coded hashes below — any panic would fire at package init and
// signal a typo in this file, not a runtime condition.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}
	return hash
}

func init() {
	mustRegister(&MainNetParams)
	mustRegister(&TestNet4Params)
	mustRegister(&RegressionNetParams)
	mustRegister(&SigNetParams)
}
