// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr tracks addresses PeerGroup has learned about from peers
// and DNS/seed discovery, bucketing them the way btcd's address manager
// does, so repeated runs favor addresses that have proven reachable and
// avoid hammering ones that haven't.
package addrmgr

import (
	"container/list"
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/aead/siphash"

	"github.com/ltcsuite/ltcspv/wire"
)

const (
	// numNewBuckets is the number of buckets to group fresh (never
	// connected to) addresses into.
	numNewBuckets = 1024

	// numTriedBuckets is the number of buckets to group addresses that
	// have been connected to into.
	numTriedBuckets = 64

	// newBucketSize is the maximum number of addresses in each new
	// address bucket.
	newBucketSize = 64

	// triedBucketSize is the maximum number of addresses in each tried
	// address bucket.
	triedBucketSize = 64

	// maxFailures is the maximum number of failed connection attempts
	// before an address is considered bad enough to skip in GetAddress
	// selection.
	maxFailures = 10

	// minBadDays is the number of days a once-failing address is given
	// to redeem itself before it is classed permanently bad.
	minBadDays = 7

	// numMissingDays is how long an address can go without a successful
	// connection before it's classed bad, once it also has at least
	// maxFailures attempts.
	numMissingDays = 30

	// newAddressBucketsPerGroup and triedAddressBucketsPerGroup bound
	// how many buckets a single IP group (roughly, /16) can occupy, so a
	// single network operator can't dominate the address pool.
	newAddressBucketsPerGroup   = 32
	triedAddressBucketsPerGroup = 8
)

// KnownAddress tracks information about a known network address that is
// used to determine how viable an address is as a peer candidate, as well
// as how resilient it is to eviction from the manager's address cache.
type KnownAddress struct {
	na          *wire.NetAddress
	srcAddr     *wire.NetAddress
	attempts    int
	lastattempt time.Time
	lastsuccess time.Time
	tried       bool
	refs        int // new-bucket placements plus repeat AddAddress calls
}

// NetAddress returns the underlying wire.NetAddress this entry describes.
func (ka *KnownAddress) NetAddress() *wire.NetAddress {
	return ka.na
}

// chance returns the selection weight for this address in GetAddress: 1.0
// for an address never tried, multiplied by 0.66 for each recorded attempt,
// and by 0.01 if the last attempt was less than ten minutes ago.
func (ka *KnownAddress) chance() float64 {
	now := time.Now()
	lastAttempt := now.Sub(ka.lastattempt)

	if lastAttempt < 0 {
		lastAttempt = 0
	}

	c := 1.0

	if lastAttempt < 10*time.Minute {
		c *= 0.01
	}

	c *= math.Pow(0.66, float64(ka.attempts))

	return c
}

// isBad reports whether this address is so unreliable that GetAddress
// should never hand it out. An address attempted within the last minute is
// never bad; otherwise it is bad once it has at least maxFailures attempts
// and either has never connected, last connected more than numMissingDays
// ago, or was last attempted more than minBadDays ago.
func (ka *KnownAddress) isBad() bool {
	if ka.lastattempt.After(time.Now().Add(-1 * time.Minute)) {
		return false
	}

	// address never seen to work.
	if ka.lastsuccess.IsZero() && ka.attempts >= maxFailures {
		return true
	}

	// over numMissingDays since we had a success and at least maxFailures
	// tries.
	if time.Now().After(ka.lastsuccess.Add(numMissingDays*24*time.Hour)) &&
		ka.attempts >= maxFailures {
		return true
	}

	// at least maxFailures tries, the last one over minBadDays ago.
	if time.Now().After(ka.lastattempt.Add(minBadDays*24*time.Hour)) &&
		ka.attempts >= maxFailures {
		return true
	}

	return false
}

// AddrManager holds the known addresses PeerGroup has learned about,
// bucketed the way btcd's address manager buckets them: new addresses
// (never connected to) in one set of buckets keyed by source and group,
// tried addresses (connected to at least once) in another set keyed by
// group and time.
type AddrManager struct {
	mtx       sync.Mutex
	key       [siphash.KeySize]byte
	addrIndex map[string]*KnownAddress
	addrNew   [numNewBuckets]map[string]*KnownAddress
	addrTried [numTriedBuckets]*list.List
	nTried    int
	nNew      int
	rand      *mrand.Rand
}

// New returns an address manager with empty buckets and a random siphash
// key, so two managers never bucket the same address set identically.
func New() *AddrManager {
	am := &AddrManager{
		addrIndex: make(map[string]*KnownAddress),
		rand:      mrand.New(mrand.NewSource(time.Now().UnixNano())),
	}
	if _, err := rand.Read(am.key[:]); err != nil {
		binary.LittleEndian.PutUint64(am.key[:8], uint64(time.Now().UnixNano()))
	}
	for i := range am.addrTried {
		am.addrTried[i] = list.New()
	}
	return am
}

func addrKey(na *wire.NetAddress) string {
	return net.JoinHostPort(na.IP.String(), strconv.Itoa(int(na.Port)))
}

// groupKey returns the IP group (the /16 for IPv4, a coarser prefix for
// IPv6) an address belongs to, used to cap how many buckets a single
// network can occupy.
func groupKey(na *wire.NetAddress) string {
	if ip4 := na.IP.To4(); ip4 != nil {
		return net.IPv4(ip4[0], ip4[1], 0, 0).String()
	}
	ip16 := na.IP.To16()
	if ip16 == nil {
		return na.IP.String()
	}
	return net.IP(ip16[:4]).String()
}

// newBucketIndex maps an address and the address it was learned from to
// one of numNewBuckets buckets via siphash, following btcd's addrmgr
// bucketing technique so placement is stable across a process lifetime
// but unpredictable across processes.
func (a *AddrManager) newBucketIndex(na, srcAddr *wire.NetAddress) int {
	data1 := append([]byte(groupKey(na)), []byte(groupKey(srcAddr))...)
	hash64 := siphash.Sum64(data1, &a.key)
	hash64 %= newAddressBucketsPerGroup
	var data2 []byte
	data2 = append(data2, a.key[:]...)
	data2 = append(data2, []byte(groupKey(srcAddr))...)
	data2 = append(data2, byte(hash64))
	hash := siphash.Sum64(data2, &a.key)
	return int(hash % numNewBuckets)
}

// triedBucketIndex maps an address to one of numTriedBuckets buckets.
func (a *AddrManager) triedBucketIndex(na *wire.NetAddress) int {
	data1 := append([]byte{}, []byte(addrKey(na))...)
	hash64 := siphash.Sum64(data1, &a.key)
	hash64 %= triedAddressBucketsPerGroup
	var data2 []byte
	data2 = append(data2, a.key[:]...)
	data2 = append(data2, []byte(groupKey(na))...)
	data2 = append(data2, byte(hash64))
	hash := siphash.Sum64(data2, &a.key)
	return int(hash % numTriedBuckets)
}

// AddAddress records an address learned from srcAddr, placing it in a new
// bucket unless it's already known. Repeated calls for an address already
// present just bump its reference count.
func (a *AddrManager) AddAddress(na, srcAddr *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	key := addrKey(na)
	if ka, ok := a.addrIndex[key]; ok {
		ka.refs++
		return
	}

	ka := &KnownAddress{na: na, srcAddr: srcAddr}
	a.addrIndex[key] = ka
	a.nNew++

	bucket := a.newBucketIndex(na, srcAddr)
	if a.addrNew[bucket] == nil {
		a.addrNew[bucket] = make(map[string]*KnownAddress)
	}
	if len(a.addrNew[bucket]) < newBucketSize {
		a.addrNew[bucket][key] = ka
		ka.refs++
	}
}

// Attempt records a failed or pending connection attempt against addr.
func (a *AddrManager) Attempt(addr *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	ka, ok := a.addrIndex[addrKey(addr)]
	if !ok {
		return
	}
	ka.attempts++
	ka.lastattempt = time.Now()
}

// Connected marks addr as currently connected, refreshing its last-seen
// timestamp if that is at least 20 minutes old.
func (a *AddrManager) Connected(addr *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	ka, ok := a.addrIndex[addrKey(addr)]
	if !ok {
		return
	}
	if time.Since(ka.na.Timestamp) >= 20*time.Minute {
		na := *ka.na
		na.Timestamp = time.Now()
		ka.na = &na
	}
}

// Good moves addr from the new set to the tried set and resets its
// failure count, called after a successful handshake.
func (a *AddrManager) Good(addr *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	key := addrKey(addr)
	ka, ok := a.addrIndex[key]
	if !ok {
		return
	}

	ka.lastsuccess = time.Now()
	ka.lastattempt = time.Now()
	ka.attempts = 0

	if ka.tried {
		return
	}

	for i := range a.addrNew {
		if _, ok := a.addrNew[i][key]; ok {
			delete(a.addrNew[i], key)
			ka.refs--
		}
	}
	a.nNew--

	ka.tried = true
	bucket := a.triedBucketIndex(addr)
	a.addrTried[bucket].PushBack(ka)
	a.nTried++
}

// GetAddress returns a random known address, biased by chance() toward
// addresses that have connected successfully before and away from ones
// classed bad. Returns nil if the manager holds nothing usable.
func (a *AddrManager) GetAddress() *KnownAddress {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.nTried == 0 && a.nNew == 0 {
		return nil
	}

	const triedChance = 0.5
	if a.nTried > 0 && (a.nNew == 0 || a.rand.Float64() < triedChance) {
		// nTried > 0, so at least one tried bucket is non-empty.
		bucket := a.addrTried[a.rand.Intn(numTriedBuckets)]
		for bucket.Len() == 0 {
			bucket = a.addrTried[a.rand.Intn(numTriedBuckets)]
		}
		factor := 1.0
		for i := 0; i < 64; i++ {
			e := bucket.Front()
			for j := a.rand.Intn(bucket.Len()); j > 0; j-- {
				e = e.Next()
			}
			ka := e.Value.(*KnownAddress)
			if ka.isBad() {
				continue
			}
			if a.rand.Float64() < factor*ka.chance() {
				return ka
			}
			factor *= 1.2
		}
		return nil
	}

	return a.pickFromNew()
}

func (a *AddrManager) pickFromNew() *KnownAddress {
	if a.nNew == 0 {
		return nil
	}
	factor := 1.0
	for i := 0; i < 64; i++ {
		start := a.rand.Intn(numNewBuckets)
		var bucket map[string]*KnownAddress
		for j := 0; j < numNewBuckets && len(bucket) == 0; j++ {
			bucket = a.addrNew[(start+j)%numNewBuckets]
		}
		for _, ka := range bucket {
			if ka.isBad() {
				continue
			}
			if a.rand.Float64() < factor*ka.chance() {
				return ka
			}
			factor *= 1.2
		}
	}
	return nil
}

// NumAddresses returns the total number of addresses known, tried and
// new combined.
func (a *AddrManager) NumAddresses() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.nTried + a.nNew
}
