package bwtree

import (
	"sync"
	"sync/atomic"
	"time"

	"bwtree/util/timer"
)

// epochGuard is the token a caller holds between enter and exit: a claim
// on one slot of the epoch registry. Every public entry point on Tree,
// reads included, is an epoch boundary.
type epochGuard struct {
	slot *epochSlot
}

// garbageEntry pairs a superseded chain head with the epoch it was
// staged at. The head is held directly -- there is no second mapping
// table standing between this slice and the node, so dropping the entry
// here is what actually drops the tree's last reference to the chain.
type garbageEntry[K any, V any] struct {
	epoch uint64
	head  *node[K, V]
}

// epochSlot is one registry entry used to publish a caller's currently
// observed epoch. claimed guards ownership of the slot; epoch is only
// meaningful while claimed is true. Both fields are touched with atomics
// only, so enter/exit never block on anything.
type epochSlot struct {
	claimed atomic.Bool
	epoch   atomic.Uint64
}

// epochRegistrySize bounds how many operations may hold an epoch guard
// at once. enter spins looking for a free slot past this many concurrent
// holders rather than growing the registry, the same fixed-ceiling
// tradeoff the mapping table makes for PIDs.
const epochRegistrySize = 1 << 12

// epochGC implements quiescent-state epoch reclamation: superseded
// chains are staged here rather than freed inline, and the entries
// referencing them are dropped once no active operation could still be
// reading them, letting Go's garbage collector do the actual freeing.
type epochGC[K any, V any] struct {
	global   atomic.Uint64
	nextSlot atomic.Uint64
	slots    [epochRegistrySize]epochSlot

	stagedMu sync.Mutex
	staged   []garbageEntry[K, V]

	ticker *time.Ticker
}

func newEpochGC[K any, V any]() *epochGC[K, V] {
	return &epochGC[K, V]{}
}

// startBackgroundSweep advances the epoch and consolidates/reclaims on a
// timer, in addition to whatever opportunistic consolidation the write
// paths already trigger.
func (g *epochGC[K, V]) startBackgroundSweep(interval time.Duration, sweep func()) {
	if interval <= 0 {
		return
	}
	g.ticker = timer.SetInterval(interval, sweep)
}

func (g *epochGC[K, V]) stopBackgroundSweep() {
	if g.ticker != nil {
		g.ticker.Stop()
	}
}

// enter claims a free registry slot, publishes the current global epoch
// into it, and returns a token to hand back to exit. Slot claiming is a
// CAS loop starting from a round-robin hint, never a mutex; if every
// slot is momentarily claimed it spins until one frees instead of
// blocking on a lock.
func (g *epochGC[K, V]) enter() *epochGuard {
	start := int(g.nextSlot.Add(1)-1) % epochRegistrySize

	for {
		for i := 0; i < epochRegistrySize; i++ {
			s := &g.slots[(start+i)%epochRegistrySize]
			if s.claimed.CompareAndSwap(false, true) {
				s.epoch.Store(g.global.Load())
				return &epochGuard{slot: s}
			}
		}
	}
}

func (g *epochGC[K, V]) exit(token *epochGuard) {
	token.slot.claimed.Store(false)
}

// stage hands ownership of a superseded chain to the garbage list,
// tagged with the epoch it was superseded in. The chain is never freed
// inline -- readers may still hold pointers into it.
func (g *epochGC[K, V]) stage(head *node[K, V]) {
	epoch := g.global.Load()

	g.stagedMu.Lock()
	g.staged = append(g.staged, garbageEntry[K, V]{epoch: epoch, head: head})
	g.stagedMu.Unlock()
}

// advance bumps the global epoch and drops every staged entry whose
// epoch predates every currently claimed registry slot's published
// epoch. Dropping the entry -- not just shortening the slice length --
// is what actually releases the chain: the tail past the new length is
// explicitly zeroed so the backing array stops pinning reclaimed nodes.
func (g *epochGC[K, V]) advance() (reclaimed int) {
	minActive := g.global.Add(1)
	for i := range g.slots {
		s := &g.slots[i]
		if s.claimed.Load() {
			if e := s.epoch.Load(); e < minActive {
				minActive = e
			}
		}
	}

	g.stagedMu.Lock()
	defer g.stagedMu.Unlock()

	original := g.staged
	kept := original[:0]
	for _, entry := range original {
		if entry.epoch < minActive {
			reclaimed++
			continue
		}
		kept = append(kept, entry)
	}
	for i := len(kept); i < len(original); i++ {
		original[i] = garbageEntry[K, V]{}
	}
	g.staged = kept

	return reclaimed
}
