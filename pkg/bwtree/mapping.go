package bwtree

import "sync/atomic"

// tier1Size is the fixed top-level array width: a fixed top-level array
// of pointers to lazily-materialized tier-2 blocks. Tier-2 block size
// is configurable (MappingTierBits); tier-1 width is not.
const tier1Size = 1 << 10

// tier2Block is one lazily-allocated second-tier slice of mapping slots.
// Its length is 2^MappingTierBits, fixed for the lifetime of the table.
type tier2Block[K any, V any] []atomic.Pointer[node[K, V]]

// mappingTable is the PID -> chain-head indirection layer. The only
// mutation primitives are: allocate-and-install (add), CAS (set) and an
// unconditional (non-CAS) store used exclusively by callers holding
// exclusive claim on the slot (remove).
type mappingTable[K any, V any] struct {
	tier1    [tier1Size]atomic.Pointer[tier2Block[K, V]]
	tier2Len int
	nextPID  atomic.Int64
}

func newMappingTable[K any, V any](tier2Len int) *mappingTable[K, V] {
	return &mappingTable[K, V]{tier2Len: tier2Len}
}

func (mt *mappingTable[K, V]) split(pid PID) (t1, t2 int) {
	idx := int64(pid)
	t2Len := int64(mt.tier2Len)
	return int(idx / t2Len), int(idx % t2Len)
}

// get returns the current chain head for pid, or nil if pid is
// unmapped (never allocated, or removed).
func (mt *mappingTable[K, V]) get(pid PID) *node[K, V] {
	if pid == NullPID {
		return nil
	}

	t1, t2 := mt.split(pid)
	blk := mt.tier1[t1].Load()
	if blk == nil {
		return nil
	}
	return (*blk)[t2].Load()
}

// set CASes the slot at pid from expected to desired. Used for every
// structural change once the slot is already live.
func (mt *mappingTable[K, V]) set(pid PID, expected, desired *node[K, V]) bool {
	t1, t2 := mt.split(pid)
	blk := mt.tier1[t1].Load()
	if blk == nil {
		return false
	}
	return (*blk)[t2].CompareAndSwap(expected, desired)
}

// add allocates the next PID, lazily materializes the tier-2 block on
// first use (racing allocators settle the block via CAS, not a lock),
// stamps n.pid, and CAS-installs n into the freshly claimed slot.
func (mt *mappingTable[K, V]) add(n *node[K, V]) (PID, bool) {
	pid := PID(mt.nextPID.Add(1) - 1)
	t1, t2 := mt.split(pid)

	blk := mt.tier1[t1].Load()
	if blk == nil {
		fresh := make(tier2Block[K, V], mt.tier2Len)
		if mt.tier1[t1].CompareAndSwap(nil, &fresh) {
			blk = &fresh
		} else {
			blk = mt.tier1[t1].Load()
		}
	}

	if n != nil {
		n.pid = pid
	}
	if !(*blk)[t2].CompareAndSwap(nil, n) {
		return NullPID, false
	}
	return pid, true
}

// remove performs an unconditional (non-CAS) store of nil. Callers must
// hold exclusive claim on the slot (e.g. a freshly added page that was
// never published) before calling this.
func (mt *mappingTable[K, V]) remove(pid PID) {
	t1, t2 := mt.split(pid)
	blk := mt.tier1[t1].Load()
	if blk == nil {
		return
	}
	(*blk)[t2].Store(nil)
}
