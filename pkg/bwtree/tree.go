package bwtree

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"bwtree/util/logger"
)

// Tree is a latch-free, in-memory, multi-value index keyed by K. All
// structural state lives behind PIDs in the mapping table; Tree itself
// is just the handle a caller holds (root pointer, options, GC, log).
type Tree[K any, V any] struct {
	opts    *Options[K, V]
	mapping *mappingTable[K, V]
	gc      *epochGC[K, V]
	log     *logrus.Entry

	root     atomicPID
	headLeaf PID // leftmost leaf, fixed for the tree's lifetime

	closed atomic.Bool
}

// New builds an empty tree. opts.KeyLess, opts.KeyEqual and
// opts.ValueEqual must be set; everything else defaults per
// withDefaults.
func New[K any, V any](opts *Options[K, V]) *Tree[K, V] {
	if opts == nil {
		opts = &Options[K, V]{}
	}
	if opts.KeyLess == nil || opts.KeyEqual == nil || opts.ValueEqual == nil {
		invariantPanic("New: KeyLess, KeyEqual and ValueEqual are required")
	}
	opts = opts.withDefaults()

	tier2Len := 1 << opts.MappingTierBits
	mapping := newMappingTable[K, V](tier2Len)
	gc := newEpochGC[K, V]()

	t := &Tree[K, V]{
		opts:    opts,
		mapping: mapping,
		gc:      gc,
		log:     logger.L.WithField("component", "bwtree"),
	}

	rootLeaf := &node[K, V]{
		kind:     kindLeafBase,
		isLeaf:   true,
		lowInf:   true,
		highInf:  true,
		nextLeaf: NullPID,
	}
	pid, ok := mapping.add(rootLeaf)
	if !ok {
		invariantPanic("New: failed to install initial root leaf")
	}
	t.root.Store(pid)
	t.headLeaf = pid

	if opts.ConsolidateInterval > 0 {
		gc.startBackgroundSweep(time.Duration(opts.ConsolidateInterval), t.sweep)
	}

	return t
}

// sweep is the background job: advance the reclamation epoch and
// opportunistically consolidate any leaf whose chain has grown long,
// walking the leaf sibling chain from left to right.
func (t *Tree[K, V]) sweep() {
	reclaimed := t.gc.advance()
	if reclaimed > 0 {
		t.log.WithField("count", reclaimed).Debug("reclaimed garbage")
	}

	for pid := t.headLeaf; pid != NullPID; {
		head := t.mapping.get(pid)
		if head == nil {
			return
		}
		if head.chainLen > t.opts.MaxChainLen {
			head = t.consolidate(pid)
			if head == nil {
				return
			}
		}
		pid = head.nextLeaf
	}
}

// Close stops the background sweep, if any. A closed tree continues to
// serve Lookup/Insert/Delete -- there is no external resource to
// release -- but no further background consolidation happens.
func (t *Tree[K, V]) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	t.gc.stopBackgroundSweep()
	return nil
}

// Height returns the number of levels from the root down to (and
// including) the leaf level.
func (t *Tree[K, V]) Height() int {
	guard := t.gc.enter()
	defer t.gc.exit(guard)

	height := 1
	pid := t.root.Load()
	for {
		head := t.mapping.get(pid)
		if head == nil {
			return height
		}
		if head.isLeaf {
			return height
		}
		_, children := t.fakeConsolidateInner(head)
		if len(children) == 0 {
			return height
		}
		pid = children[0]
		height++
	}
}

// LeafCount walks the leaf sibling chain and counts the leaves.
func (t *Tree[K, V]) LeafCount() int {
	guard := t.gc.enter()
	defer t.gc.exit(guard)

	count := 0
	for pid := t.headLeaf; pid != NullPID; {
		head := t.mapping.get(pid)
		if head == nil {
			return count
		}
		count++
		pid = head.nextLeaf
	}
	return count
}

// DebugChain renders the delta chain at pid from head to base, one
// frame per line, for diagnosing a stuck test or an invariant panic by
// hand.
func (t *Tree[K, V]) DebugChain(pid PID) string {
	head := t.mapping.get(pid)
	if head == nil {
		return fmt.Sprintf("pid=%d: <unmapped>", int64(pid))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "pid=%d chainLen=%d isLeaf=%v\n", int64(pid), head.chainLen, head.isLeaf)
	for n := head; n != nil; n = n.next {
		switch n.kind {
		case kindLeafBase:
			fmt.Fprintf(&b, "  leaf-base: slotUse=%d nextLeaf=%d\n", n.slotUse, int64(n.nextLeaf))
		case kindInnerBase:
			fmt.Fprintf(&b, "  inner-base: slotUse=%d children=%v\n", n.slotUse, n.children)
		case kindRecordDelta:
			fmt.Fprintf(&b, "  record-delta: op=%v key=%+v val=%+v\n", n.recOp, n.recKey, n.recVal)
		case kindSplitDelta:
			fmt.Fprintf(&b, "  split-delta: pivot=%+v sibling=%d\n", n.splitPivot, int64(n.splitSibling))
		case kindIndexEntryDelta:
			fmt.Fprintf(&b, "  index-entry-delta: Kp=%+v Kq=%+v pid=%d\n", n.ieKp, n.ieKq, int64(n.iePID))
		case kindDeleteIndexTermDelta:
			fmt.Fprintf(&b, "  delete-index-term-delta: Kp=%+v\n", n.ieKp)
		case kindRemoveDelta:
			fmt.Fprintf(&b, "  remove-delta\n")
		case kindMergeDelta:
			fmt.Fprintf(&b, "  merge-delta: pivot=%+v orig=%d\n", n.mergePivot, int64(n.mergeOrigPID))
		}
	}
	return b.String()
}
