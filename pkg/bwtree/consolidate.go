package bwtree

// fakeConsolidateLeaf folds a leaf chain (head down to its base) into an
// ordered (keys, values) projection without installing anything -- used
// read-only by the splitter and by the scan iterator, as well as by the
// real consolidator below.
func (t *Tree[K, V]) fakeConsolidateLeaf(head *node[K, V]) (keys []K, vals [][]V) {
	chain := make([]*node[K, V], 0, head.chainLen+1)
	for n := head; n != nil; n = n.next {
		chain = append(chain, n)
	}

	base := chain[len(chain)-1]
	if base.kind != kindLeafBase {
		invariantPanic("fakeConsolidateLeaf: chain base is not a leaf")
	}

	keys = append(keys, base.keys...)
	for _, vs := range base.vals {
		cp := make([]V, len(vs))
		copy(cp, vs)
		vals = append(vals, cp)
	}

	// Walk base-to-head order by iterating the stack from the end
	// (oldest-but-one) towards the front (newest), i.e. apply deltas in
	// the order they were installed.
	for i := len(chain) - 2; i >= 0; i-- {
		delta := chain[i]
		switch delta.kind {
		case kindRecordDelta:
			idx := -1
			for x, k := range keys {
				if t.opts.KeyEqual(k, delta.recKey) {
					idx = x
					break
				}
			}
			switch delta.recOp {
			case opInsert:
				if idx >= 0 {
					vals[idx] = append(vals[idx], delta.recVal)
				} else {
					idx = insertSortedIndex(keys, delta.recKey, t.opts.KeyLess)
					keys = insertAt(keys, idx, delta.recKey)
					vals = insertValsAt(vals, idx, []V{delta.recVal})
				}
			case opDelete:
				if idx >= 0 {
					vals[idx] = removeAllEqual(vals[idx], delta.recVal, t.opts.ValueEqual)
					if len(vals[idx]) == 0 {
						keys = append(keys[:idx], keys[idx+1:]...)
						vals = append(vals[:idx], vals[idx+1:]...)
					}
				}
			}

		case kindSplitDelta:
			// Truncate to keys strictly less than the pivot -- the page
			// no longer logically owns keys past the split.
			cut := len(keys)
			for x, k := range keys {
				if !t.opts.KeyLess(k, delta.splitPivot) {
					cut = x
					break
				}
			}
			keys = keys[:cut]
			vals = vals[:cut]

		case kindMergeDelta, kindRemoveDelta:
			// Node merges are never originated by this tree -- readers
			// still know how to interpret them, but a consolidator
			// never actually meets one in practice. Nothing to fold here.

		default:
			invariantPanic("fakeConsolidateLeaf: unexpected delta kind " + delta.kind.String())
		}
	}

	return keys, vals
}

// fakeConsolidateInner is the inner-node analogue of fakeConsolidateLeaf.
func (t *Tree[K, V]) fakeConsolidateInner(head *node[K, V]) (seps []K, children []PID) {
	chain := make([]*node[K, V], 0, head.chainLen+1)
	for n := head; n != nil; n = n.next {
		chain = append(chain, n)
	}

	base := chain[len(chain)-1]
	if base.kind != kindInnerBase {
		invariantPanic("fakeConsolidateInner: chain base is not inner")
	}

	seps = append(seps, base.seps...)
	children = append(children, base.children...)

	for i := len(chain) - 2; i >= 0; i-- {
		delta := chain[i]
		switch delta.kind {
		case kindIndexEntryDelta:
			// Install child delta.iePID covering [Kp, Kq). Find the
			// child currently covering Kp and splice the new entry in
			// right after it.
			pos := 0
			for pos < len(seps) && t.opts.KeyLess(seps[pos], delta.ieKp) {
				pos++
			}
			seps = insertAt(seps, pos, delta.ieKp)
			children = insertPIDAt(children, pos+1, delta.iePID)

		case kindDeleteIndexTermDelta:
			for pos, s := range seps {
				if t.opts.KeyEqual(s, delta.ieKp) {
					seps = append(seps[:pos], seps[pos+1:]...)
					children = append(children[:pos+1], children[pos+2:]...)
					break
				}
			}

		case kindSplitDelta:
			cut := len(seps)
			for x, k := range seps {
				if !t.opts.KeyLess(k, delta.splitPivot) {
					cut = x
					break
				}
			}
			seps = seps[:cut]
			children = children[:cut+1]

		case kindMergeDelta, kindRemoveDelta:
			// see the note in fakeConsolidateLeaf

		default:
			invariantPanic("fakeConsolidateInner: unexpected delta kind " + delta.kind.String())
		}
	}

	return seps, children
}

func insertSortedIndex[K any](keys []K, key K, less func(a, b K) bool) int {
	i := 0
	for i < len(keys) && less(keys[i], key) {
		i++
	}
	return i
}

func insertAt[T any](s []T, i int, v T) []T {
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertValsAt[V any](s [][]V, i int, v []V) [][]V {
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertPIDAt(s []PID, i int, v PID) []PID {
	s = append(s, NullPID)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// removeAllEqual drops every value equal to target, not just the first --
// a delete-delta masks every value the reader path's tombstone set would
// mask, including duplicate-valued pairs inserted more than once.
func removeAllEqual[V any](vs []V, target V, equal func(a, b V) bool) []V {
	kept := vs[:0]
	for _, v := range vs {
		if !equal(v, target) {
			kept = append(kept, v)
		}
	}
	return kept
}

// maybeConsolidate returns the current chain head at pid, consolidating
// first if its chain has grown past MaxChainLen. Any write path may call
// this on the page it is about to modify. Returns nil if the page has
// become unmapped (caller should retry).
func (t *Tree[K, V]) maybeConsolidate(pid PID) *node[K, V] {
	head := t.mapping.get(pid)
	if head == nil {
		return nil
	}
	if head.chainLen <= t.opts.MaxChainLen {
		return head
	}
	return t.consolidate(pid)
}

// consolidate materializes a fresh base node from the chain at pid and
// CASes it into the mapping slot, retrying on a lost CAS. The superseded
// chain is handed to the garbage-staging list, never freed inline.
// Returns the newly installed base node; the current head unchanged when
// it is already a bare base node or still needs a split; nil if the page
// is unmapped.
func (t *Tree[K, V]) consolidate(pid PID) *node[K, V] {
	for {
		head := t.mapping.get(pid)
		if head == nil {
			return nil
		}
		if head.chainLen == 0 {
			return head // already a bare base node
		}

		leafMax, _, innerMax, _ := sizes[K, V](t.opts.NodeBytes)
		if head.needSplit(leafMax, innerMax) {
			// A missed split: the caller must split before consolidating.
			return head
		}

		var fresh *node[K, V]
		if head.isLeaf {
			keys, vals := t.fakeConsolidateLeaf(head)
			fresh = &node[K, V]{
				kind:     kindLeafBase,
				keys:     keys,
				vals:     vals,
				slotUse:  len(keys),
				nextLeaf: head.nextLeaf,
			}
		} else {
			seps, children := t.fakeConsolidateInner(head)
			fresh = &node[K, V]{
				kind:     kindInnerBase,
				seps:     seps,
				children: children,
				slotUse:  len(seps),
			}
		}
		fresh.isLeaf = head.isLeaf
		fresh.lowKey, fresh.lowInf = head.lowKey, head.lowInf
		fresh.highKey, fresh.highInf = head.highKey, head.highInf
		fresh.pid = pid

		if t.mapping.set(pid, head, fresh) {
			t.gc.stage(head)
			t.log.WithField("pid", int64(pid)).
				WithField("slot_use", fresh.slotUse).
				Debug("consolidated chain")
			return fresh
		}
		// Lost the race to another consolidator/mutator; the freshly
		// built base node is simply discarded (never installed, never
		// staged) and we re-read the current head.
	}
}
