package bwtree

// tombstoneSet tracks values already observed as deleted further up a
// chain, suppressing matching inserts encountered later (older) in the
// chain. Values are compared with the caller-supplied ValueEqual
// callback, so this is a small linear-scan set rather than a map --
// chains are bounded by MaxChainLen in practice.
type tombstoneSet[V any] struct {
	equal func(a, b V) bool
	vals  []V
}

func newTombstoneSet[V any](equal func(a, b V) bool) *tombstoneSet[V] {
	return &tombstoneSet[V]{equal: equal}
}

func (s *tombstoneSet[V]) contains(v V) bool {
	for _, x := range s.vals {
		if s.equal(x, v) {
			return true
		}
	}
	return false
}

func (s *tombstoneSet[V]) add(v V) {
	if !s.contains(v) {
		s.vals = append(s.vals, v)
	}
}

// Lookup returns the multiset of values associated with key.
func (t *Tree[K, V]) Lookup(key K) []V {
	guard := t.gc.enter()
	defer t.gc.exit(guard)

	return t.getValue(key)
}

// getValue interprets the leaf chain from head to base, restarting from
// the root whenever it meets a remove-delta (the structure changed out
// from under it). A fresh tombstone set is allocated on every restart --
// accumulated tombstones from a stale chain must not leak into the retry.
func (t *Tree[K, V]) getValue(key K) []V {
	path, ok := t.search(t.root.Load(), key)
	for !ok {
		path, ok = t.search(t.root.Load(), key)
	}

	pid, _ := path.Top()
	cur := t.mapping.get(pid)
	if cur == nil {
		return t.getValue(key)
	}

	var result []V
	tomb := newTombstoneSet[V](t.opts.ValueEqual)

	for cur != nil {
		switch cur.kind {
		case kindRecordDelta:
			if t.opts.KeyEqual(cur.recKey, key) {
				if cur.recOp == opInsert {
					if !tomb.contains(cur.recVal) {
						result = append(result, cur.recVal)
					}
				} else {
					tomb.add(cur.recVal)
				}
			}
			cur = cur.next

		case kindLeafBase:
			for i, k := range cur.keys {
				if t.opts.KeyEqual(k, key) {
					for _, v := range cur.vals[i] {
						if !tomb.contains(v) {
							result = append(result, v)
						}
					}
					break
				}
			}
			cur = nil

		case kindSplitDelta:
			if t.keyGE(key, cur.splitPivot, false) {
				cur = t.mapping.get(cur.splitSibling)
			} else {
				cur = cur.next
			}

		case kindMergeDelta:
			if t.keyGE(key, cur.mergePivot, false) {
				cur = t.mapping.get(cur.mergeOrigPID)
			} else {
				cur = cur.next
			}

		case kindRemoveDelta:
			return t.getValue(key)

		default:
			invariantPanic("getValue: unexpected node kind " + cur.kind.String())
		}
	}

	return result
}

// keyIsIn reports whether key appears with at least one live value
// anywhere in the chain rooted at head. Used by Insert to enforce the
// unique-keys policy and to decide whether an insert grows slotUse.
func (t *Tree[K, V]) keyIsIn(key K, head *node[K, V]) bool {
	tomb := newTombstoneSet[V](t.opts.ValueEqual)
	cur := head

	for cur != nil {
		switch cur.kind {
		case kindRecordDelta:
			if t.opts.KeyEqual(cur.recKey, key) {
				if cur.recOp == opInsert {
					if !tomb.contains(cur.recVal) {
						return true
					}
				} else {
					tomb.add(cur.recVal)
				}
			}
			cur = cur.next

		case kindLeafBase:
			for i, k := range cur.keys {
				if t.opts.KeyEqual(k, key) {
					for _, v := range cur.vals[i] {
						if !tomb.contains(v) {
							return true
						}
					}
					return false
				}
			}
			return false

		case kindSplitDelta:
			if t.keyGE(key, cur.splitPivot, false) {
				cur = t.mapping.get(cur.splitSibling)
			} else {
				cur = cur.next
			}

		case kindMergeDelta:
			if t.keyGE(key, cur.mergePivot, false) {
				cur = t.mapping.get(cur.mergeOrigPID)
			} else {
				cur = cur.next
			}

		default:
			return false
		}
	}

	return false
}

// countPair returns (total values for key, values equal to value) by
// scanning the chain rooted at head.
func (t *Tree[K, V]) countPair(key K, value V, head *node[K, V]) (total, matching int) {
	tomb := newTombstoneSet[V](t.opts.ValueEqual)
	cur := head

	for cur != nil {
		switch cur.kind {
		case kindRecordDelta:
			if t.opts.KeyEqual(cur.recKey, key) {
				if cur.recOp == opInsert {
					if !tomb.contains(cur.recVal) {
						total++
						if t.opts.ValueEqual(cur.recVal, value) {
							matching++
						}
					}
				} else {
					tomb.add(cur.recVal)
				}
			}
			cur = cur.next

		case kindLeafBase:
			for i, k := range cur.keys {
				if t.opts.KeyEqual(k, key) {
					for _, v := range cur.vals[i] {
						if tomb.contains(v) {
							continue
						}
						total++
						if t.opts.ValueEqual(v, value) {
							matching++
						}
					}
					break
				}
			}
			cur = nil

		case kindMergeDelta:
			if t.keyGE(key, cur.mergePivot, false) {
				cur = t.mapping.get(cur.mergeOrigPID)
			} else {
				cur = cur.next
			}

		case kindSplitDelta:
			if t.keyGE(key, cur.splitPivot, false) {
				cur = t.mapping.get(cur.splitSibling)
			} else {
				cur = cur.next
			}

		default:
			invariantPanic("countPair: unexpected node kind " + cur.kind.String())
		}
	}

	return total, matching
}
