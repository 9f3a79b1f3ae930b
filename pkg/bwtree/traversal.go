package bwtree

import "bwtree/util/stl"

// keyGE/keyLT interpret the low/high key bounds, including their
// +-infinity flags, using only the caller-supplied keyLess callback.
func (t *Tree[K, V]) keyGE(key, bound K, boundInf bool) bool {
	if boundInf {
		// bound stands for -inf here (low key); everything is >= -inf.
		return true
	}
	return !t.opts.KeyLess(key, bound)
}

func (t *Tree[K, V]) keyLT(key, bound K, boundInf bool) bool {
	if boundInf {
		// bound stands for +inf here (high key); everything is < +inf.
		return true
	}
	return t.opts.KeyLess(key, bound)
}

// keyInNode reports whether key falls in [low_key, high_key) of n,
// honoring the +-infinity flags on either bound.
func (t *Tree[K, V]) keyInNode(key K, n *node[K, V]) bool {
	return t.keyGE(key, n.lowKey, n.lowInf) && t.keyLT(key, n.highKey, n.highInf)
}

// search walks from pid down to the leaf chain head whose key range
// contains key, returning the root-to-leaf PID path. ok is false if a
// dereference along the way hits an unmapped PID -- callers treat that
// as a signal to retry.
func (t *Tree[K, V]) search(pid PID, key K) (path stl.Stack[PID], ok bool) {
	path = stl.NewStack[PID]()
	path.Push(pid)

	cur := t.mapping.get(pid)
	if cur == nil {
		return nil, false
	}

	for {
		switch cur.kind {
		case kindLeafBase, kindRecordDelta:
			return path, true

		case kindInnerBase:
			// i is the first separator strictly greater than key, or
			// len(seps) (the rightmost child) if none is.
			i := 0
			for i < len(cur.seps) && !t.opts.KeyLess(key, cur.seps[i]) {
				i++
			}
			child := cur.children[i]
			path.Push(child)
			cur = t.mapping.get(child)
			if cur == nil {
				return nil, false
			}

		case kindIndexEntryDelta, kindDeleteIndexTermDelta:
			if t.keyGE(key, cur.ieKp, false) && t.keyLT(key, cur.ieKq, cur.ieKqInf) {
				path.Push(cur.iePID)
				cur = t.mapping.get(cur.iePID)
				if cur == nil {
					return nil, false
				}
				continue
			}
			cur = cur.next

		case kindSplitDelta:
			if t.keyGE(key, cur.splitPivot, false) {
				sib := t.mapping.get(cur.splitSibling)
				if sib == nil {
					return nil, false
				}
				if err := path.ReplaceTop(cur.splitSibling); err != nil {
					return nil, false
				}
				cur = sib
				continue
			}
			cur = cur.next

		case kindMergeDelta:
			if t.keyGE(key, cur.mergePivot, false) {
				orig := t.mapping.get(cur.mergeOrigPID)
				if orig == nil {
					return nil, false
				}
				cur = orig
				continue
			}
			cur = cur.next

		case kindRemoveDelta:
			if _, err := path.Pop(); err != nil {
				return nil, false
			}
			top, err := path.Top()
			if err != nil {
				return nil, false
			}
			cur = t.mapping.get(top)
			if cur == nil {
				return nil, false
			}

		default:
			invariantPanic("search: unexpected node kind " + cur.kind.String())
		}
	}
}
