package bwtree

import "bwtree/util/stl"

// createLeafSibling builds the new right sibling holding the upper half
// of orig's logically consolidated contents. The pivot key is the
// sibling's first key, and that key is not duplicated in orig: a
// consolidation of orig truncates to keys strictly less than the pivot.
func (t *Tree[K, V]) createLeafSibling(orig *node[K, V]) (sib *node[K, V], pivot K) {
	keys, vals := t.fakeConsolidateLeaf(orig)
	half := len(keys) / 2

	sibKeys := append([]K{}, keys[half:]...)
	sibVals := make([][]V, len(vals)-half)
	copy(sibVals, vals[half:])

	sib = &node[K, V]{
		kind:     kindLeafBase,
		isLeaf:   true,
		keys:     sibKeys,
		vals:     sibVals,
		slotUse:  len(sibKeys),
		lowKey:   sibKeys[0],
		highKey:  orig.highKey,
		highInf:  orig.highInf,
		nextLeaf: orig.nextLeaf,
	}
	return sib, sibKeys[0]
}

// createInnerSibling is the inner-node analogue. The separator at the
// split point is promoted to the parent (via the caller's index-entry
// delta) and is not retained by either child, so the new sibling's
// first child is explicitly the correct transplanted child pointer
// rather than left unset.
func (t *Tree[K, V]) createInnerSibling(orig *node[K, V]) (sib *node[K, V], pivot K) {
	seps, children := t.fakeConsolidateInner(orig)
	half := len(seps) / 2
	pivot = seps[half]

	sibSeps := append([]K{}, seps[half+1:]...)
	sibChildren := append([]PID{}, children[half+1:]...)

	sib = &node[K, V]{
		kind:     kindInnerBase,
		isLeaf:   false,
		seps:     sibSeps,
		children: sibChildren,
		slotUse:  len(sibSeps),
		lowKey:   pivot,
		highKey:  orig.highKey,
		highInf:  orig.highInf,
	}
	return sib, pivot
}

// createRoot installs a fresh two-child root over (oldRootPID, newPID)
// separated by pivot, then CASes the tree's root variable across. If
// another goroutine already replaced the root, this goroutine's freshly
// built root is simply abandoned.
func (t *Tree[K, V]) createRoot(oldRootPID, newPID PID, pivot K) {
	newRoot := &node[K, V]{
		kind:     kindInnerBase,
		seps:     []K{pivot},
		children: []PID{oldRootPID, newPID},
		slotUse:  1,
		lowInf:   true,
		highInf:  true,
	}

	newRootPID, ok := t.mapping.add(newRoot)
	if !ok {
		invariantPanic("createRoot: mapping table exhausted")
	}

	for {
		old := t.root.Load()
		if old != oldRootPID {
			t.mapping.remove(newRootPID)
			return
		}
		if t.root.CompareAndSwap(old, newRootPID) {
			t.log.WithField("root", int64(newRootPID)).Info("new root installed")
			return
		}
	}
}

// findParent returns the current parent of the page identified by
// checkPID (or, after a split, its sibling sibPID) for key. It
// unconditionally re-descends from the root and reads off whichever
// frame currently precedes checkPID/sibPID on a fresh path, tolerating
// concurrent re-parenting instead of asserting a stale path still holds.
func (t *Tree[K, V]) findParent(key K, checkPID, sibPID PID) *node[K, V] {
	for {
		path, ok := t.search(t.root.Load(), key)
		if !ok {
			continue
		}
		frames := popAll(path)

		for i := 1; i < len(frames); i++ {
			if frames[i] == checkPID || frames[i] == sibPID {
				if p := t.mapping.get(frames[i-1]); p != nil {
					return p
				}
			}
		}

		// Neither PID appears anymore -- a further split or
		// consolidation already overtook us. Fall back to the frame
		// directly above wherever the path landed.
		if len(frames) >= 2 {
			if p := t.mapping.get(frames[len(frames)-2]); p != nil {
				return p
			}
		}
		if p := t.mapping.get(frames[0]); p != nil {
			return p
		}
	}
}

func popAll(path stl.Stack[PID]) []PID {
	n := path.Len()
	frames := make([]PID, n)
	for i := n - 1; i >= 0; i-- {
		v, _ := path.Pop()
		frames[i] = v
	}
	return frames
}

// split walks the path from the leaf containing key upward, splitting
// any node whose slotUse has reached its max. It terminates at or
// before the root: every iteration either installs a split and stops,
// or installs a split and an index-entry delta and moves up one level,
// strictly increasing the page count each time.
func (t *Tree[K, V]) split(key K) {
	path, ok := t.search(t.root.Load(), key)
	for !ok {
		path, ok = t.search(t.root.Load(), key)
	}

	leafMax, _, innerMax, _ := sizes[K, V](t.opts.NodeBytes)

	checkPID, err := path.Pop()
	if err != nil {
		return
	}
	checkNode := t.mapping.get(checkPID)
	if checkNode == nil {
		return
	}

	for checkNode.needSplit(leafMax, innerMax) {
		var sib *node[K, V]
		var pivot K
		var sibPID PID

		for {
			if checkNode.isLeaf {
				sib, pivot = t.createLeafSibling(checkNode)
			} else {
				sib, pivot = t.createInnerSibling(checkNode)
			}

			var added bool
			sibPID, added = t.mapping.add(sib)
			if !added {
				invariantPanic("split: failed to allocate sibling PID")
			}

			splitDelta := &node[K, V]{
				kind:         kindSplitDelta,
				splitPivot:   pivot,
				splitSibling: sibPID,
			}
			prepend(splitDelta, checkNode)
			splitDelta.highKey, splitDelta.highInf = pivot, false
			splitDelta.slotUse = checkNode.slotUse / 2
			if checkNode.isLeaf {
				splitDelta.nextLeaf = sibPID
			}

			if t.mapping.set(checkPID, checkNode, splitDelta) {
				t.log.WithField("pid", int64(checkPID)).
					WithField("sibling", int64(sibPID)).
					Debug("split installed")
				break
			}

			t.mapping.remove(sibPID)
			checkNode = t.mapping.get(checkPID)
			if checkNode == nil {
				return
			}
		}

		t.consolidate(checkPID)

		if path.Empty() {
			t.createRoot(checkPID, sibPID, pivot)
			return
		}

		var parentPID PID
		for {
			parent := t.findParent(key, checkPID, sibPID)
			parentPID = parent.pid

			ieDelta := &node[K, V]{
				kind:    kindIndexEntryDelta,
				ieKp:    pivot,
				ieKq:    sib.highKey,
				ieKqInf: sib.highInf,
				iePID:   sibPID,
			}
			prepend(ieDelta, parent)
			ieDelta.slotUse = parent.slotUse + 1

			if t.mapping.set(parentPID, parent, ieDelta) {
				break
			}
		}
		path.Pop()

		checkPID = parentPID
		checkNode = t.mapping.get(checkPID)
		if checkNode == nil {
			return
		}
		if !checkNode.needSplit(leafMax, innerMax) {
			t.consolidate(checkPID)
			return
		}
	}
}
