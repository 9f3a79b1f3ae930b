package bwtree

// Insert adds (key, value) to the tree. It returns false only when the
// tree enforces unique keys and key already exists -- every other
// contention case is resolved internally by retry and never surfaces.
func (t *Tree[K, V]) Insert(key K, value V) bool {
	guard := t.gc.enter()
	defer t.gc.exit(guard)

	return t.insertEntry(key, value)
}

func (t *Tree[K, V]) insertEntry(key K, value V) bool {
	for {
		t.split(key)

		path, ok := t.search(t.root.Load(), key)
		if !ok {
			continue
		}
		leafPID, _ := path.Top()

		head := t.maybeConsolidate(leafPID)
		if head == nil {
			continue
		}
		leafMax, _, innerMax, _ := sizes[K, V](t.opts.NodeBytes)
		if head.needSplit(leafMax, innerMax) {
			// consolidate declined to fold an over-full chain (it leaves
			// that to the splitter); retry from the top so split(key)
			// runs again before this insert lands.
			continue
		}

		if !t.keyInNode(key, head) {
			continue // structure changed under us; restart
		}

		dup := t.keyIsIn(key, head)
		if t.opts.Unique && dup {
			return false
		}

		delta := &node[K, V]{
			kind:   kindRecordDelta,
			recOp:  opInsert,
			recKey: key,
			recVal: value,
		}
		prepend(delta, head)
		delta.slotUse = head.slotUse
		if !dup {
			delta.slotUse++
		}

		if t.mapping.set(leafPID, head, delta) {
			return true
		}
		// CAS lost the race; retry from the top.
	}
}

// Delete removes (key, value): every value under key equal to value goes,
// so a pair inserted more than once is removed by a single Delete. It
// returns false iff the pair is not present.
func (t *Tree[K, V]) Delete(key K, value V) bool {
	guard := t.gc.enter()
	defer t.gc.exit(guard)

	return t.deleteEntry(key, value)
}

func (t *Tree[K, V]) deleteEntry(key K, value V) bool {
	for {
		t.split(key)

		path, ok := t.search(t.root.Load(), key)
		if !ok {
			continue
		}
		leafPID, _ := path.Top()

		head := t.maybeConsolidate(leafPID)
		if head == nil {
			continue
		}
		leafMax, _, innerMax, _ := sizes[K, V](t.opts.NodeBytes)
		if head.needSplit(leafMax, innerMax) {
			continue
		}

		if !t.keyInNode(key, head) {
			continue
		}

		total, matching := t.countPair(key, value, head)
		if matching == 0 {
			return false
		}

		delta := &node[K, V]{
			kind:   kindRecordDelta,
			recOp:  opDelete,
			recKey: key,
			recVal: value,
		}
		prepend(delta, head)
		delta.slotUse = head.slotUse
		if matching == total {
			delta.slotUse--
		}

		if t.mapping.set(leafPID, head, delta) {
			return true
		}
	}
}
