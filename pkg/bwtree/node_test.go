package bwtree

import "testing"

func Test_node_needSplit(t *testing.T) {
	leaf := &node[int, string]{isLeaf: true, slotUse: 4}
	assert(t, !leaf.needSplit(8, 8), "slotUse below max should not need split")

	leaf.slotUse = 8
	assert(t, leaf.needSplit(8, 8), "slotUse at max should need split")

	inner := &node[int, string]{isLeaf: false, slotUse: 8}
	assert(t, inner.needSplit(8, 8), "inner at innerMax should need split")
}

func Test_node_needMerge(t *testing.T) {
	leaf := &node[int, string]{isLeaf: true, slotUse: 1}
	assert(t, leaf.needMerge(2, 2), "slotUse below min should need merge")

	leaf.slotUse = 3
	assert(t, !leaf.needMerge(2, 2), "slotUse above min should not need merge")
}

func Test_prepend(t *testing.T) {
	base := &node[int, string]{
		kind:     kindLeafBase,
		isLeaf:   true,
		lowKey:   1,
		highKey:  10,
		highInf:  false,
		nextLeaf: 7,
		pid:      3,
		chainLen: 0,
	}

	delta := &node[int, string]{kind: kindRecordDelta, recOp: opInsert, recKey: 1, recVal: "a"}
	prepend(delta, base)

	assert(t, delta.next == base, "prepend should link delta.next to orig")
	assert(t, delta.chainLen == 1, "prepend should bump chainLen, got %d", delta.chainLen)
	assert(t, delta.isLeaf, "prepend should copy isLeaf")
	assert(t, delta.lowKey == 1 && delta.highKey == 10, "prepend should copy bounds")
	assert(t, delta.nextLeaf == 7, "prepend should copy nextLeaf")
	assert(t, delta.pid == 3, "prepend should copy pid")
}

func assert(t *testing.T, cond bool, msg string, args ...interface{}) {
	if cond {
		return
	}
	t.Errorf(msg, args...)
}
