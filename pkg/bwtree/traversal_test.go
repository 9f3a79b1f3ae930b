package bwtree

import (
	"testing"

	"bwtree/pkg/ordered"
)

func newTestTree() *Tree[int, string] {
	return New(&Options[int, string]{
		KeyLess:    ordered.Less[int](),
		KeyEqual:   ordered.Equal[int](),
		ValueEqual: ordered.Equal[string](),
	})
}

func Test_search_emptyTreeLandsOnRootLeaf(t *testing.T) {
	tree := newTestTree()

	path, ok := tree.search(tree.root.Load(), 42)
	assert(t, ok, "search on a fresh tree should succeed")
	assert(t, path.Len() == 1, "search on a fresh tree should return a one-frame path, got %d", path.Len())

	top, _ := path.Top()
	assert(t, top == tree.root.Load(), "the single frame should be the root leaf")
}

func Test_search_followsSplitDelta(t *testing.T) {
	tree := newTestTree()
	rootPID := tree.root.Load()

	leftBase := tree.mapping.get(rootPID)
	sibling := &node[int, string]{
		kind:     kindLeafBase,
		isLeaf:   true,
		lowKey:   10,
		highInf:  true,
		keys:     []int{10, 20},
		vals:     [][]string{{"a"}, {"b"}},
		slotUse:  2,
		nextLeaf: NullPID,
	}
	sibPID, ok := tree.mapping.add(sibling)
	assert(t, ok, "adding the sibling should succeed")

	splitDelta := &node[int, string]{kind: kindSplitDelta, splitPivot: 10, splitSibling: sibPID}
	prepend(splitDelta, leftBase)
	splitDelta.highKey, splitDelta.highInf = 10, false

	ok2 := tree.mapping.set(rootPID, leftBase, splitDelta)
	assert(t, ok2, "installing the split delta should succeed")

	path, ok := tree.search(rootPID, 20)
	assert(t, ok, "search for a key past the pivot should succeed")
	top, _ := path.Top()
	assert(t, top == sibPID, "search should redirect to the sibling for a key past the pivot")

	path, ok = tree.search(rootPID, 5)
	assert(t, ok, "search for a key before the pivot should succeed")
	top, _ = path.Top()
	assert(t, top == rootPID, "search should stay on the original page for a key before the pivot")
}
