package bwtree

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"bwtree/pkg/ordered"
)

func newUniqueTestTree() *Tree[int, string] {
	return New(&Options[int, string]{
		KeyLess:    ordered.Less[int](),
		KeyEqual:   ordered.Equal[int](),
		ValueEqual: ordered.Equal[string](),
		Unique:     true,
	})
}

func TestLookup_onEmptyTree(t *testing.T) {
	tree := newTestTree()
	require.Empty(t, tree.Lookup(1))
}

func TestInsert_uniqueKeyRejectsDuplicate(t *testing.T) {
	tree := newUniqueTestTree()

	require.True(t, tree.Insert(1, "a"))
	require.False(t, tree.Insert(1, "b"), "a second insert under a unique-key policy must be rejected")
	require.Equal(t, []string{"a"}, tree.Lookup(1))
}

func TestInsert_multiValueNonUnique(t *testing.T) {
	tree := newTestTree()

	require.True(t, tree.Insert(1, "a"))
	require.True(t, tree.Insert(1, "b"))
	require.True(t, tree.Insert(1, "a")) // duplicate (key, value) pairs are allowed too

	got := tree.Lookup(1)
	require.Len(t, got, 3)
	require.ElementsMatch(t, []string{"a", "b", "a"}, got)
}

func TestInsert_triggersSplitPastLeafMax(t *testing.T) {
	tree := newTestTree()
	leafMax, _, _, _ := sizes[int, string](tree.opts.NodeBytes)

	for i := 0; i < leafMax+5; i++ {
		require.True(t, tree.Insert(i, fmt.Sprintf("v%d", i)))
	}

	require.Greater(t, tree.LeafCount(), 1, "inserting past leafMax should have split the root leaf")
	require.Greater(t, tree.Height(), 1, "a split root leaf should have grown the tree's height")

	for i := 0; i < leafMax+5; i++ {
		require.Equal(t, []string{fmt.Sprintf("v%d", i)}, tree.Lookup(i))
	}
}

func TestDelete_removesKeyEntirelyWhenLastValueGoes(t *testing.T) {
	tree := newTestTree()

	require.True(t, tree.Insert(7, "only"))
	require.True(t, tree.Delete(7, "only"))
	require.Empty(t, tree.Lookup(7))
}

func TestDelete_leavesRemainingValues(t *testing.T) {
	tree := newTestTree()

	require.True(t, tree.Insert(7, "a"))
	require.True(t, tree.Insert(7, "b"))
	require.True(t, tree.Delete(7, "a"))
	require.Equal(t, []string{"b"}, tree.Lookup(7))
}

func TestDelete_missingPairReturnsFalse(t *testing.T) {
	tree := newTestTree()
	require.True(t, tree.Insert(7, "a"))
	require.False(t, tree.Delete(7, "nonexistent"))
	require.False(t, tree.Delete(8, "a"))
}

func TestConcurrentInsert_fromTwoGoroutines(t *testing.T) {
	tree := newTestTree()

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			tree.Insert(i, "even-goroutine")
		}
	}()
	go func() {
		defer wg.Done()
		for i := n; i < 2*n; i++ {
			tree.Insert(i, "odd-goroutine")
		}
	}()
	wg.Wait()

	require.Equal(t, 2*n, countAll(tree))
}

func countAll(tree *Tree[int, string]) int {
	return len(tree.ScanAll())
}

func TestScanAll_returnsAscendingOrder(t *testing.T) {
	tree := newTestTree()
	keys := []int{5, 1, 9, 3, 7}
	for _, k := range keys {
		require.True(t, tree.Insert(k, fmt.Sprintf("v%d", k)))
	}

	entries := tree.ScanAll()
	require.Len(t, entries, len(keys))
	for i := 1; i < len(entries); i++ {
		require.True(t, entries[i-1].Key < entries[i].Key, "ScanAll should yield keys in ascending order")
	}
}

func TestConsolidate_preservesContents(t *testing.T) {
	tree := newTestTree()
	for i := 0; i < 5; i++ {
		require.True(t, tree.Insert(i, fmt.Sprintf("v%d", i)))
	}

	rootPID := tree.root.Load()
	before := tree.Lookup(2)

	tree.consolidate(rootPID)

	after := tree.Lookup(2)
	require.Equal(t, before, after, "consolidation must not change observable contents")

	head := tree.mapping.get(rootPID)
	require.Equal(t, 0, head.chainLen, "a freshly consolidated page should be a bare base node")
}
