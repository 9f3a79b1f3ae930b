package bwtree

import "bwtree/util/stream"

// Entry is one key and its live value at the moment a scan visits it.
type Entry[K any, V any] struct {
	Key   K
	Value V
}

// Scan returns a stream of every (key, value) pair in ascending key
// order, produced by a background goroutine that walks the leaf
// sibling chain left to right, consolidating each leaf into a sorted
// projection on the fly without installing anything. The stream is
// auto-continuing: the producer never blocks waiting on the consumer
// to call Continue.
func (t *Tree[K, V]) Scan() stream.Reader[Entry[K, V]] {
	s := stream.New[Entry[K, V]](64)
	s.AutoContinue(true)

	go func() {
		defer s.Close()

		guard := t.gc.enter()
		defer t.gc.exit(guard)

		for pid := t.headLeaf; pid != NullPID; {
			head := t.mapping.get(pid)
			if head == nil {
				return
			}
			keys, vals := t.fakeConsolidateLeaf(head)
			for i, k := range keys {
				for _, v := range vals[i] {
					s.Push(Entry[K, V]{Key: k, Value: v})
				}
			}
			pid = head.nextLeaf
		}
	}()

	return s
}

// ScanAll drains Scan into a slice. Convenient for small trees and
// tests; Scan itself is the better fit once a tree is large enough that
// materializing every entry at once matters.
func (t *Tree[K, V]) ScanAll() []Entry[K, V] {
	return t.Scan().Slice()
}
