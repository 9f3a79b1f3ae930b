// Package ordered provides ready-made key_less/key_equal/value_equal
// callbacks (see the core's external key/value contract) for the common
// case of keys drawn from an ordered scalar type or a byte-slice tuple.
package ordered

import (
	"bytes"

	"golang.org/x/exp/constraints"
)

// Less returns a key_less callback for any ordered scalar type.
func Less[K constraints.Ordered]() func(a, b K) bool {
	return func(a, b K) bool { return a < b }
}

// Equal returns a key_equal/value_equal callback for any comparable type.
func Equal[T comparable]() func(a, b T) bool {
	return func(a, b T) bool { return a == b }
}

// Min returns the smallest of the given values.
func Min[T constraints.Ordered](numbers ...T) T {
	min := numbers[0]
	for _, n := range numbers {
		if n < min {
			min = n
		}
	}
	return min
}

// ByteTuple is a composite key made of one byte slice per indexed
// column, compared lexicographically column by column.
type ByteTuple [][]byte

// CompareByteTuples compares two tuples column by column and returns the
// sign of the first non-zero column comparison, or 0 if all columns are
// equal.
func CompareByteTuples(a, b ByteTuple) int {
	var cmp int
	for i := range a {
		cmp = bytes.Compare(a[i], b[i])
		if cmp != 0 {
			break
		}
	}
	return cmp
}

// LessByteTuples is a key_less callback for ByteTuple keys.
func LessByteTuples(a, b ByteTuple) bool {
	return CompareByteTuples(a, b) < 0
}

// EqualByteTuples is a key_equal callback for ByteTuple keys.
func EqualByteTuples(a, b ByteTuple) bool {
	return CompareByteTuples(a, b) == 0
}
