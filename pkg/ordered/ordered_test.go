package ordered

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLessEqual(t *testing.T) {
	less := Less[int]()
	equal := Equal[int]()

	require.True(t, less(1, 2))
	require.False(t, less(2, 1))
	require.True(t, equal(3, 3))
	require.False(t, equal(3, 4))
}

func TestMin(t *testing.T) {
	require.Equal(t, 1, Min(4, 1, 9, 2))
	require.Equal(t, -3, Min(-3, 0, 5))
}

func TestCompareByteTuples(t *testing.T) {
	a := ByteTuple{[]byte("a"), []byte("x")}
	b := ByteTuple{[]byte("a"), []byte("y")}

	require.True(t, CompareByteTuples(a, b) < 0)
	require.True(t, LessByteTuples(a, b))
	require.False(t, EqualByteTuples(a, b))
	require.True(t, EqualByteTuples(a, a))
}
