package bwtree

import "testing"

func Test_mappingTable_addGet(t *testing.T) {
	mt := newMappingTable[int, string](4)

	n := &node[int, string]{kind: kindLeafBase}
	pid, ok := mt.add(n)
	assert(t, ok, "add should succeed on a fresh table")
	assert(t, mt.get(pid) == n, "get should return what add installed")
	assert(t, n.pid == pid, "add should stamp the node's pid")
}

func Test_mappingTable_get_unmapped(t *testing.T) {
	mt := newMappingTable[int, string](4)
	assert(t, mt.get(PID(999)) == nil, "get on an unmapped pid should return nil")
	assert(t, mt.get(NullPID) == nil, "get on NullPID should return nil")
}

func Test_mappingTable_set_CAS(t *testing.T) {
	mt := newMappingTable[int, string](4)

	orig := &node[int, string]{kind: kindLeafBase}
	pid, _ := mt.add(orig)

	wrong := &node[int, string]{kind: kindLeafBase}
	assert(t, !mt.set(pid, wrong, &node[int, string]{}), "set should fail against a stale expected pointer")

	fresh := &node[int, string]{kind: kindRecordDelta}
	assert(t, mt.set(pid, orig, fresh), "set should succeed against the current value")
	assert(t, mt.get(pid) == fresh, "get should reflect the CAS winner")
}

func Test_mappingTable_remove(t *testing.T) {
	mt := newMappingTable[int, string](4)
	pid, _ := mt.add(&node[int, string]{kind: kindLeafBase})
	mt.remove(pid)
	assert(t, mt.get(pid) == nil, "get after remove should return nil")
}

func Test_mappingTable_spansTiers(t *testing.T) {
	mt := newMappingTable[int, string](4)

	var last PID
	for i := 0; i < 20; i++ {
		pid, ok := mt.add(&node[int, string]{kind: kindLeafBase})
		assert(t, ok, "add #%d should succeed across a tier-2 boundary", i)
		last = pid
	}
	assert(t, mt.get(last) != nil, "get should resolve a pid from a later tier-2 block")
}
