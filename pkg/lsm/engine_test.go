package lsm

import (
	"fmt"
	"testing"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutTriggersFlushAtLimit(t *testing.T) {
	root := t.TempDir()
	e := NewEngine(root, 8, 4)
	key := Key{User: "u", Database: "mydb", Collection: "c"}

	for i := 0; i < 10; i++ {
		_, err := e.Put(key, record.Record{"id": fmt.Sprintf("%d", i)})
		require.NoError(t, err)
	}

	cs, err := e.ensure(key)
	require.NoError(t, err)
	assert.Len(t, cs.ssts, 1)
	assert.Equal(t, 2, cs.memtable.Len())

	all, err := e.GetAll(key)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestDeleteSurvivesCompaction(t *testing.T) {
	root := t.TempDir()
	e := NewEngine(root, 8, 2)
	key := Key{User: "u", Database: "mydb", Collection: "c"}

	for i := 0; i < 10; i++ {
		_, err := e.Put(key, record.Record{"id": fmt.Sprintf("%d", i)})
		require.NoError(t, err)
	}
	require.NoError(t, e.Flush(key))

	require.NoError(t, e.Delete(key, "3"))
	require.NoError(t, e.Flush(key))

	all, err := e.GetAll(key)
	require.NoError(t, err)
	var live int
	for _, r := range all {
		if !r.IsTombstone() {
			live++
		}
	}
	assert.Equal(t, 9, live)

	require.NoError(t, e.Compact(key))

	all, err = e.GetAll(key)
	require.NoError(t, err)
	live = 0
	for _, r := range all {
		if !r.IsTombstone() {
			live++
		} else {
			id, _ := r.ID()
			assert.Equal(t, "3", id)
		}
	}
	assert.Equal(t, 9, live)
}

func TestFlushIsNoOpOnEmptyMemtable(t *testing.T) {
	root := t.TempDir()
	e := NewEngine(root, 8, 4)
	key := Key{User: "u", Database: "mydb", Collection: "c"}
	require.NoError(t, e.Flush(key))
	cs, err := e.ensure(key)
	require.NoError(t, err)
	assert.Empty(t, cs.ssts)
}

func TestReplayRecoversMemtableFromWAL(t *testing.T) {
	root := t.TempDir()
	key := Key{User: "u", Database: "mydb", Collection: "c"}

	e1 := NewEngine(root, 1000, 4)
	_, err := e1.Put(key, record.Record{"id": "a", "v": float64(1)})
	require.NoError(t, err)
	_, err = e1.Put(key, record.Record{"id": "b", "v": float64(2)})
	require.NoError(t, err)
	require.NoError(t, e1.Delete(key, "a"))

	e2 := NewEngine(root, 1000, 4)
	all, err := e2.GetAll(key)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byID := make(map[string]record.Record)
	for _, r := range all {
		id, _ := r.ID()
		byID[id] = r
	}
	assert.True(t, byID["a"].IsTombstone())
	assert.False(t, byID["b"].IsTombstone())
}
