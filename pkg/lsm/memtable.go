// Package lsm implements the log-structured storage pipeline behind
// every non-catalog collection: an in-memory memtable guarded by a
// WAL, flushed to immutable SSTs, periodically compacted. There is no
// global key ordering; visibility derives from per-id last-writer-wins
// reconciliation applied during reads and compaction.
package lsm

import (
	"sort"
	"sync"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
)

// MemTable is the mutable, in-memory front end of one collection. A
// Put/Delete always lands here first (after the WAL append that
// makes it durable); reads overlay it on top of the SST stack.
type MemTable struct {
	mu    sync.RWMutex
	data  map[string]record.Record
	limit int
}

// NewMemTable builds an empty memtable that reports IsFull once it
// holds limit live entries.
func NewMemTable(limit int) *MemTable {
	return &MemTable{
		data:  make(map[string]record.Record),
		limit: limit,
	}
}

// Put inserts or overwrites rec under its id, last-writer-wins.
func (m *MemTable) Put(rec record.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, _ := rec.ID()
	m.data[id] = rec
}

// Delete writes a tombstone under id, superseding any live value.
func (m *MemTable) Delete(id string) {
	m.Put(record.Tombstone(id))
}

// Get returns the current value for id, which may itself be a
// tombstone.
func (m *MemTable) Get(id string) (record.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[id]
	return rec, ok
}

// Len reports the number of distinct ids currently held.
func (m *MemTable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// IsFull reports whether the memtable has reached its configured
// entry limit and a flush should be triggered.
func (m *MemTable) IsFull() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data) >= m.limit
}

// Snapshot returns every entry (including tombstones) sorted by id,
// the order an SST is written in. It does not clear the memtable —
// callers clear only after the snapshot is durably flushed.
func (m *MemTable) Snapshot() []record.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]record.Record, 0, len(m.data))
	for _, rec := range m.data {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		idI, _ := out[i].ID()
		idJ, _ := out[j].ID()
		return idI < idJ
	})
	return out
}

// Clear empties the memtable, called once its snapshot is safely on
// disk in a flushed SST.
func (m *MemTable) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]record.Record)
}
