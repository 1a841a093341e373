package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/bloom"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/metrics"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/walio"
)

// Key identifies one collection's LSM state within the engine.
type Key struct {
	User       string
	Database   string
	Collection string
}

// Dir returns the collection's *.lsm directory under root.
func (k Key) Dir(root string) string {
	return filepath.Join(root, k.User, k.Database, k.Collection+".lsm")
}

func (k Key) walPath(root string) string {
	return filepath.Join(root, k.User, k.Database, "wal", k.Collection+".wal")
}

// txState tracks a single logical operation's progress between its
// durable WAL append and its in-memory effect, so a crash in that
// narrow window is distinguishable from one before or after it. This
// is bookkeeping only — never a multi-operation transaction, and
// nothing outside this package observes it.
type txState int

const (
	txCommitted txState = iota
	txActive
	txAborted
)

type collectionState struct {
	memtable *MemTable
	wal      *walio.WAL
	ssts     []string // filenames, creation order oldest first
	tx       txState  // progress of the op currently holding the engine lock
}

// Engine owns every collection's memtable, WAL, and SST list behind a
// single engine-wide mutex, which serializes Put, Delete, Flush,
// Compact, and GetAll across every collection in the process. This
// trades concurrency for a simple invariant: no two LSM operations
// interleave.
type Engine struct {
	mu sync.Mutex

	root                string
	memtableLimit       int
	compactionThreshold int
	collections         map[Key]*collectionState
	metrics             *metrics.Registry

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// SetMetrics attaches a metrics registry that Put/GetAll/Flush/Compact
// report to. Passing nil (the default) disables reporting.
func (e *Engine) SetMetrics(r *metrics.Registry) {
	e.metrics = r
}

// NewEngine constructs an engine rooted at dataRoot. It does not scan
// for existing collections eagerly; each collection's state (memtable
// replayed from its WAL, SST list loaded from disk) is lazily
// established the first time the engine is asked to operate on it.
func NewEngine(dataRoot string, memtableLimit, compactionThreshold int) *Engine {
	return &Engine{
		root:                dataRoot,
		memtableLimit:       memtableLimit,
		compactionThreshold: compactionThreshold,
		collections:         make(map[Key]*collectionState),
	}
}

// ensure returns the collectionState for key, opening its WAL and
// replaying it into a fresh memtable on first use, and loading its
// existing SST filenames in creation order. Callers must hold e.mu.
func (e *Engine) ensure(key Key) (*collectionState, error) {
	if cs, ok := e.collections[key]; ok {
		return cs, nil
	}

	if err := os.MkdirAll(key.Dir(e.root), 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", walio.ErrIO, key.Dir(e.root), err)
	}

	w, err := walio.Open(key.walPath(e.root), walio.FormatFramed)
	if err != nil {
		return nil, err
	}

	mt := NewMemTable(e.memtableLimit)
	// Replay re-applies WAL entries directly to the memtable, never
	// through Put/Delete, so recovery cannot double-log.
	if err := w.Replay(func(entry walio.Entry) error {
		switch entry.Op {
		case walio.OpInsert, walio.OpUpdate:
			mt.Put(entry.Record)
		case walio.OpDelete:
			mt.Delete(entry.ID)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	ssts, err := listSSTs(key.Dir(e.root))
	if err != nil {
		return nil, err
	}

	cs := &collectionState{memtable: mt, wal: w, ssts: ssts}
	e.collections[key] = cs
	return cs, nil
}

func listSSTs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: readdir %s: %v", ErrIO, dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sst" {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		tsI, seqI, _ := ParseSSTFileName(names[i])
		tsJ, seqJ, _ := ParseSSTFileName(names[j])
		if tsI != tsJ {
			return tsI < tsJ
		}
		return seqI < seqJ
	})
	return names, nil
}

// Put writes a PUT WAL entry, then inserts or overwrites rec in the
// collection's memtable under rec's id (synthesizing one via uuid if
// absent), flushing if the memtable has reached MEMTABLE_LIMIT.
func (e *Engine) Put(key Key, rec record.Record) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs, err := e.ensure(key)
	if err != nil {
		return "", err
	}

	id, ok := rec.ID()
	if !ok || id == "" {
		id = uuid.NewString()
		rec = rec.Clone()
		rec[record.IDKey] = id
	}

	cs.tx = txActive
	if err := cs.wal.Append(walio.Entry{
		Op: walio.OpInsert, User: key.User, Database: key.Database,
		Collection: key.Collection, Record: rec,
	}); err != nil {
		cs.tx = txAborted
		return "", err
	}

	cs.memtable.Put(rec)
	cs.tx = txCommitted

	if e.metrics != nil {
		e.metrics.WritesTotal.WithLabelValues(key.User, key.Database, key.Collection).Inc()
	}

	if cs.memtable.IsFull() {
		if err := e.flushLocked(key, cs); err != nil {
			return id, err
		}
	}
	return id, nil
}

// Delete writes a DELETE WAL entry and inserts a tombstone keyed on
// id into the collection's memtable.
func (e *Engine) Delete(key Key, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs, err := e.ensure(key)
	if err != nil {
		return err
	}

	cs.tx = txActive
	if err := cs.wal.Append(walio.Entry{
		Op: walio.OpDelete, User: key.User, Database: key.Database,
		Collection: key.Collection, ID: id,
	}); err != nil {
		cs.tx = txAborted
		return err
	}

	cs.memtable.Delete(id)
	cs.tx = txCommitted

	if e.metrics != nil {
		e.metrics.WritesTotal.WithLabelValues(key.User, key.Database, key.Collection).Inc()
	}
	return nil
}

// GetAll reads every SST in creation order, then overlays the
// memtable (memtable wins per id), returning the merged sequence.
// Tombstones are included; callers filter them as needed.
func (e *Engine) GetAll(key Key) ([]record.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.ReadsTotal.WithLabelValues(key.User, key.Database, key.Collection).Inc()
	}
	return e.getAllLocked(key)
}

func (e *Engine) getAllLocked(key Key) ([]record.Record, error) {
	cs, err := e.ensure(key)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]record.Record)
	var order []string

	for _, name := range cs.ssts {
		recs, err := ReadSSTable(filepath.Join(key.Dir(e.root), name))
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			id, _ := rec.ID()
			if _, seen := merged[id]; !seen {
				order = append(order, id)
			}
			merged[id] = rec
		}
	}

	for _, rec := range cs.memtable.Snapshot() {
		id, _ := rec.ID()
		if _, seen := merged[id]; !seen {
			order = append(order, id)
		}
		merged[id] = rec
	}

	out := make([]record.Record, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	return out, nil
}

// Flush writes the memtable's current contents to a fresh SST, then
// clears the memtable and truncates the WAL — the WAL only needs to
// cover entries not yet reflected in a durable SST. Empty memtable is
// a no-op.
func (e *Engine) Flush(key Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cs, err := e.ensure(key)
	if err != nil {
		return err
	}
	return e.flushLocked(key, cs)
}

func (e *Engine) flushLocked(key Key, cs *collectionState) error {
	if cs.memtable.Len() == 0 {
		return nil
	}

	snapshot := cs.memtable.Snapshot()
	name := SSTFileName(time.Now().Unix())
	path := filepath.Join(key.Dir(e.root), name)
	if err := WriteSSTable(path, snapshot); err != nil {
		return err
	}
	writeBloomSidecar(path, snapshot)

	cs.ssts = append(cs.ssts, name)
	cs.memtable.Clear()

	if e.metrics != nil {
		e.metrics.FlushesTotal.WithLabelValues(key.User, key.Database, key.Collection).Inc()
		e.metrics.SSTableCount.WithLabelValues(key.User, key.Database, key.Collection).Set(float64(len(cs.ssts)))
	}

	// Every entry now covered by the new SST is safe to drop from the
	// WAL; entries appended concurrently with this flush cannot exist
	// because Flush runs under the engine lock.
	return cs.wal.Clear()
}

// Compact merges every SST in a collection into one, reconciling
// duplicate ids last-writer-wins (a later SST, or a later record
// within one SST, wins). Tombstones are retained rather than dropped:
// a delete must stay invisible across arbitrary later compactions,
// which only holds if the tombstone itself survives. A no-op below
// the configured SST-count threshold.
func (e *Engine) Compact(key Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cs, err := e.ensure(key)
	if err != nil {
		return err
	}
	if len(cs.ssts) < e.compactionThreshold {
		return nil
	}

	merged := make(map[string]record.Record)
	var order []string
	for _, name := range cs.ssts {
		recs, err := ReadSSTable(filepath.Join(key.Dir(e.root), name))
		if err != nil {
			return err
		}
		for _, rec := range recs {
			id, _ := rec.ID()
			if _, seen := merged[id]; !seen {
				order = append(order, id)
			}
			merged[id] = rec
		}
	}

	sort.Strings(order)
	out := make([]record.Record, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}

	name := SSTFileName(time.Now().Unix())
	path := filepath.Join(key.Dir(e.root), name)
	if err := WriteSSTable(path, out); err != nil {
		// Failure aborts the operation without touching any input SST.
		return err
	}
	writeBloomSidecar(path, out)

	for _, old := range cs.ssts {
		oldPath := filepath.Join(key.Dir(e.root), old)
		archiveSST(oldPath)
		os.Remove(oldPath)
		os.Remove(bloom.SidecarPath(oldPath))
	}
	cs.ssts = []string{name}

	if e.metrics != nil {
		e.metrics.CompactionsTotal.WithLabelValues(key.User, key.Database, key.Collection).Inc()
		e.metrics.SSTableCount.WithLabelValues(key.User, key.Database, key.Collection).Set(1)
	}
	return nil
}

// writeBloomSidecar builds the optional `.sst.bloom` sidecar next to
// an SST. A failure here never aborts the flush/compaction it
// accompanies — the sidecar is a pure optimization artifact and must
// never affect query results.
func writeBloomSidecar(sstPath string, records []record.Record) {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if id, ok := rec.ID(); ok {
			ids = append(ids, id)
		}
	}
	_ = bloom.WriteSidecar(sstPath, ids)
}

// archiveSST snappy-compresses an SST that compaction is about to
// unlink into the collection's archive/ subdirectory, for forensic
// replay after the fact. It is purely additive: nothing in the read
// path ever looks in archive/, so a failure to archive never blocks
// compaction from proceeding.
func archiveSST(sstPath string) {
	data, err := os.ReadFile(sstPath)
	if err != nil {
		return
	}
	archiveDir := filepath.Join(filepath.Dir(sstPath), "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return
	}
	compressed := snappy.Encode(nil, data)
	archivePath := filepath.Join(archiveDir, filepath.Base(sstPath)+".snappy")
	_ = os.WriteFile(archivePath, compressed, 0o644)
}

// StartBackgroundCompaction launches the long-lived maintenance
// goroutine: it wakes every interval, compacts every known
// collection, and stops within one tick of Stop being called.
// Starting an already-running engine is a no-op.
func (e *Engine) StartBackgroundCompaction(interval time.Duration) {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go e.maintenanceLoop(interval)
}

func (e *Engine) maintenanceLoop(interval time.Duration) {
	defer e.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.compactAllKnown()
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) compactAllKnown() {
	e.mu.Lock()
	keys := make([]Key, 0, len(e.collections))
	for k := range e.collections {
		keys = append(keys, k)
	}
	e.mu.Unlock()

	for _, k := range keys {
		// A failed background compaction is discarded here, not
		// logged, and retried on the next tick; it never crashes the
		// process.
		_ = e.Compact(k)
	}
}

// Stop halts the background maintenance goroutine; it observes the
// stop signal within one tick. Stopping an engine that was never
// started is a no-op.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	close(e.stopCh)
	e.wg.Wait()
}

// Close stops any background worker and closes every open WAL.
func (e *Engine) Close() error {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for _, cs := range e.collections {
		if err := cs.wal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
