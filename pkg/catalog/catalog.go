// Package catalog implements the ("system", "users") catalog
// collection: a record container (pkg/container) plus its own
// database-level WAL (`wal/db.wal`), one pair per user namespace.
// Structure mirrors pkg/lsm's engine — lazy per-key state, WAL replay
// applied directly rather than through the dispatch layer, and a
// dedicated mutex independent of the LSM engine's lock.
package catalog

import (
	"path/filepath"
	"sync"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/container"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/tenant"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/walio"
)

// Database and Collection name the catalog's fixed coordinates; the
// dispatch layer routes exactly this (db, collection) pair here.
const (
	Database   = "system"
	Collection = "users"
)

type userState struct {
	wal *walio.WAL
}

// Store owns the catalog's WAL and container state for every user
// namespace it has touched, behind one mutex that serializes every
// catalog mutation — the container rename alone does not order
// concurrent writers.
type Store struct {
	mu    sync.Mutex
	root  string
	users map[string]*userState
}

// NewStore constructs a catalog store rooted at dataRoot.
func NewStore(dataRoot string) *Store {
	return &Store{root: dataRoot, users: make(map[string]*userState)}
}

func (s *Store) walPath(user string) string {
	return filepath.Join(s.root, user, Database, "wal", "db.wal")
}

func (s *Store) containerPath(user string) string {
	return tenant.Layout{Root: s.root, User: user, Database: Database}.ContainerPath(Collection)
}

// ensure opens (creating if absent) the user's db.wal and replays it
// directly against the container — never through Insert/WriteAll, so
// recovery cannot re-log what it is recovering. Callers must hold s.mu.
func (s *Store) ensure(user string) (*userState, error) {
	if st, ok := s.users[user]; ok {
		return st, nil
	}
	if err := tenant.EnsureDatabase(s.root, user, Database); err != nil {
		return nil, err
	}

	w, err := walio.Open(s.walPath(user), walio.FormatFramed)
	if err != nil {
		return nil, err
	}

	path := s.containerPath(user)
	if err := w.Replay(func(entry walio.Entry) error {
		switch entry.Op {
		case walio.OpInsert:
			return container.Append(path, entry.Record)
		case walio.OpUpdate:
			return replaceByID(path, entry.Record)
		case walio.OpDelete:
			return removeByID(path, entry.ID)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	st := &userState{wal: w}
	s.users[user] = st
	return st, nil
}

func replaceByID(path string, updated record.Record) error {
	recs, _, err := container.ReadAll(path)
	if err != nil {
		return err
	}
	id, _ := updated.ID()
	found := false
	for i, rec := range recs {
		if rid, _ := rec.ID(); rid == id {
			recs[i] = updated
			found = true
			break
		}
	}
	if !found {
		recs = append(recs, updated)
	}
	return container.WriteAll(path, recs)
}

func removeByID(path, id string) error {
	recs, _, err := container.ReadAll(path)
	if err != nil {
		return err
	}
	out := recs[:0]
	for _, rec := range recs {
		if rid, _ := rec.ID(); rid != id {
			out = append(out, rec)
		}
	}
	return container.WriteAll(path, out)
}

// Insert appends a WAL entry then a container frame for rec under
// user's catalog. The WAL is cleared once the container append
// durably reflects it — the narrow window in between is what replay
// exists to close.
func (s *Store) Insert(user string, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.ensure(user)
	if err != nil {
		return err
	}

	if err := st.wal.Append(walio.Entry{Op: walio.OpInsert, User: user, Database: Database, Collection: Collection, Record: rec}); err != nil {
		return err
	}
	if err := container.Append(s.containerPath(user), rec); err != nil {
		return err
	}
	return st.wal.Clear()
}

// ReadAll returns every record currently in user's catalog container,
// in append order.
func (s *Store) ReadAll(user string) ([]record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ensure(user); err != nil {
		return nil, err
	}
	recs, _, err := container.ReadAll(s.containerPath(user))
	return recs, err
}

// WriteAll logs an UPDATE or DELETE WAL entry for the single record
// the caller changed, rewrites the entire container atomically, then
// clears the WAL. op and entry describe the one logical change this
// rewrite reflects (used for replay, not for the rewrite itself, which
// always receives the full post-image set).
func (s *Store) WriteAll(user string, op walio.Op, entry walio.Entry, records []record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.ensure(user)
	if err != nil {
		return err
	}

	entry.Op = op
	entry.User = user
	entry.Database = Database
	entry.Collection = Collection
	if err := st.wal.Append(entry); err != nil {
		return err
	}
	if err := container.WriteAll(s.containerPath(user), records); err != nil {
		return err
	}
	return st.wal.Clear()
}

// Close flushes and closes every open user WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, st := range s.users {
		if err := st.wal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
