package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/catalog"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/lsm"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/metrics"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/predicate"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/tenant"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/vector"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/walio"
)

// Engine is the dispatch layer: it owns the catalog store and the LSM
// engine, and routes every logical operation to whichever of the two
// actually owns (db, collection). Only the ("system", "users") pair
// routes to the catalog; everything else is an LSM collection.
type Engine struct {
	root    string
	catalog *catalog.Store
	lsm     *lsm.Engine
	metrics *metrics.Registry
	logger  *slog.Logger

	logsMu sync.Mutex
	logs   map[string]*catalog.HumanLog
}

// New builds an Engine rooted at dataRoot with the given LSM tuning.
// logger may be nil, in which case slog.Default() is used.
func New(dataRoot string, memtableLimit, compactionThreshold int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		root:    dataRoot,
		catalog: catalog.NewStore(dataRoot),
		lsm:     lsm.NewEngine(dataRoot, memtableLimit, compactionThreshold),
		logger:  logger,
		logs:    make(map[string]*catalog.HumanLog),
	}
}

// SetMetrics attaches a metrics registry; both the engine's own
// counters and the underlying LSM engine's report to it.
func (e *Engine) SetMetrics(r *metrics.Registry) {
	e.metrics = r
	e.lsm.SetMetrics(r)
}

// LSM exposes the underlying LSM engine, e.g. for cmd/server to start
// background compaction.
func (e *Engine) LSM() *lsm.Engine { return e.lsm }

func isCatalogPath(db, coll string) bool {
	return db == catalog.Database && coll == catalog.Collection
}

func (e *Engine) humanLog(user, db string) *catalog.HumanLog {
	e.logsMu.Lock()
	defer e.logsMu.Unlock()
	key := user + "/" + db
	if l, ok := e.logs[key]; ok {
		return l
	}
	path := filepath.Join(tenant.Layout{Root: e.root, User: user, Database: db}.LogsDir(), "db.log")
	l := catalog.NewHumanLog(path)
	e.logs[key] = l
	return l
}

func (e *Engine) logLine(user, db, msg string) {
	if err := e.humanLog(user, db).Write(msg); err != nil {
		e.logger.Warn("human log write failed", "user", user, "db", db, "error", err)
	}
}

// Ping answers the request surface's no-op health check.
func (e *Engine) Ping() map[string]any {
	return map[string]any{"status": "ok"}
}

// EnsureUserRoot creates the bare <root>/<user> namespace, idempotently.
func (e *Engine) EnsureUserRoot(user string) error {
	if err := tenant.ValidateName(user); err != nil {
		return wrapErr("ensure_user_root", user, "", "", fmt.Errorf("%w: %v", ErrIO, err))
	}
	dir := tenant.Layout{Root: e.root, User: user}.UserDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapErr("ensure_user_root", user, "", "", fmt.Errorf("%w: mkdir %s: %v", ErrIO, dir, err))
	}
	return nil
}

// CreateDatabase idempotently creates the <user>/<db> directory layout.
func (e *Engine) CreateDatabase(user, db string) error {
	if err := tenant.EnsureDatabase(e.root, user, db); err != nil {
		return wrapErr("create_database", user, db, "", fmt.Errorf("%w: %v", ErrIO, err))
	}
	e.logLine(user, db, fmt.Sprintf("create_database %s/%s", user, db))
	return nil
}

// CreateCollection idempotently creates the empty container file for
// collection, regardless of whether it will end up routed to the
// catalog or LSM path — creation is one uniform operation either way.
func (e *Engine) CreateCollection(user, db, collection string) error {
	if err := tenant.EnsureCollection(e.root, user, db, collection); err != nil {
		return wrapErr("create_collection", user, db, collection, fmt.Errorf("%w: %v", ErrIO, err))
	}
	e.logLine(user, db, fmt.Sprintf("create_collection %s/%s/%s", user, db, collection))
	return nil
}

// ListDatabases returns the database names under user's namespace.
func (e *Engine) ListDatabases(user string) ([]string, error) {
	names, err := tenant.ListDatabases(e.root, user)
	if err != nil {
		return nil, wrapErr("list_databases", user, "", "", fmt.Errorf("%w: %v", ErrIO, err))
	}
	return names, nil
}

// Insert routes a record to the catalog or LSM path and returns its
// (possibly synthesized) id.
func (e *Engine) Insert(user, db, collection string, data record.Record) (string, error) {
	if isCatalogPath(db, collection) {
		id, _ := data.ID()
		if err := e.catalog.Insert(user, data); err != nil {
			return "", wrapErr("insert", user, db, collection, fmt.Errorf("%w: %v", ErrIO, err))
		}
		if e.metrics != nil {
			e.metrics.WritesTotal.WithLabelValues(user, db, collection).Inc()
		}
		e.logLine(user, db, fmt.Sprintf("insert %s id=%s", collection, id))
		return id, nil
	}

	key := lsm.Key{User: user, Database: db, Collection: collection}
	id, err := e.lsm.Put(key, data)
	if err != nil {
		return "", wrapErr("insert", user, db, collection, fmt.Errorf("%w: %v", ErrIO, err))
	}
	e.logLine(user, db, fmt.Sprintf("insert %s id=%s", collection, id))
	return id, nil
}

// InsertVector is Insert for a record that carries a "vector" field;
// the LSM/catalog write path does not distinguish it from any other
// record, so this is a thin, documented alias.
func (e *Engine) InsertVector(user, db, collection string, data record.Record) (string, error) {
	return e.Insert(user, db, collection, data)
}

// Find loads every live (non-tombstone) record in collection and
// returns those matching filter, in the collection's natural order.
func (e *Engine) Find(user, db, collection string, filter map[string]any) ([]record.Record, error) {
	all, err := e.loadAll(user, db, collection)
	if err != nil {
		return nil, wrapErr("find", user, db, collection, err)
	}
	node := predicate.Parse(filter)
	out := make([]record.Record, 0, len(all))
	for _, rec := range all {
		if rec.IsTombstone() {
			continue
		}
		if predicate.Eval(node, rec) {
			out = append(out, rec)
		}
	}
	if e.metrics != nil {
		e.metrics.ReadsTotal.WithLabelValues(user, db, collection).Inc()
	}
	return out, nil
}

func (e *Engine) loadAll(user, db, collection string) ([]record.Record, error) {
	if isCatalogPath(db, collection) {
		all, err := e.catalog.ReadAll(user)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		return all, nil
	}
	key := lsm.Key{User: user, Database: db, Collection: collection}
	all, err := e.lsm.GetAll(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return all, nil
}

// UpdateOne finds the first record matching filter, applies update
// (operator form or auto-wrapped replacement form), and persists it.
// It returns false, with no error, if no record matched.
func (e *Engine) UpdateOne(user, db, collection string, filter map[string]any, update map[string]any) (bool, error) {
	all, err := e.loadAll(user, db, collection)
	if err != nil {
		return false, wrapErr("update_one", user, db, collection, err)
	}
	node := predicate.Parse(filter)

	idx := -1
	for i, rec := range all {
		if !rec.IsTombstone() && predicate.Eval(node, rec) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}

	updated := applyUpdate(all[idx], update)

	if isCatalogPath(db, collection) {
		all[idx] = updated
		entry := walio.Entry{Record: updated}
		if id, ok := updated.ID(); ok {
			entry.ID = id
		}
		if err := e.catalog.WriteAll(user, walio.OpUpdate, entry, all); err != nil {
			return false, wrapErr("update_one", user, db, collection, fmt.Errorf("%w: %v", ErrIO, err))
		}
		e.logLine(user, db, fmt.Sprintf("update_one %s", collection))
		return true, nil
	}

	id, ok := updated.ID()
	if !ok || id == "" {
		return false, wrapErr("update_one", user, db, collection, ErrMissingID)
	}
	key := lsm.Key{User: user, Database: db, Collection: collection}
	if _, err := e.lsm.Put(key, updated); err != nil {
		return false, wrapErr("update_one", user, db, collection, fmt.Errorf("%w: %v", ErrIO, err))
	}
	e.logLine(user, db, fmt.Sprintf("update_one %s id=%s", collection, id))
	return true, nil
}

// DeleteOne finds the first live record matching filter and removes
// it: a container rewrite for the catalog path, a tombstone write for
// the LSM path. It returns false, with no error, if no record matched.
func (e *Engine) DeleteOne(user, db, collection string, filter map[string]any) (bool, error) {
	all, err := e.loadAll(user, db, collection)
	if err != nil {
		return false, wrapErr("delete_one", user, db, collection, err)
	}
	node := predicate.Parse(filter)

	idx := -1
	for i, rec := range all {
		if !rec.IsTombstone() && predicate.Eval(node, rec) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}

	if isCatalogPath(db, collection) {
		target := all[idx]
		id, _ := target.ID()
		remaining := append(append([]record.Record{}, all[:idx]...), all[idx+1:]...)
		entry := walio.Entry{ID: id}
		if err := e.catalog.WriteAll(user, walio.OpDelete, entry, remaining); err != nil {
			return false, wrapErr("delete_one", user, db, collection, fmt.Errorf("%w: %v", ErrIO, err))
		}
		e.logLine(user, db, fmt.Sprintf("delete_one %s id=%s", collection, id))
		return true, nil
	}

	id, ok := all[idx].ID()
	if !ok || id == "" {
		return false, wrapErr("delete_one", user, db, collection, ErrMissingID)
	}
	key := lsm.Key{User: user, Database: db, Collection: collection}
	if err := e.lsm.Delete(key, id); err != nil {
		return false, wrapErr("delete_one", user, db, collection, fmt.Errorf("%w: %v", ErrIO, err))
	}
	e.logLine(user, db, fmt.Sprintf("delete_one %s id=%s", collection, id))
	return true, nil
}

// VectorQuery is the parsed form of a query_vector request.
type VectorQuery struct {
	Vector   []float64
	K        int
	Metric   vector.Metric
	Filter   map[string]any
	Modality string
}

// QueryVector loads every live record, drops those without a vector
// or with a mismatched modality, drops those failing the predicate
// filter, then scores and returns the top K.
func (e *Engine) QueryVector(user, db, collection string, q VectorQuery) ([]vector.Scored, error) {
	all, err := e.loadAll(user, db, collection)
	if err != nil {
		return nil, wrapErr("query_vector", user, db, collection, err)
	}

	metric := q.Metric
	if metric == "" {
		metric = vector.MetricCosine
	}
	node := predicate.Parse(q.Filter)

	candidates := make([]record.Record, 0, len(all))
	for _, rec := range all {
		if rec.IsTombstone() {
			continue
		}
		if _, ok := vector.FieldVector(rec); !ok {
			continue
		}
		if q.Modality != "" {
			if m, _ := rec["modality"].(string); m != q.Modality {
				continue
			}
		}
		if !predicate.Eval(node, rec) {
			continue
		}
		candidates = append(candidates, rec)
	}

	if e.metrics != nil {
		e.metrics.ReadsTotal.WithLabelValues(user, db, collection).Inc()
	}
	return vector.TopK(candidates, q.Vector, q.K, metric), nil
}

// Close stops the LSM engine's background worker and closes every
// open WAL across both the catalog and LSM stores.
func (e *Engine) Close() error {
	lsmErr := e.lsm.Close()
	catErr := e.catalog.Close()
	if lsmErr != nil {
		return lsmErr
	}
	return catErr
}
