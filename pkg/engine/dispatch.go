package engine

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/vector"
)

var validate = validator.New()

// vectorQueryShape is the validated form of a queryVector request's
// action-specific fields: k at least 1, metric one of cosine/l2, a
// non-empty query vector.
type vectorQueryShape struct {
	Vector []float64 `validate:"required,min=1"`
	K      int       `validate:"min=1,max=10000"`
	Metric string    `validate:"oneof=cosine l2"`
}

// Dispatch implements the request surface: a single request is a
// mapping keyed by "action" plus action-specific fields; the response
// is a mapping carrying either a "status" plus result fields, or an
// "error" message. cmd/server's HTTP request handler, cmd/menu, and
// Bulk all funnel through this one entry point.
func (e *Engine) Dispatch(req map[string]any) map[string]any {
	action, _ := req["action"].(string)
	user := stringField(req, "userId", "system")
	db := stringField(req, "dbName", "")
	collection := stringField(req, "collection", "")

	switch action {
	case "ping":
		return e.Ping()

	case "initUserSpace":
		if err := e.EnsureUserRoot(user); err != nil {
			return errResponse(err)
		}
		return map[string]any{"status": "ok"}

	case "createDatabase":
		if err := e.CreateDatabase(user, db); err != nil {
			return errResponse(err)
		}
		return map[string]any{"status": "ok"}

	case "createCollection":
		if err := e.CreateCollection(user, db, collection); err != nil {
			return errResponse(err)
		}
		return map[string]any{"status": "ok"}

	case "listDatabases":
		names, err := e.ListDatabases(user)
		if err != nil {
			return errResponse(err)
		}
		return map[string]any{"status": "ok", "databases": names}

	case "insert":
		data, _ := req["data"].(map[string]any)
		id, err := e.Insert(user, db, collection, record.Record(data))
		if err != nil {
			return errResponse(err)
		}
		return map[string]any{"status": "ok", "id": id}

	case "insertVector":
		data, _ := req["data"].(map[string]any)
		id, err := e.InsertVector(user, db, collection, record.Record(data))
		if err != nil {
			return errResponse(err)
		}
		return map[string]any{"status": "ok", "id": id}

	case "find":
		filter, _ := req["filter"].(map[string]any)
		results, err := e.Find(user, db, collection, filter)
		if err != nil {
			return errResponse(err)
		}
		return map[string]any{"status": "ok", "results": toAnySlice(results)}

	case "queryVector":
		q, err := parseVectorQuery(req)
		if err != nil {
			return errResponse(err)
		}
		scored, err := e.QueryVector(user, db, collection, q)
		if err != nil {
			return errResponse(err)
		}
		return map[string]any{"status": "ok", "results": scoredToAny(scored)}

	case "updateOne":
		filter, _ := req["filter"].(map[string]any)
		update, _ := req["update"].(map[string]any)
		ok, err := e.UpdateOne(user, db, collection, filter, update)
		if err != nil {
			return errResponse(err)
		}
		if !ok {
			return errResponse(ErrNotFound)
		}
		return map[string]any{"status": "ok", "updated": true}

	case "deleteOne":
		filter, _ := req["filter"].(map[string]any)
		ok, err := e.DeleteOne(user, db, collection, filter)
		if err != nil {
			return errResponse(err)
		}
		if !ok {
			return errResponse(ErrNotFound)
		}
		return map[string]any{"status": "ok", "deleted": true}

	case "bulk":
		ops, _ := req["ops"].([]any)
		return e.Bulk(ops)

	default:
		return errResponse(ErrUnknownAction)
	}
}

// Bulk runs each op through Dispatch sequentially and tallies how many
// inserts/updates/deletes succeeded. Each op is dispatched and logged
// independently; there is no batch atomicity.
func (e *Engine) Bulk(ops []any) map[string]any {
	inserted, updated, deleted, errs := 0, 0, 0, 0
	for _, raw := range ops {
		op, ok := raw.(map[string]any)
		if !ok {
			errs++
			continue
		}
		resp := e.Dispatch(op)
		if _, isErr := resp["error"]; isErr {
			errs++
			continue
		}
		switch action, _ := op["action"].(string); action {
		case "insert", "insertVector":
			inserted++
		case "updateOne":
			updated++
		case "deleteOne":
			deleted++
		}
	}
	return map[string]any{
		"status":   "ok",
		"inserted": inserted,
		"updated":  updated,
		"deleted":  deleted,
		"errors":   errs,
	}
}

func parseVectorQuery(req map[string]any) (VectorQuery, error) {
	raw, _ := req["vector"].([]any)
	vec := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, ok := asFloat(v)
		if !ok {
			return VectorQuery{}, fmt.Errorf("%w: vector element is not a number", ErrDecode)
		}
		vec = append(vec, f)
	}

	k := 10
	if f, ok := asFloat(req["k"]); ok {
		k = int(f)
	}

	metric := vector.MetricCosine
	if m, ok := req["metric"].(string); ok && m != "" {
		metric = vector.Metric(m)
	}

	filter, _ := req["filter"].(map[string]any)
	modality := stringField(req, "modality", "")

	shape := vectorQueryShape{Vector: vec, K: k, Metric: string(metric)}
	if err := validate.Struct(shape); err != nil {
		return VectorQuery{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return VectorQuery{Vector: vec, K: k, Metric: metric, Filter: filter, Modality: modality}, nil
}

// asFloat coerces a decoded request field to float64, accepting
// json.Number (cmd/server decodes requests with UseNumber, for the
// same reason pkg/record does) alongside plain float64/int literals
// from values built directly in Go, e.g. in tests.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringField(req map[string]any, key, def string) string {
	if v, ok := req[key].(string); ok && v != "" {
		return v
	}
	return def
}

func errResponse(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

func toAnySlice(recs []record.Record) []any {
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, map[string]any(r))
	}
	return out
}

func scoredToAny(scored []vector.Scored) []any {
	out := make([]any, 0, len(scored))
	for _, s := range scored {
		entry := make(map[string]any, len(s.Record)+1)
		for k, v := range s.Record {
			entry[k] = v
		}
		entry["score"] = s.Score
		out = append(out, entry)
	}
	return out
}
