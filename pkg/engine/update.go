package engine

import (
	"encoding/json"
	"strings"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
)

// hasOperatorForm reports whether update uses operator form (any
// top-level key begins with "$").
func hasOperatorForm(update map[string]any) bool {
	for k := range update {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// normalizeUpdate wraps a replacement-form update as {"$set": update},
// so a full-document replacement and an explicit $set apply the same
// way.
func normalizeUpdate(update map[string]any) map[string]any {
	if hasOperatorForm(update) {
		return update
	}
	return map[string]any{"$set": update}
}

// applyUpdate applies $set/$unset/$inc to a clone of doc; the visible
// version is never mutated in place.
func applyUpdate(doc record.Record, update map[string]any) record.Record {
	out := doc.Clone()
	update = normalizeUpdate(update)

	if set, ok := update["$set"].(map[string]any); ok {
		for k, v := range set {
			out[k] = v
		}
	}

	if unset, ok := update["$unset"].([]any); ok {
		for _, k := range unset {
			if ks, ok := k.(string); ok {
				delete(out, ks)
			}
		}
	}

	if inc, ok := update["$inc"].(map[string]any); ok {
		for k, v := range inc {
			current := asInt(out[k])
			out[k] = current + asInt(v)
		}
	}

	return out
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i
		}
		f, _ := n.Float64()
		return int64(f)
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}
