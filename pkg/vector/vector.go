// Package vector implements similarity scoring for top-k queries:
// prefix dot product for "cosine", negative Euclidean distance for
// "l2", both computed over the shared leading dimensions so a length
// mismatch degrades gracefully instead of failing.
package vector

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
)

// Metric selects the scoring function for a query.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// DotProductPrefix sums a[i]*b[i] over the shared leading dimensions
// of a and b, ignoring any trailing dimensions on the longer vector.
func DotProductPrefix(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// NegativeEuclideanPrefix returns -||a-b|| over the shared leading
// dimensions, so that "higher is better" holds uniformly across both
// metrics.
func NegativeEuclideanPrefix(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return -math.Sqrt(sum)
}

// Score scores candidate against query under metric.
func Score(metric Metric, query, candidate []float64) float64 {
	if metric == MetricL2 {
		return NegativeEuclideanPrefix(query, candidate)
	}
	return DotProductPrefix(query, candidate)
}

// FieldVector extracts a numeric vector from a record's "vector"
// field, reporting false if the field is absent or not a sequence of
// numbers.
func FieldVector(rec record.Record) ([]float64, bool) {
	raw, ok := rec["vector"]
	if !ok {
		return nil, false
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(seq))
	for _, v := range seq {
		f, ok := asFloat(v)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Scored pairs one candidate record with its computed score.
type Scored struct {
	Record record.Record
	Score  float64
}

// TopK scores every candidate against query under metric and returns
// the k highest-scoring, sorted descending by score. Ties keep the
// candidates' relative input order (earlier occurrence wins). If
// fewer than k candidates exist, all of them are returned.
func TopK(candidates []record.Record, query []float64, k int, metric Metric) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, rec := range candidates {
		vec, ok := FieldVector(rec)
		if !ok {
			continue
		}
		scored = append(scored, Scored{Record: rec, Score: Score(metric, query, vec)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
