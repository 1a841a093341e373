package vector

import (
	"testing"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecRecord(id string, v []any, modality string) record.Record {
	r := record.Record{"id": id, "vector": v}
	if modality != "" {
		r["modality"] = modality
	}
	return r
}

func TestTopKCosineRanksByDotProduct(t *testing.T) {
	candidates := []record.Record{
		vecRecord("a", []any{float64(1), float64(0)}, "t"),
		vecRecord("b", []any{float64(0), float64(1)}, "t"),
	}
	out := TopK(candidates, []float64{1, 0}, 2, MetricCosine)
	require.Len(t, out, 2)
	assert.Equal(t, "a", mustID(out[0].Record))
	assert.Equal(t, float64(1), out[0].Score)
	assert.Equal(t, "b", mustID(out[1].Record))
	assert.Equal(t, float64(0), out[1].Score)
}

func mustID(r record.Record) string {
	id, _ := r.ID()
	return id
}

func TestTopKFewerThanKReturnsAll(t *testing.T) {
	candidates := []record.Record{
		vecRecord("a", []any{float64(1)}, ""),
	}
	out := TopK(candidates, []float64{1}, 5, MetricCosine)
	assert.Len(t, out, 1)
}

func TestTopKSkipsRecordsWithoutVector(t *testing.T) {
	candidates := []record.Record{
		{"id": "novector"},
		vecRecord("a", []any{float64(1)}, ""),
	}
	out := TopK(candidates, []float64{1}, 5, MetricCosine)
	require.Len(t, out, 1)
	assert.Equal(t, "a", mustID(out[0].Record))
}

func TestDotProductPrefixIgnoresMissingDims(t *testing.T) {
	got := DotProductPrefix([]float64{1, 2, 3}, []float64{1, 1})
	assert.Equal(t, float64(3), got)
}

func TestNegativeEuclideanPrefixHigherIsCloser(t *testing.T) {
	close := NegativeEuclideanPrefix([]float64{0, 0}, []float64{0, 1})
	far := NegativeEuclideanPrefix([]float64{0, 0}, []float64{5, 5})
	assert.Greater(t, close, far)
}
