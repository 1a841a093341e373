package record

import (
	"encoding/json"
	"testing"
)

func TestEqualAcrossNumericRepresentations(t *testing.T) {
	if !Equal(json.Number("3"), float64(3)) {
		t.Fatal("Equal should treat json.Number and float64 as equal when numerically equal")
	}
	if !Equal(3, 3.0) {
		t.Fatal("Equal should treat int and float64 as equal when numerically equal")
	}
	if Equal("3", 3) {
		t.Fatal("Equal should not treat a string and a number as equal")
	}
}

func TestEqualNestedStructures(t *testing.T) {
	a := map[string]any{"x": []any{1, 2}}
	b := map[string]any{"x": []any{json.Number("1"), json.Number("2")}}
	if !Equal(a, b) {
		t.Fatal("Equal should recurse into nested maps and slices")
	}
}

func TestCompareNumeric(t *testing.T) {
	cmp, ok := Compare(1, 2)
	if !ok || cmp >= 0 {
		t.Fatalf("Compare(1, 2) = (%d, %v), want negative and ok", cmp, ok)
	}
	cmp, ok = Compare(json.Number("5"), 5)
	if !ok || cmp != 0 {
		t.Fatalf("Compare(5, 5) = (%d, %v), want 0 and ok", cmp, ok)
	}
}

func TestCompareStrings(t *testing.T) {
	cmp, ok := Compare("alice", "bob")
	if !ok || cmp >= 0 {
		t.Fatalf("Compare(alice, bob) = (%d, %v), want negative and ok", cmp, ok)
	}
}

func TestCompareIncompatibleTypesIsNotOK(t *testing.T) {
	if _, ok := Compare("alice", 5); ok {
		t.Fatal("Compare between a string and a number should report ok=false")
	}
	if _, ok := Compare(true, false); ok {
		t.Fatal("Compare between booleans has no natural order and should report ok=false")
	}
}
