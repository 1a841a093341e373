package record

import (
	"encoding/json"
	"testing"
)

func TestIDRequiresStringValue(t *testing.T) {
	r := Record{"id": "abc"}
	id, ok := r.ID()
	if !ok || id != "abc" {
		t.Fatalf("ID() = (%q, %v), want (\"abc\", true)", id, ok)
	}

	r2 := Record{"id": json.Number("5")}
	if _, ok := r2.ID(); ok {
		t.Fatal("ID() should not accept a non-string id value")
	}

	r3 := Record{}
	if _, ok := r3.ID(); ok {
		t.Fatal("ID() should report false when no id field is present")
	}
}

func TestTombstoneRoundTrip(t *testing.T) {
	ts := Tombstone("42")
	if !ts.IsTombstone() {
		t.Fatal("Tombstone() result should report IsTombstone() true")
	}
	id, ok := ts.ID()
	if !ok || id != "42" {
		t.Fatalf("Tombstone ID = (%q, %v), want (\"42\", true)", id, ok)
	}
}

func TestIsTombstoneFalseByDefault(t *testing.T) {
	r := Record{"id": "1", "email": "a"}
	if r.IsTombstone() {
		t.Fatal("an ordinary record should not report IsTombstone()")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := Record{"id": "1", "email": "a"}
	clone := r.Clone()
	clone["email"] = "b"
	if r["email"] != "a" {
		t.Fatal("mutating a clone should not affect the original record")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	r := Record{"id": "1", "count": 3, "nested": map[string]any{"a": 1}}
	data, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	id, _ := got.ID()
	if id != "1" {
		t.Fatalf("round-tripped id = %q, want 1", id)
	}
	if _, ok := got["count"].(json.Number); !ok {
		t.Fatalf("Unmarshal should decode numbers as json.Number, got %T", got["count"])
	}
}

func TestMarshalNilRecordYieldsEmptyObject(t *testing.T) {
	data, err := Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil): %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("Marshal(nil) = %q, want {}", data)
	}
}

func TestMarshalIsDeterministicAcrossKeyOrder(t *testing.T) {
	a := Record{"b": 1, "a": 2}
	b := Record{"a": 2, "b": 1}
	da, _ := Marshal(a)
	db, _ := Marshal(b)
	if string(da) != string(db) {
		t.Fatalf("Marshal should be order-independent, got %q vs %q", da, db)
	}
}
