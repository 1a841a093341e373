package bloom

import (
	"fmt"
	"testing"
)

func TestFilterNoFalseNegatives(t *testing.T) {
	f := New(500, 0.01)

	added := make([][]byte, 500)
	for i := 0; i < 500; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		added[i] = key
		f.Add(key)
	}

	for i, key := range added {
		if !f.MayContain(key) {
			t.Errorf("false negative for key %d: %s", i, key)
		}
	}
}

func TestFilterMarshalRoundTrip(t *testing.T) {
	f := New(50, 0.01)
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		f.Add([]byte(id))
	}

	data := f.MarshalBinary()
	got, err := UnmarshalBinary(data)
	if err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}

	for _, id := range ids {
		if !got.MayContain([]byte(id)) {
			t.Errorf("decoded filter lost membership for %q", id)
		}
	}
}

func TestUnmarshalBinaryRejectsShortInput(t *testing.T) {
	if _, err := UnmarshalBinary([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error decoding a truncated sidecar")
	}
}

func TestNewClampsDegenerateInputs(t *testing.T) {
	f := New(0, 0)
	if f.size < 1 || f.hashCount < 1 {
		t.Fatalf("degenerate inputs should clamp to a usable filter, got size=%d hashCount=%d", f.size, f.hashCount)
	}
	f.Add([]byte("x"))
	if !f.MayContain([]byte("x")) {
		t.Fatal("clamped filter still must not false-negative")
	}
}
