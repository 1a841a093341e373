package walio

import (
	"path/filepath"
	"testing"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
)

func TestAppendAndReadAllFramed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.wal")
	w, err := Open(path, FormatFramed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	entries := []Entry{
		{Op: OpInsert, User: "u", Database: "db", Collection: "c", Record: record.Record{"id": "1"}},
		{Op: OpUpdate, User: "u", Database: "db", Collection: "c", Record: record.Record{"id": "1", "x": "y"}},
		{Op: OpDelete, User: "u", Database: "db", Collection: "c", ID: "1"},
	}
	for _, e := range entries {
		if err := w.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := w.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("ReadAll returned %d entries, want %d", len(got), len(entries))
	}
	if got[0].Op != OpInsert || got[1].Op != OpUpdate || got[2].Op != OpDelete {
		t.Fatalf("ops out of order: %+v", got)
	}
	if got[2].ID != "1" {
		t.Fatalf("delete entry ID = %q, want 1", got[2].ID)
	}
}

func TestAppendAndReadAllLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.wal")
	w, err := Open(path, FormatLine)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	if err := w.Append(Entry{Op: OpInsert, User: "u", Database: "db", Collection: "c", Record: record.Record{"id": "1"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append(Entry{Op: OpInsert, User: "u", Database: "db", Collection: "c", Record: record.Record{"id": "2"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := w.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadAll returned %d entries, want 2", len(got))
	}
}

func TestReplayInvokesHandlerInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.wal")
	w, err := Open(path, FormatFramed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		if err := w.Append(Entry{Op: OpInsert, Record: record.Record{"id": id}}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var seen []string
	err = w.Replay(func(e Entry) error {
		id, _ := e.Record.ID()
		seen = append(seen, id)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for i, id := range ids {
		if seen[i] != id {
			t.Fatalf("Replay order = %v, want %v", seen, ids)
		}
	}
}

func TestClearTruncatesWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.wal")
	w, err := Open(path, FormatFramed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	if err := w.Append(Entry{Op: OpInsert, Record: record.Record{"id": "1"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	got, err := w.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll after Clear: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected an empty WAL after Clear, got %d entries", len(got))
	}

	if err := w.Append(Entry{Op: OpInsert, Record: record.Record{"id": "2"}}); err != nil {
		t.Fatalf("Append after Clear: %v", err)
	}
	got, err = w.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry after Clear+Append, got %d", len(got))
	}
}

func TestReadAllOnMissingFileIsEmpty(t *testing.T) {
	entries, err := readAllLocked(filepath.Join(t.TempDir(), "absent.wal"), FormatFramed)
	if err != nil {
		t.Fatalf("readAllLocked: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries for a missing file, got %d", len(entries))
	}
}
