package bloom

import (
	"fmt"
	"os"
)

// SidecarPath returns the `.bloom` path that sits alongside an SST
// file.
func SidecarPath(sstPath string) string {
	return sstPath + ".bloom"
}

// WriteSidecar builds a filter over ids and writes it next to an SST.
// Failure is never fatal to the write path that calls it — the
// sidecar is a pure optimization artifact, so callers log and
// continue rather than aborting a flush or compaction over it.
func WriteSidecar(sstPath string, ids []string) error {
	f := New(len(ids), 0.01)
	for _, id := range ids {
		f.Add([]byte(id))
	}
	if err := os.WriteFile(SidecarPath(sstPath), f.MarshalBinary(), 0o644); err != nil {
		return fmt.Errorf("bloom: write sidecar for %s: %w", sstPath, err)
	}
	return nil
}

// LoadSidecar reads back a filter written by WriteSidecar, if present.
func LoadSidecar(sstPath string) (*Filter, bool) {
	data, err := os.ReadFile(SidecarPath(sstPath))
	if err != nil {
		return nil, false
	}
	f, err := UnmarshalBinary(data)
	if err != nil {
		return nil, false
	}
	return f, true
}
