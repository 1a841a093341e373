// Package container implements the catalog collection's on-disk file
// format: a sequence of length-prefixed frames, each carrying one
// record's canonical JSON serialization. It is used exclusively by
// the (·, "system", "users") catalog collection — every other
// collection lives in an LSM directory (see pkg/lsm).
//
// Format:
//
//	repeat:
//	    uint32 little-endian length
//	    length bytes of record JSON
package container

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/record"
)

// ErrIO wraps any open/read/write/rename failure against a container
// file.
var ErrIO = errors.New("container: io error")

// ReadStats reports how many frames were skipped due to per-frame
// decode corruption.
type ReadStats struct {
	Skipped int
}

// Append adds a single frame to path, creating parent directories as
// needed. The length prefix and payload are written through a single
// buffered writer and flushed before Append returns, so a successful
// return means the whole frame reached the OS in one shot — no reader
// can observe a length without its payload.
func Append(path string, rec record.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrIO, filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	payload, err := record.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrIO, err)
	}

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return fmt.Errorf("%w: write length: %v", ErrIO, err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("%w: write payload: %v", ErrIO, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrIO, err)
	}
	return f.Sync()
}

// ReadAll decodes every frame in path. A missing file yields an empty
// sequence, not an error. A frame whose payload fails to decode is
// skipped and counted, and reading continues with the next frame. A
// short read mid-frame is also skipped and counted, but reading stops
// there: a truncated frame leaves no reliable resync point, so the
// frame sequence simply ends.
func ReadAll(path string) ([]record.Record, ReadStats, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ReadStats{}, nil
	}
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	var (
		out   []record.Record
		stats ReadStats
		r     = bufio.NewReader(f)
	)

	for {
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Partial length prefix: truncated trailing frame.
			break
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			// Short read mid-frame: corruption scoped to this frame only.
			stats.Skipped++
			break
		}

		rec, err := record.Unmarshal(payload)
		if err != nil {
			stats.Skipped++
			continue
		}
		out = append(out, rec)
	}

	return out, stats, nil
}

// WriteAll rewrites path atomically: every record is framed into a
// sibling temp file, which is flushed and fsynced before being
// renamed over path. The rename is the only commit point — readers
// either see the old complete file or the new complete file, never a
// partial one.
func WriteAll(path string, records []record.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrIO, dir, err)
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrIO, tmpPath, err)
	}

	w := bufio.NewWriter(f)
	for _, rec := range records {
		payload, err := record.Marshal(rec)
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("%w: marshal: %v", ErrIO, err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(payload))); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("%w: write length: %v", ErrIO, err)
		}
		if _, err := w.Write(payload); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("%w: write payload: %v", ErrIO, err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: flush: %v", ErrIO, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: sync: %v", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close: %v", ErrIO, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s to %s: %v", ErrIO, tmpPath, path, err)
	}
	return nil
}
