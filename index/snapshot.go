package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/corpus/core"
)

// Persist writes the current id set and vectors to the snapshot file. The
// write goes through a temp file and rename, so a crash mid-write never
// leaves a truncated snapshot. Callers persist after every mutating batch
// (write-through policy).
func (ix *Index) Persist() error {
	if ix.path == "" {
		return nil
	}

	ix.mu.RLock()
	data := marshalSnapshot(ix.dim, ix.entries)
	ix.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(ix.path), 0755); err != nil {
		return err
	}

	tmp := ix.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, ix.path); err != nil {
		os.Remove(tmp)
		return err
	}

	ix.logger.Debug("persisted snapshot", "path", ix.path, "entries", len(ix.entries))
	return nil
}

// Load replaces the in-memory id set with the on-disk snapshot. A missing
// snapshot file loads as an empty index. A snapshot written with a different
// dimensionality fails fast with ErrDimensionMismatch instead of returning
// corrupted results.
func (ix *Index) Load() error {
	if ix.path == "" {
		return nil
	}

	data, err := os.ReadFile(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	dim, entries, err := unmarshalSnapshot(data)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrCorruptInput, err)
	}
	if dim != ix.dim {
		return fmt.Errorf("%w: snapshot has %d dimensions, index configured for %d",
			core.ErrDimensionMismatch, dim, ix.dim)
	}

	ix.mu.Lock()
	ix.entries = entries
	ix.mu.Unlock()

	ix.logger.Info("loaded snapshot", "path", ix.path, "entries", len(entries))
	return nil
}

func marshalSnapshot(dim int, entries map[core.ID]Entry) []byte {
	size := varint.Int.Size(dim) + varint.Int.Size(len(entries))
	for _, entry := range entries {
		size += entrySize(entry)
	}

	buf := make([]byte, size)
	n := varint.Int.Marshal(dim, buf)
	n += varint.Int.Marshal(len(entries), buf[n:])
	for _, entry := range entries {
		n += marshalEntry(entry, buf[n:])
	}
	return buf
}

func unmarshalSnapshot(data []byte) (int, map[core.ID]Entry, error) {
	dim, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return 0, nil, err
	}

	count, n1, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return 0, nil, err
	}
	n += n1

	entries := make(map[core.ID]Entry, count)
	for i := 0; i < count; i++ {
		entry, n1, err := unmarshalEntry(data[n:])
		if err != nil {
			return 0, nil, err
		}
		n += n1
		entries[entry.Id] = entry
	}
	return dim, entries, nil
}

func marshalEntry(entry Entry, bs []byte) (n int) {
	n = ord.String.Marshal(string(entry.Id), bs)
	n += ord.String.Marshal(string(entry.Document), bs[n:])
	n += ord.String.Marshal(entry.Content, bs[n:])
	n += varint.Int.Marshal(len(entry.Vector), bs[n:])
	for _, v := range entry.Vector {
		n += raw.Float32.Marshal(v, bs[n:])
	}
	return n
}

func unmarshalEntry(bs []byte) (entry Entry, n int, err error) {
	var n1 int

	id, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	entry.Id = core.ID(id)

	doc, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	entry.Document = core.ID(doc)

	content, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	entry.Content = content

	length, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length > 0 {
		entry.Vector = make([]float32, length)
		for i := 0; i < length; i++ {
			var v float32
			v, n1, err = raw.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
			entry.Vector[i] = v
		}
	}
	return entry, n, nil
}

func entrySize(entry Entry) int {
	size := ord.String.Size(string(entry.Id))
	size += ord.String.Size(string(entry.Document))
	size += ord.String.Size(entry.Content)
	size += varint.Int.Size(len(entry.Vector))
	for _, v := range entry.Vector {
		size += raw.Float32.Size(v)
	}
	return size
}
