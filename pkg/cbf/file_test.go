package cbf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeScores(t *testing.T, path string, batches ...[]any) {
	t.Helper()
	schema := MustSchema([]Field{{Name: "score", Type: TypeFloat64, Nullable: true}})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = f.Close() }()
	w, err := NewWriter(f, schema)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	for _, b := range batches {
		if err := w.WriteBatch(ColumnData{"score": b}); err != nil {
			t.Fatalf("write batch: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
}

func TestWriterThenOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scores.cbf")
	writeScores(t, path, []any{1.5, nil}, []any{2.5})

	f, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	tbl, err := ReadTable(f.Bytes())
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if tbl.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", tbl.NumRows())
	}
	col, _ := tbl.Column("score")
	if col.Float64(0) != 1.5 || !col.IsNull(1) || col.Float64(2) != 2.5 {
		t.Fatalf("values %v %v %v", col.Value(0), col.Value(1), col.Value(2))
	}
	if col.NumChunks() != 2 {
		t.Fatalf("NumChunks = %d, want 2", col.NumChunks())
	}
}

func TestOpenReaderAt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scores.cbf")
	writeScores(t, path, []any{3.5})

	rf, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = rf.Close() }()
	stat, err := rf.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	f, err := OpenReaderAt(rf, stat.Size())
	if err != nil {
		t.Fatalf("OpenReaderAt: %v", err)
	}
	defer func() { _ = f.Close() }()

	s, err := f.Stream()
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if !s.Next() {
		t.Fatalf("Next: %v", s.Err())
	}
	col, _ := s.Batch().Column("score")
	if col.Float64(0) != 3.5 {
		t.Fatalf("value = %v", col.Float64(0))
	}
}

func TestAppendToExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scores.cbf")
	writeScores(t, path, []any{1.0})

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	w, err := Append(f)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.WriteBatch(ColumnData{"score": []any{2.0, nil}}); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	out, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = out.Close() }()
	tbl, err := ReadTable(out.Bytes())
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if tbl.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", tbl.NumRows())
	}
	col, _ := tbl.Column("score")
	if col.Float64(1) != 2.0 || !col.IsNull(2) {
		t.Fatalf("appended rows wrong: %v %v", col.Value(1), col.Value(2))
	}
}

func TestAppendRejectsForeignFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not.cbf")
	if err := os.WriteFile(path, make([]byte, 64), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := Append(f); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("got %v, want ErrInvalidFormat", err)
	}
}

func TestOpenRejectsShortFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "short.cbf")
	if err := os.WriteFile(path, []byte("CBF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("got %v, want ErrInvalidFormat", err)
	}
}

func TestWriterRejectsUseAfterClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scores.cbf")
	schema := MustSchema([]Field{{Name: "score", Type: TypeFloat64}})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = f.Close() }()
	w, err := NewWriter(f, schema)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.WriteBatch(ColumnData{"score": []any{1.0}}); err == nil {
		t.Fatalf("WriteBatch succeeded after Close")
	}
}
