package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/cbf/pkg/cbf"
)

func TestTableColumns(t *testing.T) {
	t.Parallel()

	tbl, err := FromColumns(
		[]string{"id", "name"},
		[][]any{
			{int64(1), int64(2)},
			{"a", nil},
		},
	)
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	if got := tbl.Columns(); len(got) != 2 || got[0] != "id" || got[1] != "name" {
		t.Fatalf("Columns = %v", got)
	}
	if tbl.NumRows() != 2 {
		t.Fatalf("NumRows = %d", tbl.NumRows())
	}
	if v, ok := tbl.Value("id", 0); !ok || v != int64(1) {
		t.Fatalf("Value(id,0) = %v, %v", v, ok)
	}
	if _, ok := tbl.Value("name", 1); ok {
		t.Fatalf("null cell reported present")
	}
	if _, ok := tbl.Value("missing", 0); ok {
		t.Fatalf("unknown column reported present")
	}

	if err := tbl.Set("name", 1, "b"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := tbl.Value("name", 1); v != "b" {
		t.Fatalf("Value after Set = %v", v)
	}
	if err := tbl.Set("missing", 0, "x"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("got %v, want ErrUnknownColumn", err)
	}
}

func TestTableShapeErrors(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	if err := tbl.AddColumn("a", []any{int64(1), int64(2)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := tbl.AddColumn("b", []any{int64(1)}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("got %v, want ErrLengthMismatch", err)
	}
	if err := tbl.AddColumn("a", []any{int64(3), int64(4)}); err == nil {
		t.Fatalf("duplicate column accepted")
	}
	if _, err := FromColumns([]string{"a", "b"}, [][]any{{int64(1)}}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("got %v, want ErrLengthMismatch", err)
	}
}

func TestEncodeLoadRoundTrip(t *testing.T) {
	t.Parallel()

	src, err := FromColumns(
		[]string{"id", "name"},
		[][]any{
			{int64(1), int64(2), int64(3)},
			{"a", nil, "ccc"},
		},
	)
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}

	buf, err := EncodeSource(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ct, err := cbf.ReadTable(buf)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}

	dst := NewTable()
	if err := Load(dst, ct); err != nil {
		t.Fatalf("load: %v", err)
	}
	if dst.NumRows() != 3 {
		t.Fatalf("NumRows = %d", dst.NumRows())
	}
	if v, _ := dst.Value("id", 2); v != int64(3) {
		t.Fatalf("id[2] = %v", v)
	}
	if v, _ := dst.Value("name", 0); v != "a" {
		t.Fatalf("name[0] = %v", v)
	}
	if _, ok := dst.Value("name", 1); ok {
		t.Fatalf("null survived as present")
	}
}

func TestAdoptedColumnsAreReadOnly(t *testing.T) {
	t.Parallel()

	src, err := FromColumns([]string{"n"}, [][]any{{int64(1), int64(2)}})
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	buf, err := EncodeSource(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ct, err := cbf.ReadTable(buf)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}

	dst := NewTable()
	if err := Load(dst, ct); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := dst.Set("n", 0, int64(9)); !errors.Is(err, ErrReadOnlyColumn) {
		t.Fatalf("got %v, want ErrReadOnlyColumn", err)
	}
	// Reads still work through the adopted view.
	if v, _ := dst.Value("n", 1); v != int64(2) {
		t.Fatalf("n[1] = %v", v)
	}
}

func TestAppendSourceValidatesShape(t *testing.T) {
	t.Parallel()

	schema := cbf.MustSchema([]cbf.Field{
		{Name: "id", Type: cbf.TypeInt64},
		{Name: "name", Type: cbf.TypeUtf8, Nullable: true},
	})
	path := filepath.Join(t.TempDir(), "rows.cbf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = f.Close() }()
	w, err := cbf.NewWriter(f, schema)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}

	ok, err := FromColumns(
		[]string{"id", "name"},
		[][]any{{int64(1)}, {nil}},
	)
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	if err := AppendSource(w, ok); err != nil {
		t.Fatalf("append compatible source: %v", err)
	}

	// A null in the non-nullable id column widens the stream schema.
	widened, err := FromColumns(
		[]string{"id", "name"},
		[][]any{{nil}, {"x"}},
	)
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	if err := AppendSource(w, widened); !errors.Is(err, cbf.ErrSchemaMismatch) {
		t.Fatalf("got %v, want ErrSchemaMismatch", err)
	}

	// An extra column cannot be appended either.
	extra, err := FromColumns(
		[]string{"id", "name", "score"},
		[][]any{{int64(2)}, {"y"}, {1.5}},
	)
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	if err := AppendSource(w, extra); !errors.Is(err, cbf.ErrSchemaMismatch) {
		t.Fatalf("got %v, want ErrSchemaMismatch", err)
	}

	// A renamed column is a mismatch even with the right count.
	renamed, err := FromColumns(
		[]string{"id", "title"},
		[][]any{{int64(3)}, {"z"}},
	)
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	if err := AppendSource(w, renamed); !errors.Is(err, cbf.ErrSchemaMismatch) {
		t.Fatalf("got %v, want ErrSchemaMismatch", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Only the compatible batch landed in the file.
	tbl := readBack(t, path)
	if tbl.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", tbl.NumRows())
	}
}

func TestEncodeSourcePartitions(t *testing.T) {
	t.Parallel()

	full, err := FromColumns([]string{"n"}, [][]any{{int64(1), int64(2), int64(3)}})
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	p1, err := FromColumns([]string{"n"}, [][]any{{int64(1), int64(2)}})
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	p2, err := FromColumns([]string{"n"}, [][]any{{int64(3)}})
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}

	buf, err := EncodeSource(partitioned{Table: full, parts: []Source{p1, p2}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tbl, err := cbf.ReadTable(buf)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if tbl.NumRows() != 3 {
		t.Fatalf("NumRows = %d", tbl.NumRows())
	}
	if tbl.ColumnAt(0).NumChunks() != 2 {
		t.Fatalf("NumChunks = %d, want 2", tbl.ColumnAt(0).NumChunks())
	}
}

func TestEncodeSourcePartitionColumnOrder(t *testing.T) {
	t.Parallel()

	// The partition lists its columns in the opposite order; values must
	// still land under the right names.
	full, err := FromColumns(
		[]string{"id", "name"},
		[][]any{{int64(1)}, {"a"}},
	)
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	part, err := FromColumns(
		[]string{"name", "id"},
		[][]any{{"a"}, {int64(1)}},
	)
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}

	buf, err := EncodeSource(partitioned{Table: full, parts: []Source{part}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tbl, err := cbf.ReadTable(buf)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	id, _ := tbl.Column("id")
	name, _ := tbl.Column("name")
	if id.Int64(0) != 1 {
		t.Fatalf("id[0] = %v", id.Value(0))
	}
	if name.String(0) != "a" {
		t.Fatalf("name[0] = %v", name.Value(0))
	}
}

// partitioned overrides the in-memory table's single-batch hint.
type partitioned struct {
	*Table
	parts []Source
}

func (p partitioned) Partitions() []Source { return p.parts }

func readBack(t *testing.T, path string) *cbf.Table {
	t.Helper()
	f, err := cbf.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	tbl, err := cbf.ReadTable(f.Bytes())
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	return tbl
}
