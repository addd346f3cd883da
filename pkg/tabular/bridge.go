package tabular

import (
	"fmt"

	"github.com/samcharles93/cbf/pkg/cbf"
)

// EncodeSource encodes src into a CBF buffer. The source's partition hint
// decides batch boundaries; without one the whole source becomes a single
// batch. The schema is inferred over the full source so that a null
// anywhere makes its column nullable in every batch.
func EncodeSource(src Source) ([]byte, error) {
	names := src.Columns()
	all := materialize(src)
	schema, err := cbf.InferSchema(names, all)
	if err != nil {
		return nil, err
	}

	parts := src.Partitions()
	if len(parts) == 0 {
		return cbf.Encode(schema, []cbf.ColumnData{columnData(names, all)})
	}

	enc, err := cbf.NewEncoder(schema)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		// Fetch by the parent's names: a partition may report its columns
		// in a different stable order.
		if err := enc.AppendBatch(columnData(names, materializeNames(p, names))); err != nil {
			return nil, err
		}
	}
	return enc.Bytes(), nil
}

// AppendSource appends src as one batch through w, validating the
// source's shape against the writer's schema first. A source whose
// inferred schema widens the stream's (extra or missing columns, a
// different type, or a null in a non-nullable field) fails with
// cbf.ErrSchemaMismatch; a batch that merely lacks nulls in a nullable
// column is compatible.
func AppendSource(w *cbf.Writer, src Source) error {
	names := src.Columns()
	schema := w.Schema()
	if len(names) != schema.NumFields() {
		return fmt.Errorf("%w: source has %d columns, stream schema has %d",
			cbf.ErrSchemaMismatch, len(names), schema.NumFields())
	}
	all := materialize(src)
	for i, name := range names {
		fi, ok := schema.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: source column %q not in stream schema", cbf.ErrSchemaMismatch, name)
		}
		f := schema.Field(fi)
		if !f.Nullable {
			for row, v := range all[i] {
				if v == nil {
					return fmt.Errorf("%w: null at row %d of non-nullable column %q",
						cbf.ErrSchemaMismatch, row, name)
				}
			}
		}
	}
	return w.WriteBatch(columnData(names, all))
}

// Load adopts every chained column of a decoded table into c, zero-copy.
func Load(c Consumer, t *cbf.Table) error {
	schema := t.Schema()
	for i := 0; i < schema.NumFields(); i++ {
		if err := c.Adopt(schema.Field(i).Name, t.ColumnAt(i)); err != nil {
			return err
		}
	}
	return nil
}

func materialize(src Source) [][]any {
	return materializeNames(src, src.Columns())
}

func materializeNames(src Source, names []string) [][]any {
	rows := src.NumRows()
	out := make([][]any, len(names))
	for i, name := range names {
		col := make([]any, rows)
		for r := 0; r < rows; r++ {
			if v, ok := src.Value(name, r); ok {
				col[r] = v
			}
		}
		out[i] = col
	}
	return out
}

func columnData(names []string, cols [][]any) cbf.ColumnData {
	cd := make(cbf.ColumnData, len(names))
	for i, name := range names {
		cd[name] = cols[i]
	}
	return cd
}
