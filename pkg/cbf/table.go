package cbf

import "fmt"

// Table is the eager read path: every batch of a buffer decoded up front
// and presented as one chained column per field. The chains still alias
// the source buffer; nothing is copied.
type Table struct {
	schema *Schema
	rows   int
	cols   []*Chained
}

// ReadTable decodes all batches of buf using the default registry.
func ReadTable(buf []byte) (*Table, error) {
	return ReadTableWithRegistry(buf, DefaultRegistry)
}

// ReadTableWithRegistry is ReadTable resolving struct tags against reg.
func ReadTableWithRegistry(buf []byte, reg *Registry) (*Table, error) {
	s, err := NewStreamWithRegistry(buf, reg)
	if err != nil {
		return nil, err
	}
	schema := s.Schema()
	parts := make([][]*Column, schema.NumFields())
	rows := 0
	for s.Next() {
		b := s.Batch()
		rows += b.NumRows()
		for i := 0; i < b.NumCols(); i++ {
			parts[i] = append(parts[i], b.ColumnAt(i))
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	cols := make([]*Chained, schema.NumFields())
	for i := range cols {
		if len(parts[i]) == 0 {
			// Zero data messages: synthesise an empty constituent so the
			// chain still carries the field's type.
			empty := &Column{field: schema.Field(i)}
			if schema.Field(i).Type == TypeStruct {
				empty.children = make([]*Column, len(schema.Field(i).Children))
				for j := range empty.children {
					empty.children[j] = &Column{field: schema.Field(i).Children[j]}
				}
			}
			parts[i] = []*Column{empty}
		}
		ch, err := Concat(parts[i]...)
		if err != nil {
			return nil, fmt.Errorf("chain field %q: %w", schema.Field(i).Name, err)
		}
		cols[i] = ch
	}
	return &Table{schema: schema, rows: rows, cols: cols}, nil
}

// Schema returns the table's schema.
func (t *Table) Schema() *Schema { return t.schema }

// NumRows returns the total row count across all batches.
func (t *Table) NumRows() int { return t.rows }

// ColumnAt returns the chained column at schema position i.
func (t *Table) ColumnAt(i int) *Chained { return t.cols[i] }

// Column returns the named chained column.
func (t *Table) Column(name string) (*Chained, bool) {
	i, ok := t.schema.Lookup(name)
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}
