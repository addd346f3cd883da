package cbf

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// The schema message body is JSON. Schemas are tiny next to the data they
// describe, and JSON keeps the one variable-shape piece of the format
// self-describing and debuggable with ordinary tools. Data messages stay
// fully binary.

type fieldJSON struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Nullable bool        `json:"nullable,omitempty"`
	Tag      string      `json:"tag,omitempty"`
	Children []fieldJSON `json:"children,omitempty"`
}

type schemaJSON struct {
	Fields []fieldJSON `json:"fields"`
}

func fieldToJSON(f Field) fieldJSON {
	fj := fieldJSON{
		Name:     f.Name,
		Type:     f.Type.String(),
		Nullable: f.Nullable,
		Tag:      f.Tag,
	}
	if len(f.Children) > 0 {
		fj.Children = make([]fieldJSON, len(f.Children))
		for i := range f.Children {
			fj.Children[i] = fieldToJSON(f.Children[i])
		}
	}
	return fj
}

func fieldFromJSON(fj fieldJSON) (Field, error) {
	t, ok := ParseType(fj.Type)
	if !ok {
		return Field{}, fmt.Errorf("%w: unknown field type %q", ErrInvalidFormat, fj.Type)
	}
	f := Field{
		Name:     fj.Name,
		Type:     t,
		Nullable: fj.Nullable,
		Tag:      fj.Tag,
	}
	if len(fj.Children) > 0 {
		f.Children = make([]Field, len(fj.Children))
		for i := range fj.Children {
			c, err := fieldFromJSON(fj.Children[i])
			if err != nil {
				return Field{}, err
			}
			f.Children[i] = c
		}
	}
	return f, nil
}

func marshalSchema(s *Schema) ([]byte, error) {
	sj := schemaJSON{Fields: make([]fieldJSON, s.NumFields())}
	for i := 0; i < s.NumFields(); i++ {
		sj.Fields[i] = fieldToJSON(s.Field(i))
	}
	return json.Marshal(sj)
}

func unmarshalSchema(body []byte) (*Schema, error) {
	var sj schemaJSON
	if err := json.Unmarshal(body, &sj); err != nil {
		return nil, fmt.Errorf("%w: schema body: %v", ErrInvalidFormat, err)
	}
	fields := make([]Field, len(sj.Fields))
	for i := range sj.Fields {
		f, err := fieldFromJSON(sj.Fields[i])
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	s, err := NewSchema(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return s, nil
}
