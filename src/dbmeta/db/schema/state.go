// Package schema models the catalog's tables as in-memory state and renders
// the DDL that moves a database from one state to the next.
//
// A State is built by applying operations in migration order. Each
// operation can then compare the state before and after itself to emit SQL
// for a given dialect, in either direction.
package schema

import (
	"sort"
	"strings"

	"github.com/bkdbm/dbmeta/src/common/errors"
)

// FieldType is a portable column type
type FieldType string

const (
	TypeAuto     FieldType = "auto"
	TypeInteger  FieldType = "integer"
	TypeBigInt   FieldType = "bigint"
	TypeVarchar  FieldType = "varchar"
	TypeText     FieldType = "text"
	TypeJSON     FieldType = "json"
	TypeDateTime FieldType = "datetime"
)

// Field describes one column
type Field struct {
	Name string
	Type FieldType
	// MaxLength is required for TypeVarchar
	MaxLength  int
	Null       bool
	Default    interface{}
	PrimaryKey bool
	HelpText   string
}

// Model describes one table
type Model struct {
	// Name is the lower-case model name, e.g. "sqlserverdtsinfo"
	Name           string
	Table          string
	Fields         []Field
	UniqueTogether [][]string
}

// Field returns the field called name
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (m *Model) clone() *Model {
	c := &Model{
		Name:   m.Name,
		Table:  m.Table,
		Fields: append([]Field(nil), m.Fields...),
	}
	for _, set := range m.UniqueTogether {
		c.UniqueTogether = append(c.UniqueTogether, append([]string(nil), set...))
	}
	return c
}

// State is the set of models known at a point of the migration plan
type State struct {
	models map[string]*Model
}

// NewState returns an empty state
func NewState() *State {
	return &State{models: make(map[string]*Model)}
}

// Clone returns a deep copy of s
func (s *State) Clone() *State {
	c := NewState()
	for k, m := range s.models {
		c.models[k] = m.clone()
	}
	return c
}

// Model looks up a model by name, case-insensitively
func (s *State) Model(name string) (*Model, error) {
	m, ok := s.models[strings.ToLower(name)]
	if !ok {
		return nil, errors.ErrModelNotFound.WithMessagef("model %q not found in schema state", name)
	}
	return m, nil
}

// Models returns all models sorted by name
func (s *State) Models() []*Model {
	out := make([]*Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *State) add(m *Model) error {
	key := strings.ToLower(m.Name)
	if _, exists := s.models[key]; exists {
		return errors.ErrModelExists.WithMessagef("model %q already exists", m.Name)
	}
	s.models[key] = m
	return nil
}

func (s *State) remove(name string) {
	delete(s.models, strings.ToLower(name))
}

// normalizeUniqueTogether validates sets against m and drops duplicate sets
func normalizeUniqueTogether(m *Model, sets [][]string) ([][]string, error) {
	seen := make(map[string]bool)
	var out [][]string

	for _, set := range sets {
		if len(set) == 0 {
			return nil, errors.ErrInvalidUniqueTogether.WithMessagef("empty unique_together set on %s", m.Name)
		}

		inSet := make(map[string]bool, len(set))
		for _, name := range set {
			if _, ok := m.Field(name); !ok {
				return nil, errors.ErrFieldNotFound.WithMessagef("unique_together on %s names unknown field %q", m.Name, name)
			}
			if inSet[name] {
				return nil, errors.ErrInvalidUniqueTogether.WithMessagef("field %q repeated in unique_together set on %s", name, m.Name)
			}
			inSet[name] = true
		}

		key := uniqueKey(set)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, append([]string(nil), set...))
	}

	return out, nil
}

// uniqueKey identifies a set; column order is significant for the index
func uniqueKey(set []string) string {
	return strings.Join(set, ",")
}
