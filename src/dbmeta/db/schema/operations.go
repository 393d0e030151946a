package schema

import (
	"fmt"
	"strings"

	"github.com/bkdbm/dbmeta/src/common/errors"
)

// Operation is one declarative schema change.
//
// Apply advances the in-memory state. Forwards renders SQL that moves the
// database from `from` to `to`; Backwards receives the state after the
// operation as `from` and the state before it as `to`.
type Operation interface {
	Describe() string
	Apply(s *State) error
	Forwards(d Dialect, from, to *State) ([]string, error)
	Backwards(d Dialect, from, to *State) ([]string, error)
}

// CreateModel creates a table
type CreateModel struct {
	Model Model
}

func (op *CreateModel) Describe() string {
	return fmt.Sprintf("Create model %s", op.Model.Name)
}

func (op *CreateModel) Apply(s *State) error {
	m := op.Model.clone()
	m.Name = strings.ToLower(m.Name)
	if m.Name == "" || m.Table == "" {
		return errors.ErrInvalidField.WithMessage("model needs a name and a table")
	}

	seen := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if seen[f.Name] {
			return errors.ErrFieldExists.WithMessagef("field %q declared twice on %s", f.Name, m.Name)
		}
		seen[f.Name] = true
	}

	sets, err := normalizeUniqueTogether(m, m.UniqueTogether)
	if err != nil {
		return err
	}
	m.UniqueTogether = sets

	return s.add(m)
}

func (op *CreateModel) Forwards(d Dialect, from, to *State) ([]string, error) {
	m, err := to.Model(op.Model.Name)
	if err != nil {
		return nil, err
	}
	return d.CreateTable(m)
}

func (op *CreateModel) Backwards(d Dialect, from, to *State) ([]string, error) {
	m, err := from.Model(op.Model.Name)
	if err != nil {
		return nil, err
	}
	return []string{d.DropTable(m.Table)}, nil
}

// AddField adds a column to an existing table. Existing rows receive
// Field.Default.
type AddField struct {
	Model string
	Field Field
}

func (op *AddField) Describe() string {
	return fmt.Sprintf("Add field %s to %s", op.Field.Name, op.Model)
}

func (op *AddField) Apply(s *State) error {
	m, err := s.Model(op.Model)
	if err != nil {
		return err
	}
	if _, exists := m.Field(op.Field.Name); exists {
		return errors.ErrFieldExists.WithMessagef("field %q already exists on %s", op.Field.Name, m.Name)
	}
	if op.Field.PrimaryKey || op.Field.Type == TypeAuto {
		return errors.ErrInvalidField.WithMessagef("cannot add primary key field %q to %s", op.Field.Name, m.Name)
	}
	if !op.Field.Null && op.Field.Default == nil {
		return errors.ErrInvalidField.WithMessagef("non-nullable field %q on %s needs a default for existing rows", op.Field.Name, m.Name)
	}

	m.Fields = append(m.Fields, op.Field)
	return nil
}

func (op *AddField) Forwards(d Dialect, from, to *State) ([]string, error) {
	m, err := to.Model(op.Model)
	if err != nil {
		return nil, err
	}
	f, _ := m.Field(op.Field.Name)
	stmt, err := d.AddColumn(m.Table, f)
	if err != nil {
		return nil, err
	}
	return []string{stmt}, nil
}

func (op *AddField) Backwards(d Dialect, from, to *State) ([]string, error) {
	m, err := from.Model(op.Model)
	if err != nil {
		return nil, err
	}
	return []string{d.DropColumn(m.Table, op.Field.Name)}, nil
}

// AlterUniqueTogether replaces a model's composite unique constraints
type AlterUniqueTogether struct {
	Model          string
	UniqueTogether [][]string
}

func (op *AlterUniqueTogether) Describe() string {
	sets := make([]string, len(op.UniqueTogether))
	for i, set := range op.UniqueTogether {
		sets[i] = "(" + strings.Join(set, ", ") + ")"
	}
	return fmt.Sprintf("Alter unique_together for %s (%s)", op.Model, strings.Join(sets, ", "))
}

func (op *AlterUniqueTogether) Apply(s *State) error {
	m, err := s.Model(op.Model)
	if err != nil {
		return err
	}
	sets, err := normalizeUniqueTogether(m, op.UniqueTogether)
	if err != nil {
		return err
	}
	m.UniqueTogether = sets
	return nil
}

func (op *AlterUniqueTogether) Forwards(d Dialect, from, to *State) ([]string, error) {
	return op.alter(d, from, to)
}

func (op *AlterUniqueTogether) Backwards(d Dialect, from, to *State) ([]string, error) {
	return op.alter(d, from, to)
}

// alter drops the sets only present in `from` and adds those only in `to`
func (op *AlterUniqueTogether) alter(d Dialect, from, to *State) ([]string, error) {
	oldModel, err := from.Model(op.Model)
	if err != nil {
		return nil, err
	}
	newModel, err := to.Model(op.Model)
	if err != nil {
		return nil, err
	}

	oldSets := setIndex(oldModel.UniqueTogether)
	newSets := setIndex(newModel.UniqueTogether)

	var stmts []string
	for _, set := range oldModel.UniqueTogether {
		if !newSets[uniqueKey(set)] {
			stmts = append(stmts, d.DropUnique(oldModel.Table, set))
		}
	}
	for _, set := range newModel.UniqueTogether {
		if !oldSets[uniqueKey(set)] {
			stmts = append(stmts, d.AddUnique(newModel.Table, set))
		}
	}
	return stmts, nil
}

func setIndex(sets [][]string) map[string]bool {
	idx := make(map[string]bool, len(sets))
	for _, set := range sets {
		idx[uniqueKey(set)] = true
	}
	return idx
}
