// Package migrations holds the catalog's migration graph and the runner that
// applies it to a database.
package migrations

import (
	"fmt"

	"github.com/bkdbm/dbmeta/src/common/logs"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/schema"
)

// package-level logger, can be set via SetLogger
var log = logs.Discard()

// SetLogger sets the logger for the migrations package
func SetLogger(l *logs.Logger) {
	if l != nil {
		log = l
	}
}

// Key identifies a migration within an app
type Key struct {
	App  string `json:"app"`
	Name string `json:"name"`
}

func (k Key) String() string {
	return k.App + "." + k.Name
}

// Migration is an ordered list of schema operations plus the migrations
// that must be applied first.
type Migration struct {
	App          string
	Name         string
	Description  string
	Dependencies []Key
	Operations   []schema.Operation
}

// Key returns the migration's key
func (m Migration) Key() Key {
	return Key{App: m.App, Name: m.Name}
}

// Apply advances state by every operation of m
func (m Migration) Apply(state *schema.State) error {
	for _, op := range m.Operations {
		if err := op.Apply(state); err != nil {
			return fmt.Errorf("%s: %s: %w", m.Key(), op.Describe(), err)
		}
	}
	return nil
}

// ForwardSQL renders the statements that apply m to a database whose schema
// matches before.
func (m Migration) ForwardSQL(d schema.Dialect, before *schema.State) ([]string, error) {
	var stmts []string
	from := before.Clone()

	for _, op := range m.Operations {
		to := from.Clone()
		if err := op.Apply(to); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", m.Key(), op.Describe(), err)
		}
		sql, err := op.Forwards(d, from, to)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", m.Key(), op.Describe(), err)
		}
		stmts = append(stmts, sql...)
		from = to
	}

	return stmts, nil
}

// BackwardSQL renders the statements that revert m. before is the state
// prior to m, the same argument ForwardSQL takes.
func (m Migration) BackwardSQL(d schema.Dialect, before *schema.State) ([]string, error) {
	states := make([]*schema.State, 0, len(m.Operations)+1)
	states = append(states, before.Clone())

	for _, op := range m.Operations {
		next := states[len(states)-1].Clone()
		if err := op.Apply(next); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", m.Key(), op.Describe(), err)
		}
		states = append(states, next)
	}

	var stmts []string
	for i := len(m.Operations) - 1; i >= 0; i-- {
		op := m.Operations[i]
		sql, err := op.Backwards(d, states[i+1], states[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", m.Key(), op.Describe(), err)
		}
		stmts = append(stmts, sql...)
	}

	return stmts, nil
}
