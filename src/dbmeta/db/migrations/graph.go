package migrations

import (
	"sort"
	"strings"

	"github.com/bkdbm/dbmeta/src/common/errors"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/schema"
)

// Graph is the dependency graph of a set of migrations
type Graph struct {
	nodes    map[Key]Migration
	parents  map[Key][]Key
	children map[Key][]Key
	plan     []Migration
	index    map[Key]int
}

// NewGraph validates ms and computes the apply order. It fails on duplicate
// keys, dependencies on unknown keys and dependency cycles.
func NewGraph(ms []Migration) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[Key]Migration, len(ms)),
		parents:  make(map[Key][]Key, len(ms)),
		children: make(map[Key][]Key, len(ms)),
		index:    make(map[Key]int, len(ms)),
	}

	for _, m := range ms {
		if _, dup := g.nodes[m.Key()]; dup {
			return nil, errors.ErrDuplicateMigration.WithMessagef("migration %s registered twice", m.Key())
		}
		g.nodes[m.Key()] = m
	}

	for _, m := range ms {
		for _, dep := range m.Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				return nil, errors.ErrMissingDependency.WithMessagef("%s depends on unknown migration %s", m.Key(), dep)
			}
			g.parents[m.Key()] = append(g.parents[m.Key()], dep)
			g.children[dep] = append(g.children[dep], m.Key())
		}
	}

	if err := g.sort(); err != nil {
		return nil, err
	}
	return g, nil
}

// sort is Kahn's algorithm; among ready nodes the smallest key goes first
// so the plan does not depend on registration order.
func (g *Graph) sort() error {
	indegree := make(map[Key]int, len(g.nodes))
	var ready []Key
	for k := range g.nodes {
		indegree[k] = len(g.parents[k])
		if indegree[k] == 0 {
			ready = append(ready, k)
		}
	}

	for len(ready) > 0 {
		sortKeys(ready)
		k := ready[0]
		ready = ready[1:]

		g.index[k] = len(g.plan)
		g.plan = append(g.plan, g.nodes[k])

		for _, child := range g.children[k] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(g.plan) != len(g.nodes) {
		var stuck []string
		for k, n := range indegree {
			if n > 0 {
				stuck = append(stuck, k.String())
			}
		}
		sort.Strings(stuck)
		return errors.ErrCircularDependency.WithMessagef("dependency cycle among %s", strings.Join(stuck, ", "))
	}
	return nil
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].App != keys[j].App {
			return keys[i].App < keys[j].App
		}
		return keys[i].Name < keys[j].Name
	})
}

// Plan returns every migration in apply order
func (g *Graph) Plan() []Migration {
	return append([]Migration(nil), g.plan...)
}

// Get returns the migration registered under k
func (g *Graph) Get(k Key) (Migration, error) {
	m, ok := g.nodes[k]
	if !ok {
		return Migration{}, errors.ErrMigrationNotFound.WithMessagef("migration %s not found", k)
	}
	return m, nil
}

// Ancestors returns k's transitive dependencies and k itself, in apply order
func (g *Graph) Ancestors(k Key) []Migration {
	return g.closure(k, g.parents)
}

// Descendants returns k and everything depending on it, in apply order
func (g *Graph) Descendants(k Key) []Migration {
	return g.closure(k, g.children)
}

func (g *Graph) closure(k Key, edges map[Key][]Key) []Migration {
	if _, ok := g.nodes[k]; !ok {
		return nil
	}

	seen := map[Key]bool{k: true}
	stack := []Key{k}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range edges[cur] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}

	out := make([]Migration, 0, len(seen))
	for _, m := range g.plan {
		if seen[m.Key()] {
			out = append(out, m)
		}
	}
	return out
}

// Leaves returns migrations nothing depends on, sorted by key
func (g *Graph) Leaves() []Key {
	var leaves []Key
	for k := range g.nodes {
		if len(g.children[k]) == 0 {
			leaves = append(leaves, k)
		}
	}
	sortKeys(leaves)
	return leaves
}

// StateBefore returns the schema state produced by every migration planned
// before k
func (g *Graph) StateBefore(k Key) (*schema.State, error) {
	idx, ok := g.index[k]
	if !ok {
		return nil, errors.ErrMigrationNotFound.WithMessagef("migration %s not found", k)
	}

	state := schema.NewState()
	for _, m := range g.plan[:idx] {
		if err := m.Apply(state); err != nil {
			return nil, err
		}
	}
	return state, nil
}
