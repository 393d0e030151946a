package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bkdbm/dbmeta/src/common/errors"
)

// Supported dialect names
const (
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
)

const uniqueSuffix = "_uniq"

// Dialect renders DDL and adapts queries for one database engine
type Dialect interface {
	Name() string
	Quote(ident string) string
	// MaxIdentifierLength is 0 when the engine has no practical limit
	MaxIdentifierLength() int
	ColumnType(f Field) (string, error)
	ColumnDefinition(f Field) (string, error)
	CreateTable(m *Model) ([]string, error)
	DropTable(table string) string
	AddColumn(table string, f Field) (string, error)
	DropColumn(table, column string) string
	AddUnique(table string, columns []string) string
	DropUnique(table string, columns []string) string
	// Rebind rewrites ? placeholders into the engine's bind syntax
	Rebind(query string) string
}

type sqlDialect struct {
	name     string
	quote    string
	maxIdent int
}

// SQLite returns the SQLite dialect
func SQLite() Dialect { return &sqlDialect{name: DialectSQLite, quote: `"`} }

// MySQL returns the MySQL dialect
func MySQL() Dialect { return &sqlDialect{name: DialectMySQL, quote: "`", maxIdent: 64} }

// Postgres returns the PostgreSQL dialect
func Postgres() Dialect { return &sqlDialect{name: DialectPostgres, quote: `"`, maxIdent: 63} }

// DialectFor returns the dialect registered under name
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case DialectSQLite, "sqlite3":
		return SQLite(), nil
	case DialectMySQL:
		return MySQL(), nil
	case DialectPostgres, "postgresql", "pgx":
		return Postgres(), nil
	default:
		return nil, errors.ErrUnknownDialect.WithMessagef("unknown database dialect %q", name)
	}
}

func (d *sqlDialect) Name() string { return d.name }

func (d *sqlDialect) MaxIdentifierLength() int { return d.maxIdent }

func (d *sqlDialect) Quote(ident string) string {
	return d.quote + strings.ReplaceAll(ident, d.quote, d.quote+d.quote) + d.quote
}

func (d *sqlDialect) quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = d.Quote(id)
	}
	return strings.Join(quoted, ", ")
}

func (d *sqlDialect) ColumnType(f Field) (string, error) {
	switch f.Type {
	case TypeAuto:
		switch d.name {
		case DialectMySQL:
			return "integer AUTO_INCREMENT NOT NULL PRIMARY KEY", nil
		case DialectPostgres:
			return "serial NOT NULL PRIMARY KEY", nil
		default:
			return "integer NOT NULL PRIMARY KEY AUTOINCREMENT", nil
		}
	case TypeInteger:
		return "integer", nil
	case TypeBigInt:
		return "bigint", nil
	case TypeVarchar:
		if f.MaxLength <= 0 {
			return "", errors.ErrInvalidField.WithMessagef("varchar field %q needs a max length", f.Name)
		}
		return fmt.Sprintf("varchar(%d)", f.MaxLength), nil
	case TypeText:
		if d.name == DialectMySQL {
			return "longtext", nil
		}
		return "text", nil
	case TypeJSON:
		switch d.name {
		case DialectMySQL:
			return "json", nil
		case DialectPostgres:
			return "jsonb", nil
		default:
			return "text", nil
		}
	case TypeDateTime:
		switch d.name {
		case DialectMySQL:
			return "datetime(6)", nil
		case DialectPostgres:
			return "timestamp with time zone", nil
		default:
			return "datetime", nil
		}
	default:
		return "", errors.ErrInvalidField.WithMessagef("field %q has unsupported type %q", f.Name, f.Type)
	}
}

func (d *sqlDialect) defaultLiteral(f Field) (string, error) {
	switch v := f.Default.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case string:
		if d.name == DialectMySQL {
			v = strings.ReplaceAll(v, `\`, `\\`)
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	default:
		return "", errors.ErrInvalidField.WithMessagef("field %q has unsupported default %v (%T)", f.Name, f.Default, f.Default)
	}
}

func (d *sqlDialect) ColumnDefinition(f Field) (string, error) {
	typ, err := d.ColumnType(f)
	if err != nil {
		return "", err
	}
	if f.Type == TypeAuto {
		return d.Quote(f.Name) + " " + typ, nil
	}

	var b strings.Builder
	b.WriteString(d.Quote(f.Name))
	b.WriteString(" ")
	b.WriteString(typ)

	if f.Default != nil {
		lit, err := d.defaultLiteral(f)
		if err != nil {
			return "", err
		}
		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}

	if f.Null {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}

	if f.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}

	return b.String(), nil
}

// CreateTable renders the table followed by one statement per
// unique_together set. Unique sets are never inlined so that they can later
// be dropped by name on every engine.
func (d *sqlDialect) CreateTable(m *Model) ([]string, error) {
	cols := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		def, err := d.ColumnDefinition(f)
		if err != nil {
			return nil, err
		}
		cols = append(cols, "\t"+def)
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s (\n%s\n)", d.Quote(m.Table), strings.Join(cols, ",\n")),
	}
	for _, set := range m.UniqueTogether {
		stmts = append(stmts, d.AddUnique(m.Table, set))
	}

	return stmts, nil
}

func (d *sqlDialect) DropTable(table string) string {
	if d.name == DialectPostgres {
		return fmt.Sprintf("DROP TABLE %s CASCADE", d.Quote(table))
	}
	return fmt.Sprintf("DROP TABLE %s", d.Quote(table))
}

func (d *sqlDialect) AddColumn(table string, f Field) (string, error) {
	def, err := d.ColumnDefinition(f)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.Quote(table), def), nil
}

func (d *sqlDialect) DropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.Quote(table), d.Quote(column))
}

func (d *sqlDialect) AddUnique(table string, columns []string) string {
	name := ConstraintName(table, columns, uniqueSuffix, d.maxIdent)
	if d.name == DialectSQLite {
		return fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", d.Quote(name), d.Quote(table), d.quoteAll(columns))
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)", d.Quote(table), d.Quote(name), d.quoteAll(columns))
}

func (d *sqlDialect) DropUnique(table string, columns []string) string {
	name := ConstraintName(table, columns, uniqueSuffix, d.maxIdent)
	switch d.name {
	case DialectSQLite:
		return fmt.Sprintf("DROP INDEX %s", d.Quote(name))
	case DialectMySQL:
		return fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", d.Quote(table), d.Quote(name))
	default:
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.Quote(table), d.Quote(name))
	}
}

func (d *sqlDialect) Rebind(query string) string {
	if d.name != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
