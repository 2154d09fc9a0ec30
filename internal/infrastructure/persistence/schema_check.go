package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"gorm.io/gorm"
)

// OptionalColumnsDeclarer is implemented by models that tolerate missing columns
type OptionalColumnsDeclarer interface {
	OptionalColumns() []string
}

// SchemaCapabilities records which optional columns the live schema lacks.
// It is immutable; Refresh on SchemaCheck produces a new value.
type SchemaCapabilities struct {
	missing map[string]map[string]bool
}

// Has reports whether the column exists. Unknown tables report true.
func (c *SchemaCapabilities) Has(table, column string) bool {
	if c == nil {
		return true
	}
	return !c.missing[table][column]
}

// Missing lists the optional columns absent from the table, sorted
func (c *SchemaCapabilities) Missing(table string) []string {
	if c == nil {
		return nil
	}
	cols := make([]string, 0, len(c.missing[table]))
	for col := range c.missing[table] {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// SchemaCheck compares the statically declared models against the live schema.
// It runs at startup and again only when Refresh is called.
type SchemaCheck struct {
	db     *gorm.DB
	models []any
	caps   atomic.Pointer[SchemaCapabilities]
}

// NewSchemaCheck creates a check over the given models
func NewSchemaCheck(db *gorm.DB, models ...any) *SchemaCheck {
	return &SchemaCheck{db: db, models: models}
}

// Capabilities returns the result of the last successful check, nil before the first
func (s *SchemaCheck) Capabilities() *SchemaCapabilities {
	if s == nil {
		return nil
	}
	return s.caps.Load()
}

// Missing lists the optional columns absent from the table
func (s *SchemaCheck) Missing(table string) []string {
	return s.Capabilities().Missing(table)
}

// Refresh re-runs the check. A missing table or required column is an error and
// leaves the previous capabilities in place.
func (s *SchemaCheck) Refresh(ctx context.Context) (*SchemaCapabilities, error) {
	caps, err := CheckSchema(ctx, s.db, s.models...)
	if err != nil {
		return nil, err
	}
	s.caps.Store(caps)
	return caps, nil
}

// CheckSchema introspects the columns of every model's table
func CheckSchema(ctx context.Context, db *gorm.DB, models ...any) (*SchemaCapabilities, error) {
	caps := &SchemaCapabilities{missing: make(map[string]map[string]bool)}
	db = db.WithContext(ctx)
	migrator := db.Migrator()

	var problems []string
	for _, model := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		if !migrator.HasTable(model) {
			problems = append(problems, fmt.Sprintf("table %s is missing", table))
			continue
		}
		columnTypes, err := migrator.ColumnTypes(model)
		if err != nil {
			return nil, fmt.Errorf("read columns of %s: %w", table, err)
		}
		present := make(map[string]bool, len(columnTypes))
		for _, ct := range columnTypes {
			present[strings.ToLower(ct.Name())] = true
		}

		optional := map[string]bool{}
		if d, ok := model.(OptionalColumnsDeclarer); ok {
			for _, col := range d.OptionalColumns() {
				optional[col] = true
			}
		}

		for _, col := range stmt.Schema.DBNames {
			if present[col] {
				continue
			}
			if optional[col] {
				if caps.missing[table] == nil {
					caps.missing[table] = map[string]bool{}
				}
				caps.missing[table][col] = true
				continue
			}
			problems = append(problems, fmt.Sprintf("column %s.%s is missing", table, col))
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("schema check failed: %s", strings.Join(problems, "; "))
	}
	return caps, nil
}
