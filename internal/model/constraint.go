package model

import (
	"fmt"
	"strings"
)

// Column is a table column.
type Column struct {
	Table   string `json:"tableName" yaml:"tableName"`
	Name    string `json:"columnName" yaml:"columnName"`
	NotNull bool   `json:"notNull" yaml:"notNull"`
}

// ObjectName is "table.column".
func (c Column) ObjectName() string     { return c.Table + "." + c.Name }
func (c Column) ObjectType() ObjectType { return ObjectColumn }
func (c Column) Identity() string       { return identity(ObjectColumn, c.Table, c.Name) }
func (c Column) TableName() string      { return c.Table }

func (c Column) String() string {
	return fmt.Sprintf("Column{tableName=%s, columnName=%s, notNull=%t}", c.Table, c.Name, c.NotNull)
}

// ForeignKey is a foreign key constraint and its columns, in key order.
type ForeignKey struct {
	Table   string   `json:"tableName" yaml:"tableName"`
	Name    string   `json:"constraintName" yaml:"constraintName"`
	Columns []Column `json:"columnsInConstraint" yaml:"columnsInConstraint"`
}

func (f ForeignKey) ObjectName() string     { return f.Name }
func (f ForeignKey) ObjectType() ObjectType { return ObjectConstraint }
func (f ForeignKey) Identity() string       { return identity(ObjectConstraint, f.Table, f.Name) }
func (f ForeignKey) TableName() string      { return f.Table }

func (f ForeignKey) String() string {
	cols := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		cols[i] = c.Name
	}
	return fmt.Sprintf("ForeignKey{tableName=%s, constraintName=%s, columns=[%s]}",
		f.Table, f.Name, strings.Join(cols, ", "))
}
