package model

import "fmt"

// Table is a table and its total size.
type Table struct {
	Name      string `json:"tableName" yaml:"tableName"`
	SizeBytes int64  `json:"tableSizeInBytes" yaml:"tableSizeInBytes"`
}

func (t Table) ObjectName() string      { return t.Name }
func (t Table) ObjectType() ObjectType  { return ObjectTable }
func (t Table) Identity() string        { return identity(ObjectTable, t.Name) }
func (t Table) TableName() string       { return t.Name }
func (t Table) TableSizeInBytes() int64 { return t.SizeBytes }

func (t Table) String() string {
	return fmt.Sprintf("Table{tableName=%s, tableSizeInBytes=%d}", t.Name, t.SizeBytes)
}

// TableWithBloat is a table with estimated dead space.
type TableWithBloat struct {
	Table
	BloatBytes int64   `json:"bloatSizeInBytes" yaml:"bloatSizeInBytes"`
	BloatPct   float64 `json:"bloatPercentage" yaml:"bloatPercentage"`
}

func (t TableWithBloat) BloatSizeInBytes() int64  { return t.BloatBytes }
func (t TableWithBloat) BloatPercentage() float64 { return t.BloatPct }

func (t TableWithBloat) String() string {
	return fmt.Sprintf("TableWithBloat{tableName=%s, tableSizeInBytes=%d, bloatSizeInBytes=%d, bloatPercentage=%g}",
		t.Name, t.SizeBytes, t.BloatBytes, t.BloatPct)
}

// TableWithMissingIndex is a table read mostly by sequential scans.
// The scan counters are per host and excluded from Identity.
type TableWithMissingIndex struct {
	Table
	SeqScans   int64 `json:"seqScans" yaml:"seqScans"`
	IndexScans int64 `json:"indexScans" yaml:"indexScans"`
}

func (t TableWithMissingIndex) String() string {
	return fmt.Sprintf("TableWithMissingIndex{tableName=%s, tableSizeInBytes=%d, seqScans=%d, indexScans=%d}",
		t.Name, t.SizeBytes, t.SeqScans, t.IndexScans)
}
