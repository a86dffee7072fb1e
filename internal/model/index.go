package model

import (
	"fmt"
	"sort"
	"strings"
)

// Index names an index and the table it belongs to.
type Index struct {
	Table string `json:"tableName" yaml:"tableName"`
	Name  string `json:"indexName" yaml:"indexName"`
}

func (i Index) ObjectName() string     { return i.Name }
func (i Index) ObjectType() ObjectType { return ObjectIndex }
func (i Index) Identity() string       { return identity(ObjectIndex, i.Table, i.Name) }
func (i Index) TableName() string      { return i.Table }
func (i Index) IndexNames() []string   { return []string{i.Name} }

func (i Index) String() string {
	return fmt.Sprintf("Index{tableName=%s, indexName=%s}", i.Table, i.Name)
}

// IndexWithSize adds the on-disk size.
type IndexWithSize struct {
	Index
	SizeBytes int64 `json:"indexSizeInBytes" yaml:"indexSizeInBytes"`
}

func (i IndexWithSize) IndexSizeInBytes() int64 { return i.SizeBytes }

func (i IndexWithSize) String() string {
	return fmt.Sprintf("IndexWithSize{tableName=%s, indexName=%s, indexSizeInBytes=%d}", i.Table, i.Name, i.SizeBytes)
}

// IndexWithBloat is an index with estimated dead space.
type IndexWithBloat struct {
	IndexWithSize
	BloatBytes int64   `json:"bloatSizeInBytes" yaml:"bloatSizeInBytes"`
	BloatPct   float64 `json:"bloatPercentage" yaml:"bloatPercentage"`
}

func (i IndexWithBloat) BloatSizeInBytes() int64  { return i.BloatBytes }
func (i IndexWithBloat) BloatPercentage() float64 { return i.BloatPct }

func (i IndexWithBloat) String() string {
	return fmt.Sprintf("IndexWithBloat{tableName=%s, indexName=%s, indexSizeInBytes=%d, bloatSizeInBytes=%d, bloatPercentage=%g}",
		i.Table, i.Name, i.SizeBytes, i.BloatBytes, i.BloatPct)
}

// UnusedIndex is an index with few or no scans on a host. Scans is per host
// and excluded from Identity.
type UnusedIndex struct {
	IndexWithSize
	Scans int64 `json:"indexScans" yaml:"indexScans"`
}

func (i UnusedIndex) String() string {
	return fmt.Sprintf("UnusedIndex{tableName=%s, indexName=%s, indexSizeInBytes=%d, indexScans=%d}",
		i.Table, i.Name, i.SizeBytes, i.Scans)
}

// IndexWithNulls is an index over a nullable column that stores nulls.
type IndexWithNulls struct {
	IndexWithSize
	NullableColumn string `json:"nullableField" yaml:"nullableField"`
}

func (i IndexWithNulls) String() string {
	return fmt.Sprintf("IndexWithNulls{tableName=%s, indexName=%s, indexSizeInBytes=%d, nullableField=%s}",
		i.Table, i.Name, i.SizeBytes, i.NullableColumn)
}

// DuplicatedIndexes groups indexes of one table that fully or partially
// cover each other. Indexes are kept sorted by name.
type DuplicatedIndexes struct {
	Table   string          `json:"tableName" yaml:"tableName"`
	Indexes []IndexWithSize `json:"duplicatedIndexes" yaml:"duplicatedIndexes"`
}

// NewDuplicatedIndexes sorts the group by index name.
func NewDuplicatedIndexes(table string, indexes []IndexWithSize) DuplicatedIndexes {
	sorted := append([]IndexWithSize(nil), indexes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return DuplicatedIndexes{Table: table, Indexes: sorted}
}

// ObjectName joins the index names with commas.
func (d DuplicatedIndexes) ObjectName() string     { return strings.Join(d.IndexNames(), ",") }
func (d DuplicatedIndexes) ObjectType() ObjectType { return ObjectIndex }
func (d DuplicatedIndexes) TableName() string      { return d.Table }

func (d DuplicatedIndexes) Identity() string {
	return identity(ObjectIndex, d.Table, d.ObjectName())
}

func (d DuplicatedIndexes) IndexNames() []string {
	names := make([]string, len(d.Indexes))
	for i, idx := range d.Indexes {
		names[i] = idx.Name
	}
	return names
}

// IndexSizeInBytes is the total size of the group.
func (d DuplicatedIndexes) IndexSizeInBytes() int64 {
	var total int64
	for _, idx := range d.Indexes {
		total += idx.SizeBytes
	}
	return total
}

func (d DuplicatedIndexes) String() string {
	return fmt.Sprintf("DuplicatedIndexes{tableName=%s, totalSize=%d, indexes=[%s]}",
		d.Table, d.IndexSizeInBytes(), d.ObjectName())
}
