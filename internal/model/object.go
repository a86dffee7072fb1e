// Package model holds the database objects reported by diagnostics.
//
// Every finding implements DbObject. Identity is the equality key used when
// merging results from several hosts; it never includes usage counters or
// sizes, so the same index seen on two replicas with different scan counts
// is one object.
package model

import (
	"sort"
	"strings"
)

// ObjectType classifies a DbObject.
type ObjectType string

const (
	ObjectTable      ObjectType = "table"
	ObjectIndex      ObjectType = "index"
	ObjectConstraint ObjectType = "constraint"
	ObjectColumn     ObjectType = "column"
	ObjectSequence   ObjectType = "sequence"
)

// DbObject is a single finding.
type DbObject interface {
	// ObjectName is the (possibly schema-qualified) name shown to users and
	// matched by exclusions.
	ObjectName() string
	ObjectType() ObjectType
	// Identity is stable across hosts and orders findings.
	Identity() string
}

// TableAware objects belong to a table.
type TableAware interface {
	TableName() string
}

// IndexesAware objects name one or more indexes.
type IndexesAware interface {
	IndexNames() []string
}

// TableSizeAware objects know the table size in bytes.
type TableSizeAware interface {
	TableSizeInBytes() int64
}

// IndexSizeAware objects know the size of their index (or indexes) in bytes.
type IndexSizeAware interface {
	IndexSizeInBytes() int64
}

// BloatAware objects carry an estimated bloat.
type BloatAware interface {
	BloatSizeInBytes() int64
	BloatPercentage() float64
}

// Less orders objects by identity.
func Less(a, b DbObject) bool {
	return a.Identity() < b.Identity()
}

// SortByIdentity sorts in place.
func SortByIdentity(objs []DbObject) {
	sort.SliceStable(objs, func(i, j int) bool { return Less(objs[i], objs[j]) })
}

func identity(t ObjectType, parts ...string) string {
	return string(t) + ":" + strings.Join(parts, "/")
}
