// Package exclusion filters findings. A Predicate returns true to keep an
// object; the same predicate is applied on every host before merging.
package exclusion

import (
	"strings"

	"github.com/koltyakov/pgindexhealth/internal/model"
)

// Predicate decides whether a finding is kept.
type Predicate func(model.DbObject) bool

// AcceptAll keeps everything.
func AcceptAll(model.DbObject) bool { return true }

// And keeps an object only if every predicate keeps it. With no predicates it
// keeps everything.
func And(predicates ...Predicate) Predicate {
	active := make([]Predicate, 0, len(predicates))
	for _, p := range predicates {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return AcceptAll
	}
	return func(obj model.DbObject) bool {
		for _, p := range active {
			if !p(obj) {
				return false
			}
		}
		return true
	}
}

// Apply filters objs with p, keeping order. A nil p keeps everything.
func Apply(p Predicate, objs []model.DbObject) []model.DbObject {
	out := make([]model.DbObject, 0, len(objs))
	for _, obj := range objs {
		if p == nil || p(obj) {
			out = append(out, obj)
		}
	}
	return out
}

type nameSet map[string]struct{}

func newNameSet(names []string) nameSet {
	set := make(nameSet, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[strings.ToLower(n)] = struct{}{}
		}
	}
	return set
}

func (s nameSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// SkipByName drops objects whose name matches, ignoring case.
func SkipByName(names ...string) Predicate {
	set := newNameSet(names)
	if len(set) == 0 {
		return AcceptAll
	}
	return func(obj model.DbObject) bool {
		return !set.has(obj.ObjectName())
	}
}

// SkipTablesByName drops objects that belong to one of the tables.
// Objects without a table pass.
func SkipTablesByName(tables ...string) Predicate {
	set := newNameSet(tables)
	if len(set) == 0 {
		return AcceptAll
	}
	return func(obj model.DbObject) bool {
		ta, ok := obj.(model.TableAware)
		return !ok || !set.has(ta.TableName())
	}
}

// SkipIndexesByName drops objects naming any of the indexes. A duplicate group
// is dropped when any of its members matches.
func SkipIndexesByName(indexes ...string) Predicate {
	set := newNameSet(indexes)
	if len(set) == 0 {
		return AcceptAll
	}
	return func(obj model.DbObject) bool {
		ia, ok := obj.(model.IndexesAware)
		if !ok {
			return true
		}
		for _, name := range ia.IndexNames() {
			if set.has(name) {
				return false
			}
		}
		return true
	}
}

// SkipSmallTables drops tables smaller than threshold bytes.
func SkipSmallTables(threshold int64) Predicate {
	if threshold <= 0 {
		return AcceptAll
	}
	return func(obj model.DbObject) bool {
		sa, ok := obj.(model.TableSizeAware)
		return !ok || sa.TableSizeInBytes() >= threshold
	}
}

// SkipSmallIndexes drops indexes (or duplicate groups, by total size) smaller
// than threshold bytes.
func SkipSmallIndexes(threshold int64) Predicate {
	if threshold <= 0 {
		return AcceptAll
	}
	return func(obj model.DbObject) bool {
		sa, ok := obj.(model.IndexSizeAware)
		return !ok || sa.IndexSizeInBytes() >= threshold
	}
}

// SkipBloatUnderThreshold drops bloat findings below either threshold.
// Zero thresholds disable the respective check.
func SkipBloatUnderThreshold(sizeThreshold int64, percentageThreshold float64) Predicate {
	if sizeThreshold <= 0 && percentageThreshold <= 0 {
		return AcceptAll
	}
	return func(obj model.DbObject) bool {
		ba, ok := obj.(model.BloatAware)
		if !ok {
			return true
		}
		return ba.BloatSizeInBytes() >= sizeThreshold && ba.BloatPercentage() >= percentageThreshold
	}
}
