package diagnostic

import "github.com/koltyakov/pgindexhealth/internal/model"

// Combiner merges per-host result lists into one. Input order is irrelevant;
// output is sorted by identity and never nil.
type Combiner interface {
	Name() string
	Combine(perHost [][]model.DbObject) []model.DbObject
}

// Built-in combiners.
var (
	// UnionDistinctSorted keeps every object seen on any host, once.
	UnionDistinctSorted Combiner = unionCombiner{}
	// Intersection keeps objects reported by every host. Usage counters are
	// ignored when matching; the kept value comes from the first host.
	Intersection Combiner = intersectionCombiner{}
)

type unionCombiner struct{}

func (unionCombiner) Name() string { return "union" }

func (unionCombiner) Combine(perHost [][]model.DbObject) []model.DbObject {
	seen := make(map[string]struct{})
	out := make([]model.DbObject, 0)
	for _, list := range perHost {
		for _, obj := range list {
			id := obj.Identity()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, obj)
		}
	}
	model.SortByIdentity(out)
	return out
}

type intersectionCombiner struct{}

func (intersectionCombiner) Name() string { return "intersection" }

func (intersectionCombiner) Combine(perHost [][]model.DbObject) []model.DbObject {
	out := make([]model.DbObject, 0)
	if len(perHost) == 0 {
		return out
	}

	counts := make(map[string]int)
	for _, list := range perHost {
		onHost := make(map[string]struct{}, len(list))
		for _, obj := range list {
			onHost[obj.Identity()] = struct{}{}
		}
		for id := range onHost {
			counts[id]++
		}
	}

	emitted := make(map[string]struct{})
	for _, obj := range perHost[0] {
		id := obj.Identity()
		if counts[id] != len(perHost) {
			continue
		}
		if _, dup := emitted[id]; dup {
			continue
		}
		emitted[id] = struct{}{}
		out = append(out, obj)
	}
	model.SortByIdentity(out)
	return out
}
