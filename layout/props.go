package layout

import (
	"fmt"
	"sort"
	"strings"
)

// NameID identifies an interned property name.
type NameID int

// PropertiesID identifies an interned property set. NilProperties marks
// "no properties".
type PropertiesID int

// NilProperties is the id of the empty property set.
const NilProperties PropertiesID = 0

// PropertySet maps property name ids to values. Values must be comparable
// via their fmt representation (ints, strings and small value structs).
type PropertySet map[NameID]any

// PropertiesRepository interns property names and property sets. Interning
// is append-only: ids handed out stay valid for the repository's lifetime;
// other agents may read concurrently established ids but must not expect
// new interning to be synchronised.
type PropertiesRepository struct {
	names   []string
	nameIDs map[string]NameID

	sets    []PropertySet
	setsIDs map[string]PropertiesID
}

// NewPropertiesRepository creates an empty repository. Id 0 is reserved for
// the empty set.
func NewPropertiesRepository() *PropertiesRepository {
	return &PropertiesRepository{
		nameIDs: make(map[string]NameID),
		sets:    []PropertySet{nil},
		setsIDs: make(map[string]PropertiesID),
	}
}

// NameID interns a property name and returns its id. Repeated calls with
// the same name return the same id.
func (r *PropertiesRepository) NameID(name string) NameID {
	if id, ok := r.nameIDs[name]; ok {
		return id
	}
	id := NameID(len(r.names))
	r.names = append(r.names, name)
	r.nameIDs[name] = id
	return id
}

// Name returns the name behind id, or "" if unknown.
func (r *PropertiesRepository) Name(id NameID) string {
	if id < 0 || int(id) >= len(r.names) {
		return ""
	}
	return r.names[id]
}

// PropertiesID interns a property set. Equal sets (same ids mapped to values
// with equal representations) share one id. The empty set interns to
// NilProperties.
func (r *PropertiesRepository) PropertiesID(ps PropertySet) PropertiesID {
	if len(ps) == 0 {
		return NilProperties
	}
	key := canonicalSetKey(ps)
	if id, ok := r.setsIDs[key]; ok {
		return id
	}
	cp := make(PropertySet, len(ps))
	for k, v := range ps {
		cp[k] = v
	}
	id := PropertiesID(len(r.sets))
	r.sets = append(r.sets, cp)
	r.setsIDs[key] = id
	return id
}

// Set returns the property set behind id. NilProperties and unknown ids
// yield nil. Callers must not mutate the result.
func (r *PropertiesRepository) Set(id PropertiesID) PropertySet {
	if id <= NilProperties || int(id) >= len(r.sets) {
		return nil
	}
	return r.sets[id]
}

// Value looks up a single property in the set behind id.
func (r *PropertiesRepository) Value(id PropertiesID, name NameID) (any, bool) {
	ps := r.Set(id)
	if ps == nil {
		return nil, false
	}
	v, ok := ps[name]
	return v, ok
}

func canonicalSetKey(ps PropertySet) string {
	ids := make([]int, 0, len(ps))
	for id := range ps {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&sb, "%d=%v;", id, ps[NameID(id)])
	}
	return sb.String()
}
