package extract

import "github.com/mosaix-eda/mosaix/geom"

// Region is a flat collection of polygons, the per-layer geometry handed to
// a delegate's ExtractDevices. It is materialised from a cluster's shape
// references flattened under their hierarchical transformations.
type Region struct {
	polys []geom.Polygon
}

// NewRegion builds a region from polygons.
func NewRegion(polys ...geom.Polygon) *Region {
	r := &Region{}
	for _, p := range polys {
		r.Insert(p)
	}
	return r
}

// Insert appends a polygon; empty polygons are dropped.
func (r *Region) Insert(p geom.Polygon) {
	if !p.Empty() {
		r.polys = append(r.polys, p)
	}
}

// Len returns the number of polygons.
func (r *Region) Len() int {
	if r == nil {
		return 0
	}
	return len(r.polys)
}

// IsEmpty reports whether the region holds no polygons.
func (r *Region) IsEmpty() bool { return r.Len() == 0 }

// Each calls fn for every polygon in insertion order.
func (r *Region) Each(fn func(p geom.Polygon)) {
	if r == nil {
		return
	}
	for _, p := range r.polys {
		fn(p)
	}
}

// Polygons returns the polygons. Callers must not mutate the slice.
func (r *Region) Polygons() []geom.Polygon {
	if r == nil {
		return nil
	}
	return r.polys
}

// BBox returns the bounding box over all polygons.
func (r *Region) BBox() geom.Box {
	b := geom.EmptyBox()
	if r == nil {
		return b
	}
	for _, p := range r.polys {
		b = b.Union(p.BBox())
	}
	return b
}
