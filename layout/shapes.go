package layout

import (
	"github.com/mosaix-eda/mosaix/geom"
)

// ShapeKind discriminates the variants a Shape can hold.
type ShapeKind int

const (
	// ShapeBox is an axis-aligned rectangle.
	ShapeBox ShapeKind = iota
	// ShapePolygon is a polygon held by value.
	ShapePolygon
	// ShapePath is a wire with a width.
	ShapePath
	// ShapeEdge is a line segment.
	ShapeEdge
	// ShapeText is a point-anchored label.
	ShapeText
	// ShapePolygonRef is a polygon interned in the shape repository.
	ShapePolygonRef
)

// Shape is the tagged-variant shape handle stored in a Shapes container.
// Exactly the field selected by Kind is meaningful.
type Shape struct {
	Kind ShapeKind

	Box  geom.Box
	Poly geom.Polygon
	Path geom.Path
	Edge geom.Edge
	Text geom.Text
	Ref  PolygonRef

	// PropsID carries shape-level properties (e.g. terminal markers).
	PropsID PropertiesID
}

// BoxShape wraps a box into a Shape.
func BoxShape(b geom.Box) Shape { return Shape{Kind: ShapeBox, Box: b} }

// PolygonShape wraps a polygon into a Shape.
func PolygonShape(p geom.Polygon) Shape { return Shape{Kind: ShapePolygon, Poly: p} }

// PathShape wraps a path into a Shape.
func PathShape(p geom.Path) Shape { return Shape{Kind: ShapePath, Path: p} }

// EdgeShape wraps an edge into a Shape.
func EdgeShape(e geom.Edge) Shape { return Shape{Kind: ShapeEdge, Edge: e} }

// TextShape wraps a text into a Shape.
func TextShape(t geom.Text) Shape { return Shape{Kind: ShapeText, Text: t} }

// RefShape wraps a polygon reference into a Shape.
func RefShape(r PolygonRef) Shape { return Shape{Kind: ShapePolygonRef, Ref: r} }

// IsArea reports whether the shape has an area interpretation (box, polygon,
// path or polygon reference). Texts and edges are non-area shapes; clipping
// is undefined for them.
func (s Shape) IsArea() bool {
	switch s.Kind {
	case ShapeBox, ShapePolygon, ShapePath, ShapePolygonRef:
		return true
	}
	return false
}

// BBox returns the shape's bounding box.
func (s Shape) BBox() geom.Box {
	switch s.Kind {
	case ShapeBox:
		return s.Box
	case ShapePolygon:
		return s.Poly.BBox()
	case ShapePath:
		return s.Path.BBox()
	case ShapeEdge:
		return s.Edge.BBox()
	case ShapeText:
		return s.Text.BBox()
	case ShapePolygonRef:
		return s.Ref.BBox()
	}
	return geom.EmptyBox()
}

// Polygon normalises an area shape to a polygon. The second return is false
// for non-area shapes.
func (s Shape) Polygon() (geom.Polygon, bool) {
	switch s.Kind {
	case ShapeBox:
		return geom.NewPolygonFromBox(s.Box), true
	case ShapePolygon:
		return s.Poly, true
	case ShapePath:
		return s.Path.Polygon(), true
	case ShapePolygonRef:
		return s.Ref.Polygon(), true
	}
	return geom.Polygon{}, false
}

// Shapes is an ordered shape container, one per (cell, layer).
type Shapes struct {
	shapes []Shape
}

// Insert appends a shape.
func (s *Shapes) Insert(sh Shape) { s.shapes = append(s.shapes, sh) }

// Len returns the number of shapes.
func (s *Shapes) Len() int {
	if s == nil {
		return 0
	}
	return len(s.shapes)
}

// At returns the i-th shape.
func (s *Shapes) At(i int) Shape { return s.shapes[i] }

// Each calls fn for every shape in insertion order.
func (s *Shapes) Each(fn func(sh Shape)) {
	if s == nil {
		return
	}
	for _, sh := range s.shapes {
		fn(sh)
	}
}

// BBox returns the union of all shape boxes.
func (s *Shapes) BBox() geom.Box {
	b := geom.EmptyBox()
	if s == nil {
		return b
	}
	for _, sh := range s.shapes {
		b = b.Union(sh.BBox())
	}
	return b
}

// PolygonRef is a polygon canonicalised in a shape repository: the stored
// contour is translated so its bbox lower-left corner is the origin and
// Disp carries the original position. Identical geometry shares a single
// repository entry, which makes equality a pointer comparison.
type PolygonRef struct {
	obj  *geom.Polygon
	Disp geom.Vector
}

// NewPolygonRef interns p into repo and returns the reference.
func NewPolygonRef(p geom.Polygon, repo *Repository) PolygonRef {
	d := p.BBox().LowerLeft()
	disp := geom.Vector{DX: d.X, DY: d.Y}
	norm := p.Translated(disp.Negated())
	return PolygonRef{obj: repo.intern(norm), Disp: disp}
}

// Obj returns the interned, origin-normalised polygon.
func (r PolygonRef) Obj() *geom.Polygon { return r.obj }

// Polygon reconstructs the polygon at its original position.
func (r PolygonRef) Polygon() geom.Polygon {
	if r.obj == nil {
		return geom.Polygon{}
	}
	return r.obj.Translated(r.Disp)
}

// BBox returns the bounding box at the original position.
func (r PolygonRef) BBox() geom.Box {
	if r.obj == nil {
		return geom.EmptyBox()
	}
	return r.obj.BBox().Translated(r.Disp)
}

// Repository interns origin-normalised polygons so identical geometry is
// stored once per layout.
type Repository struct {
	byKey map[string]*geom.Polygon
}

// NewRepository creates an empty shape repository.
func NewRepository() *Repository {
	return &Repository{byKey: make(map[string]*geom.Polygon)}
}

// Len returns the number of distinct interned polygons.
func (r *Repository) Len() int { return len(r.byKey) }

func (r *Repository) intern(p geom.Polygon) *geom.Polygon {
	key := p.String()
	if obj, ok := r.byKey[key]; ok {
		return obj
	}
	cp := p
	r.byKey[key] = &cp
	return &cp
}
