package hierbuild

import (
	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/layout"
)

// ShapeReceiver transforms shapes on their way into a target shape
// container. Implementations must not mutate the shape or the region
// arguments and must treat the world region as "no further clipping".
//
// Receivers compose: each stage forwards to a downstream receiver. Passing
// nil as the downstream stage selects the shared insert-as-is terminator.
type ShapeReceiver interface {
	// PushShape processes a generic shape handle.
	PushShape(s layout.Shape, region geom.Box, complex *layout.BoxTree, target *layout.Shapes)
	// PushBox processes an axis-aligned box.
	PushBox(b geom.Box, region geom.Box, complex *layout.BoxTree, target *layout.Shapes)
	// PushPolygon processes a polygon.
	PushPolygon(p geom.Polygon, region geom.Box, complex *layout.BoxTree, target *layout.Shapes)
}

// InsertingReceiver writes shapes into the target container unchanged. It
// is the default chain terminator.
type InsertingReceiver struct{}

// defInserter is the module-owned default terminator, used whenever a stage
// is constructed with a nil downstream receiver.
var defInserter ShapeReceiver = InsertingReceiver{}

// PushShape inserts the shape as-is.
func (InsertingReceiver) PushShape(s layout.Shape, _ geom.Box, _ *layout.BoxTree, target *layout.Shapes) {
	target.Insert(s)
}

// PushBox inserts the box as a box shape.
func (InsertingReceiver) PushBox(b geom.Box, _ geom.Box, _ *layout.BoxTree, target *layout.Shapes) {
	target.Insert(layout.BoxShape(b))
}

// PushPolygon inserts the polygon as a polygon shape.
func (InsertingReceiver) PushPolygon(p geom.Polygon, _ geom.Box, _ *layout.BoxTree, target *layout.Shapes) {
	target.Insert(layout.PolygonShape(p))
}

// ClippingReceiver clips incoming shapes against the region (a box plus an
// optional complex multi-rectangle region) before forwarding. Shapes fully
// inside pass unchanged, shapes fully outside are dropped, the rest are
// clipped. Non-area shapes (texts, edges) pass unchanged - clipping is
// undefined for them. Downstream stages always see the world region.
type ClippingReceiver struct {
	pipe ShapeReceiver
}

// NewClippingReceiver chains a clipping stage in front of pipe.
func NewClippingReceiver(pipe ShapeReceiver) *ClippingReceiver {
	if pipe == nil {
		pipe = defInserter
	}
	return &ClippingReceiver{pipe: pipe}
}

// PushShape clips a generic shape.
func (c *ClippingReceiver) PushShape(s layout.Shape, region geom.Box, complex *layout.BoxTree, target *layout.Shapes) {
	world := geom.World()

	if region.IsWorld() || isInside(s.BBox(), region, complex) {

		c.pipe.PushShape(s, world, nil, target)

	} else if !isOutside(s.BBox(), region, complex) {

		if !s.IsArea() {
			// texts, edges: clipping undefined, forward unchanged
			c.pipe.PushShape(s, world, nil, target)
		} else if s.Kind == layout.ShapeBox {
			c.insertClippedBox(s.Box, region, complex, target)
		} else if poly, ok := s.Polygon(); ok {
			c.insertClippedPolygon(poly, region, complex, target)
		}
	}
}

// PushBox clips a box; box inputs produce box outputs.
func (c *ClippingReceiver) PushBox(b geom.Box, region geom.Box, complex *layout.BoxTree, target *layout.Shapes) {
	if complex.Len() == 0 {
		if r := b.Intersection(region); !r.Empty() {
			c.pipe.PushBox(r, geom.World(), nil, target)
		}
	} else {
		c.insertClippedBox(b, region, complex, target)
	}
}

// PushPolygon clips a polygon.
func (c *ClippingReceiver) PushPolygon(p geom.Polygon, region geom.Box, complex *layout.BoxTree, target *layout.Shapes) {
	if region.IsWorld() || (p.BBox().Inside(region) && complex.Len() == 0) {
		c.pipe.PushPolygon(p, geom.World(), nil, target)
	} else {
		c.insertClippedPolygon(p, region, complex, target)
	}
}

// isInside reports whether box needs no clipping at all. The complex-region
// test is conservative: a box covered only by the union of several
// overlapping rectangles is not detected as inside and takes the clip path
// instead. This false negative is intentional and must be preserved.
func isInside(box, region geom.Box, complex *layout.BoxTree) bool {
	if region.IsWorld() {
		return true
	}

	if box.Inside(region) {
		if complex.Len() == 0 {
			return true
		}
		rect := region.Intersection(box)
		if complex.Len() > 0 {
			inside := false
			complex.EachOverlapping(rect, func(cr geom.Box) {
				if rect.Inside(cr) {
					inside = true
				}
			})
			if inside {
				return true
			}
		}
	}

	return false
}

// isOutside reports whether box is entirely outside the clip.
func isOutside(box, region geom.Box, complex *layout.BoxTree) bool {
	if region.IsWorld() {
		return false
	}

	if box.Overlaps(region) {
		rect := region.Intersection(box)
		if complex.Len() > 0 {
			outside := true
			complex.EachOverlapping(rect, func(cr geom.Box) {
				if rect.Overlaps(cr) {
					outside = false
				}
			})
			return outside
		}
		return false
	}

	return true
}

// insertClippedBox intersects the box with the region, emitting one box per
// overlapping complex-region rectangle when a complex region is present.
func (c *ClippingReceiver) insertClippedBox(b geom.Box, region geom.Box, complex *layout.BoxTree, target *layout.Shapes) {
	bb := b.Intersection(region)
	world := geom.World()

	if complex.Len() > 0 {
		complex.EachOverlapping(bb, func(cr geom.Box) {
			c.pipe.PushBox(cr.Intersection(bb), world, nil, target)
		})
	} else if !bb.Empty() {
		c.pipe.PushBox(bb, world, nil, target)
	}
}

// insertClippedPolygon delegates to geom.ClipPolygon, once per overlapping
// complex-region rectangle or once against the plain region.
func (c *ClippingReceiver) insertClippedPolygon(p geom.Polygon, region geom.Box, complex *layout.BoxTree, target *layout.Shapes) {
	var clipped []geom.Polygon

	if complex.Len() > 0 {
		complex.EachOverlapping(region, func(cr geom.Box) {
			clipped = append(clipped, geom.ClipPolygon(p, cr.Intersection(region))...)
		})
	} else {
		clipped = geom.ClipPolygon(p, region)
	}

	world := geom.World()
	for _, cp := range clipped {
		c.pipe.PushPolygon(cp, world, nil, target)
	}
}

// ReducingReceiver splits polygons that exceed a vertex-count bound or whose
// bounding box is too large relative to their area (sparse, spiky outlines).
// Boxes and non-area shapes pass through unchanged.
type ReducingReceiver struct {
	pipe           ShapeReceiver
	areaRatio      float64
	maxVertexCount int
}

// NewReducingReceiver chains a reducing stage in front of pipe with the
// given bbox/area ratio and vertex count bounds.
func NewReducingReceiver(pipe ShapeReceiver, areaRatio float64, maxVertexCount int) *ReducingReceiver {
	if pipe == nil {
		pipe = defInserter
	}
	return &ReducingReceiver{pipe: pipe, areaRatio: areaRatio, maxVertexCount: maxVertexCount}
}

// PushShape reduces area shapes, forwards the rest.
func (r *ReducingReceiver) PushShape(s layout.Shape, region geom.Box, complex *layout.BoxTree, target *layout.Shapes) {
	if !s.IsArea() {
		r.pipe.PushShape(s, region, complex, target)
	} else if s.Kind == layout.ShapeBox {
		r.pipe.PushBox(s.Box, region, complex, target)
	} else if poly, ok := s.Polygon(); ok {
		r.reduce(poly, region, complex, target)
	}
}

// PushBox forwards boxes unchanged; a box never violates the bounds.
func (r *ReducingReceiver) PushBox(b geom.Box, region geom.Box, complex *layout.BoxTree, target *layout.Shapes) {
	r.pipe.PushBox(b, region, complex, target)
}

// PushPolygon reduces the polygon.
func (r *ReducingReceiver) PushPolygon(p geom.Polygon, region geom.Box, complex *layout.BoxTree, target *layout.Shapes) {
	r.reduce(p, region, complex, target)
}

// reduce recursively splits p until both bounds hold. Splitting stops when
// geom.SplitPolygon makes no progress.
func (r *ReducingReceiver) reduce(p geom.Polygon, region geom.Box, complex *layout.BoxTree, target *layout.Shapes) {
	if p.VertexCount() > r.maxVertexCount || geom.BoxAreaRatio(p) > r.areaRatio {

		parts := geom.SplitPolygon(p)
		if len(parts) == 1 && parts[0].Equal(p) {
			// no progress possible; emit as-is
			r.pipe.PushPolygon(p, region, complex, target)
			return
		}
		for _, sp := range parts {
			r.reduce(sp, region, complex, target)
		}

	} else {
		r.pipe.PushPolygon(p, region, complex, target)
	}
}

// PolygonRefReceiver is the canonical terminal stage: it converts area
// shapes into polygon references interned in the target layout's shape
// repository and inserts them. Non-area shapes are dropped.
type PolygonRefReceiver struct {
	target *layout.Layout
}

// NewPolygonRefReceiver builds the interning terminator for target.
func NewPolygonRefReceiver(target *layout.Layout) *PolygonRefReceiver {
	return &PolygonRefReceiver{target: target}
}

// PushShape interns any area shape.
func (pr *PolygonRefReceiver) PushShape(s layout.Shape, _ geom.Box, _ *layout.BoxTree, target *layout.Shapes) {
	if poly, ok := s.Polygon(); ok {
		target.Insert(layout.RefShape(layout.NewPolygonRef(poly, pr.target.Repository())))
	}
}

// PushBox interns the box as a rectangular polygon.
func (pr *PolygonRefReceiver) PushBox(b geom.Box, _ geom.Box, _ *layout.BoxTree, target *layout.Shapes) {
	target.Insert(layout.RefShape(layout.NewPolygonRef(geom.NewPolygonFromBox(b), pr.target.Repository())))
}

// PushPolygon interns the polygon.
func (pr *PolygonRefReceiver) PushPolygon(p geom.Polygon, _ geom.Box, _ *layout.BoxTree, target *layout.Shapes) {
	target.Insert(layout.RefShape(layout.NewPolygonRef(p, pr.target.Repository())))
}
