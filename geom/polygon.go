package geom

import "strings"

// Polygon is a closed area shape described by a hull contour and zero or
// more hole contours. Contours are stored as given (no implicit closing
// point); orientation is not normalised, Area is absolute.
type Polygon struct {
	hull  []Point
	holes [][]Point
}

// NewPolygon builds a polygon from its hull contour. The slice is copied.
func NewPolygon(hull []Point) Polygon {
	h := make([]Point, len(hull))
	copy(h, hull)
	return Polygon{hull: h}
}

// NewPolygonFromBox builds the rectangular polygon covering b. The world box
// and empty boxes yield an empty polygon.
func NewPolygonFromBox(b Box) Polygon {
	if b.Empty() || b.IsWorld() {
		return Polygon{}
	}
	return Polygon{hull: []Point{
		{b.Left, b.Bottom}, {b.Left, b.Top}, {b.Right, b.Top}, {b.Right, b.Bottom},
	}}
}

// AddHole appends a hole contour. The slice is copied.
func (p *Polygon) AddHole(hole []Point) {
	h := make([]Point, len(hole))
	copy(h, hole)
	p.holes = append(p.holes, h)
}

// Hull returns the hull contour. Callers must not mutate it.
func (p Polygon) Hull() []Point { return p.hull }

// Holes returns the hole contours. Callers must not mutate them.
func (p Polygon) Holes() [][]Point { return p.holes }

// Empty reports whether the polygon has fewer than three hull vertices.
func (p Polygon) Empty() bool { return len(p.hull) < 3 }

// VertexCount returns the total number of vertices over hull and holes.
func (p Polygon) VertexCount() int {
	n := len(p.hull)
	for _, h := range p.holes {
		n += len(h)
	}
	return n
}

// BBox returns the bounding box of the hull, empty for empty polygons.
// Complexity: O(n).
func (p Polygon) BBox() Box {
	if len(p.hull) == 0 {
		return EmptyBox()
	}
	b := Box{p.hull[0].X, p.hull[0].Y, p.hull[0].X, p.hull[0].Y}
	for _, pt := range p.hull[1:] {
		b.Left = min64(b.Left, pt.X)
		b.Right = max64(b.Right, pt.X)
		b.Bottom = min64(b.Bottom, pt.Y)
		b.Top = max64(b.Top, pt.Y)
	}
	return b
}

// contourArea2 returns twice the signed area of a contour (shoelace).
func contourArea2(pts []Point) int64 {
	if len(pts) < 3 {
		return 0
	}
	var a int64
	for i, pt := range pts {
		nx := pts[(i+1)%len(pts)]
		a += pt.X*nx.Y - nx.X*pt.Y
	}
	return a
}

// Area returns the absolute area of the polygon: hull area minus hole areas.
// Complexity: O(n).
func (p Polygon) Area() int64 {
	a := contourArea2(p.hull)
	if a < 0 {
		a = -a
	}
	for _, h := range p.holes {
		ha := contourArea2(h)
		if ha < 0 {
			ha = -ha
		}
		a -= ha
	}
	return a / 2
}

// Transformed returns a copy of p with every vertex mapped under t.
func (p Polygon) Transformed(t Trans) Polygon {
	q := Polygon{hull: make([]Point, len(p.hull))}
	for i, pt := range p.hull {
		q.hull[i] = t.Apply(pt)
	}
	for _, h := range p.holes {
		nh := make([]Point, len(h))
		for i, pt := range h {
			nh[i] = t.Apply(pt)
		}
		q.holes = append(q.holes, nh)
	}
	return q
}

// Translated returns a copy of p moved by v.
func (p Polygon) Translated(v Vector) Polygon { return p.Transformed(Translation(v)) }

// String renders the hull vertex list; holes are appended in slashes.
func (p Polygon) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, pt := range p.hull {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(pt.String())
	}
	for _, h := range p.holes {
		sb.WriteByte('/')
		for i, pt := range h {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(pt.String())
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// Equal reports exact vertex-wise equality of two polygons.
func (p Polygon) Equal(q Polygon) bool {
	if len(p.hull) != len(q.hull) || len(p.holes) != len(q.holes) {
		return false
	}
	for i := range p.hull {
		if p.hull[i] != q.hull[i] {
			return false
		}
	}
	for i := range p.holes {
		if len(p.holes[i]) != len(q.holes[i]) {
			return false
		}
		for j := range p.holes[i] {
			if p.holes[i][j] != q.holes[i][j] {
				return false
			}
		}
	}
	return true
}

// Edge is a line segment shape.
type Edge struct {
	P1, P2 Point
}

// BBox returns the bounding box of the edge.
func (e Edge) BBox() Box { return NewBox(e.P1.X, e.P1.Y, e.P2.X, e.P2.Y) }

// Transformed returns the edge under t.
func (e Edge) Transformed(t Trans) Edge { return Edge{t.Apply(e.P1), t.Apply(e.P2)} }

// Text is a label shape anchored at a point.
type Text struct {
	Str string
	At  Point
}

// BBox returns the degenerate box at the anchor point.
func (t Text) BBox() Box { return Box{t.At.X, t.At.Y, t.At.X, t.At.Y} }

// Transformed returns the text under tr.
func (t Text) Transformed(tr Trans) Text { return Text{t.Str, tr.Apply(t.At)} }

// Path is a wire: a spine of points with a width. Only rectilinear spines
// (axis-parallel segments) convert to polygons exactly.
type Path struct {
	Points []Point
	Width  int64
}

// BBox returns the spine bounding box enlarged by half the width.
func (p Path) BBox() Box {
	if len(p.Points) == 0 {
		return EmptyBox()
	}
	b := Box{p.Points[0].X, p.Points[0].Y, p.Points[0].X, p.Points[0].Y}
	for _, pt := range p.Points[1:] {
		b.Left = min64(b.Left, pt.X)
		b.Right = max64(b.Right, pt.X)
		b.Bottom = min64(b.Bottom, pt.Y)
		b.Top = max64(b.Top, pt.Y)
	}
	h := p.Width / 2
	return Box{b.Left - h, b.Bottom - h, b.Right + h, b.Top + h}
}

// Polygon converts the path outline into a polygon. Rectilinear spines are
// rendered exactly with mitered corners; a single-point path degenerates to
// a square of the path width.
func (p Path) Polygon() Polygon {
	h := p.Width / 2
	if len(p.Points) == 0 {
		return Polygon{}
	}
	if len(p.Points) == 1 {
		pt := p.Points[0]
		return NewPolygonFromBox(Box{pt.X - h, pt.Y - h, pt.X + h, pt.Y + h})
	}

	// Walk the spine forward collecting the left offsets, then backward
	// collecting the right offsets. Ends are extended by half the width.
	fwd := offsetSide(p.Points, h)
	rev := reversePoints(p.Points)
	bwd := offsetSide(rev, h)
	return Polygon{hull: append(fwd, bwd...)}
}

// offsetSide computes the left-hand outline of a rectilinear spine at
// distance h, with square ends. Consecutive offset segments are joined at
// their miter point (the offset lines of axis-parallel segments always
// intersect).
func offsetSide(pts []Point, h int64) []Point {
	type seg struct {
		a, b       Point
		horizontal bool
	}
	segs := make([]seg, 0, len(pts)-1)
	for i := 0; i < len(pts)-1; i++ {
		dx, dy := sign64(pts[i+1].X-pts[i].X), sign64(pts[i+1].Y-pts[i].Y)
		// left normal of (dx,dy) is (-dy,dx)
		nx, ny := -dy, dx
		a := Point{pts[i].X + nx*h, pts[i].Y + ny*h}
		b := Point{pts[i+1].X + nx*h, pts[i+1].Y + ny*h}
		if i == 0 {
			a = Point{a.X - dx*h, a.Y - dy*h} // square begin cap
		}
		if i == len(pts)-2 {
			b = Point{b.X + dx*h, b.Y + dy*h} // square end cap
		}
		segs = append(segs, seg{a, b, dy == 0})
	}

	out := make([]Point, 0, len(segs)+1)
	out = append(out, segs[0].a)
	for i := 0; i < len(segs)-1; i++ {
		p, q := segs[i].b, segs[i+1].a
		switch {
		case p == q:
			out = append(out, p)
		case p.X == q.X || p.Y == q.Y:
			out = append(out, p, q)
		case segs[i].horizontal:
			// horizontal offset line carries Y, vertical one carries X
			out = append(out, Point{q.X, p.Y})
		default:
			out = append(out, Point{p.X, q.Y})
		}
	}
	out = append(out, segs[len(segs)-1].b)
	return dedupPoints(out)
}

func reversePoints(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, pt := range pts {
		out[len(pts)-1-i] = pt
	}
	return out
}

func dedupPoints(pts []Point) []Point {
	out := pts[:0]
	for _, pt := range pts {
		if len(out) == 0 || out[len(out)-1] != pt {
			out = append(out, pt)
		}
	}
	return out
}

func sign64(v int64) int64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// BoxAreaRatio returns bbox-area / polygon-area, the "sparseness" of p.
// Degenerate polygons (zero area) report an unbounded ratio.
func BoxAreaRatio(p Polygon) float64 {
	a := p.Area()
	if a == 0 {
		return float64(1 << 62)
	}
	return float64(p.BBox().Area()) / float64(a)
}
