// Package geom defines core types for the geom subpackage of
// github.com/mosaix-eda/mosaix.
package geom

import "fmt"

// Coordinate bounds of the world box. Chosen well inside the int64 range so
// that intersections and transformations of the world box never overflow.
const (
	worldMin = int64(-0x3fffffffffffffff)
	worldMax = int64(0x3fffffffffffffff)
)

// Point is a location in database units.
type Point struct {
	X, Y int64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int64) Point { return Point{X: x, Y: y} }

// Plus returns p translated by v.
func (p Point) Plus(v Vector) Point { return Point{p.X + v.DX, p.Y + v.DY} }

// Minus returns the vector from q to p.
func (p Point) Minus(q Point) Vector { return Vector{p.X - q.X, p.Y - q.Y} }

// String renders the point as "x,y".
func (p Point) String() string { return fmt.Sprintf("%d,%d", p.X, p.Y) }

// Vector is a displacement in database units.
type Vector struct {
	DX, DY int64
}

// Vec is shorthand for Vector{dx, dy}.
func Vec(dx, dy int64) Vector { return Vector{DX: dx, DY: dy} }

// Negated returns -v.
func (v Vector) Negated() Vector { return Vector{-v.DX, -v.DY} }

// Plus returns the component-wise sum of v and w.
func (v Vector) Plus(w Vector) Vector { return Vector{v.DX + w.DX, v.DY + w.DY} }

// Box is a closed, axis-aligned rectangle. The zero value is not empty: it
// is the degenerate box holding only the origin; use EmptyBox for an empty
// box. A box is empty iff Left > Right or Bottom > Top; all empty boxes behave
// identically (absorbing under intersection, neutral under union).
type Box struct {
	Left, Bottom, Right, Top int64
}

// emptyBox is the canonical empty box (Left > Right).
var emptyBox = Box{Left: 1, Bottom: 1, Right: 0, Top: 0}

// NewBox builds a box from two opposite corners, normalising the order.
func NewBox(x1, y1, x2, y2 int64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{Left: x1, Bottom: y1, Right: x2, Top: y2}
}

// EmptyBox returns the canonical empty box.
func EmptyBox() Box { return emptyBox }

// World returns the sentinel box meaning "no clipping" / the entire
// coordinate space.
func World() Box {
	return Box{Left: worldMin, Bottom: worldMin, Right: worldMax, Top: worldMax}
}

// IsWorld reports whether b is the world sentinel.
func (b Box) IsWorld() bool {
	return b.Left == worldMin && b.Bottom == worldMin && b.Right == worldMax && b.Top == worldMax
}

// Empty reports whether b contains no points.
func (b Box) Empty() bool { return b.Left > b.Right || b.Bottom > b.Top }

// Width returns the horizontal extent. Zero for empty boxes.
func (b Box) Width() int64 {
	if b.Empty() {
		return 0
	}
	return b.Right - b.Left
}

// Height returns the vertical extent. Zero for empty boxes.
func (b Box) Height() int64 {
	if b.Empty() {
		return 0
	}
	return b.Top - b.Bottom
}

// Area returns Width*Height. Callers must not take the area of the world box.
func (b Box) Area() int64 { return b.Width() * b.Height() }

// Center returns the midpoint of b (integer division, rounded toward zero).
func (b Box) Center() Point { return Point{(b.Left + b.Right) / 2, (b.Bottom + b.Top) / 2} }

// LowerLeft returns the minimum corner of b.
func (b Box) LowerLeft() Point { return Point{b.Left, b.Bottom} }

// Contains reports whether p lies in b (boundary included).
func (b Box) Contains(p Point) bool {
	return !b.Empty() && p.X >= b.Left && p.X <= b.Right && p.Y >= b.Bottom && p.Y <= b.Top
}

// Inside reports whether b lies entirely within o (boundary contact allowed).
// The empty box is inside everything non-empty.
func (b Box) Inside(o Box) bool {
	if o.Empty() {
		return false
	}
	if b.Empty() {
		return true
	}
	return b.Left >= o.Left && b.Right <= o.Right && b.Bottom >= o.Bottom && b.Top <= o.Top
}

// Overlaps reports whether the interiors of b and o intersect. Boxes that
// merely touch along an edge do not overlap.
func (b Box) Overlaps(o Box) bool {
	if b.Empty() || o.Empty() {
		return false
	}
	return b.Left < o.Right && o.Left < b.Right && b.Bottom < o.Top && o.Bottom < b.Top
}

// Touches reports whether b and o share at least one point.
func (b Box) Touches(o Box) bool {
	if b.Empty() || o.Empty() {
		return false
	}
	return b.Left <= o.Right && o.Left <= b.Right && b.Bottom <= o.Top && o.Bottom <= b.Top
}

// Intersection returns the common part of b and o, empty if they are
// disjoint.
func (b Box) Intersection(o Box) Box {
	if b.Empty() || o.Empty() {
		return emptyBox
	}
	r := Box{
		Left:   max64(b.Left, o.Left),
		Bottom: max64(b.Bottom, o.Bottom),
		Right:  min64(b.Right, o.Right),
		Top:    min64(b.Top, o.Top),
	}
	if r.Empty() {
		return emptyBox
	}
	return r
}

// Union returns the bounding box of b and o.
func (b Box) Union(o Box) Box {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	return Box{
		Left:   min64(b.Left, o.Left),
		Bottom: min64(b.Bottom, o.Bottom),
		Right:  max64(b.Right, o.Right),
		Top:    max64(b.Top, o.Top),
	}
}

// Translated returns b moved by v. The world box and empty boxes are
// returned unchanged.
func (b Box) Translated(v Vector) Box {
	if b.Empty() || b.IsWorld() {
		return b
	}
	return Box{b.Left + v.DX, b.Bottom + v.DY, b.Right + v.DX, b.Top + v.DY}
}

// Transformed returns b under t. Orthogonal transforms map boxes to boxes.
// The world box and empty boxes are preserved as-is.
func (b Box) Transformed(t Trans) Box {
	if b.Empty() || b.IsWorld() {
		return b
	}
	p1 := t.Apply(Point{b.Left, b.Bottom})
	p2 := t.Apply(Point{b.Right, b.Top})
	return NewBox(p1.X, p1.Y, p2.X, p2.Y)
}

// String renders the box as "(l,b;r,t)", "()" for empty, "(world)" for the
// world sentinel.
func (b Box) String() string {
	if b.Empty() {
		return "()"
	}
	if b.IsWorld() {
		return "(world)"
	}
	return fmt.Sprintf("(%d,%d;%d,%d)", b.Left, b.Bottom, b.Right, b.Top)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
