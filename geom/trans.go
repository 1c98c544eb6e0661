package geom

import "fmt"

// Trans is an orthogonal affine transformation: an optional mirror at the
// x axis, followed by Rot quarter turns counterclockwise, followed by a
// displacement. This is the placement model of cell instances; it maps boxes
// to boxes exactly and composes and inverts without loss.
//
// The zero value is the identity transformation.
type Trans struct {
	// Rot is the number of counterclockwise 90° rotations (0..3).
	Rot uint8
	// Mirror mirrors at the x axis before rotating.
	Mirror bool
	// Disp is applied last.
	Disp Vector
}

// Identity returns the identity transformation.
func Identity() Trans { return Trans{} }

// Translation returns a pure displacement by v.
func Translation(v Vector) Trans { return Trans{Disp: v} }

// applyLinear applies only the mirror/rotation part of t.
func (t Trans) applyLinear(x, y int64) (int64, int64) {
	if t.Mirror {
		y = -y
	}
	switch t.Rot & 3 {
	case 1:
		x, y = -y, x
	case 2:
		x, y = -x, -y
	case 3:
		x, y = y, -x
	}
	return x, y
}

// Apply maps p under t.
func (t Trans) Apply(p Point) Point {
	x, y := t.applyLinear(p.X, p.Y)
	return Point{x + t.Disp.DX, y + t.Disp.DY}
}

// ApplyVector maps v under the linear part of t (no displacement).
func (t Trans) ApplyVector(v Vector) Vector {
	x, y := t.applyLinear(v.DX, v.DY)
	return Vector{x, y}
}

// Compose returns the transformation applying u first, then t:
// Compose(t, u)(p) == t(u(p)).
func Compose(t, u Trans) Trans {
	rot := u.Rot & 3
	if t.Mirror {
		rot = (4 - rot) & 3
	}
	return Trans{
		Rot:    (t.Rot + rot) & 3,
		Mirror: t.Mirror != u.Mirror,
		Disp:   t.ApplyVector(u.Disp).Plus(t.Disp),
	}
}

// Inverted returns the inverse transformation. For every p,
// t.Inverted().Apply(t.Apply(p)) == p.
func (t Trans) Inverted() Trans {
	inv := Trans{Mirror: t.Mirror}
	if t.Mirror {
		inv.Rot = t.Rot & 3
	} else {
		inv.Rot = (4 - t.Rot) & 3
	}
	d := inv.ApplyVector(t.Disp)
	inv.Disp = d.Negated()
	return inv
}

// IsIdentity reports whether t is the identity.
func (t Trans) IsIdentity() bool {
	return t.Rot&3 == 0 && !t.Mirror && t.Disp == Vector{}
}

// String renders the transformation, e.g. "r90 *1 10,-5" style is not used;
// the compact form is "m?rN+dx,dy".
func (t Trans) String() string {
	m := ""
	if t.Mirror {
		m = "m"
	}
	return fmt.Sprintf("%sr%d+%d,%d", m, int(t.Rot&3)*90, t.Disp.DX, t.Disp.DY)
}
