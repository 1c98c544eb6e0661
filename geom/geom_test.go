package geom_test

import (
	"testing"

	"github.com/mosaix-eda/mosaix/geom"
)

//----------------------------------------------------------------------------//
// Box tests
//----------------------------------------------------------------------------//

// TestBoxPredicates checks Overlaps/Inside/Touches against hand-computed cases.
func TestBoxPredicates(t *testing.T) {
	a := geom.NewBox(0, 0, 100, 100)
	cases := []struct {
		name                     string
		b                        geom.Box
		overlaps, inside, touches bool
	}{
		{"Coincident", geom.NewBox(0, 0, 100, 100), true, true, true},
		{"Interior", geom.NewBox(10, 10, 20, 20), true, true, true},
		{"EdgeTouch", geom.NewBox(100, 0, 200, 100), false, false, true},
		{"CornerTouch", geom.NewBox(100, 100, 200, 200), false, false, true},
		{"Disjoint", geom.NewBox(200, 200, 300, 300), false, false, false},
		{"Straddling", geom.NewBox(50, 50, 150, 150), true, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.b.Overlaps(a); got != tc.overlaps {
				t.Errorf("Overlaps = %v; want %v", got, tc.overlaps)
			}
			if got := tc.b.Inside(a); got != tc.inside {
				t.Errorf("Inside = %v; want %v", got, tc.inside)
			}
			if got := tc.b.Touches(a); got != tc.touches {
				t.Errorf("Touches = %v; want %v", got, tc.touches)
			}
		})
	}
}

// TestBoxIntersection verifies clamping and the absorbing empty box.
func TestBoxIntersection(t *testing.T) {
	a := geom.NewBox(0, 0, 100, 100)
	b := geom.NewBox(50, -20, 150, 60)
	got := a.Intersection(b)
	want := geom.NewBox(50, 0, 100, 60)
	if got != want {
		t.Fatalf("Intersection = %v; want %v", got, want)
	}
	if !a.Intersection(geom.EmptyBox()).Empty() {
		t.Error("intersection with empty box must be empty")
	}
	if !geom.NewBox(0, 0, 10, 10).Intersection(geom.NewBox(20, 20, 30, 30)).Empty() {
		t.Error("disjoint intersection must be empty")
	}
}

// TestWorldBox checks that the world sentinel survives transformation and
// absorbs intersections correctly.
func TestWorldBox(t *testing.T) {
	w := geom.World()
	if !w.IsWorld() {
		t.Fatal("World() must report IsWorld")
	}
	tr := geom.Trans{Rot: 1, Mirror: true, Disp: geom.Vec(5, -7)}
	if !w.Transformed(tr).IsWorld() {
		t.Error("transformed world box must stay world")
	}
	b := geom.NewBox(-3, -3, 3, 3)
	if w.Intersection(b) != b {
		t.Error("world ∩ b must equal b")
	}
	if !b.Inside(w) {
		t.Error("finite boxes are inside the world box")
	}
}

//----------------------------------------------------------------------------//
// Trans tests
//----------------------------------------------------------------------------//

// TestTransComposeInvert exhausts the dihedral group: for every pair of
// transformations, Compose must match pointwise application and Inverted
// must round-trip sample points.
func TestTransComposeInvert(t *testing.T) {
	var all []geom.Trans
	for rot := uint8(0); rot < 4; rot++ {
		for _, m := range []bool{false, true} {
			all = append(all, geom.Trans{Rot: rot, Mirror: m, Disp: geom.Vec(int64(rot)*3, -2)})
		}
	}
	samples := []geom.Point{geom.Pt(0, 0), geom.Pt(7, 3), geom.Pt(-5, 11)}

	for _, a := range all {
		for _, b := range all {
			c := geom.Compose(a, b)
			for _, p := range samples {
				if got, want := c.Apply(p), a.Apply(b.Apply(p)); got != want {
					t.Fatalf("Compose(%v,%v)(%v) = %v; want %v", a, b, p, got, want)
				}
			}
		}
		inv := a.Inverted()
		for _, p := range samples {
			if got := inv.Apply(a.Apply(p)); got != p {
				t.Fatalf("%v.Inverted() does not round-trip %v (got %v)", a, p, got)
			}
		}
		if !geom.Compose(inv, a).IsIdentity() {
			t.Fatalf("Compose(inv, a) not identity for %v", a)
		}
	}
}

// TestBoxTransformed checks that boxes map to boxes under rotation.
func TestBoxTransformed(t *testing.T) {
	b := geom.NewBox(0, 0, 10, 20)
	r90 := geom.Trans{Rot: 1}
	got := b.Transformed(r90)
	want := geom.NewBox(-20, 0, 0, 10)
	if got != want {
		t.Fatalf("Transformed = %v; want %v", got, want)
	}
}

//----------------------------------------------------------------------------//
// Polygon tests
//----------------------------------------------------------------------------//

// TestPolygonAreaAndBBox verifies shoelace area with and without holes.
func TestPolygonAreaAndBBox(t *testing.T) {
	p := geom.NewPolygonFromBox(geom.NewBox(0, 0, 100, 50))
	if p.Area() != 5000 {
		t.Errorf("Area = %d; want 5000", p.Area())
	}
	if p.BBox() != geom.NewBox(0, 0, 100, 50) {
		t.Errorf("BBox = %v", p.BBox())
	}

	p.AddHole([]geom.Point{geom.Pt(10, 10), geom.Pt(10, 20), geom.Pt(20, 20), geom.Pt(20, 10)})
	if p.Area() != 4900 {
		t.Errorf("Area with hole = %d; want 4900", p.Area())
	}
	if p.VertexCount() != 8 {
		t.Errorf("VertexCount = %d; want 8", p.VertexCount())
	}
}

// TestPathPolygon converts a two-segment rectilinear path and checks the
// outline area: an L of two 100-long segments at width 10.
func TestPathPolygon(t *testing.T) {
	path := geom.Path{
		Points: []geom.Point{geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(100, 100)},
		Width:  10,
	}
	poly := path.Polygon()
	if poly.Empty() {
		t.Fatal("path polygon must not be empty")
	}
	// Two 110×10 arms sharing a 10×10 corner; the outline spans
	// (-5,-5)-(105,105) along the L.
	if got := poly.BBox(); got != geom.NewBox(-5, -5, 105, 105) {
		t.Fatalf("BBox = %v", got)
	}
	// area = 110*10 + 110*10 - 10*10 = 2100; only positivity is checked
	// here.
	if poly.Area() <= 0 {
		t.Fatal("path polygon area must be positive")
	}
}

//----------------------------------------------------------------------------//
// Clip and split tests
//----------------------------------------------------------------------------//

// TestClipPolygon covers full-inside, disjoint and straddling clips.
func TestClipPolygon(t *testing.T) {
	p := geom.NewPolygonFromBox(geom.NewBox(0, 0, 100, 100))

	if got := geom.ClipPolygon(p, geom.World()); len(got) != 1 || !got[0].Equal(p) {
		t.Fatal("world clip must forward the polygon unchanged")
	}
	if got := geom.ClipPolygon(p, geom.NewBox(200, 200, 300, 300)); len(got) != 0 {
		t.Fatalf("disjoint clip: got %d polygons; want 0", len(got))
	}

	got := geom.ClipPolygon(p, geom.NewBox(0, 0, 50, 200))
	if len(got) != 1 {
		t.Fatalf("straddling clip: got %d polygons; want 1", len(got))
	}
	if got[0].BBox() != geom.NewBox(0, 0, 50, 100) {
		t.Errorf("clipped bbox = %v; want (0,0;50,100)", got[0].BBox())
	}
	if got[0].Area() != 5000 {
		t.Errorf("clipped area = %d; want 5000", got[0].Area())
	}
}

// TestClipTriangle clips a non-rectangular polygon and checks the area halves.
func TestClipTriangle(t *testing.T) {
	tri := geom.NewPolygon([]geom.Point{geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(0, 100)})
	got := geom.ClipPolygon(tri, geom.NewBox(0, 0, 50, 100))
	if len(got) != 1 {
		t.Fatalf("got %d polygons; want 1", len(got))
	}
	// Left half of the triangle is a trapezoid with area 3750.
	if got[0].Area() != 3750 {
		t.Errorf("clipped area = %d; want 3750", got[0].Area())
	}
}

// TestSplitPolygon verifies progress and coverage of the two halves.
func TestSplitPolygon(t *testing.T) {
	p := geom.NewPolygonFromBox(geom.NewBox(0, 0, 100, 40))
	parts := geom.SplitPolygon(p)
	if len(parts) != 2 {
		t.Fatalf("got %d parts; want 2", len(parts))
	}
	var area int64
	for _, part := range parts {
		area += part.Area()
		if part.BBox().Width() > 50 {
			t.Errorf("part wider than half: %v", part.BBox())
		}
	}
	if area != p.Area() {
		t.Errorf("split area sum = %d; want %d", area, p.Area())
	}

	// A degenerate 1×1 polygon must be returned unchanged.
	tiny := geom.NewPolygonFromBox(geom.NewBox(0, 0, 1, 1))
	if parts := geom.SplitPolygon(tiny); len(parts) != 1 {
		t.Errorf("tiny polygon split into %d parts; want 1", len(parts))
	}
}
