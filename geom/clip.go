package geom

// ClipPolygon clips p against box and returns the resulting polygons.
// A box-clip of a single polygon yields at most one polygon; the slice form
// keeps the signature uniform with future non-rectangular clips. Degenerate
// (zero-area) results are suppressed.
//
// Hole contours are clipped individually; holes cut open by the clip
// boundary keep their clipped outline, which is exact as long as the hole
// stays inside the clipped hull.
//
// Complexity: O(n) in the vertex count.
func ClipPolygon(p Polygon, box Box) []Polygon {
	if p.Empty() || box.Empty() {
		return nil
	}
	if box.IsWorld() || p.BBox().Inside(box) {
		return []Polygon{p}
	}

	hull := clipContour(p.hull, box)
	if len(hull) < 3 {
		return nil
	}
	out := Polygon{hull: hull}
	if contourArea2(out.hull) == 0 {
		return nil
	}
	for _, h := range p.holes {
		ch := clipContour(h, box)
		if len(ch) >= 3 && contourArea2(ch) != 0 {
			out.holes = append(out.holes, ch)
		}
	}
	return []Polygon{out}
}

// clipContour runs Sutherland-Hodgman against the four half planes of box.
func clipContour(pts []Point, box Box) []Point {
	out := pts
	out = clipHalfPlane(out, func(p Point) bool { return p.X >= box.Left }, func(a, b Point) Point {
		return Point{box.Left, crossY(a, b, box.Left)}
	})
	out = clipHalfPlane(out, func(p Point) bool { return p.X <= box.Right }, func(a, b Point) Point {
		return Point{box.Right, crossY(a, b, box.Right)}
	})
	out = clipHalfPlane(out, func(p Point) bool { return p.Y >= box.Bottom }, func(a, b Point) Point {
		return Point{crossX(a, b, box.Bottom), box.Bottom}
	})
	out = clipHalfPlane(out, func(p Point) bool { return p.Y <= box.Top }, func(a, b Point) Point {
		return Point{crossX(a, b, box.Top), box.Top}
	})
	return dedupClosed(out)
}

func clipHalfPlane(pts []Point, inside func(Point) bool, cross func(a, b Point) Point) []Point {
	if len(pts) == 0 {
		return nil
	}
	out := make([]Point, 0, len(pts)+4)
	prev := pts[len(pts)-1]
	prevIn := inside(prev)
	for _, cur := range pts {
		curIn := inside(cur)
		if curIn {
			if !prevIn {
				out = append(out, cross(prev, cur))
			}
			out = append(out, cur)
		} else if prevIn {
			out = append(out, cross(prev, cur))
		}
		prev, prevIn = cur, curIn
	}
	return out
}

// crossY interpolates the y coordinate where segment a-b crosses x = c.
// Rounded to the nearest database unit.
func crossY(a, b Point, c int64) int64 {
	if b.X == a.X {
		return a.Y
	}
	return a.Y + divRound((b.Y-a.Y)*(c-a.X), b.X-a.X)
}

// crossX interpolates the x coordinate where segment a-b crosses y = c.
func crossX(a, b Point, c int64) int64 {
	if b.Y == a.Y {
		return a.X
	}
	return a.X + divRound((b.X-a.X)*(c-a.Y), b.Y-a.Y)
}

// divRound divides with rounding to nearest, halves away from zero.
func divRound(n, d int64) int64 {
	if d < 0 {
		n, d = -n, -d
	}
	if n >= 0 {
		return (n + d/2) / d
	}
	return -((-n + d/2) / d)
}

// dedupClosed removes consecutive duplicate points, treating the contour as
// closed (first == last duplicates are removed too).
func dedupClosed(pts []Point) []Point {
	out := dedupPoints(pts)
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}
