package geom

// SplitPolygon splits p into smaller polygons by cutting its bounding box in
// half along the longer axis and clipping against both halves. The reducing
// receiver recurses on the parts until its vertex-count and area-ratio bounds
// hold.
//
// A polygon whose bounding box cannot be halved any further (extent ≤ 1 on
// both axes) is returned as-is; callers must treat a single-element result
// identical to the input as "no progress".
//
// Complexity: O(n) per call.
func SplitPolygon(p Polygon) []Polygon {
	b := p.BBox()
	if b.Empty() || (b.Width() <= 1 && b.Height() <= 1) {
		return []Polygon{p}
	}

	var lo, hi Box
	if b.Width() >= b.Height() {
		xm := (b.Left + b.Right) / 2
		lo = Box{b.Left, b.Bottom, xm, b.Top}
		hi = Box{xm, b.Bottom, b.Right, b.Top}
	} else {
		ym := (b.Bottom + b.Top) / 2
		lo = Box{b.Left, b.Bottom, b.Right, ym}
		hi = Box{b.Left, ym, b.Right, b.Top}
	}

	out := ClipPolygon(p, lo)
	out = append(out, ClipPolygon(p, hi)...)
	if len(out) == 0 {
		return []Polygon{p}
	}
	return out
}
