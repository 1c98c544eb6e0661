package layout

import (
	"sort"
	"strings"

	"github.com/mosaix-eda/mosaix/geom"
)

// BoxTree holds the rectangles of a complex clip region: the clip boundary
// is the union of the boxes intersected with the general region. The
// implementation is a flat, immutable list; queries are linear scans, which
// is adequate for the small rectangle counts complex regions carry.
type BoxTree struct {
	boxes []geom.Box
}

// NewBoxTree builds a box tree from the given rectangles. Empty boxes are
// dropped; the input is copied.
func NewBoxTree(boxes ...geom.Box) *BoxTree {
	t := &BoxTree{boxes: make([]geom.Box, 0, len(boxes))}
	for _, b := range boxes {
		if !b.Empty() {
			t.boxes = append(t.boxes, b)
		}
	}
	return t
}

// Len returns the number of rectangles.
func (t *BoxTree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.boxes)
}

// Boxes returns the rectangles in insertion order. Callers must not mutate
// the slice.
func (t *BoxTree) Boxes() []geom.Box {
	if t == nil {
		return nil
	}
	return t.boxes
}

// EachOverlapping calls fn for every rectangle whose interior intersects q,
// in insertion order. Complexity: O(n).
func (t *BoxTree) EachOverlapping(q geom.Box, fn func(b geom.Box)) {
	if t == nil {
		return
	}
	for _, b := range t.boxes {
		if q.IsWorld() || b.Overlaps(q) {
			fn(b)
		}
	}
}

// Transformed returns a box tree with every rectangle mapped under tr.
func (t *BoxTree) Transformed(tr geom.Trans) *BoxTree {
	if t == nil {
		return nil
	}
	out := &BoxTree{boxes: make([]geom.Box, len(t.boxes))}
	for i, b := range t.boxes {
		out.boxes[i] = b.Transformed(tr)
	}
	return out
}

// Key returns a canonical representation of the rectangle set, independent
// of insertion order. Used for compatibility comparison of iterators.
func (t *BoxTree) Key() string {
	if t == nil {
		return ""
	}
	keys := make([]string, len(t.boxes))
	for i, b := range t.boxes {
		keys[i] = b.String()
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}
