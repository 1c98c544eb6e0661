package hierbuild

import (
	"sort"
	"strings"

	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/layout"
)

// ClipVariant is a finite, ordered set of boxes in a source cell's frame
// describing the portion of the cell visible under the current clip. The
// empty variant means "unclipped" (the whole cell).
type ClipVariant []geom.Box

// Key returns the canonical representation of the variant, independent of
// construction order. Used as part of the builder's cell-map key.
func (v ClipVariant) Key() string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, len(v))
	for i, b := range v {
		keys[i] = b.String()
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

// Empty reports whether the variant means "unclipped".
func (v ClipVariant) Empty() bool { return len(v) == 0 }

// computeClipVariant derives the clip variant for a child cell with
// bounding box cellBBox placed via trans under the clip (region, complex).
// The second return is false when the member lies entirely outside the clip
// and must be excluded.
//
// With a complex region, one variant box is produced per complex-region
// rectangle overlapping the placed cell; the variant is invalid if none
// remains.
func computeClipVariant(cellBBox geom.Box, trans geom.Trans, region geom.Box, complex *layout.BoxTree) (ClipVariant, bool) {
	if region.IsWorld() {
		return nil, true
	}

	inv := trans.Inverted()
	regionInCell := region.Transformed(inv)

	if !cellBBox.Overlaps(regionInCell) {
		// an empty clip variant should not happen, but who knows
		return nil, false
	}

	rect := regionInCell.Intersection(cellBBox)

	if complex.Len() == 0 {
		return ClipVariant{rect}, true
	}

	var variant ClipVariant
	complex.EachOverlapping(region, func(cr geom.Box) {
		crInCell := cr.Transformed(inv)
		if rect.Overlaps(crInCell) {
			variant = append(variant, rect.Intersection(crInCell))
		}
	})
	if len(variant) == 0 {
		return nil, false
	}
	return variant, true
}
