package hierbuild

import (
	"github.com/mosaix-eda/mosaix/layout"
)

// CompareIterators is a strict three-way ordering over recursive shape
// iterators with respect to the target hierarchy they produce. Two
// iterators compare equal iff a hierarchy built from one can be reused for
// the other: same source layout (by identity token), same top cell, same
// max depth and same world-vs-bounded clip; for a bounded clip also the same
// complex-region contents and the same layer selection. Two world-region
// iterators that differ only in their layers compare equal.
//
// The exact extent of a bounded region does not enter the comparison; only
// the bounded-ness flag and the complex region shape the hierarchy.
func CompareIterators(a, b *layout.RecursiveShapeIterator) int {
	if a.Layout().ID() != b.Layout().ID() {
		return cmpUint64(a.Layout().ID(), b.Layout().ID())
	}
	if a.TopCell() != b.TopCell() {
		return cmpInt(int(a.TopCell()), int(b.TopCell()))
	}

	// max depth controls the main hierarchical appearance
	if a.MaxDepth() != b.MaxDepth() {
		return cmpInt(a.MaxDepth(), b.MaxDepth())
	}

	// with a bounded region the hierarchy matches only if the complex
	// region and the layer selection are identical
	aw, bw := a.Region().IsWorld(), b.Region().IsWorld()
	if aw != bw {
		return cmpBool(aw, bw)
	}
	if !aw {
		if a.HasComplexRegion() != b.HasComplexRegion() {
			return cmpBool(a.HasComplexRegion(), b.HasComplexRegion())
		}
		if a.HasComplexRegion() {
			if ak, bk := a.ComplexRegion().Key(), b.ComplexRegion().Key(); ak != bk {
				if ak < bk {
					return -1
				}
				return 1
			}
		}
		if a.MultipleLayers() != b.MultipleLayers() {
			return cmpBool(a.MultipleLayers(), b.MultipleLayers())
		}
		if a.MultipleLayers() {
			if c := cmpIntSlice(a.Layers(), b.Layers()); c != 0 {
				return c
			}
		} else if a.Layer() != b.Layer() {
			return cmpInt(a.Layer(), b.Layer())
		}
	}

	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpBool orders false before true.
func cmpBool(a, b bool) int {
	switch {
	case !a && b:
		return -1
	case a && !b:
		return 1
	}
	return 0
}

func cmpIntSlice(a, b []int) int {
	if c := cmpInt(len(a), len(b)); c != 0 {
		return c
	}
	for i := range a {
		if c := cmpInt(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
