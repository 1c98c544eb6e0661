// Package hierbuild materialises a new hierarchical layout mirroring the
// hierarchy visited by a recursive shape traversal, honouring a clip region
// that may be a single box or a complex multi-rectangle region.
//
// The two halves of the package:
//
//   - The shape-receiver pipeline: composable stages transforming shapes on
//     their way into a target cell. ClippingReceiver clips against the
//     region, ReducingReceiver splits oversized or sparse polygons,
//     PolygonRefReceiver interns area shapes into the target layout's shape
//     repository. Stages chain via a downstream handle; a chain is
//     terminated by the insert-as-is default stage when nil is passed.
//
//   - The HierarchyBuilder: a layout.Receiver that deduplicates target
//     cells per (source cell, clip variant), inserts instances exactly once
//     (on the initial pass) and pushes shapes through the pipeline into the
//     current target cell. A builder may be driven repeatedly; later
//     traversals must be hierarchy-compatible with the first (see
//     CompareIterators) and only re-emit shapes, typically into additional
//     target layers.
//
// Clip-variant cells are named <source>$CLIP_VAR and uniquified by the
// target layout, so variant cell names are stable across re-runs only as
// far as the iteration order is.
package hierbuild
