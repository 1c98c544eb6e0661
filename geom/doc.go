// Package geom provides the integer geometry primitives the mosaix engine is
// built on: points, vectors, axis-aligned boxes with a "world" sentinel,
// orthogonal transformations (90°-step rotation, mirror, displacement), and
// polygon/path/edge/text shapes.
//
// It also hosts the two low-level polygon primitives the shape-receiver
// pipeline delegates to:
//
//   - ClipPolygon: clip a polygon against an axis-aligned box
//   - SplitPolygon: split a polygon into smaller parts along its bbox axis
//
// All coordinates are database units (int64). Boxes are closed intervals;
// Overlaps tests interiors, Inside allows boundary contact. The world box is
// a sentinel covering the entire coordinate space and is preserved exactly by
// all transformations.
package geom
