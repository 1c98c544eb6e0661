// Package layout implements the hierarchical layout data model of mosaix:
// layouts, cells, instance arrays, shape containers, the shared shape
// repository (polygon interning), the properties repository (name and
// property-set interning) and the box tree used for complex clip regions.
//
// It also hosts the recursive shape iterator: a depth-first, parent-before-
// children traversal over a layout that drives a Receiver through the
// Begin / EnterCell / NewInst / NewInstMember / Shape / LeaveCell / End
// callback protocol. The hierarchy builder (package hierbuild) is the main
// Receiver implementation.
//
// Layouts are not safe for concurrent mutation; a traversal owns the target
// layout for its duration and reads the source layout only.
package layout
