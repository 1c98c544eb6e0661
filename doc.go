// Package mosaix is an IC layout processing engine: hierarchical layout
// mirroring under clip regions, and cluster-based netlist device
// extraction with layout back-annotation.
//
// The module is organized into topic packages:
//
//	geom/      — integer geometry primitives: boxes, orthogonal transforms,
//	             polygons, plus the clip/split primitives of the pipeline
//	layout/    — cells, shapes, instance arrays, shape & properties
//	             repositories, box trees, and the recursive shape iterator
//	hierbuild/ — the hierarchy builder and its shape-receiver pipeline
//	             (clip, reduce, intern) with per-clip-variant cell reuse
//	netlist/   — circuits, devices and device classes
//	cluster/   — connectivity relations and hierarchical shape clusters
//	extract/   — the netlist device extractor and device-cell registry
//
// A typical flow mirrors a clipped portion of a source layout into a fresh
// target with hierbuild, then runs one extract.DeviceExtractor per device
// kind over the result, collecting circuits and devices into a
// netlist.Netlist while the layout gains canonical device cells and
// property-tagged device instances.
//
// All operations are synchronous and deterministic; a traversal or an
// extraction owns its target layout for its duration. See the package
// documentation of hierbuild and extract for the detailed contracts.
package mosaix
