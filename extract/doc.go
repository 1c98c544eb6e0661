// Package extract implements the netlist device extractor: it walks the
// root clusters of every cell reachable from a top cell, hands the
// flattened per-layer geometry of each cluster to a device-specific
// Delegate, and records the devices the delegate identifies both in the
// netlist and as back-annotation in the layout.
//
// Back-annotation comes in two flavours. In the default cell-based mode
// every device folds into a canonical device cell (named D$<class>, shared
// by all devices with equal normalised terminal geometry and parameters)
// and the including cell receives an instance tagged with the device id.
// In the legacy in-line mode terminal polygons are written directly into
// the including cell, tagged with a terminal property.
//
// Delegates subclass the extractor by implementing Setup (layer and device
// class declaration), Connectivity (which layer pairs conduct within one
// device signature) and ExtractDevices (the recognition itself, reporting
// through CreateDevice/DefineTerminal and the error helpers).
//
// Recoverable per-cell problems accumulate via the error helpers and are
// returned by Errors; invariant violations (missing layers, foreign deep
// store, duplicate device class) abort extraction with a sentinel error.
package extract
