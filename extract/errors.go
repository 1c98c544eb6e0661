package extract

import (
	"errors"
	"fmt"

	"github.com/mosaix-eda/mosaix/geom"
)

var (
	// ErrLayerCountMismatch indicates the number of input layers does not
	// match the declared layer definitions.
	ErrLayerCountMismatch = errors.New("extract: input layer count does not match the layer definitions")

	// ErrMissingInputLayer indicates a declared layer has no input in the
	// deep-mode layer map.
	ErrMissingInputLayer = errors.New("extract: missing input layer for device extraction")

	// ErrForeignStore indicates an input region does not originate from the
	// deep store the extraction runs on.
	ErrForeignStore = errors.New("extract: input region does not originate from the same deep store")

	// ErrNoDeviceClass indicates CreateDevice was called without a
	// registered device class.
	ErrNoDeviceClass = errors.New("extract: no device class registered")

	// ErrDeviceClassRegistered indicates a second RegisterDeviceClass call.
	ErrDeviceClassRegistered = errors.New("extract: device class already set")

	// ErrNoNetlist indicates extraction was started without a netlist.
	ErrNoNetlist = errors.New("extract: no netlist given")

	// ErrBadGeometryIndex indicates a DefineTerminal call with a geometry
	// index outside the declared layers.
	ErrBadGeometryIndex = errors.New("extract: geometry index out of range")
)

// Error is a recoverable per-cell extraction problem reported by a
// delegate. Errors accumulate on the extractor and are inspectable after
// extraction; they do not stop it.
type Error struct {
	// CategoryName and CategoryDescription classify the problem (optional).
	CategoryName        string
	CategoryDescription string

	// Message is the problem text.
	Message string

	// CellName names the cell being processed when the error was reported.
	CellName string

	// Geometry marks the offending shapes (optional).
	Geometry []geom.Polygon
}

// Error renders "cell: [category:] message".
func (e Error) Error() string {
	if e.CategoryName != "" {
		return fmt.Sprintf("%s: %s: %s", e.CellName, e.CategoryName, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.CellName, e.Message)
}
