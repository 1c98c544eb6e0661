package extract

import "github.com/mosaix-eda/mosaix/layout"

// DeepShapeStore is the deep-mode input handle: a hierarchical layout with
// a fixed initial cell, preserving cell identity across derived regions.
type DeepShapeStore struct {
	lay     *layout.Layout
	initial layout.CellIndex
}

// NewDeepShapeStore wraps a layout and its initial cell.
func NewDeepShapeStore(l *layout.Layout, initial layout.CellIndex) *DeepShapeStore {
	return &DeepShapeStore{lay: l, initial: initial}
}

// Layout returns the store's layout.
func (s *DeepShapeStore) Layout() *layout.Layout { return s.lay }

// InitialCell returns the store's initial cell.
func (s *DeepShapeStore) InitialCell() layout.CellIndex { return s.initial }

// DeepLayer names one layer of a deep store. It is the deep-mode input
// region kind: ExtractDeep rejects layers backed by a different store.
type DeepLayer struct {
	Store *DeepShapeStore
	Layer int
}

// Layer derives the deep layer handle for one of the store's layers.
func (s *DeepShapeStore) Layer(layer int) *DeepLayer {
	return &DeepLayer{Store: s, Layer: layer}
}
