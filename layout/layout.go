// Package layout defines the cell/shape data model for
// github.com/mosaix-eda/mosaix.
package layout

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/mosaix-eda/mosaix/geom"
)

// CellIndex identifies a cell within its layout. Indices are stable for the
// layout's lifetime.
type CellIndex int

// layoutIDs generates identity tokens for layouts. The tokens replace the
// pointer comparisons of iterator compatibility checks with stable values.
var layoutIDs atomic.Uint64

// Layout is a tree of cells with shared shape and properties repositories.
// The zero value is not usable; use NewLayout.
type Layout struct {
	id         uint64
	cells      []*Cell
	cellByName map[string]CellIndex
	repo       *Repository
	props      *PropertiesRepository
}

// NewLayout creates an empty layout with fresh repositories.
func NewLayout() *Layout {
	return &Layout{
		id:         layoutIDs.Add(1),
		cellByName: make(map[string]CellIndex),
		repo:       NewRepository(),
		props:      NewPropertiesRepository(),
	}
}

// ID returns the layout's identity token. Tokens are unique per process and
// serve as a stable substitute for pointer identity.
func (l *Layout) ID() uint64 { return l.id }

// AddCell creates a new cell. If name is already taken the cell is named
// name$1, name$2, ...; the first free suffix wins. Complexity: O(k) in the
// number of suffix probes.
func (l *Layout) AddCell(name string) CellIndex {
	unique := name
	for n := 1; ; n++ {
		if _, taken := l.cellByName[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s$%d", name, n)
	}
	ci := CellIndex(len(l.cells))
	c := &Cell{index: ci, name: unique, layout: l, shapes: make(map[int]*Shapes)}
	l.cells = append(l.cells, c)
	l.cellByName[unique] = ci
	return ci
}

// Cell returns the cell at ci, or nil if ci is out of range.
func (l *Layout) Cell(ci CellIndex) *Cell {
	if ci < 0 || int(ci) >= len(l.cells) {
		return nil
	}
	return l.cells[ci]
}

// CellByName looks up a cell index by its exact name.
func (l *Layout) CellByName(name string) (CellIndex, bool) {
	ci, ok := l.cellByName[name]
	return ci, ok
}

// CellName returns the name of the cell at ci, or "" if out of range.
func (l *Layout) CellName(ci CellIndex) string {
	if c := l.Cell(ci); c != nil {
		return c.name
	}
	return ""
}

// Cells returns the number of cells in the layout.
func (l *Layout) Cells() int { return len(l.cells) }

// Repository returns the layout's shared shape repository.
func (l *Layout) Repository() *Repository { return l.repo }

// Properties returns the layout's properties repository.
func (l *Layout) Properties() *PropertiesRepository { return l.props }

// Cell is a hierarchy node: shapes on numbered layers plus child instance
// arrays. Cells are created through Layout.AddCell only.
type Cell struct {
	index  CellIndex
	name   string
	layout *Layout
	shapes map[int]*Shapes
	insts  []*CellInstArray

	// propsID carries cell-level properties (e.g. the device-class marker).
	propsID PropertiesID
}

// Index returns the cell's index within its layout.
func (c *Cell) Index() CellIndex { return c.index }

// Name returns the cell's (unique) name.
func (c *Cell) Name() string { return c.name }

// Layout returns the owning layout.
func (c *Cell) Layout() *Layout { return c.layout }

// Shapes returns the shape container for the given layer, creating it on
// first use.
func (c *Cell) Shapes(layer int) *Shapes {
	s, ok := c.shapes[layer]
	if !ok {
		s = &Shapes{}
		c.shapes[layer] = s
	}
	return s
}

// ShapesIfPresent returns the container for layer or nil when the cell has
// no shapes there. Unlike Shapes it never allocates.
func (c *Cell) ShapesIfPresent(layer int) *Shapes { return c.shapes[layer] }

// Layers returns the layer numbers with non-empty shape containers in
// ascending order.
func (c *Cell) Layers() []int {
	out := make([]int, 0, len(c.shapes))
	for layer, s := range c.shapes {
		if s.Len() > 0 {
			out = append(out, layer)
		}
	}
	sort.Ints(out)
	return out
}

// Insert adds an instance array to the cell.
func (c *Cell) Insert(inst *CellInstArray) { c.insts = append(c.insts, inst) }

// Insts returns the cell's instance arrays in insertion order. Callers must
// not mutate the slice.
func (c *Cell) Insts() []*CellInstArray { return c.insts }

// SetPropertiesID attaches cell-level properties.
func (c *Cell) SetPropertiesID(id PropertiesID) { c.propsID = id }

// PropertiesID returns the cell-level properties id (NilProperties if none).
func (c *Cell) PropertiesID() PropertiesID { return c.propsID }

// BBox returns the bounding box of the cell: own shapes plus transformed
// child boxes. Complexity: O(total shapes + instances) over the subtree;
// no caching is done.
func (c *Cell) BBox() geom.Box {
	b := geom.EmptyBox()
	for _, s := range c.shapes {
		b = b.Union(s.BBox())
	}
	for _, inst := range c.insts {
		child := c.layout.Cell(inst.Cell)
		if child == nil {
			continue
		}
		cb := child.BBox()
		if cb.Empty() {
			continue
		}
		inst.EachMember(func(t geom.Trans) {
			b = b.Union(cb.Transformed(t))
		})
	}
	return b
}

// CollectCalledCells inserts the indices of all cells instantiated below c
// (excluding c itself) into set.
func (c *Cell) CollectCalledCells(set map[CellIndex]struct{}) {
	for _, inst := range c.insts {
		if _, seen := set[inst.Cell]; seen {
			continue
		}
		child := c.layout.Cell(inst.Cell)
		if child == nil {
			continue
		}
		set[inst.Cell] = struct{}{}
		child.CollectCalledCells(set)
	}
}

// CellInstArray places a child cell NA×NB times: member (i,j) is placed at
// Trans displaced by i*A + j*B. NA/NB of zero count as one.
type CellInstArray struct {
	Cell  CellIndex
	Trans geom.Trans

	A, B   geom.Vector
	NA, NB int

	// PropsID carries instance-level properties (e.g. the device id).
	PropsID PropertiesID
}

// NewCellInst builds a single-placement instance array.
func NewCellInst(cell CellIndex, t geom.Trans) *CellInstArray {
	return &CellInstArray{Cell: cell, Trans: t, NA: 1, NB: 1}
}

// Size returns the number of array members.
func (ia *CellInstArray) Size() int {
	na, nb := ia.NA, ia.NB
	if na < 1 {
		na = 1
	}
	if nb < 1 {
		nb = 1
	}
	return na * nb
}

// MemberTrans returns the placement of array member (i, j).
func (ia *CellInstArray) MemberTrans(i, j int) geom.Trans {
	t := ia.Trans
	t.Disp = t.Disp.Plus(geom.Vector{DX: ia.A.DX*int64(i) + ia.B.DX*int64(j), DY: ia.A.DY*int64(i) + ia.B.DY*int64(j)})
	return t
}

// EachMember calls fn with the placement of every array member in row-major
// order.
func (ia *CellInstArray) EachMember(fn func(t geom.Trans)) {
	na, nb := ia.NA, ia.NB
	if na < 1 {
		na = 1
	}
	if nb < 1 {
		nb = 1
	}
	for i := 0; i < na; i++ {
		for j := 0; j < nb; j++ {
			fn(ia.MemberTrans(i, j))
		}
	}
}

// Clone returns a copy of the instance array.
func (ia *CellInstArray) Clone() *CellInstArray {
	cp := *ia
	return &cp
}
