package layout

import (
	"errors"
	"sort"

	"github.com/mosaix-eda/mosaix/geom"
)

var (
	// ErrNoSuchCell indicates a traversal was started on a cell index that
	// does not exist in the layout.
	ErrNoSuchCell = errors.New("layout: no such cell")
)

// InstMode is the receiver's verdict on an instance array.
type InstMode int

const (
	// InstModeAllMembers requests iteration over each array member
	// individually (per-member clipping decisions).
	InstModeAllMembers InstMode = iota
	// InstModeSingle descends into the child exactly once.
	InstModeSingle
	// InstModeSkip skips the whole instance array.
	InstModeSkip
)

// Receiver is the callback interface driven by RecursiveShapeIterator.
//
// Call order per traversal: Begin, then depth-first over the hierarchy with
// NewInst/NewInstMember deciding descent, EnterCell/LeaveCell bracketing
// each descent, Shape for every selected shape, then End. Shapes of a cell
// are delivered before its instances (parent-before-children order).
type Receiver interface {
	// Begin starts a traversal. An error aborts the traversal before any
	// other callback fires.
	Begin(it *RecursiveShapeIterator) error
	// End finishes the traversal.
	End(it *RecursiveShapeIterator) error
	// EnterCell is called after a NewInst/NewInstMember callback elected to
	// descend; region and complex are given in the child cell's frame.
	EnterCell(it *RecursiveShapeIterator, cell *Cell, region geom.Box, complex *BoxTree)
	// LeaveCell closes the matching EnterCell.
	LeaveCell(it *RecursiveShapeIterator, cell *Cell)
	// NewInst announces an instance array. all is true when every member is
	// traversed identically (no clipping differences across the array).
	NewInst(it *RecursiveShapeIterator, inst *CellInstArray, region geom.Box, complex *BoxTree, all bool) InstMode
	// NewInstMember announces one array member; returning true descends.
	NewInstMember(it *RecursiveShapeIterator, inst *CellInstArray, trans geom.Trans, region geom.Box, complex *BoxTree, all bool) bool
	// Shape delivers a shape of the current cell. trans is the accumulated
	// transformation to the top cell; region and complex are in the current
	// cell's frame.
	Shape(it *RecursiveShapeIterator, s Shape, trans geom.Trans, region geom.Box, complex *BoxTree)
}

// IterOption configures a RecursiveShapeIterator before the first traversal.
type IterOption func(*RecursiveShapeIterator)

// WithRegion restricts the traversal to an axis-aligned clip box (given in
// the top cell's frame). The default is the world box (no clipping).
func WithRegion(b geom.Box) IterOption {
	return func(it *RecursiveShapeIterator) { it.region = b }
}

// WithComplexRegion adds a multi-rectangle clip boundary. Shapes must lie
// inside the union of the rectangles intersected with the region. Only
// meaningful together with WithRegion.
func WithComplexRegion(t *BoxTree) IterOption {
	return func(it *RecursiveShapeIterator) { it.complexRegion = t }
}

// WithMaxDepth limits descent: 0 delivers only the top cell's shapes,
// -1 (default) is unlimited.
func WithMaxDepth(depth int) IterOption {
	return func(it *RecursiveShapeIterator) { it.maxDepth = depth }
}

// WithLayers selects multiple input layers instead of a single one.
func WithLayers(layers []int) IterOption {
	return func(it *RecursiveShapeIterator) {
		it.layers = append([]int(nil), layers...)
		sort.Ints(it.layers)
		it.multiLayers = true
	}
}

// RecursiveShapeIterator walks a source layout depth-first and feeds a
// Receiver. It is configured once and may be driven repeatedly; the state
// of a traversal lives on the stack of Drive.
type RecursiveShapeIterator struct {
	layout        *Layout
	top           CellIndex
	layers        []int
	multiLayers   bool
	region        geom.Box
	complexRegion *BoxTree
	maxDepth      int
}

// NewRecursiveShapeIterator builds an iterator over layer of the given
// layout, starting at top.
func NewRecursiveShapeIterator(l *Layout, top CellIndex, layer int, opts ...IterOption) *RecursiveShapeIterator {
	it := &RecursiveShapeIterator{
		layout:   l,
		top:      top,
		layers:   []int{layer},
		region:   geom.World(),
		maxDepth: -1,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Layout returns the source layout.
func (it *RecursiveShapeIterator) Layout() *Layout { return it.layout }

// TopCell returns the index of the traversal's top cell.
func (it *RecursiveShapeIterator) TopCell() CellIndex { return it.top }

// MaxDepth returns the descent limit (-1 unlimited).
func (it *RecursiveShapeIterator) MaxDepth() int { return it.maxDepth }

// Region returns the clip region (world when unclipped).
func (it *RecursiveShapeIterator) Region() geom.Box { return it.region }

// HasComplexRegion reports whether a complex region is installed.
func (it *RecursiveShapeIterator) HasComplexRegion() bool { return it.complexRegion.Len() > 0 }

// ComplexRegion returns the complex region (nil if none).
func (it *RecursiveShapeIterator) ComplexRegion() *BoxTree { return it.complexRegion }

// MultipleLayers reports whether the iterator selects more than one layer.
func (it *RecursiveShapeIterator) MultipleLayers() bool { return it.multiLayers }

// Layer returns the single selected layer (first layer in multi-layer mode).
func (it *RecursiveShapeIterator) Layer() int { return it.layers[0] }

// Layers returns the selected layers in ascending order.
func (it *RecursiveShapeIterator) Layers() []int { return it.layers }

// Drive runs one full traversal against rcv. The traversal is synchronous
// and deterministic; Drive may be called repeatedly.
func (it *RecursiveShapeIterator) Drive(rcv Receiver) error {
	if it.layout.Cell(it.top) == nil {
		return ErrNoSuchCell
	}
	if err := rcv.Begin(it); err != nil {
		return err
	}
	it.visit(it.top, geom.Identity(), it.region, it.complexRegion, 0, rcv)
	return rcv.End(it)
}

// visit emits the shapes of cell ci and descends into its instances.
func (it *RecursiveShapeIterator) visit(ci CellIndex, trans geom.Trans, region geom.Box, complex *BoxTree, depth int, rcv Receiver) {
	cell := it.layout.Cell(ci)

	for _, layer := range it.layers {
		shapes := cell.ShapesIfPresent(layer)
		shapes.Each(func(s Shape) {
			if it.selectShape(s, region, complex) {
				rcv.Shape(it, s, trans, region, complex)
			}
		})
	}

	if it.maxDepth >= 0 && depth >= it.maxDepth {
		return
	}

	for _, inst := range cell.Insts() {
		all := region.IsWorld() || it.instUnclipped(inst, region, complex)

		switch rcv.NewInst(it, inst, region, complex, all) {
		case InstModeSkip:
			continue
		case InstModeSingle:
			t := inst.MemberTrans(0, 0)
			if rcv.NewInstMember(it, inst, t, region, complex, true) {
				it.descend(inst, t, trans, region, complex, depth, rcv)
			}
		case InstModeAllMembers:
			inst.EachMember(func(t geom.Trans) {
				if rcv.NewInstMember(it, inst, t, region, complex, false) {
					it.descend(inst, t, trans, region, complex, depth, rcv)
				}
			})
		}
	}
}

// descend transforms the clip into the child frame and recurses.
func (it *RecursiveShapeIterator) descend(inst *CellInstArray, t geom.Trans, trans geom.Trans, region geom.Box, complex *BoxTree, depth int, rcv Receiver) {
	child := it.layout.Cell(inst.Cell)
	if child == nil {
		return
	}

	childRegion, childComplex := region, complex
	if !region.IsWorld() {
		inv := t.Inverted()
		childRegion = region.Transformed(inv)
		childComplex = complex.Transformed(inv)
	}

	rcv.EnterCell(it, child, childRegion, childComplex)
	it.visit(child.Index(), geom.Compose(trans, t), childRegion, childComplex, depth+1, rcv)
	rcv.LeaveCell(it, child)
}

// selectShape prunes shapes clearly outside the clip. The test is
// conservative; exact clipping is the receiver pipeline's job.
func (it *RecursiveShapeIterator) selectShape(s Shape, region geom.Box, complex *BoxTree) bool {
	if region.IsWorld() {
		return true
	}
	bb := s.BBox()
	if !bb.Touches(region) {
		return false
	}
	if complex.Len() == 0 {
		return true
	}
	hit := false
	complex.EachOverlapping(region, func(b geom.Box) {
		if b.Touches(bb) {
			hit = true
		}
	})
	return hit
}

// instUnclipped reports whether every member of inst lies fully inside the
// clip (no clipping differences across the array).
func (it *RecursiveShapeIterator) instUnclipped(inst *CellInstArray, region geom.Box, complex *BoxTree) bool {
	child := it.layout.Cell(inst.Cell)
	if child == nil {
		return true
	}
	cb := child.BBox()
	if cb.Empty() {
		return true
	}

	arrayBox := geom.EmptyBox()
	inst.EachMember(func(t geom.Trans) {
		arrayBox = arrayBox.Union(cb.Transformed(t))
	})

	if !arrayBox.Inside(region) {
		return false
	}
	if complex.Len() == 0 {
		return true
	}
	inside := false
	complex.EachOverlapping(region, func(b geom.Box) {
		if arrayBox.Inside(b) {
			inside = true
		}
	})
	return inside
}
