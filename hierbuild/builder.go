package hierbuild

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/layout"
)

var (
	// ErrIncompatibleIterator is returned by Begin when a later traversal's
	// iterator is not hierarchy-compatible with the builder's reference
	// traversal (see CompareIterators).
	ErrIncompatibleIterator = errors.New("hierbuild: iterator is not hierarchy-compatible with the reference traversal")

	// ErrUnbalancedTraversal is returned by End when EnterCell/LeaveCell
	// calls did not pair up, indicating a defective driver.
	ErrUnbalancedTraversal = errors.New("hierbuild: traversal ended with an unbalanced cell stack")
)

// nopLogger is the default logger of builders constructed without
// WithLogger; it discards everything.
var nopLogger = log.NewWithOptions(io.Discard, log.Options{})

// cellKey is the builder's cell-map key: source cell plus the canonical
// clip-variant representation ("" for unclipped).
type cellKey struct {
	cell    layout.CellIndex
	variant string
}

// Option configures a HierarchyBuilder at construction time.
type Option func(*HierarchyBuilder)

// WithShapeReceiver installs the receiver pipeline. nil selects the default
// insert-as-is stage.
func WithShapeReceiver(pipe ShapeReceiver) Option {
	return func(b *HierarchyBuilder) { b.SetShapeReceiver(pipe) }
}

// WithLogger installs a logger for builder progress (debug level).
func WithLogger(l *log.Logger) Option {
	return func(b *HierarchyBuilder) {
		if l != nil {
			b.logger = l
		}
	}
}

// HierarchyBuilder mirrors the hierarchy visited by a recursive shape
// traversal into a target layout. It implements layout.Receiver.
//
// The first traversal (the initial pass) creates target cells and instances;
// later traversals on the same builder must be hierarchy-compatible with the
// first and only re-emit shapes into the already-built cells (typically onto
// another target layer via SetTargetLayer). Cell deduplication is keyed on
// (source cell, clip variant): distinct variants of one source cell become
// distinct target cells named <source>$CLIP_VAR.
type HierarchyBuilder struct {
	target      *layout.Layout
	targetLayer int
	pipe        ShapeReceiver
	logger      *log.Logger

	initialPass bool
	refIter     *layout.RecursiveShapeIterator

	cellMap   map[cellKey]layout.CellIndex
	cellsSeen map[cellKey]struct{}
	cellStack []*layout.Cell

	// cmCurrent is the cell-map entry resolved by the latest Begin /
	// NewInst / NewInstMember; EnterCell consumes it. This is a contract
	// of the iterator's call ordering.
	cmCurrent cellKey
	cmValid   bool

	initialCell *layout.Cell
}

// NewHierarchyBuilder creates a builder writing into targetLayer of target.
// The target layout must outlive the builder; the builder does not own it.
func NewHierarchyBuilder(target *layout.Layout, targetLayer int, opts ...Option) *HierarchyBuilder {
	b := &HierarchyBuilder{
		target:      target,
		targetLayer: targetLayer,
		pipe:        defInserter,
		logger:      nopLogger,
		initialPass: true,
		cellMap:     make(map[cellKey]layout.CellIndex),
		cellsSeen:   make(map[cellKey]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetShapeReceiver replaces the receiver pipeline; nil reverts to the
// default insert-as-is stage.
func (b *HierarchyBuilder) SetShapeReceiver(pipe ShapeReceiver) {
	if pipe == nil {
		pipe = defInserter
	}
	b.pipe = pipe
}

// SetTargetLayer redirects subsequent shape output, typically between an
// initial pass and an incremental pass adding another layer.
func (b *HierarchyBuilder) SetTargetLayer(layer int) { b.targetLayer = layer }

// Target returns the target layout handle.
func (b *HierarchyBuilder) Target() *layout.Layout { return b.target }

// InitialCell returns the top target cell of the last finished traversal,
// nil before the first End.
func (b *HierarchyBuilder) InitialCell() *layout.Cell { return b.initialCell }

// Reset clears all builder state. The next Begin starts a fresh initial
// pass with a new cell map.
func (b *HierarchyBuilder) Reset() {
	b.initialPass = true
	b.refIter = nil
	b.initialCell = nil
	b.cellMap = make(map[cellKey]layout.CellIndex)
	b.cellsSeen = make(map[cellKey]struct{})
	b.cellStack = b.cellStack[:0]
	b.cmValid = false
}

// Begin starts a traversal. On the initial pass the iterator becomes the
// compatibility reference; later passes are rejected with
// ErrIncompatibleIterator unless they compare equal under CompareIterators.
func (b *HierarchyBuilder) Begin(it *layout.RecursiveShapeIterator) error {
	if b.initialPass {
		b.refIter = it
	} else if CompareIterators(b.refIter, it) != 0 {
		return ErrIncompatibleIterator
	}

	b.cellStack = b.cellStack[:0]
	b.cellsSeen = make(map[cellKey]struct{})

	key := cellKey{cell: it.TopCell()}
	ci, ok := b.cellMap[key]
	if !ok {
		ci = b.target.AddCell(it.Layout().CellName(it.TopCell()))
		b.cellMap[key] = ci
		b.logger.Debug("new top target cell", "name", b.target.CellName(ci))
	}
	b.cmCurrent, b.cmValid = key, true

	b.cellsSeen[key] = struct{}{}
	b.cellStack = append(b.cellStack, b.target.Cell(ci))
	return nil
}

// End finishes a traversal: the initial-pass flag freezes to false and the
// top target cell is remembered for InitialCell.
func (b *HierarchyBuilder) End(*layout.RecursiveShapeIterator) error {
	if len(b.cellStack) != 1 {
		return ErrUnbalancedTraversal
	}

	b.initialPass = false
	b.cellsSeen = make(map[cellKey]struct{})
	b.initialCell = b.cellStack[0]
	b.cellStack = b.cellStack[:0]
	b.cmValid = false
	return nil
}

// EnterCell pushes the target cell for the entry resolved by the preceding
// NewInst/NewInstMember and marks its key as seen.
func (b *HierarchyBuilder) EnterCell(*layout.RecursiveShapeIterator, *layout.Cell, geom.Box, *layout.BoxTree) {
	if !b.cmValid {
		panic("hierbuild: EnterCell without a preceding instance election")
	}
	b.cellsSeen[b.cmCurrent] = struct{}{}
	b.cellStack = append(b.cellStack, b.target.Cell(b.cellMap[b.cmCurrent]))
}

// LeaveCell pops the cell stack.
func (b *HierarchyBuilder) LeaveCell(*layout.RecursiveShapeIterator, *layout.Cell) {
	b.cellStack = b.cellStack[:len(b.cellStack)-1]
}

// NewInst handles a whole instance array. With all set (no clipping
// differences across the array) the child maps to its unclipped target
// cell; the array is copied once on the initial pass and the traversal
// descends into the child exactly once per traversal. Without all, members are
// iterated individually.
func (b *HierarchyBuilder) NewInst(it *layout.RecursiveShapeIterator, inst *layout.CellInstArray, _ geom.Box, _ *layout.BoxTree, all bool) layout.InstMode {
	if !all {
		// iterate by instance array members
		return layout.InstModeAllMembers
	}

	key := cellKey{cell: inst.Cell}

	if b.initialPass {
		if _, ok := b.cellMap[key]; !ok {
			b.cellMap[key] = b.target.AddCell(it.Layout().CellName(inst.Cell))
		}

		newInst := inst.Clone()
		newInst.Cell = b.cellMap[key]
		b.cellStack[len(b.cellStack)-1].Insert(newInst)
	}
	b.cmCurrent, b.cmValid = key, true

	// to see the cell once use InstModeSingle; if seen, skip the array
	if _, seen := b.cellsSeen[key]; seen {
		return layout.InstModeSkip
	}
	return layout.InstModeSingle
}

// NewInstMember handles one member of an instance array under per-member
// clipping. An empty clip variant excludes the member silently; otherwise
// the member maps to the (child, variant) target cell, instantiated on the
// initial pass with the member's transformation. Returns true when the key
// has not been seen in this traversal, directing the iterator to descend.
func (b *HierarchyBuilder) NewInstMember(it *layout.RecursiveShapeIterator, inst *layout.CellInstArray, trans geom.Trans, region geom.Box, complex *layout.BoxTree, all bool) bool {
	if all {
		return true
	}

	cellBBox := it.Layout().Cell(inst.Cell).BBox()
	variant, ok := computeClipVariant(cellBBox, trans, region, complex)
	if !ok {
		return false
	}

	key := cellKey{cell: inst.Cell, variant: variant.Key()}

	if b.initialPass {
		if _, exists := b.cellMap[key]; !exists {
			name := it.Layout().CellName(inst.Cell)
			if !variant.Empty() {
				name += "$CLIP_VAR"
			}
			b.cellMap[key] = b.target.AddCell(name)
			b.logger.Debug("new clip variant cell",
				"source", it.Layout().CellName(inst.Cell),
				"target", b.target.CellName(b.cellMap[key]),
				"boxes", len(variant))
		}

		b.cellStack[len(b.cellStack)-1].Insert(layout.NewCellInst(b.cellMap[key], trans))
	}
	b.cmCurrent, b.cmValid = key, true

	_, seen := b.cellsSeen[key]
	return !seen
}

// Shape pushes a source shape through the receiver pipeline into the
// current target cell on the target layer.
func (b *HierarchyBuilder) Shape(_ *layout.RecursiveShapeIterator, s layout.Shape, _ geom.Trans, region geom.Box, complex *layout.BoxTree) {
	shapes := b.cellStack[len(b.cellStack)-1].Shapes(b.targetLayer)
	b.pipe.PushShape(s, region, complex, shapes)
}

var _ layout.Receiver = (*HierarchyBuilder)(nil)
