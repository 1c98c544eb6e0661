package hierbuild_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/hierbuild"
	"github.com/mosaix-eda/mosaix/layout"
)

// buildSource creates the canonical test source: top cell T holding one
// instance of C; C carries box (0,0)-(100,100) on layer 1.
func buildSource() (*layout.Layout, layout.CellIndex, layout.CellIndex) {
	src := layout.NewLayout()
	top := src.AddCell("T")
	child := src.AddCell("C")
	src.Cell(child).Shapes(1).Insert(layout.BoxShape(geom.NewBox(0, 0, 100, 100)))
	src.Cell(top).Insert(layout.NewCellInst(child, geom.Identity()))
	return src, top, child
}

// collectBoxes returns the bounding boxes of all shapes on layer of cell.
func collectBoxes(c *layout.Cell, layer int) []geom.Box {
	var out []geom.Box
	c.Shapes(layer).Each(func(s layout.Shape) {
		out = append(out, s.BBox())
	})
	return out
}

// TestWorldRegionMirrorsHierarchy is the unclipped round-trip: the target
// is structurally isomorphic to the source.
func TestWorldRegionMirrorsHierarchy(t *testing.T) {
	src, top, _ := buildSource()

	tgt := layout.NewLayout()
	b := hierbuild.NewHierarchyBuilder(tgt, 5)

	it := layout.NewRecursiveShapeIterator(src, top, 1)
	require.NoError(t, it.Drive(b))

	require.Equal(t, 2, tgt.Cells(), "one target cell per source cell")

	topCI, ok := tgt.CellByName("T")
	require.True(t, ok)
	childCI, ok := tgt.CellByName("C")
	require.True(t, ok)

	topCell := tgt.Cell(topCI)
	require.Len(t, topCell.Insts(), 1)
	require.Equal(t, childCI, topCell.Insts()[0].Cell)
	require.True(t, topCell.Insts()[0].Trans.IsIdentity())

	boxes := collectBoxes(tgt.Cell(childCI), 5)
	require.Equal(t, []geom.Box{geom.NewBox(0, 0, 100, 100)}, boxes)

	require.NotNil(t, b.InitialCell())
	require.Equal(t, "T", b.InitialCell().Name())
}

// TestSingleBoxClipVariant clips with a plain box region: the child becomes
// a $CLIP_VAR cell holding the clipped box.
func TestSingleBoxClipVariant(t *testing.T) {
	src, top, _ := buildSource()

	tgt := layout.NewLayout()
	b := hierbuild.NewHierarchyBuilder(tgt, 5,
		hierbuild.WithShapeReceiver(hierbuild.NewClippingReceiver(nil)))

	it := layout.NewRecursiveShapeIterator(src, top, 1,
		layout.WithRegion(geom.NewBox(0, 0, 50, 200)))
	require.NoError(t, it.Drive(b))

	varCI, ok := tgt.CellByName("C$CLIP_VAR")
	require.True(t, ok, "clip variant cell must be created")

	boxes := collectBoxes(tgt.Cell(varCI), 5)
	require.Equal(t, []geom.Box{geom.NewBox(0, 0, 50, 100)}, boxes)
}

// TestComplexRegionClipVariant clips against two complex-region rectangles;
// the variant cell holds one clipped box per rectangle.
func TestComplexRegionClipVariant(t *testing.T) {
	src, top, _ := buildSource()

	complexRegion := layout.NewBoxTree(
		geom.NewBox(0, 0, 30, 30),
		geom.NewBox(70, 70, 100, 100),
	)

	tgt := layout.NewLayout()
	b := hierbuild.NewHierarchyBuilder(tgt, 5,
		hierbuild.WithShapeReceiver(hierbuild.NewClippingReceiver(nil)))

	it := layout.NewRecursiveShapeIterator(src, top, 1,
		layout.WithRegion(geom.NewBox(0, 0, 200, 200)),
		layout.WithComplexRegion(complexRegion))
	require.NoError(t, it.Drive(b))

	varCI, ok := tgt.CellByName("C$CLIP_VAR")
	require.True(t, ok)

	boxes := collectBoxes(tgt.Cell(varCI), 5)
	require.ElementsMatch(t,
		[]geom.Box{geom.NewBox(0, 0, 30, 30), geom.NewBox(70, 70, 100, 100)},
		boxes)
}

// TestDistinctVariantsDistinctCells places the same child three times: two
// placements are fully inside the clip and share the unclipped target cell,
// the third is cut and gets its own variant cell.
func TestDistinctVariantsDistinctCells(t *testing.T) {
	src := layout.NewLayout()
	top := src.AddCell("T")
	child := src.AddCell("C")
	src.Cell(child).Shapes(1).Insert(layout.BoxShape(geom.NewBox(0, 0, 20, 20)))

	// x = 0 and x = 10 stay inside the region; x = 40 sticks out.
	for _, dx := range []int64{0, 10, 40} {
		src.Cell(top).Insert(layout.NewCellInst(child, geom.Translation(geom.Vec(dx, 0))))
	}

	tgt := layout.NewLayout()
	b := hierbuild.NewHierarchyBuilder(tgt, 1,
		hierbuild.WithShapeReceiver(hierbuild.NewClippingReceiver(nil)))

	it := layout.NewRecursiveShapeIterator(src, top, 1,
		layout.WithRegion(geom.NewBox(0, 0, 50, 100)))
	require.NoError(t, it.Drive(b))

	// T plus exactly two distinct variant cells.
	require.Equal(t, 3, tgt.Cells())

	topCI, _ := tgt.CellByName("T")
	insts := tgt.Cell(topCI).Insts()
	require.Len(t, insts, 3)
	require.Equal(t, insts[0].Cell, insts[1].Cell, "equal variants share one target cell")
	require.NotEqual(t, insts[0].Cell, insts[2].Cell, "distinct variants get distinct target cells")
}

// TestMultiPassIdempotence drives the builder twice: the second pass must
// add no cells or instances, and an incremental pass on a second target
// layer reproduces the first layer's shapes exactly.
func TestMultiPassIdempotence(t *testing.T) {
	src, top, _ := buildSource()

	tgt := layout.NewLayout()
	b := hierbuild.NewHierarchyBuilder(tgt, 5,
		hierbuild.WithShapeReceiver(hierbuild.NewClippingReceiver(nil)))

	it := layout.NewRecursiveShapeIterator(src, top, 1,
		layout.WithRegion(geom.NewBox(0, 0, 50, 200)))
	require.NoError(t, it.Drive(b))

	cellsAfterFirst := tgt.Cells()
	topCI, _ := tgt.CellByName("T")
	instsAfterFirst := len(tgt.Cell(topCI).Insts())

	b.SetTargetLayer(6)
	require.NoError(t, it.Drive(b))

	require.Equal(t, cellsAfterFirst, tgt.Cells(), "no new cells on a later pass")
	require.Equal(t, instsAfterFirst, len(tgt.Cell(topCI).Insts()), "no new instances on a later pass")

	varCI, _ := tgt.CellByName("C$CLIP_VAR")
	require.Equal(t,
		collectBoxes(tgt.Cell(varCI), 5),
		collectBoxes(tgt.Cell(varCI), 6),
		"equivalent passes must produce identical shape sets")
}

// TestIncompatibleIteratorRejected verifies the compatibility gate on later
// passes.
func TestIncompatibleIteratorRejected(t *testing.T) {
	src, top, _ := buildSource()

	tgt := layout.NewLayout()
	b := hierbuild.NewHierarchyBuilder(tgt, 5)

	it := layout.NewRecursiveShapeIterator(src, top, 1)
	require.NoError(t, it.Drive(b))

	// Bounded vs world region changes the hierarchy: rejected.
	bounded := layout.NewRecursiveShapeIterator(src, top, 1,
		layout.WithRegion(geom.NewBox(0, 0, 10, 10)))
	require.ErrorIs(t, bounded.Drive(b), hierbuild.ErrIncompatibleIterator)

	// Different max depth: rejected.
	shallow := layout.NewRecursiveShapeIterator(src, top, 1, layout.WithMaxDepth(0))
	require.ErrorIs(t, shallow.Drive(b), hierbuild.ErrIncompatibleIterator)

	// A Reset starts a fresh initial pass and accepts anything again.
	b.Reset()
	require.NoError(t, shallow.Drive(b))
}

// TestCompareIteratorsBoundedExtent documents that the extent of a bounded
// region does not enter the comparison, only its structure does.
func TestCompareIteratorsBoundedExtent(t *testing.T) {
	src, top, _ := buildSource()

	a := layout.NewRecursiveShapeIterator(src, top, 1,
		layout.WithRegion(geom.NewBox(0, 0, 50, 50)))
	b := layout.NewRecursiveShapeIterator(src, top, 1,
		layout.WithRegion(geom.NewBox(0, 0, 80, 80)))
	require.Zero(t, hierbuild.CompareIterators(a, b))

	c := layout.NewRecursiveShapeIterator(src, top, 2,
		layout.WithRegion(geom.NewBox(0, 0, 50, 50)))
	require.NotZero(t, hierbuild.CompareIterators(a, c), "layer selection is part of the hierarchy")
}

// TestReducingReceiver pushes a staircase polygon through the reducer and
// checks the vertex bound on everything that lands in the container.
func TestReducingReceiver(t *testing.T) {
	// 20-step staircase: 40+ vertices, constant area.
	var pts []geom.Point
	pts = append(pts, geom.Pt(0, 0))
	for i := int64(0); i < 20; i++ {
		pts = append(pts, geom.Pt(i*10, i*10+10), geom.Pt(i*10+10, i*10+10))
	}
	pts = append(pts, geom.Pt(200, 0))
	stairs := geom.NewPolygon(pts)
	wantArea := stairs.Area()

	red := hierbuild.NewReducingReceiver(nil, 1e9, 16)
	var target layout.Shapes
	red.PushPolygon(stairs, geom.World(), nil, &target)

	require.Greater(t, target.Len(), 1, "oversized polygon must split")

	var area int64
	target.Each(func(s layout.Shape) {
		poly, ok := s.Polygon()
		require.True(t, ok)
		require.LessOrEqual(t, poly.VertexCount(), 16)
		area += poly.Area()
	})
	require.Equal(t, wantArea, area, "splitting preserves total area")
}

// TestPipelineConfig exercises TOML loading and validation.
func TestPipelineConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_vertex_count = 32\narea_ratio = 2.5\n"), 0o644))

	cfg, err := hierbuild.LoadPipelineConfig(path)
	require.NoError(t, err)
	require.Equal(t, 32, cfg.MaxVertexCount)
	require.Equal(t, 2.5, cfg.AreaRatio)
	require.True(t, cfg.Clip, "defaults survive partial files")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("max_vertex_count = 2\n"), 0o644))
	_, err = hierbuild.LoadPipelineConfig(bad)
	require.ErrorIs(t, err, hierbuild.ErrBadVertexCount)

	require.ErrorIs(t, hierbuild.PipelineConfig{MaxVertexCount: 8, AreaRatio: 0.5}.Validate(),
		hierbuild.ErrBadAreaRatio)
}

// TestPolygonRefPipeline checks the interning terminator: identical
// geometry pushed twice shares one repository entry.
func TestPolygonRefPipeline(t *testing.T) {
	tgt := layout.NewLayout()
	pr := hierbuild.NewPolygonRefReceiver(tgt)

	var shapes layout.Shapes
	pr.PushBox(geom.NewBox(0, 0, 10, 10), geom.World(), nil, &shapes)
	pr.PushBox(geom.NewBox(100, 100, 110, 110), geom.World(), nil, &shapes)

	require.Equal(t, 2, shapes.Len())
	require.Equal(t, 1, tgt.Repository().Len(), "translated twins intern to one polygon")
	require.Equal(t, shapes.At(0).Ref.Obj(), shapes.At(1).Ref.Obj())
}
