package hierbuild_test

import (
	"fmt"

	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/hierbuild"
	"github.com/mosaix-eda/mosaix/layout"
)

// ExampleHierarchyBuilder mirrors a two-level hierarchy under a clip region
// into a fresh target layout.
func ExampleHierarchyBuilder() {
	src := layout.NewLayout()
	top := src.AddCell("TOP")
	ring := src.AddCell("RING")
	src.Cell(ring).Shapes(1).Insert(layout.BoxShape(geom.NewBox(0, 0, 100, 100)))
	src.Cell(top).Insert(layout.NewCellInst(ring, geom.Identity()))

	target := layout.NewLayout()
	pipe := hierbuild.DefaultPipelineConfig().NewPipeline(target)
	builder := hierbuild.NewHierarchyBuilder(target, 0, hierbuild.WithShapeReceiver(pipe))

	it := layout.NewRecursiveShapeIterator(src, top, 1,
		layout.WithRegion(geom.NewBox(0, 0, 40, 200)))
	if err := it.Drive(builder); err != nil {
		fmt.Println("traversal failed:", err)
		return
	}

	for ci := layout.CellIndex(0); int(ci) < target.Cells(); ci++ {
		fmt.Println(target.CellName(ci))
	}
	// Output:
	// TOP
	// RING$CLIP_VAR
}
