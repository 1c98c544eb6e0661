package extract_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mosaix-eda/mosaix/cluster"
	"github.com/mosaix-eda/mosaix/extract"
	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/layout"
	"github.com/mosaix-eda/mosaix/netlist"
)

// mosDelegate recognises a MOS transistor in a cluster: every gate polygon
// becomes a device; diffusion polygons left of the gate center are the
// source, the rest the drain. The gate width becomes parameter L.
type mosDelegate struct {
	gateIdx, diffIdx    int
	termG, termS, termD int
	paramL              int
}

func (m *mosDelegate) Setup(ex *extract.DeviceExtractor) error {
	m.gateIdx = ex.DefineLayer("G", "gate poly")
	m.diffIdx = ex.DefineLayer("SD", "source/drain diffusion")

	dc := netlist.NewDeviceClass("")
	m.termG = dc.AddTerminal("G", "gate")
	m.termS = dc.AddTerminal("S", "source")
	m.termD = dc.AddTerminal("D", "drain")
	m.paramL = dc.AddParameter("L", "gate length", 0)
	return ex.RegisterDeviceClass(dc)
}

func (m *mosDelegate) Connectivity(_ *layout.Layout, layers []int) *cluster.Connectivity {
	conn := cluster.NewConnectivity()
	conn.Connect(layers[m.gateIdx])
	conn.Connect(layers[m.diffIdx])
	conn.ConnectLayers(layers[m.gateIdx], layers[m.diffIdx])
	return conn
}

func (m *mosDelegate) ExtractDevices(ex *extract.DeviceExtractor, geometry []*extract.Region) error {
	for _, gate := range geometry[m.gateIdx].Polygons() {
		gb := gate.BBox()

		dev, err := ex.CreateDevice()
		if err != nil {
			return err
		}
		dev.SetParameter(m.paramL, float64(gb.Width()))
		dev.SetPosition(gb.LowerLeft())

		if err := ex.DefineTerminal(dev, m.termG, m.gateIdx, gate); err != nil {
			return err
		}
		for _, d := range geometry[m.diffIdx].Polygons() {
			tid := m.termS
			if d.BBox().Center().X > gb.Center().X {
				tid = m.termD
			}
			if err := ex.DefineTerminal(dev, tid, m.diffIdx, d); err != nil {
				return err
			}
		}
	}
	return nil
}

const (
	gateLayer = 10
	diffLayer = 11
)

// addMOS places one transistor at x offset x0: diffusion - gate - diffusion
// with the gate overlapping neither.
func addMOS(c *layout.Cell, x0, gateWidth int64) {
	c.Shapes(diffLayer).Insert(layout.BoxShape(geom.NewBox(x0, 0, x0+20, 20)))
	c.Shapes(gateLayer).Insert(layout.BoxShape(geom.NewBox(x0+20, 0, x0+20+gateWidth, 20)))
	c.Shapes(diffLayer).Insert(layout.BoxShape(geom.NewBox(x0+20+gateWidth, 0, x0+40+gateWidth, 20)))
}

func newMOSExtraction() (*layout.Layout, layout.CellIndex, *extract.DeviceExtractor) {
	l := layout.NewLayout()
	top := l.AddCell("TOP")
	ex := extract.NewDeviceExtractor("MOS", &mosDelegate{})
	return l, top, ex
}

// TestTwoIdenticalTransistorsShareDeviceCell: two transistors differing
// only by translation collapse into one device cell with two tagged
// instances.
func TestTwoIdenticalTransistorsShareDeviceCell(t *testing.T) {
	l, top, ex := newMOSExtraction()
	addMOS(l.Cell(top), 0, 10)
	addMOS(l.Cell(top), 500, 10)

	nl := netlist.NewNetlist()
	hc := cluster.NewHierClusters()
	require.NoError(t, ex.Extract(l, top, []int{gateLayer, diffLayer}, nl, hc))
	require.Empty(t, ex.Errors())

	devCI, ok := l.CellByName("D$MOS")
	require.True(t, ok, "device cell D$MOS must exist")
	_, dup := l.CellByName("D$MOS$1")
	require.False(t, dup, "identical devices must share one device cell")

	// the device cell is tagged with its class
	props := l.Properties()
	clsProp := props.NameID(extract.PropDeviceClass)
	v, ok := props.Value(l.Cell(devCI).PropertiesID(), clsProp)
	require.True(t, ok)
	require.Equal(t, "MOS", v)

	// two instances with distinct DEVICE_ID properties and positions
	insts := l.Cell(top).Insts()
	require.Len(t, insts, 2)
	idProp := props.NameID(extract.PropDeviceID)
	ids := map[any]bool{}
	var disps []geom.Vector
	for _, inst := range insts {
		require.Equal(t, devCI, inst.Cell)
		v, ok := props.Value(inst.PropsID, idProp)
		require.True(t, ok, "device instance must carry DEVICE_ID")
		ids[v] = true
		disps = append(disps, inst.Trans.Disp)
	}
	require.Len(t, ids, 2, "device ids must be distinct")
	require.ElementsMatch(t, []geom.Vector{geom.Vec(20, 0), geom.Vec(520, 0)}, disps)

	// every device-cell shape carries exactly one TERMINAL_ID property
	tidProp := props.NameID(extract.PropTerminalID)
	for _, layer := range []int{gateLayer, diffLayer} {
		l.Cell(devCI).Shapes(layer).Each(func(s layout.Shape) {
			set := props.Set(s.PropsID)
			require.Len(t, set, 1)
			_, ok := set[tidProp]
			require.True(t, ok)
		})
	}

	// netlist: one circuit for TOP with both devices
	circuit, ok := nl.CircuitByCell(top)
	require.True(t, ok)
	require.Len(t, circuit.Devices(), 2)
	require.NotEqual(t, circuit.Devices()[0].ID(), circuit.Devices()[1].ID())
}

// TestParameterDifferenceSplitsDeviceCells: a differing gate length forces
// a second device cell.
func TestParameterDifferenceSplitsDeviceCells(t *testing.T) {
	l, top, ex := newMOSExtraction()
	addMOS(l.Cell(top), 0, 10)
	addMOS(l.Cell(top), 500, 15)

	nl := netlist.NewNetlist()
	hc := cluster.NewHierClusters()
	require.NoError(t, ex.Extract(l, top, []int{gateLayer, diffLayer}, nl, hc))

	_, ok := l.CellByName("D$MOS")
	require.True(t, ok)
	_, ok = l.CellByName("D$MOS$1")
	require.True(t, ok, "differing parameters must produce a second device cell")
}

// TestRerunSkipsDeviceCells: a second extraction over the annotated layout
// creates no new device cells, no circuits for device cells and no errors,
// and yields an equal netlist.
func TestRerunSkipsDeviceCells(t *testing.T) {
	l, top, ex := newMOSExtraction()
	addMOS(l.Cell(top), 0, 10)
	addMOS(l.Cell(top), 500, 10)

	nl1 := netlist.NewNetlist()
	require.NoError(t, ex.Extract(l, top, []int{gateLayer, diffLayer}, nl1, cluster.NewHierClusters()))
	cellsAfterFirst := l.Cells()

	nl2 := netlist.NewNetlist()
	require.NoError(t, ex.Extract(l, top, []int{gateLayer, diffLayer}, nl2, cluster.NewHierClusters()))

	require.Equal(t, cellsAfterFirst, l.Cells(), "re-run must not create device cells")
	require.Empty(t, ex.Errors())

	require.Len(t, nl2.Circuits(), 1, "device cells must not get circuits")
	c1, _ := nl1.CircuitByCell(top)
	c2, _ := nl2.CircuitByCell(top)
	require.Equal(t, len(c1.Devices()), len(c2.Devices()))
	for i := range c1.Devices() {
		require.Equal(t, c1.Devices()[i].ID(), c2.Devices()[i].ID())
	}
}

// TestHierarchicalExtraction: the transistor lives in a sub-cell
// instantiated twice; the device is extracted once, in the sub-cell's
// circuit.
func TestHierarchicalExtraction(t *testing.T) {
	l := layout.NewLayout()
	top := l.AddCell("TOP")
	sub := l.AddCell("INV")
	addMOS(l.Cell(sub), 0, 10)
	l.Cell(top).Insert(layout.NewCellInst(sub, geom.Identity()))
	l.Cell(top).Insert(layout.NewCellInst(sub, geom.Translation(geom.Vec(1000, 0))))

	ex := extract.NewDeviceExtractor("MOS", &mosDelegate{})
	nl := netlist.NewNetlist()
	require.NoError(t, ex.Extract(l, top, []int{gateLayer, diffLayer}, nl, cluster.NewHierClusters()))

	sc, ok := nl.CircuitByCell(sub)
	require.True(t, ok)
	require.Len(t, sc.Devices(), 1, "the shared sub-cell holds one device")

	tc, ok := nl.CircuitByCell(top)
	require.True(t, ok)
	require.Empty(t, tc.Devices())

	// the device instance is annotated into the sub-cell, not the top
	require.Len(t, l.Cell(sub).Insts(), 1)
}

// TestInlineTerminalMode writes terminal geometry directly into the
// including cell under the legacy TERMINAL property.
func TestInlineTerminalMode(t *testing.T) {
	l, top, _ := newMOSExtraction()
	addMOS(l.Cell(top), 0, 10)

	ex := extract.NewDeviceExtractor("MOS", &mosDelegate{}, extract.WithInlineTerminals())
	nl := netlist.NewNetlist()
	require.NoError(t, ex.Extract(l, top, []int{gateLayer, diffLayer}, nl, cluster.NewHierClusters()))

	_, ok := l.CellByName("D$MOS")
	require.False(t, ok, "in-line mode must not create device cells")
	require.Empty(t, l.Cell(top).Insts())

	props := l.Properties()
	termProp := props.NameID(extract.PropTerminal)

	tagged := 0
	l.Cell(top).Shapes(gateLayer).Each(func(s layout.Shape) {
		if v, ok := props.Value(s.PropsID, termProp); ok {
			ref := v.(extract.TerminalRef)
			require.NotZero(t, ref.DeviceID)
			tagged++
		}
	})
	require.Equal(t, 1, tagged, "one tagged gate terminal shape")
}

// TestLayerCountMismatch rejects wrong input layer vectors.
func TestLayerCountMismatch(t *testing.T) {
	l, top, ex := newMOSExtraction()
	addMOS(l.Cell(top), 0, 10)

	err := ex.Extract(l, top, []int{gateLayer}, netlist.NewNetlist(), cluster.NewHierClusters())
	require.ErrorIs(t, err, extract.ErrLayerCountMismatch)
}

// duplicateClassDelegate registers two device classes.
type duplicateClassDelegate struct{ mosDelegate }

func (d *duplicateClassDelegate) Setup(ex *extract.DeviceExtractor) error {
	if err := d.mosDelegate.Setup(ex); err != nil {
		return err
	}
	return ex.RegisterDeviceClass(netlist.NewDeviceClass(""))
}

// TestDuplicateDeviceClassRejected: the second registration is fatal.
func TestDuplicateDeviceClassRejected(t *testing.T) {
	l := layout.NewLayout()
	top := l.AddCell("TOP")

	ex := extract.NewDeviceExtractor("MOS", &duplicateClassDelegate{})
	err := ex.Extract(l, top, []int{gateLayer, diffLayer}, netlist.NewNetlist(), cluster.NewHierClusters())
	require.ErrorIs(t, err, extract.ErrDeviceClassRegistered)
}

// classlessDelegate declares layers but never registers a class.
type classlessDelegate struct{ mosDelegate }

func (d *classlessDelegate) Setup(ex *extract.DeviceExtractor) error {
	d.gateIdx = ex.DefineLayer("G", "gate poly")
	d.diffIdx = ex.DefineLayer("SD", "source/drain diffusion")
	return nil
}

// TestCreateDeviceWithoutClassFatal: CreateDevice without a registered
// class aborts the extraction.
func TestCreateDeviceWithoutClassFatal(t *testing.T) {
	l, top, _ := newMOSExtraction()
	addMOS(l.Cell(top), 0, 10)

	ex := extract.NewDeviceExtractor("MOS", &classlessDelegate{})
	err := ex.Extract(l, top, []int{gateLayer, diffLayer}, netlist.NewNetlist(), cluster.NewHierClusters())
	require.ErrorIs(t, err, extract.ErrNoDeviceClass)
}

// TestDeepMode resolves input layers by name from a deep store and rejects
// foreign stores and missing layers.
func TestDeepMode(t *testing.T) {
	l, top, ex := newMOSExtraction()
	addMOS(l.Cell(top), 0, 10)

	dss := extract.NewDeepShapeStore(l, top)
	layerMap := map[string]*extract.DeepLayer{
		"G":  dss.Layer(gateLayer),
		"SD": dss.Layer(diffLayer),
	}

	nl := netlist.NewNetlist()
	require.NoError(t, ex.ExtractDeep(dss, layerMap, nl, cluster.NewHierClusters()))
	_, ok := l.CellByName("D$MOS")
	require.True(t, ok)

	// missing layer
	err := ex.ExtractDeep(dss, map[string]*extract.DeepLayer{"G": dss.Layer(gateLayer)},
		netlist.NewNetlist(), cluster.NewHierClusters())
	require.ErrorIs(t, err, extract.ErrMissingInputLayer)

	// layer backed by another store
	other := extract.NewDeepShapeStore(layout.NewLayout(), 0)
	err = ex.ExtractDeep(dss, map[string]*extract.DeepLayer{
		"G":  dss.Layer(gateLayer),
		"SD": other.Layer(diffLayer),
	}, netlist.NewNetlist(), cluster.NewHierClusters())
	require.ErrorIs(t, err, extract.ErrForeignStore)
}

// reportingDelegate records a categorized problem for every cluster.
type reportingDelegate struct{ mosDelegate }

func (d *reportingDelegate) ExtractDevices(ex *extract.DeviceExtractor, geometry []*extract.Region) error {
	ex.CategorizedErrorRegion("odd-geometry", "unexpected device geometry",
		"cluster does not look like a transistor", geometry[d.gateIdx])
	return nil
}

// TestErrorAccumulation: recoverable errors carry the cell name and
// category and do not abort extraction.
func TestErrorAccumulation(t *testing.T) {
	l, top, _ := newMOSExtraction()
	addMOS(l.Cell(top), 0, 10)
	addMOS(l.Cell(top), 500, 10)

	ex := extract.NewDeviceExtractor("MOS", &reportingDelegate{})
	require.NoError(t, ex.Extract(l, top, []int{gateLayer, diffLayer},
		netlist.NewNetlist(), cluster.NewHierClusters()))

	errs := ex.Errors()
	require.Len(t, errs, 2, "one report per root cluster")
	for _, e := range errs {
		require.Equal(t, "TOP", e.CellName)
		require.Equal(t, "odd-geometry", e.CategoryName)
		require.NotEmpty(t, e.Geometry)
		require.Contains(t, e.Error(), "odd-geometry")
	}
}

// TestNoNetlistRejected rejects extraction without a netlist.
func TestNoNetlistRejected(t *testing.T) {
	l, top, ex := newMOSExtraction()
	err := ex.Extract(l, top, []int{gateLayer, diffLayer}, nil, cluster.NewHierClusters())
	require.ErrorIs(t, err, extract.ErrNoNetlist)
}
