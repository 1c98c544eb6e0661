package extract

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/mosaix-eda/mosaix/cluster"
	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/layout"
	"github.com/mosaix-eda/mosaix/netlist"
)

// Property names registered on the target layout.
const (
	// PropTerminal is the legacy in-line terminal marker; its value is a
	// TerminalRef.
	PropTerminal = "TERMINAL"
	// PropTerminalID tags device-cell shapes with the terminal index.
	PropTerminalID = "TERMINAL_ID"
	// PropDeviceID tags device-cell instances with the device id.
	PropDeviceID = "DEVICE_ID"
	// PropDeviceClass on a cell marks it as a device cell and names the
	// class.
	PropDeviceClass = "DEVICE_CLASS"
)

// TerminalRef is the value stored under the legacy TERMINAL property.
type TerminalRef struct {
	DeviceID   int
	TerminalID int
}

// LayerDefinition describes one declared input layer of an extractor. The
// Index is the geometry index: the position of the layer's Region in the
// slice handed to ExtractDevices.
type LayerDefinition struct {
	Name        string
	Description string
	Index       int
}

// Delegate is the device-specific part of an extractor.
type Delegate interface {
	// Setup declares input layers via DefineLayer and registers the device
	// class via RegisterDeviceClass.
	Setup(ex *DeviceExtractor) error
	// Connectivity describes which of the resolved input layers conduct
	// within a single device signature.
	Connectivity(l *layout.Layout, layers []int) *cluster.Connectivity
	// ExtractDevices inspects one root cluster's geometry (one Region per
	// declared layer, in declaration order) and reports devices through
	// CreateDevice/DefineTerminal and problems through the error helpers.
	ExtractDevices(ex *DeviceExtractor, geometry []*Region) error
}

// Option configures a DeviceExtractor.
type Option func(*DeviceExtractor)

// WithLogger installs a logger for extraction progress (debug level).
func WithLogger(l *log.Logger) Option {
	return func(ex *DeviceExtractor) {
		if l != nil {
			ex.logger = l
		}
	}
}

// WithInlineTerminals selects the legacy data model: terminal polygons are
// written directly into the including cell under the TERMINAL property
// instead of folding devices into canonical device cells.
func WithInlineTerminals() Option {
	return func(ex *DeviceExtractor) { ex.cellMode = false }
}

var nopLogger = log.NewWithOptions(io.Discard, log.Options{})

// DeviceExtractor drives hierarchical cluster-based device extraction. One
// extractor handles exactly one device class, declared by its Delegate.
//
// The extractor owns no long-lived data: the netlist is handed back to the
// caller, the layout is a non-owning handle, and per-call state is reset on
// every Extract. The device-cell registry persists across calls on the
// same target layout so that re-extraction reuses canonical device cells.
type DeviceExtractor struct {
	name     string
	delegate Delegate
	logger   *log.Logger
	cellMode bool

	layerDefs   []LayerDefinition
	deviceClass *netlist.DeviceClass

	nl       *netlist.Netlist
	lay      *layout.Layout
	layers   []int
	clusters *cluster.HierClusters

	cellIndex layout.CellIndex
	circuit   *netlist.Circuit

	terminalProp    layout.NameID
	terminalIDProp  layout.NameID
	deviceIDProp    layout.NameID
	deviceClassProp layout.NameID

	errs    []Error
	pending []*pendingDevice

	registry       map[string]*DeviceModel
	registryLayout *layout.Layout
}

// NewDeviceExtractor creates an extractor. name becomes the device class
// name on registration.
func NewDeviceExtractor(name string, delegate Delegate, opts ...Option) *DeviceExtractor {
	ex := &DeviceExtractor{
		name:     name,
		delegate: delegate,
		logger:   nopLogger,
		cellMode: true,
	}
	for _, opt := range opts {
		opt(ex)
	}
	return ex
}

// Name returns the extractor (and device class) name.
func (ex *DeviceExtractor) Name() string { return ex.name }

// Errors returns the recoverable problems accumulated by the last
// extraction, in report order.
func (ex *DeviceExtractor) Errors() []Error { return ex.errs }

// Layout returns the layout of the running or most recent extraction (nil
// before the first one).
func (ex *DeviceExtractor) Layout() *layout.Layout { return ex.lay }

// CellIndex returns the cell currently being processed.
func (ex *DeviceExtractor) CellIndex() layout.CellIndex { return ex.cellIndex }

// CellName returns the name of the cell currently being processed.
func (ex *DeviceExtractor) CellName() string {
	if ex.lay == nil {
		return ""
	}
	return ex.lay.CellName(ex.cellIndex)
}

// LayerDefinitions returns the declared layers in declaration order.
func (ex *DeviceExtractor) LayerDefinitions() []LayerDefinition { return ex.layerDefs }

// Extract runs flat-ish mode: the input layers are given as layer numbers
// of the layout, matching the declared layer definitions in order. Devices
// land in nl; the cluster graph is built into hc.
func (ex *DeviceExtractor) Extract(l *layout.Layout, top layout.CellIndex, layers []int, nl *netlist.Netlist, hc *cluster.HierClusters) error {
	if err := ex.initialize(nl); err != nil {
		return err
	}
	return ex.run(l, top, layers, hc)
}

// ExtractDeep runs deep mode: inputs are named deep layers which must all
// originate from the given store.
func (ex *DeviceExtractor) ExtractDeep(dss *DeepShapeStore, layerMap map[string]*DeepLayer, nl *netlist.Netlist, hc *cluster.HierClusters) error {
	if err := ex.initialize(nl); err != nil {
		return err
	}

	layers := make([]int, 0, len(ex.layerDefs))
	for _, ld := range ex.layerDefs {
		dl, ok := layerMap[ld.Name]
		if !ok || dl == nil {
			return fmt.Errorf("%w: %s", ErrMissingInputLayer, ld.Name)
		}
		if dl.Store != dss {
			return fmt.Errorf("%w: input layer %s", ErrForeignStore, ld.Name)
		}
		layers = append(layers, dl.Layer)
	}

	return ex.run(dss.Layout(), dss.InitialCell(), layers, hc)
}

// initialize resets per-call state and runs the delegate's declaration
// phase.
func (ex *DeviceExtractor) initialize(nl *netlist.Netlist) error {
	if nl == nil {
		return ErrNoNetlist
	}
	ex.layerDefs = nil
	ex.deviceClass = nil
	ex.errs = nil
	ex.pending = nil
	ex.nl = nl

	return ex.delegate.Setup(ex)
}

// run is the extraction algorithm proper.
func (ex *DeviceExtractor) run(l *layout.Layout, top layout.CellIndex, layers []int, hc *cluster.HierClusters) error {
	if len(layers) != len(ex.layerDefs) {
		return ErrLayerCountMismatch
	}

	ex.lay = l
	ex.layers = layers
	ex.clusters = hc

	if ex.registryLayout != l {
		ex.registry = make(map[string]*DeviceModel)
		ex.registryLayout = l
	}

	props := l.Properties()
	ex.terminalProp = props.NameID(PropTerminal)
	ex.terminalIDProp = props.NameID(PropTerminalID)
	ex.deviceIDProp = props.NameID(PropDeviceID)
	ex.deviceClassProp = props.NameID(PropDeviceClass)

	// collect the cells below the top cell (inclusive)
	called := map[layout.CellIndex]struct{}{top: {}}
	l.Cell(top).CollectCalledCells(called)
	order := make([]layout.CellIndex, 0, len(called))
	for ci := range called {
		order = append(order, ci)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	// build the device clusters; device cells of earlier extractions stay
	// out of the cluster graph
	conn := ex.delegate.Connectivity(l, layers)
	hc.Build(l, top, layers, conn, cluster.SkipCells(ex.isDeviceCell))
	ex.logger.Debug("device clusters built", "cells", len(order))

	for _, ci := range order {
		cell := l.Cell(ci)
		if ex.isDeviceCell(cell) {
			continue
		}

		ex.cellIndex = ci
		circuit, ok := ex.nl.CircuitByCell(ci)
		if !ok {
			var err error
			circuit, err = ex.nl.AddCircuit(ci, l.CellName(ci))
			if err != nil {
				return err
			}
		}
		ex.circuit = circuit

		cc := hc.ClustersOf(ci)
		for id := cluster.ClusterID(1); int(id) <= cc.Len(); id++ {
			// only root clusters are whole devices at this level
			if !cc.IsRoot(id) {
				continue
			}

			geometry := make([]*Region, len(layers))
			for gi, layer := range layers {
				r := &Region{}
				for _, ps := range hc.RecursiveClusterShapes(layer, ci, id) {
					r.Insert(ps.Ref.Polygon().Transformed(ps.Trans))
				}
				geometry[gi] = r
			}

			if err := ex.delegate.ExtractDevices(ex, geometry); err != nil {
				return err
			}
			if ex.cellMode {
				ex.foldPendingDevices()
			}
		}
	}

	ex.logger.Debug("extraction done", "errors", len(ex.errs))
	return nil
}

// isDeviceCell reports whether a cell carries the device-class marker of a
// previous extraction.
func (ex *DeviceExtractor) isDeviceCell(c *layout.Cell) bool {
	if c == nil {
		return false
	}
	_, ok := ex.lay.Properties().Value(c.PropertiesID(), ex.deviceClassProp)
	return ok
}

// DefineLayer declares an input layer; the declaration order defines the
// geometry index. Must be called from Setup.
func (ex *DeviceExtractor) DefineLayer(name, description string) int {
	idx := len(ex.layerDefs)
	ex.layerDefs = append(ex.layerDefs, LayerDefinition{Name: name, Description: description, Index: idx})
	return idx
}

// RegisterDeviceClass registers the extractor's device class; exactly one
// class may be registered. The class is renamed to the extractor's name
// and added to the netlist.
func (ex *DeviceExtractor) RegisterDeviceClass(dc *netlist.DeviceClass) error {
	if ex.deviceClass != nil {
		return ErrDeviceClassRegistered
	}
	dc.SetName(ex.name)
	ex.deviceClass = dc
	ex.nl.AddDeviceClass(dc)
	return nil
}

// DeviceClass returns the registered class (nil before registration).
func (ex *DeviceExtractor) DeviceClass() *netlist.DeviceClass { return ex.deviceClass }

// CreateDevice appends a new device of the registered class to the current
// circuit. Fails with ErrNoDeviceClass when Setup registered none.
func (ex *DeviceExtractor) CreateDevice() (*netlist.Device, error) {
	if ex.deviceClass == nil {
		return nil, ErrNoDeviceClass
	}
	d := ex.circuit.AddDevice(ex.deviceClass)
	if ex.cellMode {
		ex.pending = append(ex.pending, &pendingDevice{
			dev:       d,
			terminals: make(map[int]map[int][]geom.Polygon),
		})
	}
	return d, nil
}

// DefineTerminal attaches terminal geometry to a device. In cell-based mode
// the geometry accumulates until the device folds into its device cell; in
// in-line mode it is written into the current cell immediately, tagged with
// the TERMINAL property.
func (ex *DeviceExtractor) DefineTerminal(d *netlist.Device, terminalID, geometryIndex int, poly geom.Polygon) error {
	if geometryIndex < 0 || geometryIndex >= len(ex.layers) {
		return ErrBadGeometryIndex
	}

	if ex.cellMode {
		for _, pd := range ex.pending {
			if pd.dev == d {
				byLayer := pd.terminals[terminalID]
				if byLayer == nil {
					byLayer = make(map[int][]geom.Polygon)
					pd.terminals[terminalID] = byLayer
				}
				byLayer[geometryIndex] = append(byLayer[geometryIndex], poly)
				return nil
			}
		}
		return fmt.Errorf("extract: device %d not created in this cluster", d.ID())
	}

	props := ex.lay.Properties()
	pi := props.PropertiesID(layout.PropertySet{
		ex.terminalProp: TerminalRef{DeviceID: d.ID(), TerminalID: terminalID},
	})

	ref := layout.NewPolygonRef(poly, ex.lay.Repository())
	sh := layout.RefShape(ref)
	sh.PropsID = pi
	ex.lay.Cell(ex.cellIndex).Shapes(ex.layers[geometryIndex]).Insert(sh)
	return nil
}

// DefineTerminalBox is the box overload of DefineTerminal.
func (ex *DeviceExtractor) DefineTerminalBox(d *netlist.Device, terminalID, geometryIndex int, b geom.Box) error {
	return ex.DefineTerminal(d, terminalID, geometryIndex, geom.NewPolygonFromBox(b))
}

// DefineTerminalPoint is the point overload: the point is inflated by one
// database unit in each direction so the marker cannot vanish.
func (ex *DeviceExtractor) DefineTerminalPoint(d *netlist.Device, terminalID, geometryIndex int, p geom.Point) error {
	b := geom.NewBox(p.X-1, p.Y-1, p.X+1, p.Y+1)
	return ex.DefineTerminal(d, terminalID, geometryIndex, geom.NewPolygonFromBox(b))
}

// ReportError records a recoverable problem for the current cell.
func (ex *DeviceExtractor) ReportError(msg string) {
	ex.errs = append(ex.errs, Error{CellName: ex.CellName(), Message: msg})
	ex.logger.Warn("extraction error", "cell", ex.CellName(), "msg", msg)
}

// Errorf records a formatted recoverable problem for the current cell.
func (ex *DeviceExtractor) Errorf(format string, args ...any) {
	ex.ReportError(fmt.Sprintf(format, args...))
}

// ErrorPolygon records a problem with an offending polygon.
func (ex *DeviceExtractor) ErrorPolygon(msg string, poly geom.Polygon) {
	ex.ReportError(msg)
	ex.errs[len(ex.errs)-1].Geometry = []geom.Polygon{poly}
}

// ErrorRegion records a problem with an offending region.
func (ex *DeviceExtractor) ErrorRegion(msg string, r *Region) {
	ex.ReportError(msg)
	ex.errs[len(ex.errs)-1].Geometry = append([]geom.Polygon(nil), r.Polygons()...)
}

// CategorizedError records a problem under a named category.
func (ex *DeviceExtractor) CategorizedError(categoryName, categoryDescription, msg string) {
	ex.ReportError(msg)
	e := &ex.errs[len(ex.errs)-1]
	e.CategoryName = categoryName
	e.CategoryDescription = categoryDescription
}

// CategorizedErrorPolygon records a categorized problem with geometry.
func (ex *DeviceExtractor) CategorizedErrorPolygon(categoryName, categoryDescription, msg string, poly geom.Polygon) {
	ex.CategorizedError(categoryName, categoryDescription, msg)
	ex.errs[len(ex.errs)-1].Geometry = []geom.Polygon{poly}
}

// CategorizedErrorRegion records a categorized problem with a region.
func (ex *DeviceExtractor) CategorizedErrorRegion(categoryName, categoryDescription, msg string, r *Region) {
	ex.CategorizedError(categoryName, categoryDescription, msg)
	ex.errs[len(ex.errs)-1].Geometry = append([]geom.Polygon(nil), r.Polygons()...)
}
