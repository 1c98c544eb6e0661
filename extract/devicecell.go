package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mosaix-eda/mosaix/cluster"
	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/layout"
	"github.com/mosaix-eda/mosaix/netlist"
)

// DeviceModel describes one canonical device cell: the cell holding the
// terminal geometry of a device archetype and the cluster each terminal's
// geometry was seeded into. All devices with equal normalised terminal
// geometry and parameter values share one model.
type DeviceModel struct {
	cell             layout.CellIndex
	terminalClusters map[int]cluster.ClusterID
}

// CellIndex returns the device cell.
func (m *DeviceModel) CellIndex() layout.CellIndex { return m.cell }

// TerminalCluster returns the cluster id seeded for a terminal's geometry
// within the device cell (0 when the terminal has none).
func (m *DeviceModel) TerminalCluster(terminalID int) cluster.ClusterID {
	return m.terminalClusters[terminalID]
}

// pendingDevice accumulates the terminal geometry reported for one device
// during ExtractDevices, until the device folds.
type pendingDevice struct {
	dev       *netlist.Device
	terminals map[int]map[int][]geom.Polygon // terminal id -> geometry index -> polygons
}

// foldPendingDevices turns the devices reported by the last ExtractDevices
// call into device-cell instances: terminal geometry is normalised to the
// device position, matched against the registry, and the including cell
// receives an instance tagged with the device id. New archetypes allocate
// a device cell named D$<class>, tagged with the class name, its terminal
// shapes tagged with their terminal id and seeded as clusters.
func (ex *DeviceExtractor) foldPendingDevices() {
	props := ex.lay.Properties()

	for _, pd := range ex.pending {
		pos, ok := pd.dev.Position()
		if !ok {
			pos = pd.combinedBBox().LowerLeft()
			pd.dev.SetPosition(pos)
		}
		off := geom.Vector{DX: pos.X, DY: pos.Y}

		key := ex.deviceKey(pd, off)
		model, hit := ex.registry[key]
		if !hit {
			ci := ex.lay.AddCell("D$" + pd.dev.Class().Name())
			devCell := ex.lay.Cell(ci)
			devCell.SetPropertiesID(props.PropertiesID(layout.PropertySet{
				ex.deviceClassProp: pd.dev.Class().Name(),
			}))

			model = &DeviceModel{cell: ci, terminalClusters: make(map[int]cluster.ClusterID)}

			for _, tid := range sortedTerminalIDs(pd.terminals) {
				pi := props.PropertiesID(layout.PropertySet{ex.terminalIDProp: tid})

				var seed []cluster.ClusterShape
				for _, gi := range sortedKeys(pd.terminals[tid]) {
					for _, poly := range pd.terminals[tid][gi] {
						ref := layout.NewPolygonRef(poly.Translated(off.Negated()), ex.lay.Repository())
						sh := layout.RefShape(ref)
						sh.PropsID = pi
						devCell.Shapes(ex.layers[gi]).Insert(sh)
						seed = append(seed, cluster.ClusterShape{Layer: ex.layers[gi], Ref: ref})
					}
				}
				model.terminalClusters[tid] = ex.clusters.MakeCluster(ci, seed)
			}

			ex.registry[key] = model
			ex.logger.Debug("new device cell",
				"name", ex.lay.CellName(ci), "class", pd.dev.Class().Name())
		}

		inst := layout.NewCellInst(model.cell, geom.Translation(off))
		inst.PropsID = props.PropertiesID(layout.PropertySet{ex.deviceIDProp: pd.dev.ID()})
		ex.lay.Cell(ex.cellIndex).Insert(inst)
	}

	ex.pending = ex.pending[:0]
}

// deviceKey builds the canonical registry key: per-terminal, per-layer
// polygon sets translated to the device origin, plus the parameter values.
func (ex *DeviceExtractor) deviceKey(pd *pendingDevice, off geom.Vector) string {
	var sb strings.Builder

	for _, tid := range sortedTerminalIDs(pd.terminals) {
		for _, gi := range sortedKeys(pd.terminals[tid]) {
			polys := make([]string, 0, len(pd.terminals[tid][gi]))
			for _, poly := range pd.terminals[tid][gi] {
				polys = append(polys, poly.Translated(off.Negated()).String())
			}
			sort.Strings(polys)
			fmt.Fprintf(&sb, "t%d@%d:%s;", tid, gi, strings.Join(polys, ","))
		}
	}

	params := pd.dev.Parameters()
	ids := make([]int, 0, len(params))
	for id := range params {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Fprintf(&sb, "p%d=%v;", id, params[id])
	}

	return sb.String()
}

// combinedBBox is the bounding box over all accumulated terminal geometry;
// its lower-left corner is the default device position.
func (pd *pendingDevice) combinedBBox() geom.Box {
	b := geom.EmptyBox()
	for _, byLayer := range pd.terminals {
		for _, polys := range byLayer {
			for _, p := range polys {
				b = b.Union(p.BBox())
			}
		}
	}
	return b
}

func sortedTerminalIDs(m map[int]map[int][]geom.Polygon) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func sortedKeys(m map[int][]geom.Polygon) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
