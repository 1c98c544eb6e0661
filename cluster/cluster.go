// Package cluster builds connected-shape clusters over the layers of a
// hierarchical layout. Two shapes belong to the same cluster when their
// layers are conductively connected (per a Connectivity relation) and their
// geometry interacts. Clusters are computed per cell; a cluster whose
// geometry interacts with geometry at the including-cell level has an
// upward connection and is no longer a root in its own cell.
//
// Interaction is tested on bounding boxes. Exact polygon interaction is the
// geometry engine's concern; for cluster formation the box test is the
// conservative approximation the rest of the engine is built against.
//
// The package is the clustering collaborator of the device extractor: the
// extractor walks root clusters per cell and seeds fresh clusters into
// device cells through MakeCluster rather than reaching into cluster
// internals.
package cluster

import (
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/layout"
)

// Connectivity describes which layer pairs are conductively connected.
// Connections are symmetric; intra-layer connection must be declared
// explicitly via Connect.
type Connectivity struct {
	conn map[int]map[int]bool
}

// NewConnectivity creates an empty relation.
func NewConnectivity() *Connectivity {
	return &Connectivity{conn: make(map[int]map[int]bool)}
}

// Connect declares that shapes on layer connect among themselves.
func (c *Connectivity) Connect(layer int) *Connectivity {
	c.add(layer, layer)
	return c
}

// ConnectLayers declares that shapes on layer a connect to shapes on
// layer b (and vice versa).
func (c *Connectivity) ConnectLayers(a, b int) *Connectivity {
	c.add(a, b)
	c.add(b, a)
	return c
}

func (c *Connectivity) add(a, b int) {
	m, ok := c.conn[a]
	if !ok {
		m = make(map[int]bool)
		c.conn[a] = m
	}
	m[b] = true
}

// Connected reports whether layers a and b are declared connected.
func (c *Connectivity) Connected(a, b int) bool { return c.conn[a][b] }

// ClusterID identifies a cluster within its cell. 0 is "no cluster".
type ClusterID int

// ClusterShape is one shape of a cluster: a polygon reference on a layer.
type ClusterShape struct {
	Layer int
	Ref   layout.PolygonRef
}

// ChildRef connects a cluster to a cluster of an instantiated child cell.
type ChildRef struct {
	Cell    layout.CellIndex
	Cluster ClusterID
	Trans   geom.Trans
}

// Cluster is a connected component of shapes within one cell, plus
// references to connected child-cell clusters.
type Cluster struct {
	id       ClusterID
	shapes   []ClusterShape
	children []ChildRef
	root     bool
}

// ID returns the cluster id.
func (cl *Cluster) ID() ClusterID { return cl.id }

// Shapes returns the cluster's own shapes. Callers must not mutate the
// slice.
func (cl *Cluster) Shapes() []ClusterShape { return cl.shapes }

// Children returns the connected child-cluster references.
func (cl *Cluster) Children() []ChildRef { return cl.children }

// CellClusters holds the clusters of one cell.
type CellClusters struct {
	clusters []*Cluster
}

// Len returns the number of clusters.
func (cc *CellClusters) Len() int {
	if cc == nil {
		return 0
	}
	return len(cc.clusters)
}

// Each calls fn for every cluster in id order.
func (cc *CellClusters) Each(fn func(cl *Cluster)) {
	if cc == nil {
		return
	}
	for _, cl := range cc.clusters {
		fn(cl)
	}
}

// Cluster returns the cluster with the given id, nil if unknown.
func (cc *CellClusters) Cluster(id ClusterID) *Cluster {
	if cc == nil || id < 1 || int(id) > len(cc.clusters) {
		return nil
	}
	return cc.clusters[id-1]
}

// IsRoot reports whether the cluster has no upward connection: it is a
// whole sub-net at this cell level.
func (cc *CellClusters) IsRoot(id ClusterID) bool {
	cl := cc.Cluster(id)
	return cl != nil && cl.root
}

func (cc *CellClusters) add(shapes []ClusterShape) *Cluster {
	cl := &Cluster{id: ClusterID(len(cc.clusters) + 1), shapes: shapes, root: true}
	cc.clusters = append(cc.clusters, cl)
	return cl
}

// Option configures a HierClusters engine.
type Option func(*HierClusters)

// WithLogger installs a logger for build progress (debug level).
func WithLogger(l *log.Logger) Option {
	return func(h *HierClusters) {
		if l != nil {
			h.logger = l
		}
	}
}

var nopLogger = log.NewWithOptions(io.Discard, log.Options{})

// HierClusters is the hierarchical cluster graph of one layout.
type HierClusters struct {
	layout *layout.Layout
	cells  map[layout.CellIndex]*CellClusters
	logger *log.Logger
}

// NewHierClusters creates an empty engine. Build populates it.
func NewHierClusters(opts ...Option) *HierClusters {
	h := &HierClusters{
		cells:  make(map[layout.CellIndex]*CellClusters),
		logger: nopLogger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ClustersOf returns the clusters of a cell (nil when the cell has none).
func (h *HierClusters) ClustersOf(ci layout.CellIndex) *CellClusters { return h.cells[ci] }

// MakeCluster seeds a fresh root cluster with the given shapes into cell
// ci. Used by the device extractor to register canonical terminal clusters
// of device cells.
func (h *HierClusters) MakeCluster(ci layout.CellIndex, shapes []ClusterShape) ClusterID {
	cc, ok := h.cells[ci]
	if !ok {
		cc = &CellClusters{}
		h.cells[ci] = cc
	}
	return cc.add(shapes).id
}

// BuildOption configures one Build run.
type BuildOption func(*buildConfig)

type buildConfig struct {
	skip func(c *layout.Cell) bool
}

// SkipCells excludes cells matched by pred from cluster formation. The
// device extractor uses this to keep device cells of a previous extraction
// out of the cluster graph.
func SkipCells(pred func(c *layout.Cell) bool) BuildOption {
	return func(cfg *buildConfig) { cfg.skip = pred }
}

// Build computes per-cell clusters for all cells reachable from top over
// the given layers, then resolves hierarchical connections bottom-up.
// Complexity: O(s²) per cell over its shape count, plus the pairwise
// interaction tests across instance boundaries.
func (h *HierClusters) Build(l *layout.Layout, top layout.CellIndex, layers []int, conn *Connectivity, opts ...BuildOption) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	h.layout = l
	h.cells = make(map[layout.CellIndex]*CellClusters)

	cells := map[layout.CellIndex]struct{}{top: {}}
	if c := l.Cell(top); c != nil {
		c.CollectCalledCells(cells)
	}

	order := make([]layout.CellIndex, 0, len(cells))
	for ci := range cells {
		order = append(order, ci)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	for _, ci := range order {
		cell := l.Cell(ci)
		if cfg.skip != nil && cfg.skip(cell) {
			h.cells[ci] = &CellClusters{}
			continue
		}
		h.cells[ci] = h.buildLocal(cell, layers, conn)
	}
	h.logger.Debug("local clusters built", "cells", len(order))

	// Resolve cross-boundary connections bottom-up: leaf cells first so
	// child cluster extents are final when their parents are examined.
	sort.Slice(order, func(i, j int) bool {
		return h.cellDepth(order[i]) < h.cellDepth(order[j])
	})
	for _, ci := range order {
		h.connectHierarchy(l.Cell(ci), conn)
	}
}

// buildLocal forms connected components over the cell's own shapes using a
// breadth-first sweep over the interaction relation.
func (h *HierClusters) buildLocal(cell *layout.Cell, layers []int, conn *Connectivity) *CellClusters {
	cc := &CellClusters{}
	if cell == nil {
		return cc
	}

	var shapes []ClusterShape
	for _, layer := range layers {
		cell.ShapesIfPresent(layer).Each(func(s layout.Shape) {
			poly, ok := s.Polygon()
			if !ok {
				return
			}
			shapes = append(shapes, ClusterShape{
				Layer: layer,
				Ref:   layout.NewPolygonRef(poly, cell.Layout().Repository()),
			})
		})
	}

	seen := make([]bool, len(shapes))
	for i := range shapes {
		if seen[i] {
			continue
		}
		// BFS to collect the component
		queue := []int{i}
		seen[i] = true
		var comp []ClusterShape

		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			comp = append(comp, shapes[u])
			for v := range shapes {
				if seen[v] {
					continue
				}
				if conn.Connected(shapes[u].Layer, shapes[v].Layer) &&
					shapes[u].Ref.BBox().Touches(shapes[v].Ref.BBox()) {
					seen[v] = true
					queue = append(queue, v)
				}
			}
		}
		cc.add(comp)
	}
	return cc
}

// connectHierarchy links the clusters of cell to the clusters of its child
// instances and demotes connected child clusters from root status.
func (h *HierClusters) connectHierarchy(cell *layout.Cell, conn *Connectivity) {
	if cell == nil {
		return
	}
	cc := h.cells[cell.Index()]

	type placed struct {
		cell  layout.CellIndex
		cl    *Cluster
		trans geom.Trans
	}
	var below []placed
	for _, inst := range cell.Insts() {
		childCC := h.cells[inst.Cell]
		if childCC == nil {
			continue
		}
		inst.EachMember(func(t geom.Trans) {
			childCC.Each(func(cl *Cluster) {
				below = append(below, placed{cell: inst.Cell, cl: cl, trans: t})
			})
		})
	}

	// own clusters vs placed child clusters
	cc.Each(func(own *Cluster) {
		for _, p := range below {
			if h.clustersInteract(own.shapes, geom.Identity(), p.cell, p.cl, p.trans, conn) {
				own.children = append(own.children, ChildRef{Cell: p.cell, Cluster: p.cl.id, Trans: p.trans})
				p.cl.root = false
			}
		}
	})

	// placed child clusters against each other: connected pairs join in a
	// connector cluster of the parent with no own shapes
	for i := 0; i < len(below); i++ {
		for j := i + 1; j < len(below); j++ {
			a, b := below[i], below[j]
			if a.cl == b.cl && a.trans == b.trans {
				continue
			}
			if !a.cl.root && !b.cl.root {
				continue
			}
			if h.placedInteract(a.cell, a.cl, a.trans, b.cell, b.cl, b.trans, conn) {
				connector := cc.add(nil)
				connector.children = append(connector.children,
					ChildRef{Cell: a.cell, Cluster: a.cl.id, Trans: a.trans},
					ChildRef{Cell: b.cell, Cluster: b.cl.id, Trans: b.trans})
				a.cl.root = false
				b.cl.root = false
			}
		}
	}
}

// clustersInteract tests shapes of one cluster against the flattened
// extent of a placed cluster.
func (h *HierClusters) clustersInteract(shapes []ClusterShape, trans geom.Trans, otherCell layout.CellIndex, other *Cluster, otherTrans geom.Trans, conn *Connectivity) bool {
	for _, s := range shapes {
		sb := s.Ref.BBox().Transformed(trans)
		for layer := range conn.conn {
			if !conn.Connected(s.Layer, layer) {
				continue
			}
			ob := h.clusterLayerBBox(otherCell, other, layer).Transformed(otherTrans)
			if sb.Touches(ob) {
				return true
			}
		}
	}
	return false
}

// placedInteract tests two placed clusters layer-pair-wise.
func (h *HierClusters) placedInteract(aCell layout.CellIndex, a *Cluster, at geom.Trans, bCell layout.CellIndex, b *Cluster, bt geom.Trans, conn *Connectivity) bool {
	for la, partners := range conn.conn {
		ab := h.clusterLayerBBox(aCell, a, la).Transformed(at)
		if ab.Empty() {
			continue
		}
		for lb := range partners {
			bb := h.clusterLayerBBox(bCell, b, lb).Transformed(bt)
			if ab.Touches(bb) {
				return true
			}
		}
	}
	return false
}

// clusterLayerBBox returns the flattened bounding box of a cluster's
// geometry on one layer, including connected child clusters.
func (h *HierClusters) clusterLayerBBox(ci layout.CellIndex, cl *Cluster, layer int) geom.Box {
	b := geom.EmptyBox()
	for _, s := range cl.shapes {
		if s.Layer == layer {
			b = b.Union(s.Ref.BBox())
		}
	}
	for _, ch := range cl.children {
		childCC := h.cells[ch.Cell]
		if child := childCC.Cluster(ch.Cluster); child != nil {
			b = b.Union(h.clusterLayerBBox(ch.Cell, child, layer).Transformed(ch.Trans))
		}
	}
	return b
}

// cellDepth returns the height of a cell's instantiation subtree.
func (h *HierClusters) cellDepth(ci layout.CellIndex) int {
	cell := h.layout.Cell(ci)
	if cell == nil {
		return 0
	}
	depth := 0
	for _, inst := range cell.Insts() {
		if d := h.cellDepth(inst.Cell) + 1; d > depth {
			depth = d
		}
	}
	return depth
}

// PlacedShape is a cluster shape flattened under its hierarchical
// transformation.
type PlacedShape struct {
	Ref   layout.PolygonRef
	Trans geom.Trans
}

// RecursiveClusterShapes returns all shapes of a cluster on one layer,
// including connected child clusters, each with the transformation into the
// cluster's cell frame.
func (h *HierClusters) RecursiveClusterShapes(layer int, ci layout.CellIndex, id ClusterID) []PlacedShape {
	cc := h.cells[ci]
	cl := cc.Cluster(id)
	if cl == nil {
		return nil
	}
	return h.collectShapes(cl, layer, geom.Identity(), nil)
}

func (h *HierClusters) collectShapes(cl *Cluster, layer int, trans geom.Trans, out []PlacedShape) []PlacedShape {
	for _, s := range cl.shapes {
		if s.Layer == layer {
			out = append(out, PlacedShape{Ref: s.Ref, Trans: trans})
		}
	}
	for _, ch := range cl.children {
		childCC := h.cells[ch.Cell]
		if child := childCC.Cluster(ch.Cluster); child != nil {
			out = h.collectShapes(child, layer, geom.Compose(trans, ch.Trans), out)
		}
	}
	return out
}
