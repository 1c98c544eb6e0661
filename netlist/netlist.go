// Package netlist holds the abstract circuit model produced by device
// extraction: netlists own circuits, circuits own devices, and device
// classes define the shared parameter/terminal schema of their devices.
//
// The model is deliberately flat: no net optimisation, no simulation
// semantics and no persistence. The netlist is an in-memory result handed
// back to the extraction caller.
package netlist

import (
	"errors"

	"github.com/mosaix-eda/mosaix/geom"
	"github.com/mosaix-eda/mosaix/layout"
)

var (
	// ErrDuplicateCircuit indicates a second circuit was added for the same
	// cell index.
	ErrDuplicateCircuit = errors.New("netlist: circuit for this cell already exists")
)

// ParameterDefinition describes one named device parameter. IDs are
// assigned in declaration order.
type ParameterDefinition struct {
	ID          int
	Name        string
	Description string
	Default     float64
}

// TerminalDefinition describes one named device terminal. IDs are assigned
// in declaration order.
type TerminalDefinition struct {
	ID          int
	Name        string
	Description string
}

// DeviceClass is the shared template of all devices of one kind: an ordered
// parameter schema and an ordered terminal schema.
type DeviceClass struct {
	name      string
	params    []ParameterDefinition
	terminals []TerminalDefinition
}

// NewDeviceClass creates a device class with the given name.
func NewDeviceClass(name string) *DeviceClass {
	return &DeviceClass{name: name}
}

// Name returns the class name.
func (dc *DeviceClass) Name() string { return dc.name }

// SetName renames the class; the extractor sets its own name on
// registration.
func (dc *DeviceClass) SetName(name string) { dc.name = name }

// AddParameter declares a parameter and returns its id.
func (dc *DeviceClass) AddParameter(name, description string, def float64) int {
	id := len(dc.params)
	dc.params = append(dc.params, ParameterDefinition{ID: id, Name: name, Description: description, Default: def})
	return id
}

// AddTerminal declares a terminal and returns its id.
func (dc *DeviceClass) AddTerminal(name, description string) int {
	id := len(dc.terminals)
	dc.terminals = append(dc.terminals, TerminalDefinition{ID: id, Name: name, Description: description})
	return id
}

// Parameters returns the parameter definitions in declaration order.
func (dc *DeviceClass) Parameters() []ParameterDefinition { return dc.params }

// Terminals returns the terminal definitions in declaration order.
func (dc *DeviceClass) Terminals() []TerminalDefinition { return dc.terminals }

// Device is one extracted electronic element. Devices are created through
// Circuit.AddDevice; ids are unique per netlist.
type Device struct {
	id      int
	class   *DeviceClass
	circuit *Circuit

	params map[int]float64

	position geom.Point
	posSet   bool
}

// ID returns the device id (unique within the netlist).
func (d *Device) ID() int { return d.id }

// Class returns the device class.
func (d *Device) Class() *DeviceClass { return d.class }

// Circuit returns the owning circuit.
func (d *Device) Circuit() *Circuit { return d.circuit }

// SetParameter stores a parameter value by id.
func (d *Device) SetParameter(id int, v float64) {
	if d.params == nil {
		d.params = make(map[int]float64)
	}
	d.params[id] = v
}

// Parameter returns the stored value of a parameter, falling back to the
// class default.
func (d *Device) Parameter(id int) float64 {
	if v, ok := d.params[id]; ok {
		return v
	}
	if id >= 0 && id < len(d.class.params) {
		return d.class.params[id].Default
	}
	return 0
}

// Parameters returns the explicitly set parameter values. Callers must not
// mutate the map.
func (d *Device) Parameters() map[int]float64 { return d.params }

// SetPosition records the device's reference position in its cell's frame.
func (d *Device) SetPosition(p geom.Point) {
	d.position = p
	d.posSet = true
}

// Position returns the recorded position; ok is false when none was set.
func (d *Device) Position() (p geom.Point, ok bool) { return d.position, d.posSet }

// Circuit is the per-cell netlist container.
type Circuit struct {
	cell    layout.CellIndex
	name    string
	netlist *Netlist
	devices []*Device
}

// CellIndex returns the layout cell this circuit annotates.
func (c *Circuit) CellIndex() layout.CellIndex { return c.cell }

// Name returns the circuit name (usually the cell name).
func (c *Circuit) Name() string { return c.name }

// Devices returns the circuit's devices in creation order. Callers must not
// mutate the slice.
func (c *Circuit) Devices() []*Device { return c.devices }

// AddDevice creates a device of the given class in this circuit. The id is
// assigned by the owning netlist.
func (c *Circuit) AddDevice(class *DeviceClass) *Device {
	d := &Device{id: c.netlist.nextDeviceID, class: class, circuit: c}
	c.netlist.nextDeviceID++
	c.devices = append(c.devices, d)
	return d
}

// Netlist owns circuits and registered device classes.
type Netlist struct {
	circuits []*Circuit
	byCell   map[layout.CellIndex]*Circuit
	classes  []*DeviceClass

	nextDeviceID int
}

// NewNetlist creates an empty netlist. Device ids start at 1 so that 0 can
// serve as "no device" in property values.
func NewNetlist() *Netlist {
	return &Netlist{byCell: make(map[layout.CellIndex]*Circuit), nextDeviceID: 1}
}

// AddCircuit creates the circuit for a cell index. Adding a second circuit
// for the same cell fails with ErrDuplicateCircuit.
func (n *Netlist) AddCircuit(cell layout.CellIndex, name string) (*Circuit, error) {
	if _, exists := n.byCell[cell]; exists {
		return nil, ErrDuplicateCircuit
	}
	c := &Circuit{cell: cell, name: name, netlist: n}
	n.circuits = append(n.circuits, c)
	n.byCell[cell] = c
	return c, nil
}

// CircuitByCell looks up the circuit annotating a cell.
func (n *Netlist) CircuitByCell(cell layout.CellIndex) (*Circuit, bool) {
	c, ok := n.byCell[cell]
	return c, ok
}

// Circuits returns the circuits in creation order. Callers must not mutate
// the slice.
func (n *Netlist) Circuits() []*Circuit { return n.circuits }

// AddDeviceClass registers a device class with the netlist.
func (n *Netlist) AddDeviceClass(dc *DeviceClass) { n.classes = append(n.classes, dc) }

// DeviceClasses returns the registered classes in registration order.
func (n *Netlist) DeviceClasses() []*DeviceClass { return n.classes }
