package dm

import (
	"github.com/google/uuid"
)

// Device is a bound (and possibly probed) instance of a Driver,
// linked into the runtime tree and into its uclass's member list
// (spec §3, "udevice"). Structural mutations — parent, children,
// uclass membership — are the binder's job, undone only by Unbind;
// this type otherwise exposes accessors and lifecycle methods only.
type Device struct {
	id   uuid.UUID
	name string

	driver *Driver
	uclass *Uclass

	parent   *Device
	children []*Device

	node     interface{} // HDT node handle, or nil
	platData interface{}
	priv     interface{}
	uclassPriv interface{}
	parentPriv interface{}
	matchData  interface{}

	flags Flag
	tags  map[string]string
}

// NewDevice allocates a device record. It does not link the device
// into any tree or uclass; that's the binder's job.
func NewDevice(name string, driver *Driver) *Device {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("dm-device:"+name+":"+driver.Name))
	return &Device{
		id:     id,
		name:   name,
		driver: driver,
	}
}

// ID returns the device's stable identifier.
func (d *Device) ID() uuid.UUID { return d.id }

// Name returns the device's owned name.
func (d *Device) Name() string { return d.name }

// Driver returns the device's bound driver.
func (d *Device) Driver() *Driver { return d.driver }

// Uclass returns the uclass this device is a member of, or nil before
// binding completes.
func (d *Device) Uclass() *Uclass { return d.uclass }

// Parent returns the device's parent, or nil for the root device.
func (d *Device) Parent() *Device { return d.parent }

// Children returns the device's children in bind order. The returned
// slice must not be mutated by callers.
func (d *Device) Children() []*Device { return d.children }

// Node returns the device's HDT node handle, or nil if it was bound
// from a static descriptor.
func (d *Device) Node() interface{} { return d.node }

// PlatData returns the device's platform-data handle.
func (d *Device) PlatData() interface{} { return d.platData }

// SetPlatData sets the device's platform-data handle and marks it valid.
func (d *Device) SetPlatData(p interface{}) {
	d.platData = p
	d.flags = d.flags.Set(FlagPlatdataValid)
}

// Priv returns the device's private data handle, populated during probe.
func (d *Device) Priv() interface{} { return d.priv }

// SetPriv sets the device's private data handle.
func (d *Device) SetPriv(p interface{}) { d.priv = p }

// UclassPriv returns the device's per-uclass private data handle.
func (d *Device) UclassPriv() interface{} { return d.uclassPriv }

// SetUclassPriv sets the device's per-uclass private data handle.
func (d *Device) SetUclassPriv(p interface{}) { d.uclassPriv = p }

// ParentPriv returns the device's per-parent private data handle.
func (d *Device) ParentPriv() interface{} { return d.parentPriv }

// SetParentPriv sets the device's per-parent private data handle.
func (d *Device) SetParentPriv(p interface{}) { d.parentPriv = p }

// MatchData returns the opaque match data the compatible-string match
// recorded when this device was bound from an HDT node.
func (d *Device) MatchData() interface{} { return d.matchData }

// Flags returns the device's current lifecycle flags.
func (d *Device) Flags() Flag { return d.flags }

// Tag returns a board-specific annotation attached to the device, and
// whether it was set.
func (d *Device) Tag(key string) (string, bool) {
	v, ok := d.tags[key]
	return v, ok
}

// SetTag attaches a board-specific annotation to the device, e.g.
// "vital" or "removable", consulted by teardown sweeps.
func (d *Device) SetTag(key, value string) {
	if d.tags == nil {
		d.tags = map[string]string{}
	}
	d.tags[key] = value
}

// IsBound reports whether the device has completed bind().
func (d *Device) IsBound() bool { return d.flags.Has(FlagBound) }

// IsActivated reports whether the device has completed probe().
func (d *Device) IsActivated() bool { return d.flags.Has(FlagActivated) }
