package dm

import (
	"bytes"

	"github.com/google/uuid"

	"github.com/wowk/godm/dmerr"
	"github.com/wowk/godm/dmlog"
)

// DriverSource resolves a driver by name or iterates every registered
// driver, in declaration order. Implemented by dm/registry.Registry.
type DriverSource interface {
	LookupDriver(name string) (*Driver, bool)
	Drivers() []*Driver
}

// Binder turns a descriptor (static entry or HDT node) plus a driver
// into a bound device: it runs the driver's bind hook and links the
// device into its parent, siblings, and uclass (spec §4.3). Apart from
// Device.Unbind, which undoes that linkage at teardown, it is the only
// code that mutates the structural fields of Device/Uclass.
type Binder struct {
	drivers DriverSource
	uclasses *UclassRegistry
	log      dmlog.Logger
}

// NewBinder creates a Binder over the given static driver source and
// live uclass registry.
func NewBinder(drivers DriverSource, uclasses *UclassRegistry, log dmlog.Logger) *Binder {
	if log == nil {
		log = dmlog.NewNop()
	}
	return &Binder{drivers: drivers, uclasses: uclasses, log: log}
}

// BindWithDriver attaches driver to a newly allocated device named
// name under parent, runs the driver's bind hook, and links the
// device into parent's child list and its uclass's member list.
// parent may be nil only when creating the root device.
//
// If the driver's bind hook returns a dmerr.Refused error the device
// is torn down cleanly and BindWithDriver returns that same error;
// any other hook failure also tears the device down and propagates.
func (b *Binder) BindWithDriver(parent *Device, driver *Driver, name string, matchData interface{}, node interface{}) (*Device, error) {
	dev := NewDevice(name, driver)
	dev.node = node
	dev.matchData = matchData

	uclass, err := b.uclasses.Get(driver.UclassID)
	if err != nil {
		return nil, dmerr.Wrap("bind_with_driver", dmerr.DriverError, err, "resolving uclass for "+driver.Name)
	}

	dev.parent = parent
	if parent != nil {
		// Derive the identifier from the parent's so same-named devices
		// under different parents get distinct IDs.
		dev.id = uuid.NewSHA1(parent.id, []byte("dm-device:"+name+":"+driver.Name))
		parent.children = append(parent.children, dev)
	}
	uclass.addMember(dev)

	if driver.Hooks.Bind != nil {
		if err := driver.Hooks.Bind(dev); err != nil {
			b.unlink(dev)
			if dmerr.Is(err, dmerr.Refused) {
				b.log.Debugf("bind refused for %q by driver %q", name, driver.Name)
				return nil, err
			}
			return nil, dmerr.Wrap("bind_with_driver", dmerr.DriverError, err, "bind hook failed for "+name)
		}
	}

	if parent != nil && parent.driver != nil && parent.driver.Hooks.ChildPostBind != nil {
		if err := parent.driver.Hooks.ChildPostBind(dev); err != nil {
			b.unlink(dev)
			return nil, dmerr.Wrap("bind_with_driver", dmerr.DriverError, err, "child_post_bind failed for "+name)
		}
	}

	dev.flags = dev.flags.Set(FlagBound)
	if driver.Flags.Has(FlagProbeAfterBind) {
		dev.flags = dev.flags.Set(FlagProbeAfterBind)
	}
	if driver.Flags.Has(FlagPreReloc) {
		dev.flags = dev.flags.Set(FlagPreReloc)
	}
	return dev, nil
}

// unlink undoes the parent-child and uclass-member linkage BindWithDriver
// sets up before running the bind hook, for when the hook (or
// child_post_bind) fails and the device must be torn down cleanly. A
// uclass left with no members is destroyed as well.
func (b *Binder) unlink(dev *Device) {
	if dev.parent != nil {
		siblings := dev.parent.children
		for i, sib := range siblings {
			if sib == dev {
				dev.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	if u := dev.uclass; u != nil {
		u.removeMember(dev)
		if len(u.members) == 0 {
			if err := b.uclasses.destroy(u.driver.UclassID); err != nil {
				b.log.Warnf("destroying emptied uclass %q: %v", u.driver.UclassID, err)
			}
		}
	}
}

// BindByDescriptor looks up the driver named by descriptor and binds
// it under parent, attaching the descriptor's platform data. Reports
// dmerr.NoDriver if the name isn't registered.
func (b *Binder) BindByDescriptor(parent *Device, desc Descriptor) (*Device, error) {
	driver, ok := b.drivers.LookupDriver(desc.DriverName)
	if !ok {
		return nil, dmerr.New("bind_by_descriptor", dmerr.NoDriver, "no driver registered named "+desc.DriverName)
	}
	name := desc.Name
	if name == "" {
		name = driver.Name
	}
	dev, err := b.BindWithDriver(parent, driver, name, nil, nil)
	if err != nil {
		return nil, err
	}
	dev.SetPlatData(desc.PlatData)
	return dev, nil
}

// BindByName looks up the driver named drvName and binds it under
// parent as dev name, optionally attaching an HDT node handle.
func (b *Binder) BindByName(parent *Device, drvName, devName string, node interface{}) (*Device, error) {
	driver, ok := b.drivers.LookupDriver(drvName)
	if !ok {
		return nil, dmerr.New("bind_by_name", dmerr.NoDriver, "no driver registered named "+drvName)
	}
	return b.BindWithDriver(parent, driver, devName, nil, node)
}

// HDTNode is the minimal per-node surface the binder needs from the
// HDT cursor contract (spec §6) to run compatible-string matching.
type HDTNode interface {
	Name() string
	Compatible() []string
	IsEnabled() bool
	IsPreReloc() bool
}

// BindHDTNode runs compatible-string matching for node against the
// driver registry (or, if restrict is non-nil, against only that one
// driver) and binds the winning driver.
//
// It returns (nil, nil) — not an error — when no driver matches any
// compatible string, or when preRelocOnly gates the node out. A
// dmerr.Refused from the driver's bind hook is logged and also
// reported as (nil, nil); any other bind error propagates.
func (b *Binder) BindHDTNode(parent *Device, node HDTNode, restrict *Driver, preRelocOnly bool) (*Device, error) {
	compats := node.Compatible()
	driver, matchData := matchCompatible(compats, restrict, b.drivers.Drivers())
	if driver == nil {
		return nil, nil
	}

	if preRelocOnly {
		if !node.IsPreReloc() && !driver.Flags.Has(FlagPreReloc) {
			return nil, nil
		}
	}

	dev, err := b.BindWithDriver(parent, driver, node.Name(), matchData, node)
	if err != nil {
		if dmerr.Is(err, dmerr.Refused) {
			b.log.Debugf("bind refused for HDT node %q by driver %q", node.Name(), driver.Name)
			return nil, nil
		}
		return nil, err
	}
	return dev, nil
}

// matchCompatible implements the priority tie-break rule: the
// highest-priority compatible string that matches ANY candidate
// driver wins, even if a lower-priority string would match a
// different driver. Within one compatible string's scan, the first
// matching driver in registry order wins (spec §4.4).
func matchCompatible(compats []string, restrict *Driver, all []*Driver) (*Driver, interface{}) {
	candidates := all
	if restrict != nil {
		candidates = []*Driver{restrict}
	}
	for _, compat := range compats {
		for _, drv := range candidates {
			if len(drv.OfMatch) == 0 && restrict != nil {
				break
			}
			for _, m := range drv.OfMatch {
				if m.Compatible == compat {
					return drv, m.MatchData
				}
			}
		}
	}
	return nil, nil
}

// ParseCompatible decodes an HDT `compatible` property's raw bytes — a
// length-prefixed concatenation of NUL-terminated strings, priority
// high to low — into an ordered slice of strings (spec §4.4, §6). A
// zero-length property decodes to nil (not an error), matching the
// "no compatible, not an error" edge case.
func ParseCompatible(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	parts := bytes.Split(raw, []byte{0})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		out = append(out, string(p))
	}
	return out
}
