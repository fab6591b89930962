package dm

import "github.com/wowk/godm/dmerr"

// Activate marks a device ACTIVATED after its probe hook has
// succeeded. It is idempotent: calling it on an already-activated
// device is a no-op.
func (d *Device) Activate() {
	d.flags = d.flags.Set(FlagActivated)
}

// Deactivate clears ACTIVATED, leaving the device BOUND, as happens
// when Remove succeeds (spec §9 state machine: Active -> Bound).
func (d *Device) Deactivate() {
	d.flags = d.flags.Clear(FlagActivated)
}

// Remove runs the device's Remove hook (if any) with the given sweep
// flag and deactivates it on success. The device remains bound; call
// Unbind afterward to destroy it.
func (d *Device) Remove(flags RemoveFlag) error {
	if !d.IsActivated() {
		return nil
	}
	if d.driver.Hooks.Remove != nil {
		if err := d.driver.Hooks.Remove(d, flags); err != nil {
			return dmerr.Wrap("device.Remove", dmerr.DriverError, err, "remove hook failed for "+d.name)
		}
	}
	d.Deactivate()
	return nil
}

// Unbind runs the device's Unbind hook, unlinks it from its parent's
// child list and its uclass's member list, and clears BOUND. The
// device must have no remaining bound children (spec §3 invariant:
// "a device is never unbound while any child remains bound").
func (d *Device) Unbind() error {
	if len(d.children) != 0 {
		return dmerr.New("device.Unbind", dmerr.DriverError, "device "+d.name+" still has bound children")
	}
	if d.driver.Hooks.Unbind != nil {
		if err := d.driver.Hooks.Unbind(d); err != nil {
			return dmerr.Wrap("device.Unbind", dmerr.DriverError, err, "unbind hook failed for "+d.name)
		}
	}
	if d.parent != nil {
		siblings := d.parent.children
		for i, c := range siblings {
			if c == d {
				d.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	if d.uclass != nil {
		d.uclass.removeMember(d)
	}
	d.flags = d.flags.Clear(FlagBound)
	return nil
}
