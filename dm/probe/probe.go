// Package probe implements the bind->probe transition: activating a
// bound device by allocating its private data and running its driver's
// probe hook, honoring pre-relocation gating and probe-after-bind
// flags, descending parents-first into the tree (spec §4.7).
package probe

import (
	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dm/hdt"
	"github.com/wowk/godm/dmerr"
	"github.com/wowk/godm/dmlog"
)

// Stats tracks byte counts for the per-device, per-uclass and
// per-parent private data blocks the probe engine allocates, one of
// this module's supplemented features (SPEC_FULL.md "Memory-footprint
// statistics"). Platform-data blocks are not counted, and the counts
// drop only when a failed probe rolls its blocks back.
type Stats struct {
	PrivBytes       int
	UclassPrivBytes int
	ParentPrivBytes int
}

// Probe activates device, walking up to probe any unactivated parents
// first (spec §4.7). It is idempotent: a device that is already
// ACTIVATED returns success immediately without re-running any hook.
func Probe(device *dm.Device, stats *Stats, log dmlog.Logger) error {
	if log == nil {
		log = dmlog.NewNop()
	}
	if device.IsActivated() {
		return nil
	}
	if parent := device.Parent(); parent != nil && !parent.IsActivated() {
		if err := Probe(parent, stats, log); err != nil {
			return dmerr.Wrap("probe", dmerr.DriverError, err, "parent probe failed for "+device.Name())
		}
	}

	driver := device.Driver()
	uclass := device.Uclass()

	if driver.PrivSize > 0 {
		device.SetPriv(make([]byte, driver.PrivSize))
		if stats != nil {
			stats.PrivBytes += driver.PrivSize
		}
	}
	if driver.PlatdataSize > 0 && device.PlatData() == nil {
		device.SetPlatData(make([]byte, driver.PlatdataSize))
	}
	if uclass != nil && uclass.Driver().PerDevicePrivSize > 0 {
		device.SetUclassPriv(make([]byte, uclass.Driver().PerDevicePrivSize))
		if stats != nil {
			stats.UclassPrivBytes += uclass.Driver().PerDevicePrivSize
		}
	}
	if parent := device.Parent(); parent != nil && parent.Driver().PerChildPrivSize > 0 {
		device.SetParentPriv(make([]byte, parent.Driver().PerChildPrivSize))
		if stats != nil {
			stats.ParentPrivBytes += parent.Driver().PerChildPrivSize
		}
	}

	if parent := device.Parent(); parent != nil && parent.Driver().Hooks.ChildPreProbe != nil {
		if err := parent.Driver().Hooks.ChildPreProbe(device); err != nil {
			freeAllocations(device, stats)
			return dmerr.Wrap("probe", dmerr.DriverError, err, "child_pre_probe failed for "+device.Name())
		}
	}
	if uclass != nil && uclass.Driver().Hooks.PreProbe != nil {
		if err := uclass.Driver().Hooks.PreProbe(device); err != nil {
			freeAllocations(device, stats)
			return dmerr.Wrap("probe", dmerr.DriverError, err, "uclass pre-probe failed for "+device.Name())
		}
	}

	if driver.Hooks.Probe != nil {
		if err := driver.Hooks.Probe(device); err != nil {
			freeAllocations(device, stats)
			return dmerr.Wrap("probe", dmerr.DriverError, err, "probe hook failed for "+device.Name())
		}
	}
	if uclass != nil && uclass.Driver().Hooks.PostProbe != nil {
		if err := uclass.Driver().Hooks.PostProbe(device); err != nil {
			freeAllocations(device, stats)
			return dmerr.Wrap("probe", dmerr.DriverError, err, "uclass post-probe failed for "+device.Name())
		}
	}

	device.Activate()
	return nil
}

// freeAllocations rolls back the private-data blocks a failed probe
// attempt allocated, leaving the device BOUND but not ACTIVATED
// (spec §4.7: "On any failure, free allocated blocks").
func freeAllocations(device *dm.Device, stats *Stats) {
	if stats != nil {
		if b, ok := device.Priv().([]byte); ok {
			stats.PrivBytes -= len(b)
		}
		if b, ok := device.UclassPriv().([]byte); ok {
			stats.UclassPrivBytes -= len(b)
		}
		if b, ok := device.ParentPriv().([]byte); ok {
			stats.ParentPrivBytes -= len(b)
		}
	}
	device.SetPriv(nil)
	device.SetUclassPriv(nil)
	device.SetParentPriv(nil)
}

// Tree depth-first walks starting at root, probing every device whose
// driver or HDT node wants it, per spec §4.7:
//
//   - if preRelocOnly is true and neither the device's node nor its
//     driver is flagged pre-reloc, the device is not probed but its
//     children are still visited;
//   - else if FlagProbeAfterBind is set, the device is probed and any
//     error from probing THIS device is returned to the caller;
//   - children are visited regardless of this device's probe result —
//     a child's probe failure doesn't abort its siblings.
//
// Tree returns the first error encountered anywhere in the walk, for
// diagnostics, after visiting every device.
func Tree(root *dm.Device, preRelocOnly bool, stats *Stats, log dmlog.Logger) error {
	if log == nil {
		log = dmlog.NewNop()
	}
	var first error
	walk(root, preRelocOnly, stats, log, &first)
	return first
}

func walk(device *dm.Device, preRelocOnly bool, stats *Stats, log dmlog.Logger, first *error) {
	skip := false
	if preRelocOnly {
		nodePreReloc := false
		if n, ok := device.Node().(hdt.Node); ok && n != nil {
			nodePreReloc = n.IsPreReloc()
		}
		if !nodePreReloc && !device.Driver().Flags.Has(dm.FlagPreReloc) {
			skip = true
		}
	}

	if !skip && device.Flags().Has(dm.FlagProbeAfterBind) {
		if err := Probe(device, stats, log); err != nil {
			log.Warnf("probe failed for %q: %v", device.Name(), err)
			if *first == nil {
				*first = err
			}
		}
	}

	for _, child := range device.Children() {
		walk(child, preRelocOnly, stats, log, first)
	}
}
