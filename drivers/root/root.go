// Package root registers the root uclass and the root driver every
// bring-up binds exactly once as the anchor of the device tree. It
// has no behavior of its own beyond existing: root's job is to give
// every other device somewhere to attach.
package root

import (
	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dm/registry"
)

// UclassID identifies the root uclass.
const UclassID = "root"

// DriverName is the name root.Root binds under.
const DriverName = "root_driver"

func init() {
	registry.RegisterUclassDriver(dm.UclassDriver{
		Name:     "root",
		UclassID: UclassID,
	})
	registry.RegisterDriver(dm.Driver{
		Name:     DriverName,
		UclassID: UclassID,
		Flags:    dm.FlagPreReloc,
	})
}
