package main

import (
	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dm/hdt"
	"github.com/wowk/godm/dm/registry"
	"github.com/wowk/godm/dm/root"
	"github.com/wowk/godm/dmlog"
	"github.com/wowk/godm/drivers/gpio"
	"github.com/wowk/godm/drivers/serial"

	// Blank-imported so each package's init() registers its drivers
	// and uclasses into the default registry, the Go equivalent of a
	// board linking every driver object it needs.
	_ "github.com/wowk/godm/drivers/root"
)

// buildDemoTree constructs a small, self-contained hardware
// description tree: a UART and two GPIO controller nodes, one of
// which exercises the compatible-string priority tie-break and one
// tagged fused-off to exercise a refused bind.
func buildDemoTree() hdt.Cursor {
	uart := hdt.NewFakeNode("serial@0", "vendor,uart")
	gpioA := hdt.NewFakeNode("gpio@0", gpio.CompatGeneric, gpio.CompatLegacy)
	gpioB := hdt.NewFakeNode("gpio@1", "vendor,gpio-fused")
	chosen := hdt.NewFakeNode("chosen")

	rootNode := hdt.NewFakeNode("/").
		AddChild(uart).
		AddChild(gpioA).
		AddChild(gpioB)

	return hdt.NewFakeTree(rootNode, map[string]*hdt.FakeNode{
		"/chosen": chosen,
	})
}

// newDemoRoot wires a fresh Root over the default registry and the
// demo hardware description tree, ready for InitAndScan.
func newDemoRoot(log dmlog.Logger) *root.Root {
	// serial has no compatible strings in this demo; it binds from a
	// static descriptor instead, registered here rather than in
	// drivers/serial so the driver package stays board-agnostic.
	registry.RegisterDescriptor(dm.Descriptor{
		Name:       "uart0",
		DriverName: serial.DriverName,
		PlatData:   &serial.PlatData{Port: 0},
		ParentIdx:  dm.NoParent,
	})

	return root.New(root.Config{
		Registry:       registry.Default(),
		Cursor:         buildDemoTree(),
		Logger:         log,
		Mode:           root.ModeDynamic,
		RootDriverName: "root_driver",
		ParentAware:    false,
		PreRelocOnly:   false,
	})
}
