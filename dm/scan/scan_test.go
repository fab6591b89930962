package scan_test

import (
	"testing"

	"go.viam.com/test"

	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dm/hdt"
	"github.com/wowk/godm/dm/registry"
	"github.com/wowk/godm/dm/scan"
	"github.com/wowk/godm/dmerr"
)

func newTestRoot(reg *registry.Registry) *dm.Device {
	uclasses := dm.NewUclassRegistry(reg)
	binder := dm.NewBinder(reg, uclasses, nil)
	reg.RegisterUclassDriver(dm.UclassDriver{Name: "root", UclassID: "root"})
	rootDriver := reg.RegisterDriver(dm.Driver{Name: "root_driver", UclassID: "root"})
	root, err := binder.BindWithDriver(nil, rootDriver, "root", nil, nil)
	if err != nil {
		panic(err)
	}
	return root
}

func newTestBinder(reg *registry.Registry) *dm.Binder {
	return dm.NewBinder(reg, dm.NewUclassRegistry(reg), nil)
}

func TestScanStaticDescriptorsOutOfOrderParents(t *testing.T) {
	reg := registry.New()
	root := newTestRoot(reg)
	binder := newTestBinder(reg)

	reg.RegisterUclassDriver(dm.UclassDriver{Name: "bus", UclassID: "bus"})
	reg.RegisterUclassDriver(dm.UclassDriver{Name: "leaf", UclassID: "leaf"})
	reg.RegisterDriver(dm.Driver{Name: "bus_driver", UclassID: "bus"})
	reg.RegisterDriver(dm.Driver{Name: "leaf_driver", UclassID: "leaf"})

	// Descriptor 0 (the leaf) is declared before its parent at index 1,
	// forcing the scanner to need a second pass.
	descriptors := []dm.Descriptor{
		{Name: "leaf0", DriverName: "leaf_driver", ParentIdx: 1},
		{Name: "bus0", DriverName: "bus_driver", ParentIdx: dm.NoParent},
	}
	slots := scan.NewSlots(len(descriptors))

	err := scan.ScanStaticDescriptors(binder, reg, root, descriptors, slots, true, false, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, slots.Device(0), test.ShouldNotBeNil)
	test.That(t, slots.Device(1), test.ShouldNotBeNil)
	test.That(t, slots.Device(0).Parent(), test.ShouldEqual, slots.Device(1))
}

func TestScanStaticDescriptorsReportsBadParentIndex(t *testing.T) {
	reg := registry.New()
	root := newTestRoot(reg)
	binder := newTestBinder(reg)
	reg.RegisterUclassDriver(dm.UclassDriver{Name: "leaf", UclassID: "leaf"})
	reg.RegisterDriver(dm.Driver{Name: "leaf_driver", UclassID: "leaf"})

	descriptors := []dm.Descriptor{
		{Name: "leaf0", DriverName: "leaf_driver", ParentIdx: 99},
	}
	slots := scan.NewSlots(len(descriptors))
	err := scan.ScanStaticDescriptors(binder, reg, root, descriptors, slots, true, false, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, dmerr.Is(err, dmerr.BadDescriptor), test.ShouldBeTrue)
}

func TestScanStaticDescriptorsPreRelocGatingDoesNotCauseCycleDetected(t *testing.T) {
	reg := registry.New()
	root := newTestRoot(reg)
	binder := newTestBinder(reg)

	reg.RegisterUclassDriver(dm.UclassDriver{Name: "bus", UclassID: "bus"})
	reg.RegisterUclassDriver(dm.UclassDriver{Name: "leaf", UclassID: "leaf"})
	// bus is not pre-reloc; leaf depends on it and must be gated out
	// too, rather than tripping the 10-pass cycle detector.
	reg.RegisterDriver(dm.Driver{Name: "bus_driver", UclassID: "bus"})
	reg.RegisterDriver(dm.Driver{Name: "leaf_driver", UclassID: "leaf"})

	descriptors := []dm.Descriptor{
		{Name: "bus0", DriverName: "bus_driver", ParentIdx: dm.NoParent},
		{Name: "leaf0", DriverName: "leaf_driver", ParentIdx: 0},
	}
	slots := scan.NewSlots(len(descriptors))
	err := scan.ScanStaticDescriptors(binder, reg, root, descriptors, slots, true, true, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, slots.Device(0), test.ShouldBeNil)
	test.That(t, slots.Device(1), test.ShouldBeNil)
}

func TestScanHDTBindsEnabledChildrenAndSkipsDisabled(t *testing.T) {
	reg := registry.New()
	root := newTestRoot(reg)
	binder := newTestBinder(reg)
	reg.RegisterUclassDriver(dm.UclassDriver{Name: "gpio", UclassID: "gpio"})
	reg.RegisterDriver(dm.Driver{
		Name:     "gpio_driver",
		UclassID: "gpio",
		OfMatch:  []dm.OfMatch{{Compatible: "vendor,gpio"}},
	})

	enabled := hdt.NewFakeNode("gpio@0", "vendor,gpio")
	disabled := hdt.NewFakeNode("gpio@1", "vendor,gpio").Disable()
	rootNode := hdt.NewFakeNode("/").AddChild(enabled).AddChild(disabled)
	cursor := hdt.NewFakeTree(rootNode, nil)

	err := scan.ScanHDTRoot(binder, root, cursor, false, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, root.Children(), test.ShouldHaveLength, 1)
	test.That(t, root.Children()[0].Name(), test.ShouldEqual, "gpio@0")
}

func TestExtendedScanVisitsAuxPaths(t *testing.T) {
	reg := registry.New()
	root := newTestRoot(reg)
	binder := newTestBinder(reg)
	reg.RegisterUclassDriver(dm.UclassDriver{Name: "gpio", UclassID: "gpio"})
	reg.RegisterDriver(dm.Driver{
		Name:     "gpio_driver",
		UclassID: "gpio",
		OfMatch:  []dm.OfMatch{{Compatible: "vendor,gpio"}},
	})

	chosenChild := hdt.NewFakeNode("reserved-memory", "vendor,gpio")
	chosen := hdt.NewFakeNode("chosen").AddChild(chosenChild)
	rootNode := hdt.NewFakeNode("/")
	cursor := hdt.NewFakeTree(rootNode, map[string]*hdt.FakeNode{"/chosen": chosen})

	err := scan.ExtendedScan(binder, root, cursor, false, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, root.Children(), test.ShouldHaveLength, 1)
	test.That(t, root.Children()[0].Name(), test.ShouldEqual, "reserved-memory")
}
