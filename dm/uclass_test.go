package dm_test

import (
	"testing"

	"go.viam.com/test"

	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dm/registry"
	"github.com/wowk/godm/dmerr"
)

type uclassDriverSource struct {
	drivers map[string]*dm.UclassDriver
}

func (s uclassDriverSource) LookupUclassDriver(id string) (*dm.UclassDriver, bool) {
	d, ok := s.drivers[id]
	return d, ok
}

func TestUclassRegistryGetLazilyCreatesAndRunsInit(t *testing.T) {
	initCalls := 0
	src := uclassDriverSource{drivers: map[string]*dm.UclassDriver{
		"gpio": {Name: "gpio", UclassID: "gpio", Hooks: dm.UclassHooks{
			Init: func(u *dm.Uclass) error { initCalls++; return nil },
		}},
	}}
	r := dm.NewUclassRegistry(src)

	u1, err := r.Get("gpio")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, initCalls, test.ShouldEqual, 1)

	u2, err := r.Get("gpio")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, u2, test.ShouldEqual, u1, "a second Get must not re-create the uclass")
	test.That(t, initCalls, test.ShouldEqual, 1)
}

func TestUclassRegistryGetReportsNotFound(t *testing.T) {
	r := dm.NewUclassRegistry(uclassDriverSource{drivers: map[string]*dm.UclassDriver{}})
	_, err := r.Get("missing")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, dmerr.Is(err, dmerr.NotFound), test.ShouldBeTrue)
}

func TestUclassRegistryDestroyEmptyRunsHookOnlyWhenEmpty(t *testing.T) {
	destroyCalls := 0
	reg := registry.New()
	reg.RegisterUclassDriver(dm.UclassDriver{Name: "bus", UclassID: "bus", Hooks: dm.UclassHooks{
		Destroy: func(u *dm.Uclass) error { destroyCalls++; return nil },
	}})
	reg.RegisterDriver(dm.Driver{Name: "bus_driver", UclassID: "bus"})

	uclasses := dm.NewUclassRegistry(reg)
	binder := dm.NewBinder(reg, uclasses, nil)

	dev, err := binder.BindByDescriptor(nil, dm.Descriptor{DriverName: "bus_driver", ParentIdx: dm.NoParent})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, uclasses.DestroyEmpty("bus"), test.ShouldBeNil)
	test.That(t, destroyCalls, test.ShouldEqual, 0, "uclass still has a member, must not be destroyed")

	test.That(t, dev.Unbind(), test.ShouldBeNil)
	test.That(t, uclasses.DestroyEmpty("bus"), test.ShouldBeNil)
	test.That(t, destroyCalls, test.ShouldEqual, 1)

	_, stillThere := uclasses.Lookup("bus")
	test.That(t, stillThere, test.ShouldBeFalse)
}

func TestUclassFirstAndForEachMember(t *testing.T) {
	reg := registry.New()
	reg.RegisterUclassDriver(dm.UclassDriver{Name: "gpio", UclassID: "gpio"})
	reg.RegisterDriver(dm.Driver{Name: "gpio_driver", UclassID: "gpio"})
	uclasses := dm.NewUclassRegistry(reg)
	binder := dm.NewBinder(reg, uclasses, nil)

	var names []string
	for i := 0; i < 3; i++ {
		_, err := binder.BindByDescriptor(nil, dm.Descriptor{Name: "gpio" + string(rune('0'+i)), DriverName: "gpio_driver", ParentIdx: dm.NoParent})
		test.That(t, err, test.ShouldBeNil)
	}
	u, ok := uclasses.Lookup("gpio")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, u.First().Name(), test.ShouldEqual, "gpio0")

	err := u.ForEachMember(func(d *dm.Device) error {
		names = append(names, d.Name())
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names, test.ShouldResemble, []string{"gpio0", "gpio1", "gpio2"})
}
