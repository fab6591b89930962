package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dm/registry"
)

func TestRegisterAndLookupDriver(t *testing.T) {
	r := registry.New()
	r.RegisterDriver(dm.Driver{Name: "uart_driver", UclassID: "serial"})

	drv, ok := r.LookupDriver("uart_driver")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, drv.UclassID, test.ShouldEqual, "serial")

	_, ok = r.LookupDriver("missing")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestRegisterDriverPanicsOnDuplicateName(t *testing.T) {
	r := registry.New()
	r.RegisterDriver(dm.Driver{Name: "uart_driver", UclassID: "serial"})
	test.That(t, func() { r.RegisterDriver(dm.Driver{Name: "uart_driver", UclassID: "serial"}) }, test.ShouldPanic)
}

func TestRegisterDescriptorReturnsIndex(t *testing.T) {
	r := registry.New()
	i0 := r.RegisterDescriptor(dm.Descriptor{DriverName: "a", ParentIdx: dm.NoParent})
	i1 := r.RegisterDescriptor(dm.Descriptor{DriverName: "b", ParentIdx: i0})
	test.That(t, i0, test.ShouldEqual, 0)
	test.That(t, i1, test.ShouldEqual, 1)
	test.That(t, r.Descriptors(), test.ShouldHaveLength, 2)
}

func TestDefaultRegistryWrappersAndReset(t *testing.T) {
	registry.Reset()
	defer registry.Reset()

	registry.RegisterDriver(dm.Driver{Name: "pkg_level_driver", UclassID: "leaf"})
	_, ok := registry.LookupDriver("pkg_level_driver")
	test.That(t, ok, test.ShouldBeTrue)

	registry.Reset()
	_, ok = registry.LookupDriver("pkg_level_driver")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestLoadDescriptorsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "descriptors.yaml")
	contents := `
descriptors:
  - name: bus0
    driver: bus_driver
  - name: leaf0
    driver: leaf_driver
    parent: bus0
`
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)

	r := registry.New()
	test.That(t, registry.LoadDescriptorsYAML(r, path), test.ShouldBeNil)

	descs := r.Descriptors()
	test.That(t, descs, test.ShouldHaveLength, 2)
	test.That(t, descs[0].Name, test.ShouldEqual, "bus0")
	test.That(t, descs[1].ParentIdx, test.ShouldEqual, 0)
}

func TestLoadDescriptorsYAMLOffsetsParentIdxAgainstExistingDescriptors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "descriptors.yaml")
	contents := `
descriptors:
  - name: bus0
    driver: bus_driver
  - name: leaf0
    driver: leaf_driver
    parent: bus0
`
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)

	r := registry.New()
	r.RegisterDescriptor(dm.Descriptor{Name: "preexisting", DriverName: "preexisting_driver", ParentIdx: dm.NoParent})

	test.That(t, registry.LoadDescriptorsYAML(r, path), test.ShouldBeNil)

	descs := r.Descriptors()
	test.That(t, descs, test.ShouldHaveLength, 3)
	test.That(t, descs[1].Name, test.ShouldEqual, "bus0")
	test.That(t, descs[2].Name, test.ShouldEqual, "leaf0")
	test.That(t, descs[2].ParentIdx, test.ShouldEqual, 1, "parent index must be offset by the pre-existing descriptor count")
}

func TestLoadDescriptorsYAMLRejectsUnknownParent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "descriptors.yaml")
	contents := `
descriptors:
  - name: leaf0
    driver: leaf_driver
    parent: does-not-exist
`
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)

	r := registry.New()
	err := registry.LoadDescriptorsYAML(r, path)
	test.That(t, err, test.ShouldNotBeNil)
}
