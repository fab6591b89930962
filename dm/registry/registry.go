// Package registry operates the build-time-known tables of drivers,
// uclass drivers, and static device descriptors (spec §4.1, §9).
// Declaration deposits entries into the tables in declaration order;
// the core only ever reads them back.
//
// Most boards register into the package-level default tables from an
// init() function, the Go equivalent of the platform's linker-section
// (start, count) tables. Tests and alternate board configurations that
// need isolation construct their own Registry with New.
package registry

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/wowk/godm/dm"
)

// Registry is a set of driver, uclass driver, and static descriptor
// tables. The zero value is not usable; construct with New.
type Registry struct {
	mu sync.RWMutex

	drivers       []*dm.Driver
	driversByName map[string]*dm.Driver

	uclassDrivers []*dm.UclassDriver
	uclassByID    map[string]*dm.UclassDriver

	descriptors []dm.Descriptor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		driversByName: map[string]*dm.Driver{},
		uclassByID:    map[string]*dm.UclassDriver{},
	}
}

// RegisterDriver deposits a driver into the table. It panics if a
// driver with the same name is already registered, matching the
// teacher's build-time registration contract: a duplicate model name
// is a programmer error caught at init time, not a runtime condition.
func (r *Registry) RegisterDriver(d dm.Driver) *dm.Driver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.driversByName[d.Name]; exists {
		panic(errors.Errorf("trying to register two drivers with the same name %q", d.Name))
	}
	stored := d
	r.drivers = append(r.drivers, &stored)
	r.driversByName[d.Name] = &stored
	return &stored
}

// RegisterUclassDriver deposits a uclass driver into the table. It
// panics on a duplicate uclass id.
func (r *Registry) RegisterUclassDriver(u dm.UclassDriver) *dm.UclassDriver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.uclassByID[u.UclassID]; exists {
		panic(errors.Errorf("trying to register two uclass drivers with the same id %q", u.UclassID))
	}
	stored := u
	r.uclassDrivers = append(r.uclassDrivers, &stored)
	r.uclassByID[u.UclassID] = &stored
	return &stored
}

// RegisterDescriptor appends a static device descriptor and returns
// its index, needed by callers to fill in a sibling descriptor's
// ParentIdx.
func (r *Registry) RegisterDescriptor(d dm.Descriptor) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors = append(r.descriptors, d)
	return len(r.descriptors) - 1
}

// LookupDriver returns the driver whose name matches exactly, via a
// name index kept alongside the table. Names are unique (RegisterDriver
// panics on a duplicate), so this is the table's first exact match.
func (r *Registry) LookupDriver(name string) (*dm.Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.driversByName[name]
	return d, ok
}

// LookupUclassDriver returns the uclass driver whose id matches
// exactly, via an id index kept alongside the table.
func (r *Registry) LookupUclassDriver(id string) (*dm.UclassDriver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.uclassByID[id]
	return u, ok
}

// Drivers returns every registered driver in declaration order.
func (r *Registry) Drivers() []*dm.Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*dm.Driver, len(r.drivers))
	copy(out, r.drivers)
	return out
}

// UclassDrivers returns every registered uclass driver in declaration order.
func (r *Registry) UclassDrivers() []*dm.UclassDriver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*dm.UclassDriver, len(r.uclassDrivers))
	copy(out, r.uclassDrivers)
	return out
}

// Descriptors returns every registered static descriptor, index
// addressable, in declaration order (needed so the scanner can
// cross-reference parent indices).
func (r *Registry) Descriptors() []dm.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]dm.Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// def is the package-level registry boards declare into from
// init(), the Go equivalent of a build-generated (start, count) table.
var def = New()

// Default returns the package-level default registry.
func Default() *Registry { return def }

// RegisterDriver deposits a driver into the default registry.
func RegisterDriver(d dm.Driver) *dm.Driver { return def.RegisterDriver(d) }

// RegisterUclassDriver deposits a uclass driver into the default registry.
func RegisterUclassDriver(u dm.UclassDriver) *dm.UclassDriver { return def.RegisterUclassDriver(u) }

// RegisterDescriptor appends a static device descriptor to the default registry.
func RegisterDescriptor(d dm.Descriptor) int { return def.RegisterDescriptor(d) }

// LookupDriver looks up a driver by name in the default registry.
func LookupDriver(name string) (*dm.Driver, bool) { return def.LookupDriver(name) }

// LookupUclassDriver looks up a uclass driver by id in the default registry.
func LookupUclassDriver(id string) (*dm.UclassDriver, bool) { return def.LookupUclassDriver(id) }

// Drivers returns every driver registered in the default registry.
func Drivers() []*dm.Driver { return def.Drivers() }

// UclassDrivers returns every uclass driver registered in the default registry.
func UclassDrivers() []*dm.UclassDriver { return def.UclassDrivers() }

// Descriptors returns every descriptor registered in the default registry.
func Descriptors() []dm.Descriptor { return def.Descriptors() }

// Reset clears the default registry's tables. It exists for tests
// that need a clean global registry between cases; production images
// never call it.
func Reset() { def = New() }
