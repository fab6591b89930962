package dm

import (
	"github.com/google/uuid"

	"github.com/wowk/godm/dmerr"
)

// Uclass is a live class of drivers exposing a common capability: the
// runtime registry of bound devices sharing a uclass id. It is
// created at most once per uclass id, when its first member binds
// (spec §3, §4.2).
type Uclass struct {
	id     uuid.UUID
	driver *UclassDriver
	members []*Device
	priv   interface{}
}

// Driver returns the uclass's static uclass driver.
func (u *Uclass) Driver() *UclassDriver { return u.driver }

// ID returns the uclass's stable identifier.
func (u *Uclass) ID() uuid.UUID { return u.id }

// Members returns the uclass's member devices in bind order. The
// returned slice must not be mutated by callers.
func (u *Uclass) Members() []*Device { return u.members }

// Priv returns the uclass's private data handle.
func (u *Uclass) Priv() interface{} { return u.priv }

// SetPriv sets the uclass's private data handle.
func (u *Uclass) SetPriv(p interface{}) { u.priv = p }

// First returns the uclass's first bound member, mirroring U-Boot's
// uclass_first_device, or nil if the uclass has no members.
func (u *Uclass) First() *Device {
	if len(u.members) == 0 {
		return nil
	}
	return u.members[0]
}

// ForEachMember calls fn for every member device in bind order,
// stopping early if fn returns an error.
func (u *Uclass) ForEachMember(fn func(*Device) error) error {
	for _, m := range u.members {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uclass) addMember(d *Device) {
	u.members = append(u.members, d)
	d.uclass = u
}

func (u *Uclass) removeMember(d *Device) {
	for i, m := range u.members {
		if m == d {
			u.members = append(u.members[:i], u.members[i+1:]...)
			return
		}
	}
}

// UclassRegistry is the set of live uclasses, indexed by uclass id.
// It is owned by the root lifecycle and is the only place a Uclass is
// allocated.
type UclassRegistry struct {
	drivers UclassDriverSource
	byID    map[string]*Uclass
	order   []string
}

// UclassDriverSource resolves a uclass id to its static uclass driver.
// Implemented by dm/registry.Registry.
type UclassDriverSource interface {
	LookupUclassDriver(id string) (*UclassDriver, bool)
}

// NewUclassRegistry creates an empty uclass registry backed by the
// given static uclass driver source.
func NewUclassRegistry(drivers UclassDriverSource) *UclassRegistry {
	return &UclassRegistry{drivers: drivers, byID: map[string]*Uclass{}}
}

// Get returns the live uclass for id, lazily creating it (and running
// its uclass driver's Init hook) if this is the first reference to it.
func (r *UclassRegistry) Get(id string) (*Uclass, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	drv, ok := r.drivers.LookupUclassDriver(id)
	if !ok {
		return nil, dmerr.New("uclass_registry.Get", dmerr.NotFound, "no uclass driver registered for id "+id)
	}
	u := &Uclass{id: uuid.NewSHA1(uuid.NameSpaceOID, []byte("dm-uclass:"+id)), driver: drv}
	if drv.Hooks.Init != nil {
		if err := drv.Hooks.Init(u); err != nil {
			return nil, dmerr.Wrap("uclass_registry.Get", dmerr.DriverError, err, "uclass init hook failed for "+id)
		}
	}
	r.byID[id] = u
	r.order = append(r.order, id)
	return u, nil
}

// Lookup returns the live uclass for id without creating it.
func (r *UclassRegistry) Lookup(id string) (*Uclass, bool) {
	u, ok := r.byID[id]
	return u, ok
}

// All returns every live uclass in creation order.
func (r *UclassRegistry) All() []*Uclass {
	out := make([]*Uclass, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Count returns the number of live uclasses.
func (r *UclassRegistry) Count() int { return len(r.byID) }

// DestroyEmpty tears down the uclass named id if it has no remaining
// members, running its Destroy hook and removing it from the
// registry. It is a no-op if the uclass still has members or doesn't
// exist. Callers (the root teardown sweep) call this after unbinding
// a device to collapse uclasses whose last member just left.
func (r *UclassRegistry) DestroyEmpty(id string) error {
	return r.destroy(id)
}

// destroy tears down a uclass once its last member has unbound,
// running its Destroy hook and removing it from the registry.
func (r *UclassRegistry) destroy(id string) error {
	u, ok := r.byID[id]
	if !ok || len(u.members) != 0 {
		return nil
	}
	if u.driver.Hooks.Destroy != nil {
		if err := u.driver.Hooks.Destroy(u); err != nil {
			return dmerr.Wrap("uclass_registry.destroy", dmerr.DriverError, err, "uclass destroy hook failed for "+id)
		}
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
