// Package dm holds the static, immutable data model shared by every
// stage of bring-up: drivers, uclass drivers, and static device
// descriptors. These are process-wide tables set up at image build
// time and never mutated once registered (spec §3, "Ownership/lifetime").
package dm

// Flag is a bitset of driver/device/uclass lifecycle and gating bits.
type Flag uint32

const (
	// FlagNone sets no bits.
	FlagNone Flag = 0
	// FlagPreReloc marks a driver or device as available before the
	// bootloader relocates itself in memory.
	FlagPreReloc Flag = 1 << iota
	// FlagBound marks a device as having completed bind().
	FlagBound
	// FlagPlatdataValid marks a device's platform data as populated.
	FlagPlatdataValid
	// FlagActivated marks a device as having completed probe().
	FlagActivated
	// FlagProbeAfterBind marks a device to be probed immediately after
	// the probe engine reaches it during a tree walk, rather than lazily.
	FlagProbeAfterBind
	// FlagRemoveVitalFirst moves a vital-tagged device into the first
	// (non-vital) sweep of teardown instead of the final vital sweep.
	FlagRemoveVitalFirst
)

// Has reports whether f contains every bit in mask.
func (f Flag) Has(mask Flag) bool { return f&mask == mask }

// Set returns f with mask's bits added.
func (f Flag) Set(mask Flag) Flag { return f | mask }

// Clear returns f with mask's bits removed.
func (f Flag) Clear(mask Flag) Flag { return f &^ mask }

// RemoveFlag distinguishes vital/normal/non-vital teardown sweeps, the
// `flags` argument of the driver Remove hook (spec §6).
type RemoveFlag uint32

const (
	// RemoveNormal is an ordinary, single-device removal.
	RemoveNormal RemoveFlag = iota
	// RemoveVital marks the final sweep over vital-tagged devices that
	// are not flagged FlagRemoveVitalFirst.
	RemoveVital
	// RemoveNonVital marks a sweep over every device not flagged vital.
	RemoveNonVital
)

// OfMatch is one entry of a driver's compatible-string match table:
// a compatible string paired with opaque, driver-defined match data.
type OfMatch struct {
	Compatible string
	MatchData  interface{}
}

// Hooks is a driver's hook table (uclass drivers use UclassHooks).
// Every hook is optional; an absent hook is a no-op success (spec §6).
type Hooks struct {
	Bind           func(d *Device) error
	Probe          func(d *Device) error
	Remove         func(d *Device, flags RemoveFlag) error
	Unbind         func(d *Device) error
	ChildPreProbe  func(child *Device) error
	ChildPostBind  func(child *Device) error
}

// Driver is a static, immutable description of a device's behavior:
// which uclass it belongs to, which compatible strings it answers to,
// and the hooks that drive its lifecycle.
type Driver struct {
	Name       string
	UclassID   string
	OfMatch    []OfMatch
	Flags      Flag
	Hooks      Hooks
	PrivSize   int
	PlatdataSize int
	// PerChildPrivSize is the size of the private block this driver
	// wants allocated for each of its children, the "per-parent"
	// private data handle of spec §3 (U-Boot's per_child_auto):
	// allocated by the probe engine against the device's own driver
	// acting as its children's parent, not against the child's own
	// driver.
	PerChildPrivSize int
}

// UclassDriver is a static, immutable description of a uclass: the
// hooks run when the uclass itself is created or destroyed and around
// each member device's probe, and the per-device private size a
// uclass wants to allocate for each of its members.
type UclassDriver struct {
	Name         string
	UclassID     string
	Hooks        UclassHooks
	PerDevicePrivSize int
}

// UclassHooks are the hooks a uclass driver may implement.
type UclassHooks struct {
	Init        func(u *Uclass) error
	Destroy     func(u *Uclass) error
	PreProbe    func(d *Device) error
	PostProbe   func(d *Device) error
}

// Descriptor is a static, build-time description of a device to bind
// before any HDT scan: a driver name, a platform-data pointer, and
// the index of its parent descriptor (or NoParent) used to reconstruct
// parent/child order without dynamic discovery (spec §3, "drvinfo").
type Descriptor struct {
	// Name is the device's name once bound. If empty, the driver's own
	// name is used, matching U-Boot's driver_info convention where
	// multiple instances of one driver share a name.
	Name       string
	DriverName string
	PlatData   interface{}
	ParentIdx  int
}

// NoParent marks a Descriptor with no parent descriptor; its device
// binds directly under the tree root.
const NoParent = -1
