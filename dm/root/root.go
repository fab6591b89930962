// Package root implements the root lifecycle: init/uninit of the
// virtual root device that anchors the hierarchy, orchestration of
// the scan and probe stages, and collection of the statistics
// external diagnostic commands read (spec §4.8, §6).
package root

import (
	"go.uber.org/multierr"

	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dm/hdt"
	"github.com/wowk/godm/dm/probe"
	"github.com/wowk/godm/dm/registry"
	"github.com/wowk/godm/dm/scan"
	"github.com/wowk/godm/dmerr"
	"github.com/wowk/godm/dmlog"
)

// Mode selects how the root device and static descriptor table are
// bound (spec §4.8).
type Mode int

const (
	// ModeDynamic binds the built-in root descriptor, attaches the HDT
	// root node if one is configured, and probes the root immediately.
	ModeDynamic Mode = iota
	// ModeInstance binds the root driver by name, without an HDT node
	// and without probing it, and sizes the runtime slot table from the
	// static descriptor table. It takes no precomputed root device.
	ModeInstance
)

// EventTag distinguishes the pre-relocation and post-relocation
// bring-up events (spec §6).
type EventTag int

// EventTag values notified after InitAndScan.
const (
	EventPreReloc EventTag = iota
	EventPostReloc
)

// EventNotifier is the external event subsystem the core notifies
// after init_and_scan (spec §6). A notifier error propagates out of
// InitAndScan.
type EventNotifier interface {
	Notify(tag EventTag) error
}

// NopNotifier is an EventNotifier that does nothing, for callers that
// don't need event plumbing.
type NopNotifier struct{}

// Notify satisfies EventNotifier.
func (NopNotifier) Notify(EventTag) error { return nil }

// Config configures a Root's bring-up.
type Config struct {
	Registry       *registry.Registry
	Cursor         hdt.Cursor // nil if HDT isn't compiled in
	Logger         dmlog.Logger
	Notifier       EventNotifier
	Mode           Mode
	RootDriverName string
	ParentAware    bool
	PreRelocOnly   bool
	// ExtensionHook runs after the static and HDT passes but before
	// probing, for a platform's custom extension to the scan (spec §2
	// control flow: "... + extended paths + custom extension hook").
	ExtensionHook func(*Root) error
}

// Root owns the single virtual root device that anchors every other
// device, plus the live uclass registry and allocation statistics for
// the lifetime between Init and Uninit (spec §3 invariant: "exactly
// one root device exists between init and uninit").
type Root struct {
	cfg      Config
	binder   *dm.Binder
	uclasses *dm.UclassRegistry
	device   *dm.Device
	slots    *scan.Slots
	probeStats probe.Stats
}

// New creates a Root with the given configuration. Call Init or
// InitAndScan to bring it up.
func New(cfg Config) *Root {
	if cfg.Logger == nil {
		cfg.Logger = dmlog.NewNop()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.RootDriverName == "" {
		cfg.RootDriverName = "root_driver"
	}
	return &Root{cfg: cfg}
}

// Device returns the root device, or nil before Init.
func (r *Root) Device() *dm.Device { return r.device }

// Binder returns the bring-up's binder, for drivers that need to bind
// dynamically discovered children from a probe hook.
func (r *Root) Binder() *dm.Binder { return r.binder }

// Cursor returns the configured HDT cursor, or nil.
func (r *Root) Cursor() hdt.Cursor { return r.cfg.Cursor }

// Init creates the virtual root device (spec §4.8). It rejects a
// second call with dmerr.AlreadyInitialized.
func (r *Root) Init() error {
	if r.device != nil {
		return dmerr.New("root.Init", dmerr.AlreadyInitialized, "root device already exists")
	}

	r.uclasses = dm.NewUclassRegistry(r.cfg.Registry)
	r.binder = dm.NewBinder(r.cfg.Registry, r.uclasses, r.cfg.Logger)

	var rootNode interface{}
	if r.cfg.Cursor != nil {
		rootNode = r.cfg.Cursor.RootNode()
	}

	switch r.cfg.Mode {
	case ModeInstance:
		descriptors := r.cfg.Registry.Descriptors()
		r.slots = scan.NewSlots(len(descriptors))
		dev, err := r.binder.BindByName(nil, r.cfg.RootDriverName, "root", nil)
		if err != nil {
			return dmerr.Wrap("root.Init", dmerr.DriverError, err, "binding instance-mode root device")
		}
		r.device = dev
	case ModeDynamic:
		dev, err := r.binder.BindByName(nil, r.cfg.RootDriverName, "root", rootNode)
		if err != nil {
			return dmerr.Wrap("root.Init", dmerr.DriverError, err, "binding dynamic-mode root device")
		}
		r.device = dev
		if err := probe.Probe(r.device, &r.probeStats, r.cfg.Logger); err != nil {
			return dmerr.Wrap("root.Init", dmerr.DriverError, err, "probing root device")
		}
	}
	return nil
}

// InitAndScan drives the full bring-up control flow (spec §2): root
// lifecycle, then the static-descriptor pass, the HDT pass and
// extended paths, any platform extension hook, then the probe engine,
// then the event notification.
func (r *Root) InitAndScan() error {
	if err := r.Init(); err != nil {
		return err
	}

	if r.slots == nil {
		r.slots = scan.NewSlots(len(r.cfg.Registry.Descriptors()))
	}
	if err := scan.ScanStaticDescriptors(
		r.binder, r.cfg.Registry, r.device, r.cfg.Registry.Descriptors(), r.slots,
		r.cfg.ParentAware, r.cfg.PreRelocOnly, r.cfg.Logger,
	); err != nil {
		if dmerr.Fatal(err) {
			return err
		}
		r.cfg.Logger.Warnf("static descriptor scan reported %v", err)
	}

	if r.cfg.Cursor != nil {
		if err := scan.ExtendedScan(r.binder, r.device, r.cfg.Cursor, r.cfg.PreRelocOnly, r.cfg.Logger); err != nil {
			r.cfg.Logger.Warnf("extended HDT scan reported %v", err)
		}
	}

	if r.cfg.ExtensionHook != nil {
		if err := r.cfg.ExtensionHook(r); err != nil {
			return dmerr.Wrap("root.InitAndScan", dmerr.DriverError, err, "extension hook failed")
		}
	}

	if err := probe.Tree(r.device, r.cfg.PreRelocOnly, &r.probeStats, r.cfg.Logger); err != nil {
		r.cfg.Logger.Warnf("probe tree reported %v", err)
	}

	tag := EventPostReloc
	if r.cfg.PreRelocOnly {
		tag = EventPreReloc
	}
	if err := r.cfg.Notifier.Notify(tag); err != nil {
		return dmerr.Wrap("root.InitAndScan", dmerr.DriverError, err, "event notification failed")
	}
	return nil
}

// Uninit removes non-vital devices first, then all remaining devices,
// both in post-order, then unbinds the root and clears the root
// handle (spec §4.8). A repeated call is a no-op that returns nil.
func (r *Root) Uninit() error {
	if r.device == nil {
		return nil
	}

	var errs error
	removeSweep(r.device, false, &errs) // non-vital first
	removeSweep(r.device, true, &errs)  // everything remaining (vital)
	unbindPostOrder(r.device, r.uclasses, &errs)

	r.device = nil
	r.uclasses = nil
	r.binder = nil
	r.slots = nil
	return errs
}

// isVital reports whether a device is tagged vital, meaning it is
// swept last during teardown, unless it also carries
// dm.FlagRemoveVitalFirst to opt back into the earlier sweep (e.g. a
// vital device whose platform wants it torn down eagerly anyway).
func isVital(d *dm.Device) bool {
	tag, ok := d.Tag("vital")
	vital := ok && tag == "true"
	if vital && d.Flags().Has(dm.FlagRemoveVitalFirst) {
		return false
	}
	return vital
}

func removeSweep(device *dm.Device, includeVital bool, errs *error) {
	for _, child := range device.Children() {
		removeSweep(child, includeVital, errs)
	}
	if !device.IsActivated() {
		return
	}
	vital := isVital(device)
	if vital != includeVital {
		return
	}
	flag := dm.RemoveNonVital
	if vital {
		flag = dm.RemoveVital
	}
	if err := device.Remove(flag); err != nil {
		*errs = multierr.Append(*errs, err)
	}
}

func unbindPostOrder(device *dm.Device, uclasses *dm.UclassRegistry, errs *error) {
	for _, child := range append([]*dm.Device{}, device.Children()...) {
		unbindPostOrder(child, uclasses, errs)
	}
	uclass := device.Uclass()
	if err := device.Unbind(); err != nil {
		*errs = multierr.Append(*errs, err)
		return
	}
	if uclass != nil && uclasses != nil {
		if err := uclasses.DestroyEmpty(uclass.Driver().UclassID); err != nil {
			*errs = multierr.Append(*errs, err)
		}
	}
}

// Stats is the external diagnostic surface (spec §6 get_stats /
// get_memory_stats).
type Stats struct {
	DeviceCount int
	UclassCount int
}

// GetStats returns the live device and uclass counts.
func (r *Root) GetStats() Stats {
	if r.device == nil {
		return Stats{}
	}
	count := 0
	countDevices(r.device, &count)
	uclassCount := 0
	if r.uclasses != nil {
		uclassCount = r.uclasses.Count()
	}
	return Stats{DeviceCount: count, UclassCount: uclassCount}
}

func countDevices(d *dm.Device, n *int) {
	*n++
	for _, c := range d.Children() {
		countDevices(c, n)
	}
}

// MemoryStats returns byte counts for each attachment kind the probe
// engine has allocated so far (spec §6 get_memory_stats).
func (r *Root) MemoryStats() probe.Stats {
	return r.probeStats
}
