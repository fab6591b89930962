// Package serial implements the serial uclass and an in-memory UART
// driver, grounded in the probe-allocates-private-data pattern: the
// driver's private struct is never constructed directly by a caller,
// only by the driver's own probe hook, and is recovered with Get.
package serial

import (
	"fmt"

	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dm/registry"
	"github.com/wowk/godm/dmerr"
)

// UclassID identifies the serial uclass.
const UclassID = "serial"

// DriverName is the name the in-memory UART driver registers under.
const DriverName = "sandbox_uart"

// PlatData is a UART's static, build-time configuration: which
// platform-specific port it multiplexes onto. Descriptor.PlatData
// carries one of these for statically bound UARTs.
type PlatData struct {
	Port int
}

// Priv is the UART's per-device runtime state, set by the driver's
// probe hook; Driver.PrivSize only sizes the probe engine's statistics.
type Priv struct {
	Port   int
	opened bool
	tx     []byte
}

// Putc appends a byte to the UART's transmit history. It is a stand-in
// for a real hardware write, exercising the same bind->probe->use
// sequence a real driver would.
func (p *Priv) Putc(b byte) error {
	if !p.opened {
		return dmerr.New("serial.Putc", dmerr.DriverError, "uart not probed")
	}
	p.tx = append(p.tx, b)
	return nil
}

// Written returns every byte transmitted so far, for tests.
func (p *Priv) Written() []byte { return p.tx }

func init() {
	registry.RegisterUclassDriver(dm.UclassDriver{
		Name:              "serial",
		UclassID:          UclassID,
		PerDevicePrivSize: 0,
	})
	registry.RegisterDriver(dm.Driver{
		Name:     DriverName,
		UclassID: UclassID,
		Flags:    dm.FlagPreReloc | dm.FlagProbeAfterBind,
		PrivSize: privSize,
		Hooks: dm.Hooks{
			Bind:   bind,
			Probe:  probe,
			Remove: remove,
		},
	})
}

// privSize stands in for unsafe.Sizeof(Priv{}) — the probe engine
// only needs a byte count to size its allocation statistics, not the
// real struct layout, since SetPriv/Priv carry the typed value
// directly rather than through a byte slice in this Go rendition.
const privSize = 32

func bind(d *dm.Device) error {
	return nil
}

func probe(d *dm.Device) error {
	port := 0
	if pd, ok := d.PlatData().(*PlatData); ok && pd != nil {
		port = pd.Port
	}
	d.SetPriv(&Priv{Port: port, opened: true})
	return nil
}

func remove(d *dm.Device, flags dm.RemoveFlag) error {
	if p, ok := d.Priv().(*Priv); ok && p != nil {
		p.opened = false
	}
	return nil
}

// Get resolves dev's Priv, returning an error if dev hasn't been
// probed or isn't a serial device.
func Get(dev *dm.Device) (*Priv, error) {
	p, ok := dev.Priv().(*Priv)
	if !ok || p == nil {
		return nil, dmerr.New("serial.Get", dmerr.NotFound, fmt.Sprintf("device %q has no serial priv", dev.Name()))
	}
	return p, nil
}
