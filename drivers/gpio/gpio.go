// Package gpio implements the gpio uclass and two competing GPIO
// controller drivers used to exercise compatible-string priority
// matching: a generic driver that understands a newer compatible
// string and a legacy driver that only understands the older one.
package gpio

import (
	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dm/registry"
	"github.com/wowk/godm/dmerr"
)

// UclassID identifies the gpio uclass.
const UclassID = "gpio"

// Compatible strings a GPIO controller node in the hardware
// description tree may declare, in the priority order a real node
// would list them (newest first).
const (
	CompatGeneric = "vendor,gpio-v2"
	CompatLegacy  = "vendor,gpio-v1"
)

// Priv is a bound GPIO controller's runtime state.
type Priv struct {
	Generation int
	lines      map[string]bool
}

// SetLine drives a named line high or low.
func (p *Priv) SetLine(name string, high bool) {
	if p.lines == nil {
		p.lines = map[string]bool{}
	}
	p.lines[name] = high
}

// Line reports a named line's last driven state.
func (p *Priv) Line(name string) bool { return p.lines[name] }

func init() {
	registry.RegisterUclassDriver(dm.UclassDriver{
		Name:     "gpio",
		UclassID: UclassID,
	})

	// gpio_legacy is registered first, so a naive "first driver wins"
	// match would pick it whenever a node lists CompatLegacy at all.
	// The priority tie-break rule means gpio_generic still wins for any
	// node that also lists CompatGeneric, since that string is earlier
	// in the node's own priority order (spec §4.4).
	registry.RegisterDriver(dm.Driver{
		Name:     "gpio_legacy",
		UclassID: UclassID,
		OfMatch:  []dm.OfMatch{{Compatible: CompatLegacy, MatchData: 1}},
		PrivSize: privSize,
		Hooks:    dm.Hooks{Probe: probe},
	})
	registry.RegisterDriver(dm.Driver{
		Name:     "gpio_generic",
		UclassID: UclassID,
		OfMatch: []dm.OfMatch{
			{Compatible: CompatGeneric, MatchData: 2},
			{Compatible: CompatLegacy, MatchData: 1},
		},
		PrivSize: privSize,
		Hooks:    dm.Hooks{Probe: probe},
	})

	// gpio_fuse_blown demonstrates a driver whose bind hook always
	// refuses, exercising dmerr.Refused's clean-teardown path rather
	// than a hook failure.
	registry.RegisterDriver(dm.Driver{
		Name:     "gpio_fuse_blown",
		UclassID: UclassID,
		OfMatch:  []dm.OfMatch{{Compatible: "vendor,gpio-fused", MatchData: 0}},
		Hooks:    dm.Hooks{Bind: refuseBind},
	})
}

const privSize = 16

func probe(d *dm.Device) error {
	gen, _ := d.MatchData().(int)
	d.SetPriv(&Priv{Generation: gen})
	return nil
}

func refuseBind(d *dm.Device) error {
	return dmerr.New("gpio.refuseBind", dmerr.Refused, "fused-off controller "+d.Name()+" is not present on this board")
}

// Get resolves dev's Priv, returning an error if dev isn't a probed
// gpio device.
func Get(dev *dm.Device) (*Priv, error) {
	p, ok := dev.Priv().(*Priv)
	if !ok || p == nil {
		return nil, dmerr.New("gpio.Get", dmerr.NotFound, "device has no gpio priv")
	}
	return p, nil
}
