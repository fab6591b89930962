package registry

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wowk/godm/dm"
)

// yamlDescriptorTable is the on-disk shape of a board's descriptor
// table: an ordered list of {name, driver, parent} entries. Parent is a name
// reference into the same list rather than an index, since hand
// editing numeric indices is error prone; LoadDescriptorsYAML resolves
// names to indices in declaration order before registering.
type yamlDescriptorTable struct {
	Descriptors []yamlDescriptor `yaml:"descriptors"`
}

type yamlDescriptor struct {
	Name   string `yaml:"name"`
	Driver string `yaml:"driver"`
	Parent string `yaml:"parent"`
}

// LoadDescriptorsYAML parses a board's descriptor table from YAML and
// registers it into r, in file order. This never replaces the
// compiled descriptor table described in spec §4.1/§9 — it exists for
// board variants and test fixtures where recompiling the image per
// board is undesirable (see SPEC_FULL.md Configuration section).
func LoadDescriptorsYAML(r *Registry, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading descriptor table %q", path)
	}
	var table yamlDescriptorTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return errors.Wrapf(err, "parsing descriptor table %q", path)
	}

	base := len(r.Descriptors())
	indexByName := make(map[string]int, len(table.Descriptors))
	for i, yd := range table.Descriptors {
		indexByName[yd.Name] = base + i
	}

	for _, yd := range table.Descriptors {
		parentIdx := dm.NoParent
		if yd.Parent != "" {
			idx, ok := indexByName[yd.Parent]
			if !ok {
				return errors.Errorf("descriptor %q references unknown parent %q", yd.Name, yd.Parent)
			}
			parentIdx = idx
		}
		r.RegisterDescriptor(dm.Descriptor{
			Name:       yd.Name,
			DriverName: yd.Driver,
			ParentIdx:  parentIdx,
		})
	}
	return nil
}
