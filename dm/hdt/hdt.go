// Package hdt defines the hardware description tree cursor contract
// the core requires from the HDT subsystem (spec §6) and ships an
// in-memory implementation for tests, fixtures, and the diagnostic
// CLI. The real parser is an external collaborator out of scope for
// this module — this package only specifies the shape it must expose.
package hdt

import (
	"github.com/wowk/godm/dm"
)

// Node is one node of the hardware description tree. It satisfies
// dm.HDTNode so it can be passed straight into the binder.
type Node interface {
	dm.HDTNode
	// Valid reports whether the node handle still refers to a live
	// node (get_property and friends are undefined otherwise).
	Valid() bool
}

// Cursor is the node-cursor API the core requires from the HDT
// subsystem: root_node, first/next_subnode, is_valid, is_enabled,
// pre_reloc, get_name, get_property("compatible"), and path lookup
// (spec §6).
type Cursor interface {
	RootNode() Node
	FirstSubnode(n Node) (Node, bool)
	NextSubnode(n Node) (Node, bool)
	// Path resolves a well-known auxiliary path such as "/chosen" to
	// its node, used by extended_scan (spec §4.6).
	Path(path string) (Node, bool)
}
