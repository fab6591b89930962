package hdt

// FakeNode is an in-memory hardware description tree node, used by
// tests, the diagnostic CLI's demo tree, and anywhere else a real HDT
// parser isn't available. Raw compatible bytes are stored pre-parsed
// since there is no wire format to round-trip here.
type FakeNode struct {
	name       string
	compatible []string
	enabled    bool
	preReloc   bool
	children   []*FakeNode
	valid      bool
}

// NewFakeNode creates an enabled, valid node with the given name and
// compatible strings in priority order (high to low).
func NewFakeNode(name string, compatible ...string) *FakeNode {
	return &FakeNode{name: name, compatible: compatible, enabled: true, valid: true}
}

// Name satisfies dm.HDTNode.
func (n *FakeNode) Name() string { return n.name }

// Compatible satisfies dm.HDTNode.
func (n *FakeNode) Compatible() []string { return n.compatible }

// IsEnabled satisfies dm.HDTNode.
func (n *FakeNode) IsEnabled() bool { return n.enabled }

// IsPreReloc satisfies dm.HDTNode.
func (n *FakeNode) IsPreReloc() bool { return n.preReloc }

// Valid satisfies hdt.Node.
func (n *FakeNode) Valid() bool { return n.valid }

// Disable marks the node disabled, as if its HDT status property were "disabled".
func (n *FakeNode) Disable() *FakeNode { n.enabled = false; return n }

// MarkPreReloc marks the node available before relocation.
func (n *FakeNode) MarkPreReloc() *FakeNode { n.preReloc = true; return n }

// AddChild appends a child subnode, in the order children should be walked.
func (n *FakeNode) AddChild(child *FakeNode) *FakeNode {
	n.children = append(n.children, child)
	return n
}

// FakeTree is an in-memory Cursor implementation over a tree of FakeNodes.
type FakeTree struct {
	root  *FakeNode
	paths map[string]*FakeNode
}

// NewFakeTree creates a Cursor rooted at root, with the given named
// auxiliary paths (e.g. "/chosen") registered for Path lookups.
func NewFakeTree(root *FakeNode, paths map[string]*FakeNode) *FakeTree {
	if paths == nil {
		paths = map[string]*FakeNode{}
	}
	return &FakeTree{root: root, paths: paths}
}

// RootNode satisfies Cursor.
func (t *FakeTree) RootNode() Node { return t.root }

// FirstSubnode satisfies Cursor.
func (t *FakeTree) FirstSubnode(n Node) (Node, bool) {
	fn, ok := n.(*FakeNode)
	if !ok || len(fn.children) == 0 {
		return nil, false
	}
	return fn.children[0], true
}

// NextSubnode satisfies Cursor. It finds n among its parent's children
// by walking the whole tree, since FakeNode carries no parent
// back-reference; this is O(tree size) per call, acceptable for the
// small fixture trees this type is meant for.
func (t *FakeTree) NextSubnode(n Node) (Node, bool) {
	fn, ok := n.(*FakeNode)
	if !ok {
		return nil, false
	}
	var found Node
	var ok2 bool
	visit(t.root, func(parent *FakeNode) bool {
		for i, c := range parent.children {
			if c == fn {
				if i+1 < len(parent.children) {
					found, ok2 = parent.children[i+1], true
				}
				return true
			}
		}
		return false
	})
	return found, ok2
}

// Path satisfies Cursor.
func (t *FakeTree) Path(path string) (Node, bool) {
	n, ok := t.paths[path]
	return n, ok
}

// visit walks the tree depth-first, calling fn on every node; it does
// not descend below a node for which fn returns true, but the walk
// still continues over that node's remaining siblings.
func visit(n *FakeNode, fn func(*FakeNode) bool) {
	if fn(n) {
		return
	}
	for _, c := range n.children {
		visit(c, fn)
	}
}
