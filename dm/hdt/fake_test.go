package hdt_test

import (
	"testing"

	"go.viam.com/test"

	"github.com/wowk/godm/dm/hdt"
)

func TestFakeTreeWalksSubnodesInOrder(t *testing.T) {
	a := hdt.NewFakeNode("a")
	b := hdt.NewFakeNode("b")
	c := hdt.NewFakeNode("c")
	root := hdt.NewFakeNode("/").AddChild(a).AddChild(b).AddChild(c)
	tree := hdt.NewFakeTree(root, nil)

	first, ok := tree.FirstSubnode(tree.RootNode())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, first.Name(), test.ShouldEqual, "a")

	second, ok := tree.NextSubnode(first)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, second.Name(), test.ShouldEqual, "b")

	third, ok := tree.NextSubnode(second)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, third.Name(), test.ShouldEqual, "c")

	_, ok = tree.NextSubnode(third)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFakeTreePathLookup(t *testing.T) {
	chosen := hdt.NewFakeNode("chosen")
	tree := hdt.NewFakeTree(hdt.NewFakeNode("/"), map[string]*hdt.FakeNode{"/chosen": chosen})

	node, ok := tree.Path("/chosen")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, node.Name(), test.ShouldEqual, "chosen")

	_, ok = tree.Path("/missing")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFakeNodeDisableAndPreReloc(t *testing.T) {
	n := hdt.NewFakeNode("gpio@0")
	test.That(t, n.IsEnabled(), test.ShouldBeTrue)
	test.That(t, n.IsPreReloc(), test.ShouldBeFalse)

	n.Disable().MarkPreReloc()
	test.That(t, n.IsEnabled(), test.ShouldBeFalse)
	test.That(t, n.IsPreReloc(), test.ShouldBeTrue)
}
