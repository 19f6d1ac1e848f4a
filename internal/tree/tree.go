// Package tree implements the lazily populated cache of the remote filesystem.
//
// Nodes live in an arena indexed by NodeID. Every node owns the ids of its children and
// points to its parent with a plain id, so there is no ownership cycle. Slots of removed
// nodes are never reused, a stale id always resolves to ErrNotFound.
//
// A Tree is not safe for concurrent use, it belongs to the interactive context.
package tree

import (
	"fmt"
	"strings"
	"time"

	"github.com/slok/rbrowse/internal/model"
)

// NodeID identifies a node inside a tree.
type NodeID int

const (
	// RootID is the synthetic root, its children are the volumes.
	RootID NodeID = 0
	// NoParent is the parent of the root.
	NoParent NodeID = -1
)

// Separator is the remote path separator.
const Separator = "/"

// NodeKind is the kind of a node.
type NodeKind string

const (
	KindDirectory NodeKind = "directory"
	KindFile      NodeKind = "file"
)

// Node is a cached remote filesystem entry.
type Node struct {
	ID       NodeID
	Name     string
	Kind     NodeKind
	ModTime  *time.Time
	Size     *int64
	Loaded   bool
	Parent   NodeID
	Children []NodeID
}

// IsDir returns true for directories, the root is a directory.
func (n Node) IsDir() bool { return n.Kind == KindDirectory }

// Tree is the directory tree cache.
type Tree struct {
	nodes []*Node
}

// New returns a tree with only the synthetic root.
func New() *Tree {
	return &Tree{
		nodes: []*Node{{ID: RootID, Kind: KindDirectory, Parent: NoParent}},
	}
}

func (t *Tree) get(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(t.nodes) || t.nodes[id] == nil {
		return nil, fmt.Errorf("node %d: %w", id, model.ErrNotFound)
	}
	return t.nodes[id], nil
}

// Node returns a copy of a node.
func (t *Tree) Node(id NodeID) (Node, error) {
	n, err := t.get(id)
	if err != nil {
		return Node{}, err
	}

	cp := *n
	cp.Children = append([]NodeID(nil), n.Children...)
	return cp, nil
}

// Children returns the ids of the children of a node.
func (t *Tree) Children(id NodeID) ([]NodeID, error) {
	n, err := t.get(id)
	if err != nil {
		return nil, err
	}
	return append([]NodeID(nil), n.Children...), nil
}

// Path resolves the remote path of a node walking its ancestors up to the root. The
// root has an empty path.
func (t *Tree) Path(id NodeID) (string, error) {
	segments := []string{}
	for current := id; current != RootID; {
		n, err := t.get(current)
		if err != nil {
			return "", err
		}
		segments = append(segments, n.Name)
		current = n.Parent
	}

	// Ancestor to descendant order.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	return JoinPath(segments...), nil
}

// JoinPath joins path segments with the separator. Volume segments that already end with
// the separator (`C:/`, `/`) do not get it duplicated.
func JoinPath(segments ...string) string {
	p := ""
	for i, s := range segments {
		if i == 0 {
			p = s
			continue
		}
		p = strings.TrimSuffix(p, Separator) + Separator + s
	}
	return p
}

// SetVolumes replaces the root children with the volumes and marks the root as loaded.
func (t *Tree) SetVolumes(volumes []string) {
	listing := model.Listing{}
	for _, v := range volumes {
		listing.Dirs = append(listing.Dirs, model.Entry{Name: v})
	}
	// The root always exists.
	_ = t.SetListing(RootID, listing)
}

// SetListing applies a remote listing to a directory node and marks it as loaded.
//
// Children that are still present keep their node (and their loaded subtree), their
// metadata is refreshed. Children that disappeared are removed with their subtree.
func (t *Tree) SetListing(id NodeID, listing model.Listing) error {
	n, err := t.get(id)
	if err != nil {
		return err
	}
	if !n.IsDir() {
		return fmt.Errorf("node %d is not a directory: %w", id, model.ErrNotValid)
	}

	type key struct {
		name string
		kind NodeKind
	}
	existing := map[key]NodeID{}
	for _, cid := range n.Children {
		c := t.nodes[cid]
		existing[key{c.Name, c.Kind}] = cid
	}

	children := make([]NodeID, 0, len(listing.Dirs)+len(listing.Files))
	add := func(e model.Entry, kind NodeKind) {
		k := key{e.Name, kind}
		if cid, ok := existing[k]; ok {
			c := t.nodes[cid]
			c.ModTime = e.ModTime
			c.Size = e.Size
			children = append(children, cid)
			delete(existing, k)
			return
		}

		cid := NodeID(len(t.nodes))
		t.nodes = append(t.nodes, &Node{
			ID:      cid,
			Name:    e.Name,
			Kind:    kind,
			ModTime: e.ModTime,
			Size:    e.Size,
			Parent:  id,
		})
		children = append(children, cid)
	}

	for _, d := range listing.Dirs {
		add(d, KindDirectory)
	}
	for _, f := range listing.Files {
		add(f, KindFile)
	}

	for _, cid := range existing {
		t.drop(cid)
	}

	n.Children = children
	n.Loaded = true
	return nil
}

// Rename changes the name of a node, returns the previous name.
func (t *Tree) Rename(id NodeID, name string) (string, error) {
	if id == RootID {
		return "", fmt.Errorf("root can't be renamed: %w", model.ErrNotValid)
	}
	if name == "" || name == "." || name == ".." || strings.Contains(name, Separator) {
		return "", fmt.Errorf("invalid name %q: %w", name, model.ErrNotValid)
	}

	n, err := t.get(id)
	if err != nil {
		return "", err
	}

	old := n.Name
	n.Name = name
	return old, nil
}

// Remove removes a node and its subtree from the cache.
func (t *Tree) Remove(id NodeID) error {
	if id == RootID {
		return fmt.Errorf("root can't be removed: %w", model.ErrNotValid)
	}

	n, err := t.get(id)
	if err != nil {
		return err
	}

	parent := t.nodes[n.Parent]
	for i, cid := range parent.Children {
		if cid == id {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			break
		}
	}

	t.drop(id)
	return nil
}

// Invalidate marks a directory as not loaded so the next expansion lists it again.
func (t *Tree) Invalidate(id NodeID) error {
	n, err := t.get(id)
	if err != nil {
		return err
	}
	n.Loaded = false
	return nil
}

// Lookup finds a loaded node by its remote path.
func (t *Tree) Lookup(p string) (NodeID, error) {
	if p == "" {
		return RootID, nil
	}

	current := RootID
	for {
		n := t.nodes[current]
		var next NodeID = NoParent
		for _, cid := range n.Children {
			cp, _ := t.Path(cid)
			if cp == p || strings.TrimSuffix(cp, Separator) == strings.TrimSuffix(p, Separator) {
				return cid, nil
			}
			if strings.HasPrefix(p, strings.TrimSuffix(cp, Separator)+Separator) {
				next = cid
				break
			}
		}
		if next == NoParent {
			return 0, fmt.Errorf("path %q: %w", p, model.ErrNotFound)
		}
		current = next
	}
}

// Len returns the number of live nodes, root included.
func (t *Tree) Len() int {
	count := 0
	for _, n := range t.nodes {
		if n != nil {
			count++
		}
	}
	return count
}

// drop frees the arena slots of a subtree.
func (t *Tree) drop(id NodeID) {
	n := t.nodes[id]
	if n == nil {
		return
	}
	for _, cid := range n.Children {
		t.drop(cid)
	}
	t.nodes[id] = nil
}
