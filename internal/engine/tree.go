package engine

import "github.com/egormoroz/gm-bit/internal/board"

// Tree records every visited node of a search for offline inspection.
// A nil *Tree is a valid no-op recorder, which is what release builds use.
type TreeNode struct {
	Move   board.Move
	Alpha  int
	Beta   int
	Depth  int
	Ply    int
	Score  int
	Parent int
}

type Tree struct {
	nodes []TreeNode
	open  int
}

func NewTree() *Tree {
	return &Tree{open: -1}
}

func (t *Tree) Clear() {
	if t == nil {
		return
	}
	t.nodes = t.nodes[:0]
	t.open = -1
}

// BeginNode opens a child of the currently open node and returns its handle.
func (t *Tree) BeginNode(m board.Move, alpha, beta, depth, ply int) int {
	if t == nil {
		return -1
	}
	idx := len(t.nodes)
	t.nodes = append(t.nodes, TreeNode{
		Move: m, Alpha: alpha, Beta: beta,
		Depth: depth, Ply: ply, Parent: t.open,
	})
	t.open = idx
	return idx
}

// EndNode closes the node, recording its final score.
func (t *Tree) EndNode(idx int, score int) {
	if t == nil || idx < 0 {
		return
	}
	t.nodes[idx].Score = score
	t.open = t.nodes[idx].Parent
}

func (t *Tree) Size() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

func (t *Tree) Node(i int) TreeNode { return t.nodes[i] }

// Children returns the handles of a node's direct children; parent -1 walks
// the roots.
func (t *Tree) Children(parent int) []int {
	if t == nil {
		return nil
	}
	var out []int
	for i := range t.nodes {
		if t.nodes[i].Parent == parent {
			out = append(out, i)
		}
	}
	return out
}
