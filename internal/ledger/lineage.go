package ledger

import (
	"context"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

// DefaultTrackDepth bounds lineage walks. The depth bound is the only
// general cycle breaker of the walk.
const DefaultTrackDepth = 10

// Track builds the lineage tree rooted at node. The walk stops when depth
// exceeds maxDepth or the node has no role. An output's children are the
// inputs of its own experiment; an input's children are the other inputs of
// the experiment that created it. Other roles have no children.
func (l *Ledger) Track(ctx context.Context, node types.FileRecord, depth, maxDepth int) (types.FileTree, error) {
	tree := types.FileTree{Node: node}
	if depth > maxDepth || node.Role == types.RoleNone {
		return tree, nil
	}

	var children []types.FileRecord
	switch node.Role {
	case types.RoleOutput:
		inputs, err := l.mappings(ctx, node.Experiment, types.RoleInput)
		if err != nil {
			return tree, err
		}
		children = inputs
	case types.RoleInput:
		if node.Creator == nil {
			return tree, nil
		}
		inputs, err := l.mappings(ctx, *node.Creator, types.RoleInput)
		if err != nil {
			return tree, err
		}
		for _, in := range inputs {
			if in.Hash != node.Hash {
				children = append(children, in)
			}
		}
	default:
		return tree, nil
	}

	for _, child := range children {
		sub, err := l.Track(ctx, child, depth+1, maxDepth)
		if err != nil {
			return tree, err
		}
		tree.Children = append(tree.Children, sub)
	}
	return tree, nil
}
