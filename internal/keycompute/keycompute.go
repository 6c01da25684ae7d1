// Package keycompute derives each graph node's content address from its
// parent's key, its own instruction, its filesystem inputs, its
// environment overrides, and the global environment fingerprint.
package keycompute

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/neopilotai/memobuild/internal/fingerprint"
	"github.com/neopilotai/memobuild/internal/graph"
	"github.com/neopilotai/memobuild/internal/hashtree"
	"github.com/neopilotai/memobuild/internal/ignore"
)

// Compute walks g in topological (= insertion) order and populates every
// node's Hash. Because nodes are visited in order, each node's parent hash
// is already available when needed.
func Compute(g *graph.BuildGraph, rules *ignore.Rules, fp *fingerprint.Fingerprint) error {
	fpHash := fp.Hash()

	for _, n := range g.Nodes {
		h := blake3.New()

		for _, depID := range n.Deps {
			h.Write([]byte(g.Nodes[depID].Hash))
		}

		h.Write([]byte(n.Content))

		if n.SourcePath != "" {
			treeHash, err := hashtree.HashPath(n.SourcePath, rules)
			if err != nil {
				return err
			}
			h.Write([]byte(treeHash))
		}

		for _, k := range n.SortedEnvKeys() {
			h.Write([]byte(k))
			h.Write([]byte(n.Env[k]))
		}

		h.Write([]byte(fpHash))

		n.Hash = hex.EncodeToString(h.Sum(nil))
	}
	return nil
}
