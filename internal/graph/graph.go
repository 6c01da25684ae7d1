// Package graph turns a parsed instruction list into a linear dependency
// graph: one Node per instruction, each depending on its immediate
// predecessor. The graph builder is also where forgiving, non-fatal
// validation of FROM image references and GIT URLs happens — a bad
// reference becomes a recorded diagnostic, never a parse failure.
package graph

import (
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/google/go-containerregistry/pkg/name"

	"github.com/neopilotai/memobuild/internal/buildrr"
	"github.com/neopilotai/memobuild/internal/recipe"
)

// Node is one graph vertex.
type Node struct {
	// ID is a dense integer index, equal to this node's position in the
	// graph's node list.
	ID int

	// Kind carries the instruction variant this node was built from.
	Kind recipe.Kind

	// Content is the canonical textual form of the instruction, part of
	// the key preimage.
	Content string

	// Deps is the set of parent node ids. Always {ID-1} for non-initial
	// nodes, empty for the first.
	Deps []int

	// Env is the key→value mapping of environment overrides introduced
	// at or before this node.
	Env map[string]string

	// SourcePath is the absolute path the hasher reads for Copy nodes;
	// empty for every other kind.
	SourcePath string

	// Hash is the computed content-address (hex string); empty until the
	// key computer runs.
	Hash string

	// Dirty reports whether the node needs materialization this run;
	// set by the executor based on its cache probe.
	Dirty bool

	// CacheHit is a diagnostic flag set when the executor served this
	// node's artifact from cache.
	CacheHit bool

	// Diagnostic holds a non-fatal validation finding (e.g. an
	// unparseable FROM image ref or GIT url); nil when validation
	// passed or does not apply to this node's kind.
	Diagnostic error

	// instruction is kept so later passes (the key computer) can read
	// kind-specific payload without re-deriving it from Content.
	instruction recipe.Instruction
}

// Instruction returns the parsed instruction this node was built from.
func (n *Node) Instruction() recipe.Instruction { return n.instruction }

// BuildGraph owns its node vector exclusively. Its lifetime spans one build
// invocation.
type BuildGraph struct {
	Nodes []*Node
}

// Build constructs a BuildGraph from an instruction list. projectRoot is the
// process's working directory at graph-build time and is the base for
// resolving Copy sources.
func Build(instructions []recipe.Instruction, projectRoot string) *BuildGraph {
	g := &BuildGraph{Nodes: make([]*Node, 0, len(instructions))}

	env := map[string]string{}
	for i, inst := range instructions {
		node := &Node{
			ID:          i,
			Kind:        inst.Kind,
			Content:     inst.Canonical(),
			instruction: inst,
		}
		if i > 0 {
			node.Deps = []int{i - 1}
		}

		switch inst.Kind {
		case recipe.KindCopy:
			if inst.Src == "." {
				node.SourcePath = projectRoot
			} else {
				node.SourcePath = filepath.Join(projectRoot, inst.Src)
			}
		case recipe.KindEnv:
			// Copy-on-write: each node's env map reflects all overrides
			// introduced at or before it, without nodes downstream of
			// this one sharing a mutable map with it.
			next := make(map[string]string, len(env)+1)
			for k, v := range env {
				next[k] = v
			}
			next[inst.EnvKey] = inst.EnvValue
			env = next
		case recipe.KindFrom:
			if _, err := name.ParseReference(inst.ImageRef); err != nil {
				node.Diagnostic = buildrr.ConstraintViolationNode(i, "validate FROM image ref", err)
			}
		case recipe.KindGit:
			if _, err := transport.NewEndpoint(inst.Src); err != nil {
				node.Diagnostic = buildrr.ConstraintViolationNode(i, "validate GIT url", err)
			}
		}
		node.Env = env

		g.Nodes = append(g.Nodes, node)
	}
	return g
}

// SortedEnvKeys returns the node's env map keys in sorted order, used by the
// key computer to build a deterministic preimage.
func (n *Node) SortedEnvKeys() []string {
	keys := make([]string, 0, len(n.Env))
	for k := range n.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
