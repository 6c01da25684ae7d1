// Package executor walks a graph whose nodes already carry computed hashes,
// probing the hybrid cache for each node's artifact and invoking an
// external materializer on a miss. The external materializer (sandboxed
// step execution) and the cache's storage details are both interfaces —
// this package is the traversal and cache-coherence logic, not the thing
// that produces bytes.
package executor

import (
	"github.com/neopilotai/memobuild/internal/buildlog"
	"github.com/neopilotai/memobuild/internal/buildrr"
	"github.com/neopilotai/memobuild/internal/graph"
)

// ArtifactCache is the subset of the hybrid cache's capability the executor
// needs.
type ArtifactCache interface {
	GetArtifact(key string) (data []byte, ok bool, err error)
	PutArtifact(key string, data []byte) error
}

// Materializer produces an artifact for a node that missed cache. Errors
// surface as a StorageError tied to the node.
type Materializer func(node *graph.Node) ([]byte, error)

// Executor traverses a graph in topological order, consulting cache for
// each node and invoking the materializer on a miss.
type Executor struct {
	cache       ArtifactCache
	materialize Materializer
	log         *buildlog.Log // optional; nil is a valid no-op sink
}

// New creates an Executor against cache, using materialize to produce
// artifacts on a cache miss. log may be nil to skip build-event logging.
func New(cache ArtifactCache, materialize Materializer, log *buildlog.Log) *Executor {
	return &Executor{cache: cache, materialize: materialize, log: log}
}

// Run executes every node of g in topological order. Every node must
// already have a non-empty Hash (the key computer's contract). On a fatal
// error, Run aborts immediately and returns it; already-processed nodes'
// Dirty/CacheHit flags remain as set.
func (e *Executor) Run(g *graph.BuildGraph) error {
	order := topoOrder(g)
	for _, id := range order {
		node := g.Nodes[id]
		if err := e.runNode(node); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runNode(node *graph.Node) error {
	_, hit, err := e.cache.GetArtifact(node.Hash)
	if err != nil {
		e.event(node.ID, buildlog.EventError, err.Error())
		return buildrr.WithNode(node.ID, "cache probe", err)
	}

	if hit {
		node.Dirty = false
		node.CacheHit = true
		e.event(node.ID, buildlog.EventHit, node.Hash)
		return nil
	}

	// A clean, uncached node should not occur when hashing is correct;
	// treat it as equivalent to dirty rather than skipping materialization,
	// since skipping would silently serve nothing for a node with no
	// cached artifact.
	e.event(node.ID, buildlog.EventMiss, node.Hash)

	artifact, err := e.materialize(node)
	if err != nil {
		e.event(node.ID, buildlog.EventError, err.Error())
		return buildrr.StorageNode(node.ID, "materialize node", err)
	}

	e.event(node.ID, buildlog.EventMaterialize, node.Hash)
	if err := e.cache.PutArtifact(node.Hash, artifact); err != nil {
		if kind, ok := buildrr.ErrorKind(err); ok && kind == buildrr.KindSync {
			// Best-effort remote propagation failed; the local write
			// already succeeded. Don't abort the build for this.
			node.Dirty = false
			return nil
		}
		e.event(node.ID, buildlog.EventError, err.Error())
		return err
	}

	node.Dirty = false
	return nil
}

func (e *Executor) event(nodeID int, kind buildlog.EventKind, detail string) {
	if e.log == nil {
		return
	}
	e.log.Append(nodeID, kind, detail)
}

// topoOrder returns node ids in execution order via DFS: recurse into each
// node's children (the nodes that depend on it) first, append the node to
// a post-order list afterward, then reverse — yielding parents before
// children. For this design's linear chain this always equals insertion
// order, but the traversal is written generally.
func topoOrder(g *graph.BuildGraph) []int {
	childrenOf := make(map[int][]int, len(g.Nodes))
	for _, n := range g.Nodes {
		for _, dep := range n.Deps {
			childrenOf[dep] = append(childrenOf[dep], n.ID)
		}
	}

	visited := make([]bool, len(g.Nodes))
	postOrder := make([]int, 0, len(g.Nodes))

	var visit func(id int)
	visit = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, child := range childrenOf[id] {
			visit(child)
		}
		postOrder = append(postOrder, id)
	}
	for _, n := range g.Nodes {
		visit(n.ID)
	}

	for i, j := 0, len(postOrder)-1; i < j; i, j = i+1, j-1 {
		postOrder[i], postOrder[j] = postOrder[j], postOrder[i]
	}
	return postOrder
}
