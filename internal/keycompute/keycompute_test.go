package keycompute

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neopilotai/memobuild/internal/fingerprint"
	"github.com/neopilotai/memobuild/internal/graph"
	"github.com/neopilotai/memobuild/internal/ignore"
	"github.com/neopilotai/memobuild/internal/recipe"
)

func buildTestGraph(t *testing.T, root string) *graph.BuildGraph {
	t.Helper()
	instrs := recipe.Parse("FROM alpine:3.18\nWORKDIR /app\nCOPY . /app\nRUN echo hi\n")
	return graph.Build(instrs, root)
}

func TestAllNodesGetNonEmptyHexHash(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644)

	g := buildTestGraph(t, dir)
	fp := fingerprint.CollectWithProbes(func([]string) (string, bool) { return "", false })
	if err := Compute(g, ignore.Empty(), fp); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, n := range g.Nodes {
		if len(n.Hash) != 64 {
			t.Errorf("node %d: hash = %q, want 64 hex chars", n.ID, n.Hash)
		}
	}
}

func TestIdenticalInputsProduceIdenticalKeys(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644)

	fp := fingerprint.CollectWithProbes(func([]string) (string, bool) { return "", false })

	g1 := buildTestGraph(t, dir)
	Compute(g1, ignore.Empty(), fp)
	g2 := buildTestGraph(t, dir)
	Compute(g2, ignore.Empty(), fp)

	for i := range g1.Nodes {
		if g1.Nodes[i].Hash != g2.Nodes[i].Hash {
			t.Errorf("node %d: hash differs between identical runs", i)
		}
	}
}

func TestChangingFileContentChangesDownstreamKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	os.WriteFile(path, []byte("package main"), 0644)

	fp := fingerprint.CollectWithProbes(func([]string) (string, bool) { return "", false })

	g1 := buildTestGraph(t, dir)
	Compute(g1, ignore.Empty(), fp)

	os.WriteFile(path, []byte("package main // changed"), 0644)
	g2 := buildTestGraph(t, dir)
	Compute(g2, ignore.Empty(), fp)

	// The COPY node (index 2) and everything after it should change.
	if g1.Nodes[2].Hash == g2.Nodes[2].Hash {
		t.Error("expected COPY node hash to change when file content changes")
	}
	if g1.Nodes[3].Hash == g2.Nodes[3].Hash {
		t.Error("expected downstream RUN node hash to change too")
	}
	// Nodes before the COPY are unaffected.
	if g1.Nodes[0].Hash != g2.Nodes[0].Hash {
		t.Error("FROM node hash should be unaffected by file content change")
	}
}

func TestEnvDriftInvalidatesEveryNode(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644)

	g1 := buildTestGraph(t, dir)
	fp1 := fingerprint.CollectWithProbes(func([]string) (string, bool) { return "", false })
	fp1.EnvVars["PATH"] = "/usr/bin"
	Compute(g1, ignore.Empty(), fp1)

	g2 := buildTestGraph(t, dir)
	fp2 := fingerprint.CollectWithProbes(func([]string) (string, bool) { return "", false })
	fp2.EnvVars["PATH"] = "/opt/bin"
	Compute(g2, ignore.Empty(), fp2)

	for i := range g1.Nodes {
		if g1.Nodes[i].Hash == g2.Nodes[i].Hash {
			t.Errorf("node %d: expected hash to differ after PATH drift", i)
		}
	}
}

func TestMissingCopySourceContributesEmptyHashNotError(t *testing.T) {
	dir := t.TempDir()
	instrs := recipe.Parse("FROM a\nCOPY nonexistent /app\n")
	g := graph.Build(instrs, dir)
	fp := fingerprint.CollectWithProbes(func([]string) (string, bool) { return "", false })
	if err := Compute(g, ignore.Empty(), fp); err != nil {
		t.Fatalf("Compute should not fail on missing copy source: %v", err)
	}
	if len(g.Nodes[1].Hash) != 64 {
		t.Errorf("expected a valid hash even for missing source, got %q", g.Nodes[1].Hash)
	}
}
