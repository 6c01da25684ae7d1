package graph

import (
	"testing"

	"github.com/neopilotai/memobuild/internal/recipe"
)

const sampleRecipe = `
FROM alpine:3.18
WORKDIR /app
COPY . /app
RUN echo hi
`

func TestLinearChainDeps(t *testing.T) {
	instrs := recipe.Parse(sampleRecipe)
	if len(instrs) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(instrs))
	}
	g := Build(instrs, "/project")
	if len(g.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(g.Nodes))
	}

	want := [][]int{nil, {0}, {1}, {2}}
	for i, n := range g.Nodes {
		if n.ID != i {
			t.Errorf("node %d: ID = %d", i, n.ID)
		}
		if len(n.Deps) != len(want[i]) {
			t.Errorf("node %d: deps = %v, want %v", i, n.Deps, want[i])
			continue
		}
		for j := range n.Deps {
			if n.Deps[j] != want[i][j] {
				t.Errorf("node %d: deps = %v, want %v", i, n.Deps, want[i])
			}
		}
	}
}

func TestCopyDotResolvesToProjectRoot(t *testing.T) {
	instrs := recipe.Parse(sampleRecipe)
	g := Build(instrs, "/project")
	copyNode := g.Nodes[2]
	if copyNode.SourcePath != "/project" {
		t.Errorf("SourcePath = %q, want /project", copyNode.SourcePath)
	}
}

func TestCopyNonDotJoinsProjectRoot(t *testing.T) {
	instrs := recipe.Parse("FROM a\nCOPY src/app /app\n")
	g := Build(instrs, "/project")
	copyNode := g.Nodes[1]
	if copyNode.SourcePath != "/project/src/app" {
		t.Errorf("SourcePath = %q, want /project/src/app", copyNode.SourcePath)
	}
}

func TestEnvAccumulatesAcrossNodes(t *testing.T) {
	instrs := recipe.Parse("FROM a\nENV FOO=bar\nWORKDIR /x\nENV BAZ=qux\nRUN echo\n")
	g := Build(instrs, "/project")

	// Node 2 (WORKDIR) should see FOO but not BAZ.
	workdir := g.Nodes[2]
	if workdir.Env["FOO"] != "bar" {
		t.Errorf("expected FOO=bar visible at WORKDIR node, got %v", workdir.Env)
	}
	if _, ok := workdir.Env["BAZ"]; ok {
		t.Error("BAZ should not be visible before its ENV node")
	}

	// Node 4 (RUN) should see both.
	run := g.Nodes[4]
	if run.Env["FOO"] != "bar" || run.Env["BAZ"] != "qux" {
		t.Errorf("expected both env vars visible at RUN node, got %v", run.Env)
	}
}

func TestGitDefaultTargetDir(t *testing.T) {
	instrs := recipe.Parse("FROM a\nGIT https://example.com/repo.git\n")
	g := Build(instrs, "/project")
	gitNode := g.Nodes[1]
	if gitNode.Instruction().Dst != "." {
		t.Errorf("expected default target dir '.', got %q", gitNode.Instruction().Dst)
	}
}

func TestMalformedFromRefRecordsDiagnosticNotFailure(t *testing.T) {
	instrs := recipe.Parse("FROM alpine::::not-a-valid-ref\n")
	g := Build(instrs, "/project")
	if len(g.Nodes) != 1 {
		t.Fatalf("expected node to still be built, got %d nodes", len(g.Nodes))
	}
	if g.Nodes[0].Diagnostic == nil {
		t.Error("expected a diagnostic for malformed image ref")
	}
}
