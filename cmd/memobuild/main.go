// memobuild runs one incremental build: parse a recipe, build its
// dependency graph, compute content-addressed keys for every node, then
// execute the graph against the local (and optionally remote) cache.
//
// Configuration is layered (defaults, optional YAML file, environment
// overrides) the same way the teacher's daemon lays out its own config —
// no flag package, everything driven by MEMOBUILD_* environment variables
// and an optional config file.
package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/neopilotai/memobuild/internal/buildlog"
	"github.com/neopilotai/memobuild/internal/cache/hybrid"
	"github.com/neopilotai/memobuild/internal/cache/local"
	"github.com/neopilotai/memobuild/internal/cache/remote"
	"github.com/neopilotai/memobuild/internal/config"
	"github.com/neopilotai/memobuild/internal/executor"
	"github.com/neopilotai/memobuild/internal/fingerprint"
	"github.com/neopilotai/memobuild/internal/graph"
	"github.com/neopilotai/memobuild/internal/ignore"
	"github.com/neopilotai/memobuild/internal/keycompute"
	"github.com/neopilotai/memobuild/internal/materialize"
	"github.com/neopilotai/memobuild/internal/recipe"
	"github.com/neopilotai/memobuild/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("memobuild %s starting", version.Version())

	cfg, err := config.Load(os.Getenv("MEMOBUILD_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureCacheRoot(); err != nil {
		log.Fatalf("prepare cache root: %v", err)
	}
	log.Printf("cache root: %s", cfg.CacheRoot)

	projectRoot, err := projectRootDir()
	if err != nil {
		log.Fatalf("resolve project root: %v", err)
	}

	recipePath := os.Getenv("MEMOBUILD_RECIPE")
	if recipePath == "" {
		recipePath = filepath.Join(projectRoot, "Memofile")
	}
	recipeText, err := os.ReadFile(recipePath)
	if err != nil {
		log.Fatalf("read recipe %s: %v", recipePath, err)
	}

	rules := ignore.Empty()
	if cfg.IgnoreFile != "" {
		data, err := os.ReadFile(cfg.IgnoreFile)
		if err != nil && !os.IsNotExist(err) {
			log.Fatalf("read ignore file: %v", err)
		}
		if err == nil {
			rules = ignore.New(data)
		}
	}

	instructions := recipe.Parse(string(recipeText))
	log.Printf("parsed %d instruction(s) from %s", len(instructions), recipePath)

	g := graph.Build(instructions, projectRoot)
	for _, n := range g.Nodes {
		if n.Diagnostic != nil {
			log.Printf("node %d (%s): non-fatal validation: %v", n.ID, n.Kind, n.Diagnostic)
		}
	}

	fp := fingerprint.Collect()
	if err := keycompute.Compute(g, rules, fp); err != nil {
		log.Fatalf("compute keys: %v", err)
	}

	localCache, err := local.New(cfg.CacheRoot)
	if err != nil {
		log.Fatalf("open local cache: %v", err)
	}

	var remoteCache *remote.Client
	if cfg.RemoteURL != "" {
		remoteCache = remote.NewClient(cfg.RemoteURL)
		log.Printf("remote cache: %s", cfg.RemoteURL)
	}
	artifactCache := hybrid.New(localCache, wrapRemote(remoteCache))

	buildLog, err := buildlog.Open(filepath.Join(cfg.CacheRoot, "build.ndjson"), func() int64 { return time.Now().Unix() })
	if err != nil {
		log.Fatalf("open build log: %v", err)
	}
	defer buildLog.Close()

	ex := executor.New(artifactCache, materialize.Default, buildLog)
	if err := ex.Run(g); err != nil {
		log.Fatalf("build failed: %v", err)
	}

	hits, total := 0, len(g.Nodes)
	for _, n := range g.Nodes {
		if n.CacheHit {
			hits++
		}
	}
	log.Printf("build complete: %d/%d node(s) served from cache", hits, total)
}

// wrapRemote adapts a possibly-nil *remote.Client to hybrid.RemoteCache; a
// nil interface value (not a nil-but-typed pointer) tells hybrid.Cache to
// skip the remote tier entirely.
func wrapRemote(c *remote.Client) hybrid.RemoteCache {
	if c == nil {
		return nil
	}
	return c
}

func projectRootDir() (string, error) {
	if v := os.Getenv("MEMOBUILD_PROJECT_ROOT"); v != "" {
		return filepath.Abs(v)
	}
	return os.Getwd()
}
