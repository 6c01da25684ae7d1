// Package hashtree computes content-addressed hashes of files and directory
// trees. The primitive is fixed across the fleet — every machine computing a
// cache key MUST use the same hash function, or cache entries silently stop
// matching. BLAKE3 is that fixed primitive here.
package hashtree

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/neopilotai/memobuild/internal/buildrr"
	"github.com/neopilotai/memobuild/internal/ignore"
)

// readChunkSize is the streaming read size used by HashFile.
const readChunkSize = 64 * 1024

// HashFile streams path through the BLAKE3 primitive in readChunkSize
// chunks and returns the hex-encoded digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", buildrr.Storage("open file for hashing", err)
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, readChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", buildrr.Storage("read file for hashing", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type fileDigest struct {
	relPath string
	digest  string
}

// HashDir enumerates every regular file under root, filters it through
// ignore, hashes the survivors in parallel, then folds the results into a
// single top-level digest in an order independent of filesystem enumeration
// order and of which goroutine finishes first: the per-file results are
// sorted by relative path before being fed to the top-level hasher.
//
// If root does not exist, HashDir returns the empty string rather than an
// error — a Copy source that a prior Run step has not yet produced must not
// fail key computation (spec'd behavior for not-yet-materialized inputs).
func HashDir(root string, rules *ignore.Rules) (string, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", buildrr.Storage("stat hash root", err)
	}

	var relPaths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rules.IsIgnored(rel) {
			return nil
		}
		relPaths = append(relPaths, rel)
		return nil
	})
	if err != nil {
		return "", buildrr.Storage("walk hash root", err)
	}

	digests := make([]string, len(relPaths))
	g := new(errgroup.Group)
	g.SetLimit(max(runtime.GOMAXPROCS(0), 1))
	for i, rel := range relPaths {
		i, rel := i, rel
		g.Go(func() error {
			d, err := HashFile(filepath.Join(root, rel))
			if err != nil {
				return err
			}
			digests[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	ordered := make([]fileDigest, len(relPaths))
	for i, rel := range relPaths {
		ordered[i] = fileDigest{relPath: filepath.ToSlash(rel), digest: digests[i]}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].relPath < ordered[j].relPath })

	h := blake3.New()
	for _, fd := range ordered {
		h.Write([]byte(fd.relPath))
		h.Write([]byte(fd.digest))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashPath dispatches to HashDir for directories and HashFile for regular
// files. Symlinks, devices, and other irregular entries are deliberately
// degenerate: their digest is simply the hash of the path string itself.
func HashPath(path string, rules *ignore.Rules) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", buildrr.Storage("stat path for hashing", err)
	}
	switch {
	case info.IsDir():
		return HashDir(path, rules)
	case info.Mode().IsRegular():
		return HashFile(path)
	default:
		h := blake3.New()
		h.Write([]byte(path))
		return hex.EncodeToString(h.Sum(nil)), nil
	}
}
