// Package materialize provides a reference Materializer: the external
// collaborator the executor calls on a cache miss (spec'd as out of scope
// — real sandboxed step execution belongs to a separate system). This
// reference implementation is only a standee for demos and tests: it
// archives a Copy node's source tree into an in-memory tarball, adapted
// from the teacher's tar-pipe overlay copy (internal/overlay/copy.go),
// which preserves symlinks and permissions the same way a full step
// executor's artifact snapshot would need to. Non-Copy nodes produce a
// small deterministic blob describing the instruction, since there is
// nothing on disk to archive.
package materialize

import (
	"archive/tar"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	gzip "github.com/klauspost/compress/gzip"

	"github.com/neopilotai/memobuild/internal/buildrr"
	"github.com/neopilotai/memobuild/internal/graph"
	"github.com/neopilotai/memobuild/internal/recipe"
)

// Default materializes node into an artifact blob: a gzipped tarball of
// SourcePath for Copy nodes, or a small descriptor blob for everything
// else.
func Default(node *graph.Node) ([]byte, error) {
	if node.Kind == recipe.KindCopy && node.SourcePath != "" {
		if _, err := os.Stat(node.SourcePath); err == nil {
			return tarGzDir(node.SourcePath)
		}
	}
	return []byte(node.Content), nil
}

// tarGzDir archives root into a gzip-compressed tar, preserving regular
// files, directories, and symlinks. A root that is not a directory is
// stored as a single entry under its base name. Called only on the reference
// materializer's path; a real step executor's artifact would be produced
// by whatever sandboxed execution actually ran.
func tarGzDir(root string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			if d.IsDir() {
				return nil
			}
			rel = filepath.Base(path)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			link, err = os.Readlink(path)
			if err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, buildrr.Storage("archive materialized tree", err)
	}

	if err := tw.Close(); err != nil {
		return nil, buildrr.Storage("close tar writer", err)
	}
	if err := gz.Close(); err != nil {
		return nil, buildrr.Storage("close gzip writer", err)
	}
	return buf.Bytes(), nil
}
