// Package local implements the on-disk content-addressable blob store: a
// persistent JSON index mapping cache keys to CacheEntry records, plus one
// blob file per entry. Generalized from the teacher's workspace-rooted
// image blob store: same atomic temp-file-then-rename write, same
// content-addressed key space, but keyed by the 64-hex-char node hash and
// backed by the explicit index.json of the design rather than a bare
// filesystem existence check.
package local

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/neopilotai/memobuild/internal/buildrr"
)

func defaultNow() int64 { return time.Now().Unix() }

// validKey matches the 64-lowercase-hex-char cache keys this store accepts.
var validKey = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Entry is the persisted record for one cache key.
type Entry struct {
	CacheKey     string `json:"cache_key"`
	CreatedAt    int64  `json:"created_at"`
	ArtifactPath string `json:"artifact_path"`
	Size         int64  `json:"size"`
}

// Cache is the local content-addressable store rooted at dir. index.json
// lives at dir/index.json; blobs live at dir/<key>.bin.
type Cache struct {
	mu    sync.Mutex
	root  string
	index map[string]Entry

	// now is overridable for deterministic tests.
	now func() int64
}

// New opens (or initializes) a local cache rooted at root. Corrupted index
// JSON is treated as empty rather than fatal — a fail-open stance that
// matches the design's tolerance for an operator-damaged cache directory.
func New(root string) (*Cache, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, buildrr.Storage("create cache root", err)
	}
	c := &Cache{root: root, index: map[string]Entry{}, now: defaultNow}
	c.loadIndex()
	return c, nil
}

func (c *Cache) indexPath() string { return filepath.Join(c.root, "index.json") }

func (c *Cache) blobPath(key string) string { return filepath.Join(c.root, key+".bin") }

func (c *Cache) loadIndex() {
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		return
	}
	var idx map[string]Entry
	if err := json.Unmarshal(data, &idx); err != nil {
		return
	}
	c.index = idx
}

// persistIndex rewrites index.json. Each put rewrites the whole file; a
// write-ahead log or incremental append would scale better for very large
// builds, but is not this design's contract.
func (c *Cache) persistIndex() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return buildrr.Storage("marshal cache index", err)
	}
	if err := os.WriteFile(c.indexPath(), data, 0644); err != nil {
		return buildrr.Storage("write cache index", err)
	}
	return nil
}

// Exists reports whether key is present in the index. It does not verify
// the blob file is actually on disk.
func (c *Cache) Exists(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[key]
	return ok
}

// GetData returns the blob bytes for key if the index has the key and the
// blob file exists on disk. The index-without-blob case is treated as a
// silent miss rather than an error: it does not prune the stale index
// entry (an operator-cleanup concern, not a runtime one).
func (c *Cache) GetData(key string) ([]byte, bool, error) {
	c.mu.Lock()
	_, ok := c.index[key]
	c.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	data, err := os.ReadFile(c.blobPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, buildrr.Storage("read cache blob", err)
	}
	return data, true, nil
}

// Put writes the blob and inserts/replaces the index entry, then persists
// the index. The blob write is atomic (temp file, then rename) so a crash
// mid-write never leaves a partial blob visible under its final name.
func (c *Cache) Put(key string, data []byte) error {
	if !validKey.MatchString(key) {
		return buildrr.ConstraintViolation("put cache entry", errInvalidKey(key))
	}

	tmp, err := os.CreateTemp(c.root, ".tmp-*")
	if err != nil {
		return buildrr.Storage("create temp blob", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return buildrr.Storage("write temp blob", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return buildrr.Storage("close temp blob", err)
	}
	if err := os.Rename(tmpName, c.blobPath(key)); err != nil {
		os.Remove(tmpName)
		return buildrr.Storage("rename blob into place", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[key] = Entry{
		CacheKey:     key,
		CreatedAt:    c.now(),
		ArtifactPath: key + ".bin",
		Size:         int64(len(data)),
	}
	return c.persistIndex()
}

type errInvalidKey string

func (e errInvalidKey) Error() string { return "invalid cache key: " + string(e) }
