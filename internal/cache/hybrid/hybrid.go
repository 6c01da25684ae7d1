// Package hybrid composes a local and an optional remote cache tier with
// read-through/write-through semantics: a remote hit populates the local
// tier so the next retrieval on this machine never touches the network
// again. Modeled on the teacher's image.Cache.GetOrPull, which populates
// its on-disk rootfs cache the first time a registry pull resolves a
// digest.
package hybrid

import (
	"github.com/neopilotai/memobuild/internal/buildrr"
	"github.com/neopilotai/memobuild/internal/cache/local"
)

// RemoteCache is the subset of the remote client's capability this package
// needs; satisfied by *remote.Client, and trivially fakeable in tests.
type RemoteCache interface {
	Get(key string) (data []byte, ok bool, err error)
	Put(key string, data []byte) error
}

// Cache wraps a required local cache and an optional remote cache.
type Cache struct {
	local  *local.Cache
	remote RemoteCache // nil when no remote is configured
}

// New creates a Cache. remote may be nil to run local-only.
func New(l *local.Cache, remote RemoteCache) *Cache {
	return &Cache{local: l, remote: remote}
}

// GetArtifact probes local first; on a local miss, and only if a remote is
// configured, it probes remote. A remote hit populates local before
// returning so the artifact is served locally from then on.
func (c *Cache) GetArtifact(key string) ([]byte, bool, error) {
	data, ok, err := c.local.GetData(key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return data, true, nil
	}

	if c.remote == nil {
		return nil, false, nil
	}

	data, ok, err = c.remote.Get(key)
	if err != nil {
		// A remote-side failure degrades to "not in remote" rather than
		// aborting the build; only local-side failures and CAS
		// integrity failures are fatal, and Get already returns
		// CASIntegrity as a genuine error here — propagate that one,
		// but treat plain network exhaustion as a miss.
		if kind, has := buildrr.ErrorKind(err); has && kind == buildrr.KindCASIntegrity {
			return nil, false, err
		}
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}

	if err := c.local.Put(key, data); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// PutArtifact writes to local (which must succeed) and then, if a remote is
// configured, best-effort writes to remote too. A remote failure surfaces
// as a SyncError but does not roll back the local write, and the executor
// does not abort the build for it. The failed remote write is not retried
// later: subsequent lookups of the key are served by the local tier, so
// PutArtifact is not called for it again.
func (c *Cache) PutArtifact(key string, data []byte) error {
	if err := c.local.Put(key, data); err != nil {
		return err
	}
	if c.remote == nil {
		return nil
	}
	if err := c.remote.Put(key, data); err != nil {
		return buildrr.Sync(key, err)
	}
	return nil
}
