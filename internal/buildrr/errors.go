// Package buildrr defines the typed error taxonomy used throughout
// MemoBuild: CAS integrity failures, network errors, storage errors, cache
// coherency errors, sync errors, metadata errors, and constraint
// violations. Every BuildError carries enough context — the failing node,
// the cache key, the underlying cause — that a caller can log "failing
// node + error kind" without string-matching messages, and can ask
// Retryable() to decide whether to retry.
package buildrr

import "fmt"

// Kind enumerates the error taxonomy of the design's error handling model.
type Kind int

const (
	// KindStorage is a local filesystem I/O failure (open, read, write).
	// Non-retryable; fatal for the current build.
	KindStorage Kind = iota
	// KindNetwork is a transport or 5xx failure talking to the remote
	// cache. Retryable per the remote client's backoff policy; after
	// retry exhaustion it degrades to a cache miss, never a fatal error.
	KindNetwork
	// KindCASIntegrity means a fetched blob's computed hash did not match
	// the requested key. Non-retryable, non-silent — a fleet-wide bug or
	// corruption, never served.
	KindCASIntegrity
	// KindCacheCoherency means the index and blob disagree in a way the
	// runtime can't reconcile. Non-retryable; recommends operator cleanup.
	KindCacheCoherency
	// KindSync means a remote PUT failed after the local PUT already
	// succeeded. Partial-success; does not abort the build.
	KindSync
	// KindMetadata is a retryable server-side metadata failure (typically
	// transient contention on the remote cache's own index).
	KindMetadata
	// KindConstraintViolation is a schema or shape invariant violation.
	// Non-retryable.
	KindConstraintViolation
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindNetwork:
		return "network"
	case KindCASIntegrity:
		return "cas-integrity"
	case KindCacheCoherency:
		return "cache-coherency"
	case KindSync:
		return "sync"
	case KindMetadata:
		return "metadata"
	case KindConstraintViolation:
		return "constraint-violation"
	default:
		return "unknown"
	}
}

// Error is a typed BuildError carrying its Kind, an optional node id (-1 if
// not applicable), an optional cache key, and the wrapped cause.
type Error struct {
	Kind   Kind
	NodeID int // -1 when not associated with a specific node
	Key    string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.NodeID >= 0 {
		msg = fmt.Sprintf("%s (node %d)", msg, e.NodeID)
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s [key=%s]", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the error kind is one the caller may retry.
// Only network and metadata errors are retryable; the remote client's own
// backoff policy already exhausts retries before surfacing one of these.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindMetadata
}

// ErrorKind extracts the Kind from err if it is (or wraps) a *Error.
// Returns KindStorage and false if err does not carry a Kind.
func ErrorKind(err error) (Kind, bool) {
	var be *Error
	if ok := asError(err, &be); ok {
		return be.Kind, true
	}
	return KindStorage, false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if be, ok := err.(*Error); ok {
			*target = be
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Storage wraps err as a KindStorage BuildError not tied to any node.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, NodeID: -1, Op: op, Err: err}
}

// StorageNode wraps err as a KindStorage BuildError tied to nodeID.
func StorageNode(nodeID int, op string, err error) *Error {
	return &Error{Kind: KindStorage, NodeID: nodeID, Op: op, Err: err}
}

// WithNode attaches nodeID and op context to err without discarding a Kind
// it already carries: if err is (or wraps) a *Error, the returned Error
// keeps that Kind, so a CASIntegrity failure surfacing through a storage
// probe still reports as CASIntegrity rather than being flattened to
// KindStorage. Only genuinely untyped errors default to KindStorage.
func WithNode(nodeID int, op string, err error) *Error {
	kind := KindStorage
	if k, ok := ErrorKind(err); ok {
		kind = k
	}
	return &Error{Kind: kind, NodeID: nodeID, Op: op, Err: err}
}

// Network wraps err as a KindNetwork BuildError.
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, NodeID: -1, Op: op, Err: err}
}

// CASIntegrity reports a hash mismatch for key.
func CASIntegrity(key string, err error) *Error {
	return &Error{Kind: KindCASIntegrity, NodeID: -1, Key: key, Op: "integrity check", Err: err}
}

// CacheCoherency reports an index/blob disagreement for key.
func CacheCoherency(key, op string, err error) *Error {
	return &Error{Kind: KindCacheCoherency, NodeID: -1, Key: key, Op: op, Err: err}
}

// Sync reports a best-effort remote PUT failure after a successful local PUT.
func Sync(key string, err error) *Error {
	return &Error{Kind: KindSync, NodeID: -1, Key: key, Op: "remote put", Err: err}
}

// Metadata wraps err as a KindMetadata BuildError.
func Metadata(op string, err error) *Error {
	return &Error{Kind: KindMetadata, NodeID: -1, Op: op, Err: err}
}

// ConstraintViolation reports a schema or shape invariant violation.
func ConstraintViolation(op string, err error) *Error {
	return &Error{Kind: KindConstraintViolation, NodeID: -1, Op: op, Err: err}
}

// ConstraintViolationNode is ConstraintViolation tied to a specific node.
func ConstraintViolationNode(nodeID int, op string, err error) *Error {
	return &Error{Kind: KindConstraintViolation, NodeID: nodeID, Op: op, Err: err}
}
