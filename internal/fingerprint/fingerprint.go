// Package fingerprint computes a deterministic hash of the host environment
// — OS, architecture, a fixed allowlist of environment variables, and
// toolchain versions — that is appended to every node's cache key so any
// drift in the build host invalidates the whole graph.
package fingerprint

import (
	"encoding/hex"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// Allowlist is the fixed set of environment variables that contribute to
// the fingerprint. Extending it to be recipe-declared would be a natural
// evolution; it is fixed here for reproducibility across the fleet.
var Allowlist = []string{"PATH", "RUST_VERSION", "NODE_ENV", "LANG", "LC_ALL"}

// toolchainProbes maps a toolchain name to the command used to probe its
// version. A probe that errors or exits non-zero contributes nothing.
var toolchainProbes = map[string][]string{
	"rustc":   {"rustc", "--version"},
	"node":    {"node", "--version"},
	"python3": {"python3", "--version"},
	"go":      {"go", "version"},
}

// Fingerprint is a fixed-shape snapshot of the build host, constructed once
// per build invocation and then immutable.
type Fingerprint struct {
	OS        string
	Arch      string
	EnvVars   map[string]string
	Toolchain map[string]string
}

// Collect gathers the current host's OS/arch, the allowlisted environment
// variables that are present, and best-effort toolchain versions.
func Collect() *Fingerprint {
	return CollectWithProbes(execProbe)
}

// probeFunc runs a toolchain probe command and returns its trimmed output,
// or ("", false) if the probe failed. Extracted for testability.
type probeFunc func(args []string) (string, bool)

func execProbe(args []string) (string, bool) {
	cmd := exec.Command(args[0], args[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}

// CollectWithProbes is Collect with an injectable probe function, used by
// tests to avoid depending on the host's installed toolchains.
func CollectWithProbes(probe probeFunc) *Fingerprint {
	fp := &Fingerprint{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		EnvVars:   make(map[string]string),
		Toolchain: make(map[string]string),
	}
	for _, name := range Allowlist {
		if v, ok := os.LookupEnv(name); ok {
			fp.EnvVars[name] = v
		}
	}
	for name, args := range toolchainProbes {
		if out, ok := probe(args); ok {
			fp.Toolchain[name] = out
		}
	}
	return fp
}

// Hash feeds os, arch, then each (key,value) of EnvVars and Toolchain in
// sorted-by-key order into the BLAKE3 primitive, and returns the
// hex-encoded digest. Sorted iteration makes the hash invariant under
// reordering of the underlying variable/tool collection.
func (fp *Fingerprint) Hash() string {
	h := blake3.New()
	h.Write([]byte(fp.OS))
	h.Write([]byte(fp.Arch))
	writeSortedMap(h, fp.EnvVars)
	writeSortedMap(h, fp.Toolchain)
	return hex.EncodeToString(h.Sum(nil))
}

func writeSortedMap(h *blake3.Hasher, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte(m[k]))
	}
}
