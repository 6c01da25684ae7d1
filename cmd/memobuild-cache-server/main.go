// memobuild-cache-server hosts the reference remote cache: a standalone
// HTTP server speaking the HEAD/GET/PUT protocol memobuild's hybrid cache
// dials out to. It exists so the wire protocol can be run and exercised
// independently of any particular build client, the same way the
// teacher's aegisd hosts its API server as its own daemon.
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/neopilotai/memobuild/internal/cache/remote"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	dataDir := os.Getenv("MEMOBUILD_CACHE_SERVER_DATA_DIR")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = home + "/.memobuild/remote-cache"
	}

	addr := os.Getenv("MEMOBUILD_CACHE_SERVER_ADDR")
	if addr == "" {
		addr = ":8077"
	}

	srv, err := remote.NewServer(dataDir)
	if err != nil {
		log.Fatalf("init remote cache store at %s: %v", dataDir, err)
	}

	log.Printf("memobuild-cache-server listening on %s (data: %s)", addr, dataDir)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
