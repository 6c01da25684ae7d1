// server.go is the reference remote cache server: the other side of the
// wire protocol the Client speaks. It stores blobs via its own content
// addressed store and a JSON metadata index, structured the way the
// teacher's aegisd API server registers routes on an http.ServeMux.
package remote

import (
	"io"
	"log"
	"net/http"
	"regexp"

	"github.com/neopilotai/memobuild/internal/cache/local"
)

var keyPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Server is a reference HTTP implementation of the remote cache protocol.
// Production deployments may swap in any server speaking the same
// HEAD/GET/PUT contract; this one is provided so the protocol is testable
// end-to-end against the Client above.
type Server struct {
	store *local.Cache
	mux   *http.ServeMux
}

// NewServer creates a Server persisting blobs under dataDir.
func NewServer(dataDir string) (*Server, error) {
	store, err := local.New(dataDir)
	if err != nil {
		return nil, err
	}
	s := &Server{store: store, mux: http.NewServeMux()}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("HEAD /cache/{key}", s.handleHead)
	s.mux.HandleFunc("GET /cache/{key}", s.handleGet)
	s.mux.HandleFunc("PUT /cache/{key}", s.handlePut)
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !keyPattern.MatchString(key) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if s.store.Exists(key) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !keyPattern.MatchString(key) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	data, ok, err := s.store.GetData(key)
	if err != nil {
		log.Printf("remote cache server: get %s: %v", key, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !keyPattern.MatchString(key) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.store.Put(key, data); err != nil {
		log.Printf("remote cache server: put %s: %v", key, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
