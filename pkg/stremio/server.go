package stremio

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"seedrio/pkg/auth"
	"seedrio/pkg/logger"
	"seedrio/pkg/resolver"
	"seedrio/pkg/seedr"
)

// StreamResolver is the slice of the content resolver the facade calls.
type StreamResolver interface {
	Resolve(ctx context.Context, targetID string) ([]resolver.ResolvedStream, error)
	Playable(ctx context.Context) ([]seedr.FileRecord, error)
	Files(ctx context.Context) ([]seedr.FileRecord, error)
}

// Authorizer drives the device authorization flow from HTTP handlers.
type Authorizer interface {
	Start(ctx context.Context) (*auth.DeviceSession, error)
	Poll(ctx context.Context, deviceCode string) (*auth.PollResult, error)
	Authorized() bool
}

// Server represents the Stremio addon HTTP server
type Server struct {
	mu         sync.RWMutex
	manifest   *Manifest
	version    string
	resolver   StreamResolver
	authorizer Authorizer
	apiHandler http.Handler
}

// NewServer creates a new Stremio addon server
func NewServer(res StreamResolver, authorizer Authorizer, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{
		manifest:   NewManifest(version),
		version:    version,
		resolver:   res,
		authorizer: authorizer,
	}
}

// CheckPort verifies if the specified port is available for the addon
func (s *Server) CheckPort(port int) error {
	address := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("addon port %d is already in use", port)
	}
	ln.Close()
	return nil
}

// SetAPIHandler sets the handler for /api/ requests
func (s *Server) SetAPIHandler(h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiHandler = h
}

// Version returns the addon version string
func (s *Server) Version() string {
	return s.version
}

// SetupRoutes configures HTTP routes for the addon
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		apiHandler := s.apiHandler
		s.mu.RUnlock()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		path := r.URL.Path

		switch {
		case path == "/manifest.json":
			s.handleManifest(w, r)
		case strings.HasPrefix(path, "/catalog/"):
			s.handleCatalog(w, r)
		case strings.HasPrefix(path, "/meta/"):
			s.handleMeta(w, r)
		case strings.HasPrefix(path, "/stream/"):
			s.handleStream(w, r)
		case path == "/authorize" || path == "/get-device-code":
			s.handleAuthorize(w, r)
		case path == "/poll" || strings.HasPrefix(path, "/authorize/"):
			s.handlePoll(w, r)
		case path == "/debug/files":
			s.handleDebugFiles(w, r)
		case path == "/health":
			s.handleHealth(w, r)
		case strings.HasPrefix(path, "/api/"):
			if apiHandler != nil {
				apiHandler.ServeHTTP(w, r)
			} else {
				http.NotFound(w, r)
			}
		default:
			http.NotFound(w, r)
		}
	})

	mux.Handle("/", finalHandler)
}

// writeJSON serializes v with the addon's response headers. Encoding a value
// built from our own types cannot fail, so the body is always valid JSON.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "err", err)
	}
}
