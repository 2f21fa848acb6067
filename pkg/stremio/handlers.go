package stremio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"seedrio/pkg/auth"
	"seedrio/pkg/logger"
	"seedrio/pkg/seedr"
)

const streamTimeout = 30 * time.Second

// handleManifest serves the addon manifest
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	logger.Debug("Manifest request", "remote", r.RemoteAddr)

	s.mu.RLock()
	manifest := s.manifest
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, manifest)
}

// handleCatalog lists the account's playable files as browsable catalog rows
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	logger.Debug("Catalog request", "path", r.URL.Path, "remote", r.RemoteAddr)

	files, err := s.resolver.Playable(r.Context())
	if err != nil {
		logger.Error("Catalog listing failed", "err", err)
		writeJSON(w, http.StatusOK, CatalogResponse{Metas: []MetaPreview{}, Error: errorMessage(err)})
		return
	}

	metas := make([]MetaPreview, 0, len(files))
	for _, f := range files {
		metas = append(metas, MetaPreview{
			ID:     fileMetaID(f.ID),
			Type:   "other",
			Name:   f.Name,
			Poster: f.Thumbnail,
		})
	}

	writeJSON(w, http.StatusOK, CatalogResponse{Metas: metas})
}

// handleMeta serves the detail record for one catalog item. Unknown ids get
// a null meta, which is what the client expects for "nothing here".
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourcePath(r.URL.Path, "/meta/")
	if !ok {
		writeJSON(w, http.StatusOK, MetaResponse{Meta: nil, Error: "invalid meta URL"})
		return
	}

	fileID, isFile := parseFileMetaID(id)
	if !isFile {
		writeJSON(w, http.StatusOK, MetaResponse{Meta: nil})
		return
	}

	files, err := s.resolver.Playable(r.Context())
	if err != nil {
		logger.Error("Meta listing failed", "err", err)
		writeJSON(w, http.StatusOK, MetaResponse{Meta: nil, Error: errorMessage(err)})
		return
	}

	for _, f := range files {
		if f.ID == fileID {
			writeJSON(w, http.StatusOK, MetaResponse{Meta: &MetaItem{
				ID:          id,
				Type:        "other",
				Name:        f.Name,
				Poster:      f.Thumbnail,
				Description: fmt.Sprintf("%s (%s)", f.Name, humanSize(f.Size)),
			}})
			return
		}
	}

	writeJSON(w, http.StatusOK, MetaResponse{Meta: nil})
}

// handleStream resolves a requested id to playable URLs. Whatever goes wrong,
// the response is a well-formed stream envelope; the client never sees a bare
// 500 or malformed body.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourcePath(r.URL.Path, "/stream/")
	if !ok {
		writeJSON(w, http.StatusOK, StreamResponse{Streams: []Stream{}, Error: "invalid stream URL"})
		return
	}

	logger.Info("Stream request", "id", id, "remote", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), streamTimeout)
	defer cancel()

	// Catalog rows carry a "seedr:" prefix in front of the raw file id
	targetID := id
	if fileID, isFile := parseFileMetaID(id); isFile {
		targetID = strconv.FormatInt(fileID, 10)
	}

	resolved, err := s.resolver.Resolve(ctx, targetID)
	if err != nil {
		logger.Error("Stream resolution failed", "id", id, "err", err)
		writeJSON(w, http.StatusOK, StreamResponse{Streams: []Stream{}, Error: errorMessage(err)})
		return
	}

	streams := make([]Stream, 0, len(resolved))
	for _, rs := range resolved {
		streams = append(streams, Stream{
			Name:  rs.SourceName,
			Title: fmt.Sprintf("%s\n%s", rs.Title, humanSize(rs.Size)),
			URL:   rs.URL,
			BehaviorHints: &BehaviorHints{
				BingeGroup: "seedrio",
			},
		})
	}

	writeJSON(w, http.StatusOK, StreamResponse{Streams: streams})
}

// handleAuthorize starts a new device authorization session
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	session, err := s.authorizer.Start(r.Context())
	if err != nil {
		logger.Error("Failed to start device authorization", "err", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// handlePoll exchanges a device_code for a token. The code comes from either
// the query string (/poll?device_code=...) or the path (/authorize/{code}).
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	deviceCode := r.URL.Query().Get("device_code")
	if deviceCode == "" {
		deviceCode = strings.TrimPrefix(r.URL.Path, "/authorize/")
		deviceCode = strings.Trim(deviceCode, "/")
	}
	if deviceCode == "" || deviceCode == "authorize" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing device_code"})
		return
	}

	result, err := s.authorizer.Poll(r.Context(), deviceCode)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, auth.ErrUnknownDevice) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDebugFiles dumps the raw file listing, non-playable records included
func (s *Server) handleDebugFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.resolver.Files(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": errorMessage(err)})
		return
	}
	if files == nil {
		files = []seedr.FileRecord{}
	}
	writeJSON(w, http.StatusOK, files)
}

// handleHealth is the liveness probe
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"version":    s.version,
		"authorized": s.authorizer.Authorized(),
	})
}

// parseResourcePath extracts the id from "/{resource}/{type}/{id}.json"
func parseResourcePath(path, prefix string) (string, bool) {
	trimmed := strings.TrimPrefix(path, prefix)
	trimmed = strings.TrimSuffix(trimmed, ".json")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// fileMetaID builds the catalog id for a raw file ("seedr:42")
func fileMetaID(id int64) string {
	return "seedr:" + strconv.FormatInt(id, 10)
}

// parseFileMetaID reverses fileMetaID
func parseFileMetaID(id string) (int64, bool) {
	raw, ok := strings.CutPrefix(id, "seedr:")
	if !ok {
		return 0, false
	}
	fileID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return fileID, true
}

// errorMessage collapses the typed error taxonomy to the string the JSON
// envelope carries.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, seedr.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, seedr.ErrNotFound):
		return "not found"
	default:
		return err.Error()
	}
}

func humanSize(size int64) string {
	switch {
	case size >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(size)/(1<<30))
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
