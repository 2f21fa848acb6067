package resolver

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"seedrio/pkg/logger"
	"seedrio/pkg/metadata"
	"seedrio/pkg/seedr"
)

// maxFetchConcurrency bounds the per-file URL fetch fan-out so a broad match
// doesn't hammer the remote API.
const maxFetchConcurrency = 6

// Storage is the slice of the remote storage client the resolver needs.
type Storage interface {
	ListContents(ctx context.Context, folderID int64) (*seedr.FolderListing, error)
	FetchFile(ctx context.Context, fileID int64) (*seedr.FileLink, error)
}

// MetaSource resolves IMDb ids to a title/year pair.
type MetaSource interface {
	Lookup(ctx context.Context, imdbID string) (*metadata.Meta, error)
}

// ResolvedStream is one playable result. Derived per request, never persisted.
type ResolvedStream struct {
	Title      string
	URL        string
	SourceName string
	Size       int64
}

// Resolver maps a requested id to playable streams by walking the account's
// folder tree and matching filenames.
type Resolver struct {
	storage Storage
	meta    MetaSource
}

// New creates a resolver. meta may be nil, in which case IMDb ids only match
// via derived filename ids.
func New(storage Storage, meta MetaSource) *Resolver {
	return &Resolver{storage: storage, meta: meta}
}

// Files walks the whole folder tree and returns every file record in
// traversal order, playable or not. The walk uses an explicit worklist so
// arbitrarily deep trees can't exhaust the stack, and skips folder ids it
// has already seen.
func (r *Resolver) Files(ctx context.Context) ([]seedr.FileRecord, error) {
	worklist := []int64{0}
	visited := make(map[int64]bool)
	var files []seedr.FileRecord

	for len(worklist) > 0 {
		folderID := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if visited[folderID] {
			continue
		}
		visited[folderID] = true

		listing, err := r.storage.ListContents(ctx, folderID)
		if err != nil {
			return nil, err
		}

		files = append(files, listing.Files...)
		// Push in reverse so the depth-first visit keeps the API's order
		for i := len(listing.Folders) - 1; i >= 0; i-- {
			worklist = append(worklist, listing.Folders[i].ID)
		}
	}

	return files, nil
}

// Playable is the Files walk filtered to streamable media.
func (r *Resolver) Playable(ctx context.Context) ([]seedr.FileRecord, error) {
	all, err := r.Files(ctx)
	if err != nil {
		return nil, err
	}

	var files []seedr.FileRecord
	for _, f := range all {
		if f.Playable() {
			files = append(files, f)
		}
	}
	return files, nil
}

// Resolve matches targetID against the account's playable files and fetches a
// direct URL for every match. Precedence: direct file id, then an id derived
// from the filename, then (for IMDb-style ids) the title/year heuristic, which
// may match several files. No match is not an error; the stream list is just
// empty. Any listing or fetch failure aborts the whole request.
func (r *Resolver) Resolve(ctx context.Context, targetID string) ([]ResolvedStream, error) {
	files, err := r.Playable(ctx)
	if err != nil {
		return nil, err
	}

	matched := r.match(ctx, files, targetID)
	if len(matched) == 0 {
		logger.Debug("No files matched", "target", targetID, "playable", len(files))
		return []ResolvedStream{}, nil
	}

	streams := make([]ResolvedStream, len(matched))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetchConcurrency)

	for i, f := range matched {
		g.Go(func() error {
			link, err := r.storage.FetchFile(gctx, f.ID)
			if err != nil {
				return err
			}
			streams[i] = ResolvedStream{
				Title:      f.Name,
				URL:        link.URL,
				SourceName: "Seedr",
				Size:       f.Size,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Resolved streams", "target", targetID, "count", len(streams))
	return streams, nil
}

func (r *Resolver) match(ctx context.Context, files []seedr.FileRecord, targetID string) []seedr.FileRecord {
	// Direct id equality wins outright
	for _, f := range files {
		if strconv.FormatInt(f.ID, 10) == targetID {
			return []seedr.FileRecord{f}
		}
	}

	// An id derived from the filename ("thematrix1999") is still a single match
	for _, f := range files {
		if matchesDerivedID(f.Name, targetID) {
			return []seedr.FileRecord{f}
		}
	}

	if !IsIMDbID(targetID) || r.meta == nil {
		return nil
	}

	meta, err := r.meta.Lookup(ctx, targetID)
	if err != nil {
		logger.Warn("Metadata lookup failed", "target", targetID, "err", err)
		return nil
	}

	year := ""
	if meta.Year > 0 {
		year = strconv.Itoa(meta.Year)
	}

	var matched []seedr.FileRecord
	for _, f := range files {
		if matchesTitleYear(f.Name, meta.Name, year) {
			matched = append(matched, f)
		}
	}
	return matched
}
