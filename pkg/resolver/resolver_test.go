package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"seedrio/pkg/logger"
	"seedrio/pkg/metadata"
	"seedrio/pkg/seedr"
)

// fakeStorage serves a canned folder tree keyed by folder id.
type fakeStorage struct {
	listings   map[int64]*seedr.FolderListing
	links      map[int64]string
	fetchErr   error
	fetchCalls int
}

func (s *fakeStorage) ListContents(ctx context.Context, folderID int64) (*seedr.FolderListing, error) {
	listing, ok := s.listings[folderID]
	if !ok {
		return nil, seedr.ErrNotFound
	}
	return listing, nil
}

func (s *fakeStorage) FetchFile(ctx context.Context, fileID int64) (*seedr.FileLink, error) {
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	url, ok := s.links[fileID]
	if !ok {
		return nil, seedr.ErrNotFound
	}
	return &seedr.FileLink{URL: url}, nil
}

type fakeMeta struct {
	metas map[string]*metadata.Meta
}

func (m *fakeMeta) Lookup(ctx context.Context, imdbID string) (*metadata.Meta, error) {
	if meta, ok := m.metas[metadata.BaseID(imdbID)]; ok {
		return meta, nil
	}
	return nil, fmt.Errorf("no record for %s", imdbID)
}

func testTree() *fakeStorage {
	return &fakeStorage{
		listings: map[int64]*seedr.FolderListing{
			0: {
				ID: 0,
				Folders: []seedr.FolderRecord{
					{ID: 7, Name: "Movies"},
				},
				Files: []seedr.FileRecord{
					{ID: 42, Name: "Inception.2010.720p.mkv", Size: 900, PlayVideo: true},
					{ID: 43, Name: "notes.txt", Size: 1},
				},
			},
			7: {
				ID: 7,
				Files: []seedr.FileRecord{
					{ID: 50, Name: "The.Matrix.1999.1080p.mkv", Size: 2048, PlayVideo: true},
					{ID: 51, Name: "The.Matrix.Reloaded.2003.1080p.mkv", Size: 2100, PlayVideo: true},
				},
			},
		},
		links: map[int64]string{
			42: "https://cdn.example/inception.mkv",
			50: "https://cdn.example/matrix.mkv",
			51: "https://cdn.example/reloaded.mkv",
		},
	}
}

func TestPlayableWalksTreeInOrder(t *testing.T) {
	logger.Init("DEBUG")
	r := New(testTree(), nil)

	files, err := r.Playable(context.Background())
	if err != nil {
		t.Fatalf("Playable failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 playable files, got %d", len(files))
	}
	// Root files first, then the subfolder's, API order preserved
	want := []int64{42, 50, 51}
	for i, id := range want {
		if files[i].ID != id {
			t.Errorf("position %d: expected id %d, got %d", i, id, files[i].ID)
		}
	}
}

func TestFilesKeepsNonPlayableRecords(t *testing.T) {
	logger.Init("DEBUG")
	r := New(testTree(), nil)

	files, err := r.Files(context.Background())
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("expected all 4 records, got %d", len(files))
	}
	found := false
	for _, f := range files {
		if f.Name == "notes.txt" && !f.Playable() {
			found = true
		}
	}
	if !found {
		t.Error("raw listing must include the non-playable record")
	}
}

func TestResolveDirectID(t *testing.T) {
	logger.Init("DEBUG")
	r := New(testTree(), nil)

	streams, err := r.Resolve(context.Background(), "42")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("expected 1 stream, got %d", len(streams))
	}
	if streams[0].Title != "Inception.2010.720p.mkv" {
		t.Errorf("unexpected title %q", streams[0].Title)
	}
	if streams[0].URL != "https://cdn.example/inception.mkv" {
		t.Errorf("unexpected url %q", streams[0].URL)
	}
}

func TestResolveDerivedID(t *testing.T) {
	logger.Init("DEBUG")
	r := New(testTree(), nil)

	streams, err := r.Resolve(context.Background(), "thematrix1999")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("expected 1 stream, got %d", len(streams))
	}
	if streams[0].Title != "The.Matrix.1999.1080p.mkv" {
		t.Errorf("unexpected title %q", streams[0].Title)
	}
}

func TestResolveIMDbTitleYear(t *testing.T) {
	logger.Init("DEBUG")
	meta := &fakeMeta{metas: map[string]*metadata.Meta{
		"tt0133093": {ID: "tt0133093", Type: "movie", Name: "The Matrix", Year: 1999},
	}}
	r := New(testTree(), meta)

	streams, err := r.Resolve(context.Background(), "tt0133093")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// Reloaded shares the title substring but not the 1999 year
	if len(streams) != 1 {
		t.Fatalf("expected 1 stream, got %d", len(streams))
	}
	if streams[0].Title != "The.Matrix.1999.1080p.mkv" {
		t.Errorf("unexpected title %q", streams[0].Title)
	}
	if streams[0].SourceName != "Seedr" {
		t.Errorf("unexpected source %q", streams[0].SourceName)
	}
}

func TestResolveIMDbAllMatchesReturned(t *testing.T) {
	logger.Init("DEBUG")
	storage := testTree()
	storage.listings[7].Files = append(storage.listings[7].Files, seedr.FileRecord{
		ID: 52, Name: "The.Matrix.1999.REMASTERED.2160p.mkv", Size: 9000, PlayVideo: true,
	})
	storage.links[52] = "https://cdn.example/matrix-4k.mkv"

	meta := &fakeMeta{metas: map[string]*metadata.Meta{
		"tt0133093": {ID: "tt0133093", Type: "movie", Name: "The Matrix", Year: 1999},
	}}
	r := New(storage, meta)

	streams, err := r.Resolve(context.Background(), "tt0133093")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(streams) != 2 {
		t.Fatalf("expected both matching releases, got %d", len(streams))
	}
	if streams[0].URL != "https://cdn.example/matrix.mkv" || streams[1].URL != "https://cdn.example/matrix-4k.mkv" {
		t.Errorf("unexpected urls %q, %q", streams[0].URL, streams[1].URL)
	}
}

func TestResolveNoMatchIsNotAnError(t *testing.T) {
	logger.Init("DEBUG")
	r := New(testTree(), nil)

	streams, err := r.Resolve(context.Background(), "nonexistent-id")
	if err != nil {
		t.Fatalf("no-match must not be an error, got %v", err)
	}
	if len(streams) != 0 {
		t.Fatalf("expected empty stream list, got %d", len(streams))
	}
}

func TestResolveFetchErrorAborts(t *testing.T) {
	logger.Init("DEBUG")
	storage := testTree()
	storage.fetchErr = errors.New("remote down")
	r := New(storage, nil)

	streams, err := r.Resolve(context.Background(), "42")
	if err == nil {
		t.Fatal("expected fetch error to surface")
	}
	if len(streams) != 0 {
		t.Fatalf("expected no streams on error, got %d", len(streams))
	}
}

func TestMatchHelpers(t *testing.T) {
	cases := []struct {
		name   string
		target string
		want   bool
	}{
		{"The.Matrix.1999.1080p.mkv", "thematrix1999", true},
		{"The.Matrix.1999.1080p.mkv", "thematrix", true},
		{"The.Matrix.1999.1080p.mkv", "inception", false},
	}
	for _, tc := range cases {
		if got := matchesDerivedID(tc.name, tc.target); got != tc.want {
			t.Errorf("matchesDerivedID(%q, %q) = %v, want %v", tc.name, tc.target, got, tc.want)
		}
	}

	if !matchesTitleYear("The.Matrix.1999.1080p.mkv", "The Matrix", "1999") {
		t.Error("expected title+year match")
	}
	if matchesTitleYear("The.Matrix.Reloaded.2003.1080p.mkv", "The Matrix", "1999") {
		t.Error("year absent from filename must not match")
	}
	if !matchesTitleYear("Some.Documentary.mkv", "Some Documentary", "") {
		t.Error("metadata without a year should match on title alone")
	}

	if !IsIMDbID("tt0133093") || !IsIMDbID("tt0903747:1:3") || IsIMDbID("42") {
		t.Error("IMDb id detection is off")
	}
}
