package stremio

// Stream represents a single playable stream entry
type Stream struct {
	Name          string         `json:"name,omitempty"`
	Title         string         `json:"title,omitempty"`
	URL           string         `json:"url,omitempty"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`
}

// BehaviorHints gives the player extra context about a stream
type BehaviorHints struct {
	BingeGroup  string `json:"bingeGroup,omitempty"`
	NotWebReady bool   `json:"notWebReady,omitempty"`
}

// StreamResponse is the /stream/... envelope. Streams is never null so the
// client always receives a well-formed list.
type StreamResponse struct {
	Streams []Stream `json:"streams"`
	Error   string   `json:"error,omitempty"`
}

// MetaPreview is one catalog row
type MetaPreview struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Poster string `json:"poster,omitempty"`
}

// CatalogResponse is the /catalog/... envelope
type CatalogResponse struct {
	Metas []MetaPreview `json:"metas"`
	Error string        `json:"error,omitempty"`
}

// MetaItem is the detail record for one item
type MetaItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Poster      string `json:"poster,omitempty"`
	Description string `json:"description,omitempty"`
}

// MetaResponse is the /meta/... envelope; Meta is null when nothing matched
type MetaResponse struct {
	Meta  *MetaItem `json:"meta"`
	Error string    `json:"error,omitempty"`
}
