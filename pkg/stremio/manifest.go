package stremio

// Manifest represents the Stremio addon manifest
type Manifest struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Resources   []string  `json:"resources"`
	Types       []string  `json:"types"`
	Catalogs    []Catalog `json:"catalogs"`
	IDPrefixes  []string  `json:"idPrefixes,omitempty"`
	Background  string    `json:"background,omitempty"`
	Logo        string    `json:"logo,omitempty"`
}

// Catalog represents a content catalog
type Catalog struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewManifest creates the addon manifest
func NewManifest(version string) *Manifest {
	return &Manifest{
		ID:          "community.seedrio",
		Version:     version,
		Name:        "Seedrio",
		Description: "Stream content directly from your Seedr.cc cloud storage",
		Resources:   []string{"catalog", "meta", "stream"},
		Types:       []string{"movie", "series", "other"},
		Catalogs: []Catalog{
			{Type: "other", ID: "seedr-files", Name: "Seedr Files"},
		},
		IDPrefixes: []string{"tt", "seedr"},
	}
}
