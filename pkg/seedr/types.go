package seedr

// FileRecord is a single file as reported by the folder listing endpoint.
// Identity is the remote folder_file_id; records are immutable once fetched
// within a request's lifetime.
type FileRecord struct {
	ID        int64  `json:"folder_file_id"`
	FileID    int64  `json:"file_id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	PlayVideo bool   `json:"play_video"`
	PlayAudio bool   `json:"play_audio"`
	Thumbnail string `json:"thumb,omitempty"`
}

// Playable reports whether the remote flagged this file as streamable media.
func (f FileRecord) Playable() bool {
	return f.PlayVideo || f.PlayAudio
}

// FolderRecord is a sub-folder entry in a folder listing.
type FolderRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// FolderListing is the contents of one directory level, in the order the API
// returned them. Listings are not cached; they are refetched per request.
type FolderListing struct {
	ID      int64          `json:"id"`
	Name    string         `json:"name"`
	Folders []FolderRecord `json:"folders"`
	Files   []FileRecord   `json:"files"`
}

// FileLink is the direct playable URL for a file.
type FileLink struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Credential is whatever the client attaches to outbound requests. Exactly one
// of Token or Cookie is normally set; Token wins when both are.
type Credential struct {
	Token  string
	Cookie string
}

// CredentialSource yields the current credential. The device authorization
// flow can produce a credential after the client is constructed, so the client
// asks on every request instead of holding one.
type CredentialSource interface {
	Credential() (Credential, bool)
}
