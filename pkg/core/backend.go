package core

import "context"

// Backend is the contract with the remote image-processing service.
// The engine never touches pixel data; it only threads opaque artifact
// handles between calls. Nothing is retried automatically.
type Backend interface {
	// Apply runs one operation on an artifact and returns the handle of
	// the result artifact.
	Apply(ctx context.Context, artifactID, operation string, params map[string]any) (string, error)

	// Persist writes an artifact to a destination path on the backend host.
	Persist(ctx context.Context, artifactID, directory, filename, format string) error

	// FetchPreview returns a reference to a browser-displayable rendition
	// of an artifact.
	FetchPreview(ctx context.Context, artifactID string) (string, error)
}

// ImageInfo describes an artifact known to the backend session.
type ImageInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	SourceID     string `json:"source_id,omitempty"`
}
