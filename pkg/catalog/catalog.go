// Package catalog is the boundary to whatever stores the actual audio:
// it resolves track metadata and opens seekable byte streams. The mixing
// engine never owns persistence or acquisition, it only consumes this
// interface.
package catalog

import (
	"context"
	"io"
)

// TrackInfo is the catalog's view of one track
type TrackInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"duration_ms"`

	// SourceRef is the opaque handle OpenStream resolves
	SourceRef string `json:"source_ref"`

	// Declared metadata, zero-valued when the catalog has none
	DeclaredBPM float64 `json:"declared_bpm,omitempty"`
	DeclaredKey string  `json:"declared_key,omitempty"`
}

// Catalog provides track metadata and byte streams. Implementations
// cover upload stores and external streaming sources identically.
type Catalog interface {
	// ListTracks returns all tracks the catalog knows about
	ListTracks(ctx context.Context) ([]*TrackInfo, error)

	// GetTrack resolves one track by id
	GetTrack(ctx context.Context, id string) (*TrackInfo, error)

	// OpenStream opens a seekable byte stream for a source ref
	OpenStream(ctx context.Context, sourceRef string) (io.ReadSeekCloser, error)
}
