package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/crossfade/automix/pkg/logging"
)

// FSCatalog serves tracks from a directory of audio files. Ids are
// generated per scan; SourceRef is the absolute file path. Durations are
// unknown at scan time and filled in by analysis.
type FSCatalog struct {
	root   string
	logger logging.Logger

	mu     sync.RWMutex
	tracks map[string]*TrackInfo
}

var supportedExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
}

// NewFSCatalog creates a catalog over the given directory
func NewFSCatalog(root string, logger logging.Logger) *FSCatalog {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &FSCatalog{
		root: root,
		logger: logger.WithFields(logging.Fields{
			"component": "fs_catalog",
			"root":      root,
		}),
	}
}

// Scan walks the directory and registers every supported audio file.
// Repeated scans rebuild the track set with fresh ids.
func (c *FSCatalog) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return NewStreamError(c.root, ErrCodeOpen, "failed to read catalog directory", err)
	}

	tracks := make(map[string]*TrackInfo)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		info := &TrackInfo{
			ID:        uuid.NewString(),
			SourceRef: filepath.Join(c.root, name),
		}
		info.Artist, info.Title = splitArtistTitle(name)
		tracks[info.ID] = info
	}

	c.mu.Lock()
	c.tracks = tracks
	c.mu.Unlock()

	c.logger.Info("Catalog scanned", logging.Fields{
		"track_count": len(tracks),
	})

	return nil
}

// ListTracks returns the scanned tracks in stable title order
func (c *FSCatalog) ListTracks(ctx context.Context) ([]*TrackInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*TrackInfo, 0, len(c.tracks))
	for _, info := range c.tracks {
		out = append(out, info)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Title != out[b].Title {
			return out[a].Title < out[b].Title
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

// GetTrack resolves a scanned track by id
func (c *FSCatalog) GetTrack(ctx context.Context, id string) (*TrackInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.tracks[id]
	if !ok {
		return nil, NewStreamError(id, ErrCodeNotFound, "track not in catalog", nil)
	}
	return info, nil
}

// OpenStream opens the file behind a source ref
func (c *FSCatalog) OpenStream(ctx context.Context, sourceRef string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(sourceRef)
	if err != nil {
		return nil, NewStreamError(sourceRef, ErrCodeOpen, "failed to open audio source", err)
	}
	return f, nil
}

// splitArtistTitle parses "Artist - Title.ext" file names, leaving the
// artist empty when the pattern does not apply
func splitArtistTitle(name string) (artist, title string) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if artist, title, found := strings.Cut(stem, " - "); found {
		return strings.TrimSpace(artist), strings.TrimSpace(title)
	}
	return "", stem
}
