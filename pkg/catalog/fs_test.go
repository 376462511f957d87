package catalog

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("fake audio"), 0644))
}

func TestFSCatalogScanAndList(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "DJ Alpha - Opening Theme.mp3")
	writeFixture(t, dir, "closer.wav")
	writeFixture(t, dir, "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	c := NewFSCatalog(dir, nil)
	require.NoError(t, c.Scan(context.Background()))

	tracks, err := c.ListTracks(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 2) // txt and the directory skipped

	// Title order is byte-wise, uppercase first
	assert.Equal(t, "Opening Theme", tracks[0].Title)
	assert.Equal(t, "DJ Alpha", tracks[0].Artist)
	assert.Equal(t, "closer", tracks[1].Title)
	assert.Empty(t, tracks[1].Artist)

	for _, tr := range tracks {
		assert.NotEmpty(t, tr.ID)
		assert.FileExists(t, tr.SourceRef)
	}
}

func TestFSCatalogGetTrack(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "one.mp3")

	c := NewFSCatalog(dir, nil)
	require.NoError(t, c.Scan(context.Background()))

	tracks, err := c.ListTracks(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	got, err := c.GetTrack(context.Background(), tracks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, tracks[0], got)

	_, err = c.GetTrack(context.Background(), "missing-id")
	require.Error(t, err)

	var streamErr *StreamError
	require.True(t, errors.As(err, &streamErr))
	assert.Equal(t, ErrCodeNotFound, streamErr.Code)
}

func TestFSCatalogOpenStream(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "one.mp3")

	c := NewFSCatalog(dir, nil)
	require.NoError(t, c.Scan(context.Background()))

	tracks, _ := c.ListTracks(context.Background())
	stream, err := c.OpenStream(context.Background(), tracks[0].SourceRef)
	require.NoError(t, err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "fake audio", string(data))

	// Seekable
	_, err = stream.Seek(0, io.SeekStart)
	assert.NoError(t, err)

	_, err = c.OpenStream(context.Background(), filepath.Join(dir, "gone.mp3"))
	require.Error(t, err)
	var streamErr *StreamError
	require.True(t, errors.As(err, &streamErr))
	assert.Equal(t, ErrCodeOpen, streamErr.Code)
}

func TestFSCatalogScanMissingDir(t *testing.T) {
	c := NewFSCatalog("/nonexistent/catalog/dir", nil)
	err := c.Scan(context.Background())
	require.Error(t, err)

	var streamErr *StreamError
	require.True(t, errors.As(err, &streamErr))
	assert.Equal(t, ErrCodeOpen, streamErr.Code)
}

func TestStreamErrorUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewStreamError("ref", ErrCodeRead, "read failed", cause)

	assert.Equal(t, "read failed: disk on fire", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewStreamError("ref", ErrCodeRead, "read failed", nil)
	assert.Equal(t, "read failed", bare.Error())
}
