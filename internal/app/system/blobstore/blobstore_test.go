package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	for in, want := range map[string]string{
		"a.jpg":                      "a.jpg",
		"companies/1/owners/2/x.png": "companies/1/owners/2/x.png",
		"/lead/slash.pdf":            "lead/slash.pdf",
		"a//b.png":                   "a/b.png",
	} {
		got, err := cleanKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "  ", "/", "../etc/passwd", "a/../../b"} {
		_, err := cleanKey(bad)
		assert.True(t, errors.Is(err, storage.ErrInvalidPath), "%q: %v", bad, err)
	}
}

func TestLocal_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := New(ctx, Config{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "local", b.Backend())

	key, err := b.Upload(ctx, "companies/c1/owners/p1/img.png", strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "companies/c1/owners/p1/img.png", key)

	rc, err := b.Open(ctx, key)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png-bytes", string(got))

	require.NoError(t, b.Delete(ctx, key))
	require.NoError(t, b.Delete(ctx, key), "second delete is a no-op")

	_, err = b.Open(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocal_RejectsTraversal(t *testing.T) {
	b, err := New(context.Background(), Config{LocalPath: t.TempDir()})
	require.NoError(t, err)
	_, err = b.Upload(context.Background(), "../outside.txt", strings.NewReader("x"), "text/plain")
	assert.Error(t, err)
}

func TestMemory_DetectsContentType(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory(storage.MemoryConfig{})
	b := Wrap(mem)

	key, err := b.Upload(ctx, "doc/scan.pdf", strings.NewReader("%PDF"), "")
	require.NoError(t, err)

	info, err := mem.Head(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.ContentType)
	assert.Equal(t, "image/jpeg", ContentType("a/b/photo.jpg"))
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, Config{Type: "ftp"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Type: "local"})
	assert.Error(t, err, "local storage needs a path")

	_, err = New(ctx, Config{Type: "s3"})
	assert.Error(t, err, "s3 needs a bucket")
}
