// Package blobstore stores uploaded document images through waffle's storage
// backends: local disk for development, S3 in production, memory for tests.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
)

// ErrNotFound is returned by Open when no blob has the key.
var ErrNotFound = storage.ErrNotFound

// Store is what the reconcile service needs from blob storage.
type Store interface {
	Upload(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Config selects and configures a backend.
type Config struct {
	Type      string // "local", "s3" or "memory"
	LocalPath string
	S3Region  string
	S3Bucket  string
	S3Prefix  string
}

// Blobs adapts a storage.Store to document image keys.
type Blobs struct {
	store storage.Store
}

// Wrap returns Blobs over an existing backend.
func Wrap(s storage.Store) *Blobs {
	return &Blobs{store: s}
}

// New builds the backend named by cfg.Type.
func New(ctx context.Context, cfg Config) (*Blobs, error) {
	var (
		s   storage.Store
		err error
	)
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		s, err = storage.NewLocal(storage.LocalConfig{BasePath: cfg.LocalPath})
	case "s3":
		s, err = newS3(ctx, cfg)
	case "memory":
		s = storage.NewMemory(storage.MemoryConfig{})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return Wrap(s), nil
}

// Backend names the underlying backend ("local", "s3", "memory").
func (b *Blobs) Backend() string { return b.store.Backend() }

// Upload writes r under name and returns the key to store on the document.
// An empty contentType is detected from the name's extension.
func (b *Blobs) Upload(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	key, err := cleanKey(name)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = ContentType(key)
	}
	if err := b.store.Put(ctx, key, r, &storage.PutOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Blobs) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := b.store.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", k, err)
	}
	return nil
}

// Open streams the blob's content. The caller closes it.
func (b *Blobs) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	return b.store.Get(ctx, k)
}

// ContentType guesses a MIME type from a key's extension.
func ContentType(key string) string {
	return storage.DetectContentType(key, nil)
}

// cleanKey rejects keys that are empty or would escape the store's root.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", storage.ErrInvalidPath)
	}
	k := storage.NormalizePath(strings.TrimSpace(key))
	if err := storage.ValidatePath(k); err != nil || k == "." {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidPath, key)
	}
	return k, nil
}
