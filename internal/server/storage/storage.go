// Package storage is the gateway to the object store holding audio files and
// profile pictures. Objects are written under a user-scoped key and are
// addressed by a public URL of the form {publicBase}/{bucket}/{key}.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Object categories used as the second key segment.
const (
	CategoryAudio          = "audio-file"
	CategoryProfilePicture = "profile-picture"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrForeignURL     = errors.New("url does not belong to this store")
)

// ObjectStore puts and deletes blobs by key.
type ObjectStore interface {
	// Put stores data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL inverts the URL returned by Put.
	KeyFromURL(url string) (string, error)
}

// NewObjectKey returns a fresh key of the form user:{userID}/{category}/{uuid}.{ext}.
func NewObjectKey(userID int64, category, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return fmt.Sprintf("user:%d/%s/%s", userID, category, uuid.NewString())
	}
	return fmt.Sprintf("user:%d/%s/%s.%s", userID, category, uuid.NewString(), ext)
}

// urlScheme builds and parses the public URLs shared by every backend.
type urlScheme struct {
	base   string
	bucket string
}

func newURLScheme(base, bucket string) urlScheme {
	return urlScheme{base: strings.TrimRight(base, "/"), bucket: bucket}
}

func (u urlScheme) prefix() string {
	return u.base + "/" + u.bucket + "/"
}

func (u urlScheme) url(key string) string {
	return u.prefix() + key
}

func (u urlScheme) key(url string) (string, error) {
	key, ok := strings.CutPrefix(url, u.prefix())
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return key, nil
}
