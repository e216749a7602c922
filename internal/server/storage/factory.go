package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/soundfilter/internal/server/config"
)

// MemoryMountPath is where the server mounts a MemoryStore's handler.
const MemoryMountPath = "/objects"

// NewFromConfig creates the ObjectStore selected by cfg.StorageType.
func NewFromConfig(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageType {
	case "memory":
		base := cfg.S3PublicURL
		if base == "" {
			base = localBaseURL(cfg.HTTPAddress) + MemoryMountPath
		}
		return NewMemoryStore(base, cfg.S3Bucket), nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Region:    cfg.S3Region,
			AccessKey: cfg.S3RootUser,
			SecretKey: cfg.S3RootPassword,
			Endpoint:  cfg.S3BaseEndpoint,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.PublicStorageURL(),
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.StorageType)
	}
}

func localBaseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}
