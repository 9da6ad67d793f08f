package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Storage is where the crawler puts downloaded images. Save returns a
// location string suitable for logging and the dataset ledger.
type Storage interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Root is the folder or key prefix files are written under.
	Root() string
}

// S3Options configures the S3 backend.
type S3Options struct {
	Region   string
	Endpoint string
}

// Open picks a backend from target. An empty target or "disk" writes to
// localDir. "s3://bucket/prefix" uploads to bucket under prefix/personDir.
func Open(target, localDir, personDir string, opts S3Options) (Storage, error) {
	switch {
	case target == "" || target == "disk":
		return NewDisk(filepath.Join(localDir, personDir))
	case strings.HasPrefix(target, "s3://"):
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid storage target %q: %w", target, err)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("invalid storage target %q: missing bucket", target)
		}
		prefix := strings.Trim(u.Path, "/")
		return NewS3(u.Host, joinKey(prefix, personDir), opts)
	default:
		return nil, fmt.Errorf("unsupported storage target %q", target)
	}
}

func joinKey(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, "/")
}
