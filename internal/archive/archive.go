// Package archive persists raw report documents after download, so a
// report can be re-imported or audited without asking the external API
// for the same document again.
package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/mixshift/sqp-importer/internal/config"
)

// Store writes and reads raw report artifacts by key.
type Store interface {
	// Put uploads an artifact and returns its stable location.
	Put(ctx context.Context, key string, reader io.Reader, size int64) (string, error)

	// Get opens a previously stored artifact.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks whether an artifact is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// ArtifactKey builds the canonical storage key for one report document.
func ArtifactKey(tenantID, sellerID, reportID string) string {
	return fmt.Sprintf("%s/%s/%s.json", tenantID, sellerID, reportID)
}

// NewStore creates a Store from configuration. Type "none" returns nil:
// the pipeline then skips archival entirely.
func NewStore(cfg *config.ArchiveConfig) (Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocalStore(cfg.LocalDir)
	case "s3":
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}
