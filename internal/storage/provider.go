// Package storage defines the destination writer abstraction.
// This keeps the retrieval pipeline independent of where files land
// (the local filesystem or Google Cloud Storage).
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// GCSScheme prefixes destinations stored in Google Cloud Storage.
const GCSScheme = "gs://"

// ErrNoBackend is returned when no writer is configured for a destination.
var ErrNoBackend = errors.New("no storage backend for destination")

// Writer persists data at dest and returns a URI for the stored object.
type Writer interface {
	Write(ctx context.Context, dest string, data []byte) (string, error)
}

// Router sends gs:// destinations to the GCS writer and everything else to the local writer.
type Router struct {
	local Writer
	gcs   Writer
}

// NewRouter builds a Router. Either writer may be nil.
func NewRouter(local, gcs Writer) *Router {
	return &Router{local: local, gcs: gcs}
}

// Write implements Writer.
func (r *Router) Write(ctx context.Context, dest string, data []byte) (string, error) {
	target := r.local
	if IsGCS(dest) {
		target = r.gcs
	}
	if target == nil {
		return "", fmt.Errorf("%w: %s", ErrNoBackend, dest)
	}
	return target.Write(ctx, dest, data)
}

// IsGCS reports whether dest names a Cloud Storage object.
func IsGCS(dest string) bool {
	return strings.HasPrefix(dest, GCSScheme)
}
