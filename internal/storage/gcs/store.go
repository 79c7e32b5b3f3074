// Package gcs writes destinations of the form gs://bucket/object to Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// ErrInvalidURI is returned for destinations that are not gs://bucket/object.
var ErrInvalidURI = errors.New("invalid gcs uri")

// ClientFactory opens a storage client. storage.NewClient with default options
// uses Application Default Credentials.
type ClientFactory func(ctx context.Context) (*storage.Client, error)

// Config captures the parameters for the GCS store.
type Config struct {
	// ContentType is set on uploaded objects when non-empty.
	ContentType string
}

// Store uploads files to GCS. The client is opened on first use so runs
// without gs:// destinations never need credentials.
type Store struct {
	cfg     Config
	factory ClientFactory
	logger  *zap.Logger

	mu     sync.Mutex
	client *storage.Client
}

// New creates a GCS-backed store. A nil factory uses storage.NewClient.
func New(cfg Config, factory ClientFactory, logger *zap.Logger) *Store {
	if factory == nil {
		factory = func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{cfg: cfg, factory: factory, logger: logger}
}

// ParseURI splits gs://bucket/object into its bucket and object name.
func ParseURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.TrimSpace(object) == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return bucket, object, nil
}

// Write uploads data to the object named by dest and returns dest.
func (s *Store) Write(ctx context.Context, dest string, data []byte) (string, error) {
	bucket, object, err := ParseURI(dest)
	if err != nil {
		return "", err
	}
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	s.logger.Info("uploading object", zap.String("bucket", bucket), zap.String("object", object))
	writer := client.Bucket(bucket).Object(object).NewWriter(ctx)
	if s.cfg.ContentType != "" {
		writer.ContentType = s.cfg.ContentType
	}
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", bucket, object), nil
}

func (s *Store) getClient(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	client, err := s.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	s.client = client
	return client, nil
}

// Close releases the client if one was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	if err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
