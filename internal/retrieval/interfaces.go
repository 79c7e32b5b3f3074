package retrieval

import (
	"context"
	"time"

	"github.com/JakeFAU/remotefiles/internal/token"
)

// Fetcher performs a GET and returns the response whatever its status.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}

// TokenResolver finds the bearer token for a source.
type TokenResolver interface {
	Resolve(source string) (token.Token, error)
}

// Translator rewrites a source into the URL that is actually fetched.
type Translator func(source string) string

// Writer persists contents at dest and returns a URI for the stored copy.
type Writer interface {
	Write(ctx context.Context, dest string, data []byte) (string, error)
}

// Hasher computes digests for fetched content. Verify also checks the digest
// against a pinned value.
type Hasher interface {
	Hash(data []byte) (string, error)
	Verify(data []byte, want string) (string, error)
}

// Recorder receives per-entry metrics.
type Recorder interface {
	ObserveFetch(site string, statusCode int, bytes int, duration time.Duration)
	ObserveWrite(result string)
}

// Reporter displays the configuration before any work starts.
type Reporter interface {
	Report(entries []Entry) error
}
