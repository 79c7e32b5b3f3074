// Package retrieval fetches configured remote files and writes them to their destinations.
package retrieval

import (
	"fmt"
	"net/http"
	"time"
)

// State names a step in the lifecycle of a single entry.
type State string

// Entry lifecycle states, in order. Any step may end in StateFailed instead.
const (
	StatePending    State = "pending"
	StateTranslated State = "translated"
	StateFetching   State = "fetching"
	StateFetched    State = "fetched"
	StateWriting    State = "writing"
	StateWritten    State = "written"
	StateFailed     State = "failed"
)

// Entry maps one remote source to the place it is stored.
type Entry struct {
	Source        string `mapstructure:"source" json:"source" yaml:"source"`
	LocalFilePath string `mapstructure:"localFilePath" json:"localFilePath" yaml:"localFilePath"`
	// SHA256 optionally pins the expected hex digest of the fetched content.
	SHA256 string `mapstructure:"sha256" json:"sha256,omitempty" yaml:"sha256,omitempty"`
}

// Result is a fetched entry waiting to be written.
type Result struct {
	Source        string
	TranslatedURL string
	LocalFilePath string
	Contents      []byte
	Digest        string
	Duration      time.Duration
}

// Request captures everything needed to fetch a URL.
type Request struct {
	URL     string
	Headers http.Header
}

// Response is returned by a Fetcher for any HTTP status.
type Response struct {
	URL        string
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// FetchError reports a fetch that did not produce a 2xx response.
// StatusCode is zero when the request never got a response.
type FetchError struct {
	Source        string
	TranslatedURL string
	StatusCode    int
	StatusText    string
	Err           error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s from %s: %v", e.Source, e.TranslatedURL, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s from %s: %d %s", e.Source, e.TranslatedURL, e.StatusCode, e.StatusText)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Planned describes what a run would do for one entry without doing it.
type Planned struct {
	Entry
	TranslatedURL string
	TokenVar      string
	TokenSet      bool
}
