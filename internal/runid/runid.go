// Package runid issues the identifier attached to every log line of a run.
package runid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a time-ordered UUIDv7 string, so runs sort by start time.
func New() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}
