package runid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueV7(t *testing.T) {
	t.Parallel()

	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.LessOrEqual(t, a, b)
}
