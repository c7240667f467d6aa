package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	id, err := GenerateUUID()
	require.NoError(t, err)
	assert.True(t, IsUUIDv4(id))
}

func TestIsUUIDv4(t *testing.T) {
	assert.True(t, IsUUIDv4("9b2d7f3a-4c1e-4b8a-9f0d-2e6c5a1b3d7e"))

	// Version 1 UUIDs are rejected even though they parse.
	assert.False(t, IsUUIDv4("f47ac10b-58cc-1372-a567-0e02b2c3d479"))
	assert.False(t, IsUUIDv4("not-a-uuid"))
	assert.False(t, IsUUIDv4(""))
}
