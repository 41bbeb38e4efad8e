package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil memory service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{}, Options{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingMemoryService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Memory: &mockMemoryService{}}, Options{})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("read-only server still builds", func(t *testing.T) {
		server, err := NewServer(&Ports{Memory: &mockMemoryService{}}, Options{ReadOnly: true})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil memory service returns error", func(t *testing.T) {
		err := (&Ports{}).Validate()
		assert.ErrorIs(t, err, ErrMissingMemoryService)
	})

	t.Run("memory service is sufficient", func(t *testing.T) {
		err := (&Ports{Memory: &mockMemoryService{}}).Validate()
		assert.NoError(t, err)
	})
}

func TestServer_toolDescriptions(t *testing.T) {
	t.Run("defaults apply", func(t *testing.T) {
		server, err := NewServer(&Ports{Memory: &mockMemoryService{}}, Options{})
		require.NoError(t, err)
		assert.Equal(t, defaultDescriptions[ToolFind], server.tool(ToolFind).Description)
	})

	t.Run("overrides win", func(t *testing.T) {
		server, err := NewServer(&Ports{Memory: &mockMemoryService{}}, Options{
			Descriptions: map[string]string{ToolFind: "Recall project lore."},
		})
		require.NoError(t, err)
		assert.Equal(t, "Recall project lore.", server.tool(ToolFind).Description)
	})
}
