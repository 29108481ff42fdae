package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "cohere", Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProviderRequiresModel(t *testing.T) {
	_, err := NewProvider(Config{Provider: "openai"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpenAIProviderValidatesInput(t *testing.T) {
	p, err := NewProvider(Config{Model: "text-embedding-3-small", APIKey: "test"})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}
