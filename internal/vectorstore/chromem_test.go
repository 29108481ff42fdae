package vectorstore_test

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tokenEmbedder produces deterministic bag-of-words embeddings so similarity
// search favors term overlap. Good enough to exercise the store in tests.
type tokenEmbedder struct{}

func (e *tokenEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *tokenEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (e *tokenEmbedder) embed(text string) []float32 {
	const dim = 128
	vec := make([]float32, dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(tok, ".,?!$")))
		vec[h.Sum32()%dim]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}

func newTestStore(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{}, &tokenEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddDocuments(ctx, "lease_test", []vectorstore.Document{
		{ID: "d1", Content: "monthly rent is two thousand dollars due on the first", Metadata: map[string]string{"section": "rent_payment", "source": "lease"}},
		{ID: "d2", Content: "security deposit equal to one month rent", Metadata: map[string]string{"section": "security_deposit", "source": "lease"}},
		{ID: "d3", Content: "tenant may not keep pets without written consent", Metadata: map[string]string{"section": "pets", "source": "lease"}},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, "lease_test", "what is the monthly rent", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "d1", results[0].ID)
	assert.Equal(t, "rent_payment", results[0].Metadata["section"])
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchWithFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddDocuments(ctx, "laws_test", []vectorstore.Document{
		{ID: "s1", Content: "security deposit capped at two months rent", Metadata: map[string]string{"jurisdiction": "state"}},
		{ID: "s2", Content: "fair housing act prohibits discrimination", Metadata: map[string]string{"jurisdiction": "federal"}},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, "laws_test", "deposit rules", 2, map[string]string{"jurisdiction": "federal"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s2", results[0].ID)
}

func TestSearchMissingCollection(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Search(context.Background(), "never_created", "anything", 3, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
}

func TestSearchCapsKAtCollectionSize(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddDocuments(ctx, "tiny", []vectorstore.Document{
		{ID: "only", Content: "single document"},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, "tiny", "document", 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestAddDocumentsValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddDocuments(ctx, "c", nil)
	assert.ErrorIs(t, err, vectorstore.ErrEmptyDocuments)

	_, err = store.AddDocuments(ctx, "Bad-Name", []vectorstore.Document{{ID: "x", Content: "y"}})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidCollectionName)

	_, err = store.AddDocuments(ctx, "c", []vectorstore.Document{{Content: "no id"}})
	assert.Error(t, err)
}

func TestDeleteCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddDocuments(ctx, "doomed", []vectorstore.Document{{ID: "a", Content: "text"}})
	require.NoError(t, err)

	exists, err := store.CollectionExists(ctx, "doomed")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.DeleteCollection(ctx, "doomed"))

	exists, err = store.CollectionExists(ctx, "doomed")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetCollectionInfo(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AddDocuments(ctx, "info_test", []vectorstore.Document{
		{ID: "a", Content: "one"},
		{ID: "b", Content: "two"},
	})
	require.NoError(t, err)

	info, err := store.GetCollectionInfo(ctx, "info_test")
	require.NoError(t, err)
	assert.Equal(t, 2, info.PointCount)

	_, err = store.GetCollectionInfo(ctx, "missing")
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
}

func TestValidateCollectionName(t *testing.T) {
	assert.NoError(t, vectorstore.ValidateCollectionName("california_laws"))
	assert.Error(t, vectorstore.ValidateCollectionName(""))
	assert.Error(t, vectorstore.ValidateCollectionName("Has-Upper"))
	assert.Error(t, vectorstore.ValidateCollectionName(strings.Repeat("a", 65)))
}
