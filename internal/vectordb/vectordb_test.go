package vectordb

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/config"
	"docchat/internal/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(&config.VectorConfig{
		Collection: "documents_test",
		InMemory:   true,
	}, 1e6)
	require.NoError(t, err)
	return client
}

func seedVectors() []models.EmbeddingVector {
	return []models.EmbeddingVector{
		{
			ID:     "doc1_chunk_0",
			Values: []float32{1, 0, 0},
			Metadata: map[string]string{
				"documentId": "doc1",
				"filename":   "handbook.pdf",
				"text":       "Employees get 25 vacation days.",
				"page":       "1",
				"chunkIndex": "0",
				"area":       "hr",
			},
		},
		{
			ID:     "doc2_chunk_0",
			Values: []float32{0, 1, 0},
			Metadata: map[string]string{
				"documentId": "doc2",
				"filename":   "budget.pdf",
				"text":       "The quarterly budget grew by 4%.",
				"page":       "3",
				"chunkIndex": "0",
				"area":       "finance",
				"tags":       "q3,draft",
			},
		},
		{
			ID:     "doc3_chunk_0",
			Values: []float32{0.8, 0.6, 0},
			Metadata: map[string]string{
				"documentId": "doc3",
				"filename":   "onboarding.pdf",
				"text":       "New hires complete training in week one.",
				"page":       "2",
				"chunkIndex": "0",
				"area":       "hr",
			},
		},
	}
}

func TestUpsert_EmptyBatch(t *testing.T) {
	client := newTestClient(t)
	err := client.Upsert(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestUpsert_SplitsIntoBatches(t *testing.T) {
	client := newTestClient(t)

	vectors := make([]models.EmbeddingVector, 0, 250)
	for i := 0; i < 250; i++ {
		vectors = append(vectors, models.EmbeddingVector{
			ID:       fmt.Sprintf("bulk_chunk_%d", i),
			Values:   []float32{1, 0, 0},
			Metadata: map[string]string{"text": fmt.Sprintf("chunk %d", i)},
		})
	}
	require.NoError(t, client.Upsert(context.Background(), vectors))
	assert.True(t, client.Ping(context.Background()))
}

func TestSearch_EmptyIndex(t *testing.T) {
	client := newTestClient(t)

	result, err := client.Search(context.Background(), []float32{1, 0, 0}, nil, 5, nil)
	require.NoError(t, err)
	assert.Zero(t, result.TotalResults)
	assert.Empty(t, result.Documents)
	assert.Equal(t, "documents_test", result.IndexUsed)
}

func TestSearch_SortedAndTruncated(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Upsert(context.Background(), seedVectors()))

	result, err := client.Search(context.Background(), []float32{1, 0, 0}, nil, 2, nil)
	require.NoError(t, err)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, result.TotalResults, len(result.Documents))

	// doc1 is collinear with the query, doc3 close, doc2 orthogonal.
	assert.Equal(t, "doc1_chunk_0", result.Documents[0].ID)
	assert.Equal(t, "doc3_chunk_0", result.Documents[1].ID)
	assert.GreaterOrEqual(t, result.Documents[0].Score, result.Documents[1].Score)
	assert.Equal(t, "handbook.pdf", result.Documents[0].Source)
	assert.Equal(t, "1", result.Documents[0].Page)
}

func TestSearch_AreaFilter(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Upsert(context.Background(), seedVectors()))

	result, err := client.Search(context.Background(), []float32{0, 1, 0}, []string{"finance"}, 5, nil)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "doc2_chunk_0", result.Documents[0].ID)
}

func TestSearch_TagFilterMatchesCommaEncodedSet(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Upsert(context.Background(), seedVectors()))

	result, err := client.Search(context.Background(), []float32{0, 1, 0}, nil, 5, &models.SearchFilters{
		Tags: []string{"draft"},
	})
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "doc2_chunk_0", result.Documents[0].ID)
}

func TestSearch_ConjunctiveFilters(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Upsert(context.Background(), seedVectors()))

	// area=hr AND tags=draft matches nothing: the only draft is finance.
	result, err := client.Search(context.Background(), []float32{1, 0, 0}, []string{"hr"}, 5, &models.SearchFilters{
		Tags: []string{"draft"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
}

func TestBuildPredicates_OmitsEmptyDimensions(t *testing.T) {
	predicates := buildPredicates(nil, &models.SearchFilters{
		Category: []string{},
		Source:   []string{"handbook.pdf"},
	})
	assert.NotContains(t, predicates, "area")
	assert.NotContains(t, predicates, "category")
	assert.NotContains(t, predicates, "tags")
	assert.Equal(t, []string{"handbook.pdf"}, predicates["source"])

	assert.Empty(t, buildPredicates(nil, nil))
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Ping(context.Background()))

	var empty *Client
	assert.False(t, empty.Ping(context.Background()))
}
