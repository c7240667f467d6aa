package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/embedding"
	"docchat/internal/models"
)

// splitProcessor fakes chunk+embed by splitting page text on "|".
type splitProcessor struct {
	failOnText  string
	extraVector bool
}

func (p *splitProcessor) ProcessDocument(_ context.Context, text string, _ embedding.ProcessOptions) ([]string, [][]float32, error) {
	if p.failOnText != "" && strings.Contains(text, p.failOnText) {
		return nil, nil, errors.New("embedding provider down")
	}
	chunks := strings.Split(text, "|")
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = []float32{float32(i), 1, 0}
	}
	if p.extraVector {
		vectors = append(vectors, []float32{9, 9, 9})
	}
	return chunks, vectors, nil
}

type captureUpserter struct {
	vectors []models.EmbeddingVector
	err     error
}

func (u *captureUpserter) Upsert(_ context.Context, vectors []models.EmbeddingVector) error {
	if u.err != nil {
		return u.err
	}
	u.vectors = vectors
	return nil
}

const docID = "3f1a8f9a-7c2e-4b11-9c79-0b54f3a1c001"

func TestProcess_GlobalChunkIndexAcrossPages(t *testing.T) {
	upserter := &captureUpserter{}
	p := NewPipeline(&splitProcessor{}, upserter, 1000, 100)

	pages := []models.Page{
		{PageNumber: 1, Text: "one|two|three"},
		{PageNumber: 2, Text: "four|five"},
	}
	result, err := p.Process(context.Background(), pages, "handbook.pdf", docID, models.UploadMetadata{})
	require.NoError(t, err)

	assert.Equal(t, docID, result.DocumentID)
	assert.Equal(t, 5, result.ChunksProcessed)
	assert.Equal(t, 2, result.TotalPages)
	assert.Equal(t, "handbook.pdf", result.Filename)
	assert.GreaterOrEqual(t, result.ProcessingTime.Nanoseconds(), int64(0))

	require.Len(t, upserter.vectors, 5)
	for i, v := range upserter.vectors {
		assert.Equal(t, fmt.Sprintf("%s_chunk_%d", docID, i), v.ID)
		assert.Equal(t, "5", v.Metadata["totalChunks"])
		assert.Equal(t, docID, v.Metadata["documentId"])
		assert.Equal(t, "handbook.pdf", v.Metadata["filename"])
		assert.Equal(t, fmt.Sprintf("%d", i), v.Metadata["chunkIndex"])
		assert.NotEmpty(t, v.Metadata["uploadDate"])
	}
	assert.Equal(t, "1", upserter.vectors[2].Metadata["page"])
	assert.Equal(t, "2", upserter.vectors[3].Metadata["page"])
	assert.Equal(t, upserter.vectors[3].Metadata["page"], upserter.vectors[3].Metadata["page_number"])
}

func TestProcess_SkipsEmptyPages(t *testing.T) {
	upserter := &captureUpserter{}
	p := NewPipeline(&splitProcessor{}, upserter, 1000, 100)

	pages := []models.Page{
		{PageNumber: 1, Text: "   "},
		{PageNumber: 2, Text: "only chunk"},
	}
	result, err := p.Process(context.Background(), pages, "a.pdf", docID, models.UploadMetadata{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksProcessed)
	assert.Equal(t, 2, result.TotalPages)
	assert.Equal(t, "2", upserter.vectors[0].Metadata["page"])
}

func TestProcess_NoTextFails(t *testing.T) {
	p := NewPipeline(&splitProcessor{}, &captureUpserter{}, 1000, 100)

	_, err := p.Process(context.Background(), []models.Page{
		{PageNumber: 1, Text: " "},
	}, "a.pdf", docID, models.UploadMetadata{})
	assert.ErrorIs(t, err, ErrNoText)
}

func TestProcess_ChunkEmbeddingMismatchFails(t *testing.T) {
	p := NewPipeline(&splitProcessor{extraVector: true}, &captureUpserter{}, 1000, 100)

	_, err := p.Process(context.Background(), []models.Page{
		{PageNumber: 1, Text: "one|two"},
	}, "a.pdf", docID, models.UploadMetadata{})
	assert.ErrorIs(t, err, ErrChunkMismatch)
}

func TestProcess_EmbeddingFailurePropagates(t *testing.T) {
	p := NewPipeline(&splitProcessor{failOnText: "bad"}, &captureUpserter{}, 1000, 100)

	_, err := p.Process(context.Background(), []models.Page{
		{PageNumber: 1, Text: "bad page"},
	}, "a.pdf", docID, models.UploadMetadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")
}

func TestProcess_UpsertFailurePropagates(t *testing.T) {
	p := NewPipeline(&splitProcessor{}, &captureUpserter{err: errors.New("index offline")}, 1000, 100)

	_, err := p.Process(context.Background(), []models.Page{
		{PageNumber: 1, Text: "one"},
	}, "a.pdf", docID, models.UploadMetadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storing vectors")
}

func TestProcess_MetadataTags(t *testing.T) {
	upserter := &captureUpserter{}
	p := NewPipeline(&splitProcessor{}, upserter, 1000, 100)

	meta := models.UploadMetadata{
		UserID:   "user-1",
		Area:     []string{"hr", "legal"},
		Tags:     []string{"draft"},
		Category: nil,
	}
	_, err := p.Process(context.Background(), []models.Page{
		{PageNumber: 1, Text: "one"},
	}, "a.pdf", docID, meta)
	require.NoError(t, err)

	md := upserter.vectors[0].Metadata
	assert.Equal(t, "user-1", md["userId"])
	assert.Equal(t, "hr,legal", md["area"])
	assert.Equal(t, "draft", md["tags"])
	assert.NotContains(t, md, "category")
	assert.NotContains(t, md, "source")
}
