package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls   []string
	failOn  string
	vector  []float32
	failErr error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, errors.New("provider failure")
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func newTestGenerator(f *fakeEmbedder) *Generator {
	// High rate so tests never sleep.
	return newGenerator(f, 1e6)
}

func TestEmbed_EmptyInput(t *testing.T) {
	g := newTestGenerator(&fakeEmbedder{})

	_, err := g.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = g.Embed(context.Background(), "   \n ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbed_TrimsInput(t *testing.T) {
	f := &fakeEmbedder{}
	g := newTestGenerator(f)

	vec, err := g.Embed(context.Background(), "  hello world  ")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	require.Len(t, f.calls, 1)
	assert.Equal(t, "hello world", f.calls[0])
}

func TestEmbed_EmptyVectorFromProvider(t *testing.T) {
	g := newTestGenerator(&fakeEmbedder{vector: []float32{}})

	_, err := g.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty vector")
}

func TestEmbedBatch_EmptyBatch(t *testing.T) {
	g := newTestGenerator(&fakeEmbedder{})

	_, err := g.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = g.EmbedBatch(context.Background(), []string{})
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestEmbedBatch_SequentialOrder(t *testing.T) {
	f := &fakeEmbedder{}
	g := newTestGenerator(f)

	texts := []string{"first", "second", "third"}
	vectors, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.Equal(t, texts, f.calls)
}

func TestEmbedBatch_AbortsOnFirstFailure(t *testing.T) {
	f := &fakeEmbedder{failOn: "second"}
	g := newTestGenerator(f)

	_, err := g.EmbedBatch(context.Background(), []string{"first", "second", "third"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 2/3")
	// The third text must never reach the provider.
	assert.Len(t, f.calls, 2)
}

func TestProcessDocument_NoChunks(t *testing.T) {
	g := newTestGenerator(&fakeEmbedder{})

	_, _, err := g.ProcessDocument(context.Background(), "   ", ProcessOptions{})
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestProcessDocument_ChunksMatchEmbeddings(t *testing.T) {
	f := &fakeEmbedder{}
	g := newTestGenerator(f)

	var sb strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "Sentence number %d ends here. ", i)
	}

	chunks, vectors, err := g.ProcessDocument(context.Background(), sb.String(), ProcessOptions{
		MaxChunkSize: 200,
		OverlapSize:  40,
	})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, len(chunks), len(vectors))
	assert.Equal(t, len(chunks), len(f.calls))
}

func TestPing(t *testing.T) {
	g := newTestGenerator(&fakeEmbedder{})
	assert.True(t, g.Ping(context.Background()))

	g = newTestGenerator(&fakeEmbedder{failOn: "ping"})
	assert.False(t, g.Ping(context.Background()))
}
