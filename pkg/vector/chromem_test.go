package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/parley/pkg/config"
)

func newMemoryProvider(t *testing.T) *ChromemProvider {
	t.Helper()
	p, err := NewChromemProvider(config.VectorConfig{Provider: "chromem"})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestChromem_UpsertAndSearch(t *testing.T) {
	p := newMemoryProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Upsert(ctx, "kb_helper", "a", []float32{1, 0, 0}, map[string]any{"content": "about cats"}))
	require.NoError(t, p.Upsert(ctx, "kb_helper", "b", []float32{0, 1, 0}, map[string]any{"content": "about dogs"}))

	results, err := p.Search(ctx, "kb_helper", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "about cats", results[0].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestChromem_SearchClampsTopK(t *testing.T) {
	p := newMemoryProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Upsert(ctx, "kb_helper", "only", []float32{1, 0}, map[string]any{"content": "x"}))

	// Asking for more results than stored documents must not error.
	results, err := p.Search(ctx, "kb_helper", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromem_SearchEmptyCollection(t *testing.T) {
	p := newMemoryProvider(t)

	results, err := p.Search(context.Background(), "kb_empty", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromem_DeleteCollection(t *testing.T) {
	p := newMemoryProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Upsert(ctx, "kb_helper", "a", []float32{1, 0}, map[string]any{"content": "x"}))
	require.NoError(t, p.DeleteCollection(ctx, "kb_helper"))

	results, err := p.Search(ctx, "kb_helper", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromem_PersistWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	p, err := NewChromemProvider(config.VectorConfig{Provider: "chromem", PersistPath: dir})
	require.NoError(t, err)
	require.NoError(t, p.Upsert(ctx, "kb_helper", "a", []float32{1, 0}, map[string]any{"content": "persisted"}))
	require.NoError(t, p.Close())

	assert.FileExists(t, dir+"/vectors.gob")
}
