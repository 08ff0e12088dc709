package embedding

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/config"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	vecs, err := e.Embed(ctx, []string{
		"diabetes insulin glucose",
		"glucose insulin diabetes",
		"fracture bone cast",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	for _, v := range vecs {
		assert.Len(t, v, 64)
	}

	var norm float64
	for _, x := range vecs[0] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	assert.InDelta(t, 1.0, cosine(vecs[0], vecs[1]), 1e-5)
	assert.Less(t, cosine(vecs[0], vecs[2]), 0.9)

	for _, x := range vecs[3] {
		assert.Zero(t, x)
	}
	assert.Equal(t, "hash", e.ModelName())
}

type countingEmbedder struct {
	*HashEmbedder
	calls  int
	inputs int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.inputs += len(texts)
	return c.HashEmbedder.Embed(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(16)}
	c := NewCachedEmbedder(inner, 8, time.Minute)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"cough"})
	require.NoError(t, err)

	second, err := c.Embed(ctx, []string{"cough", "rash"})
	require.NoError(t, err)

	assert.Equal(t, first[0], second[0])
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, inner.inputs, "cached text should not be re-embedded")
	assert.Equal(t, 2, c.Len())

	_, err = c.Embed(ctx, []string{"rash", "cough"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	assert.Equal(t, 16, c.Dimension())
	assert.Equal(t, "hash", c.ModelName())
}

func TestNew_Providers(t *testing.T) {
	noEnv := func(string) (string, bool) { return "", false }

	e, err := New(config.EmbeddingConfig{Provider: "hash", Dimension: 32}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, 32, e.Dimension())

	e, err = New(config.EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text"}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())

	_, err = New(config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", APIKeyEnv: "OPENAI_API_KEY"}, noEnv)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	withKey := func(k string) (string, bool) { return "sk-abc", k == "OPENAI_API_KEY" }
	e, err = New(config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-large", APIKeyEnv: "OPENAI_API_KEY"}, withKey)
	require.NoError(t, err)
	assert.Equal(t, 3072, e.Dimension())

	_, err = New(config.EmbeddingConfig{Provider: "hash"}, noEnv)
	assert.Error(t, err)

	_, err = New(config.EmbeddingConfig{Provider: "word2vec"}, noEnv)
	assert.ErrorContains(t, err, "unsupported embedding provider")
}

func TestNewForQueries_WrapsInCache(t *testing.T) {
	e, err := NewForQueries(config.EmbeddingConfig{Provider: "hash", Dimension: 8, CacheSize: 4, CacheTTL: time.Minute}, nil)
	require.NoError(t, err)
	_, ok := e.(*CachedEmbedder)
	assert.True(t, ok)

	e, err = NewForQueries(config.EmbeddingConfig{Provider: "hash", Dimension: 8}, nil)
	require.NoError(t, err)
	_, ok = e.(*HashEmbedder)
	assert.True(t, ok)
}
