package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIEmbedder_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAIEmbedder(0)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestNewOpenAIEmbedder_DefaultBatchSize(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	e, err := NewOpenAIEmbedder(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, e.batchSize)

	e, err = NewOpenAIEmbedder(50)
	require.NoError(t, err)
	assert.Equal(t, 50, e.batchSize)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})

	var length float64
	for _, x := range v {
		length += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(length), 1e-6)

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
