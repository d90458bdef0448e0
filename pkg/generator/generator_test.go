package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/quoter/pkg/config"
	"github.com/kadirpekel/quoter/pkg/intent"
	"github.com/kadirpekel/quoter/pkg/llms"
	"github.com/kadirpekel/quoter/pkg/testutils"
)

func TestGenerate_Success(t *testing.T) {
	backend := testutils.NewMockBackend()
	backend.CompleteFunc = func(ctx context.Context, req llms.CompletionRequest) (string, error) {
		assert.Contains(t, req.Prompt, "courage")
		return `"Courage grows in the dark." - Anonymous`, nil
	}

	gen := New(backend, config.GenerationConfig{}, nil)

	text, err := gen.Generate(context.Background(), intent.Intent{Kind: intent.KindTopicQuote, Topic: "courage"})
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestGenerate_FallbackOnPermanentFailure(t *testing.T) {
	backend := testutils.NewMockBackend()
	backend.CompleteErr = llms.NewPermanentError("no API key configured", nil)

	gen := New(backend, config.GenerationConfig{}, nil)

	text, err := gen.Generate(context.Background(), intent.Intent{Kind: intent.KindTopicQuote, Topic: "courage"})
	require.NoError(t, err, "fallback must absorb backend failure")
	assert.NotEmpty(t, text)
}

func TestGenerate_FallbackIsDeterministicPerTopic(t *testing.T) {
	backend := testutils.NewMockBackend()
	backend.CompleteErr = llms.NewTransientError("down", nil)

	gen := New(backend, config.GenerationConfig{}, nil)

	it := intent.Intent{Kind: intent.KindTopicQuote, Topic: "perseverance"}
	first, err := gen.Generate(context.Background(), it)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, err := gen.Generate(context.Background(), it)
		require.NoError(t, err)
		assert.Equal(t, first, got, "same topic must map to the same fallback quote")
	}
}

func TestGenerate_FallbackRoundRobinForRandom(t *testing.T) {
	backend := testutils.NewMockBackend()
	backend.CompleteErr = llms.NewTransientError("down", nil)

	gen := New(backend, config.GenerationConfig{}, nil)

	it := intent.Intent{Kind: intent.KindRandomQuote}
	first, err := gen.Generate(context.Background(), it)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), it)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "round-robin should advance")
}

func TestGenerate_FallbackDisabledSurfacesError(t *testing.T) {
	backend := testutils.NewMockBackend()
	backend.CompleteErr = llms.NewTransientError("rate limited", nil)

	gen := New(backend, config.GenerationConfig{FallbackDisabled: true}, nil)

	_, err := gen.Generate(context.Background(), intent.Intent{Kind: intent.KindRandomQuote})
	require.Error(t, err)
	assert.ErrorContains(t, err, "rate limited")
}

func TestGenerate_EmptyBackendTextFallsBack(t *testing.T) {
	backend := testutils.NewMockBackend()
	backend.CompleteFunc = func(ctx context.Context, req llms.CompletionRequest) (string, error) {
		return "   ", nil
	}

	gen := New(backend, config.GenerationConfig{}, nil)

	text, err := gen.Generate(context.Background(), intent.Intent{Kind: intent.KindTopicQuote, Topic: "focus"})
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestSanitizeTopic(t *testing.T) {
	assert.Equal(t, "courage", SanitizeTopic("courage"))
	assert.Equal(t, "abc", SanitizeTopic("a\x00b\nc"))
	assert.Equal(t, "general inspiration", SanitizeTopic("\x01\x02"))

	long := strings.Repeat("x", 500)
	assert.Len(t, SanitizeTopic(long), maxTopicLen)
}

func TestBuildPrompt(t *testing.T) {
	random := buildPrompt(intent.Intent{Kind: intent.KindRandomQuote})
	assert.Contains(t, random, "any topic you choose")

	topic := buildPrompt(intent.Intent{Kind: intent.KindTopicQuote, Topic: "teamwork"})
	assert.Contains(t, topic, "about teamwork")
}
