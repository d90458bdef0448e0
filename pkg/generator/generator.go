// Package generator is the generation backend adapter: it builds prompts for
// the two quote skills, drives the (retrying) backend provider and absorbs
// backend failure behind a deterministic offline fallback.
//
// Fallback-before-fail is a deliberate policy: the skill stays available
// under backend degradation, and transient errors are masked. The
// generation.fallback_disabled config flag turns the masking off so failure
// paths can be tested end to end.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/quoter/pkg/config"
	"github.com/kadirpekel/quoter/pkg/intent"
	"github.com/kadirpekel/quoter/pkg/llms"
	"github.com/kadirpekel/quoter/pkg/observability"
)

const systemPrompt = "You are a wise quote generator that creates original, inspirational quotes."

const maxTopicLen = 200

// Generator turns a classified intent into quote text.
type Generator struct {
	provider llms.Provider
	cfg      config.GenerationConfig
	recorder observability.Recorder
	fallback *fallbackSet
}

// New builds a Generator. The provider owns the retry budget for transient
// failures; the Generator owns the fallback decision.
func New(provider llms.Provider, cfg config.GenerationConfig, recorder observability.Recorder) *Generator {
	if recorder == nil {
		recorder = observability.NoopRecorder{}
	}
	return &Generator{
		provider: provider,
		cfg:      cfg,
		recorder: recorder,
		fallback: newFallbackSet(),
	}
}

// Generate produces quote text for the intent. It returns an error only when
// the backend failed and the fallback path is disabled or exhausted.
func (g *Generator) Generate(ctx context.Context, it intent.Intent) (string, error) {
	tracer := observability.GetTracer("quoter.generator")
	ctx, span := tracer.Start(ctx, observability.SpanBackendCall,
		trace.WithAttributes(
			attribute.String(observability.AttrIntent, string(it.Kind)),
			attribute.String(observability.AttrLLMModel, g.provider.ModelName()),
		),
	)
	defer span.End()

	start := time.Now()

	text, err := g.provider.Complete(ctx, llms.CompletionRequest{
		System: systemPrompt,
		Prompt: buildPrompt(it),
	})
	if err == nil {
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		err = llms.NewTransientError("backend returned empty text", nil)
	}

	span.RecordError(err)

	if g.cfg.FallbackDisabled {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	quote, ok := g.fallback.pick(it)
	if !ok {
		return "", fmt.Errorf("generation failed and fallback set is empty: %w", err)
	}

	slog.Warn("Backend unavailable, serving fallback quote", "intent", it.Kind, "error", err)
	g.recorder.RecordBackendCall(ctx, 0, time.Since(start), observability.OutcomeFallback)

	return quote, nil
}

func buildPrompt(it intent.Intent) string {
	if it.Kind == intent.KindRandomQuote {
		return `Generate a single, original inspirational quote on any topic you choose.
The quote should be:
- Meaningful and thought-provoking
- Concise (1-2 sentences maximum)
- Original (not a famous existing quote)
- On a randomly chosen topic (success, courage, love, growth, wisdom, etc.)

Format: Just return the quote with proper attribution like "Quote" - Anonymous`
	}

	topic := SanitizeTopic(it.Topic)
	return fmt.Sprintf(`Generate a single, original inspirational quote about %s.
The quote should be:
- Meaningful and thought-provoking
- Concise (1-2 sentences maximum)
- Original (not a famous existing quote)

Format: Just return the quote with proper attribution like "Quote" - Anonymous

Topic: %s`, topic, topic)
}

// SanitizeTopic strips control characters and bounds the topic length so
// arbitrary input cannot grow the prompt without limit.
func SanitizeTopic(topic string) string {
	var sb strings.Builder
	for _, r := range topic {
		if unicode.IsControl(r) {
			continue
		}
		sb.WriteRune(r)
	}

	cleaned := strings.TrimSpace(sb.String())
	if cleaned == "" {
		return "general inspiration"
	}

	runes := []rune(cleaned)
	if len(runes) > maxTopicLen {
		cleaned = string(runes[:maxTopicLen])
	}
	return cleaned
}
