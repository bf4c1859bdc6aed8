// Package generate serializes access to the language model. The model serves
// one completion at a time; everyone else waits in line until their request
// context dies.
package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-teaching-be/internal/pkg/logger"
	"ai-teaching-be/pkg/llm"
)

// Config encapsulates generation orchestration parameters.
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	MaxDuration time.Duration // wall clock cap per generation, 0 means none
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  time.Second,
		MaxDuration: 5 * time.Minute,
	}
}

// Orchestrator owns the single generation slot.
type Orchestrator struct {
	slot     chan struct{} // capacity 1
	provider llm.LLMProvider
	log      logger.ILogger
	config   Config
}

func NewOrchestrator(provider llm.LLMProvider, log logger.ILogger, config Config) *Orchestrator {
	if config.MaxRetries <= 0 {
		config = DefaultConfig()
	}
	return &Orchestrator{
		slot:     make(chan struct{}, 1),
		provider: provider,
		log:      log,
		config:   config,
	}
}

// acquire blocks until the slot frees up or the caller's context is done.
// A request whose client disconnected while queued never reaches the model.
func (o *Orchestrator) acquire(ctx context.Context) error {
	select {
	case o.slot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("abandoned while waiting for generation slot: %w", ctx.Err())
	}

	// The wait may have been long; re-check before burning model time.
	select {
	case <-ctx.Done():
		o.release()
		return fmt.Errorf("abandoned after acquiring generation slot: %w", ctx.Err())
	default:
		return nil
	}
}

func (o *Orchestrator) release() {
	<-o.slot
}

// Generate produces a completion, holding the slot for its duration. Failed
// or empty attempts are retried with a fixed delay; the final text is trimmed
// to the last complete sentence.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	if err := o.acquire(ctx); err != nil {
		return "", err
	}
	defer o.release()

	if o.config.MaxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.MaxDuration)
		defer cancel()
	}

	var lastErr error
	for attempt := 1; attempt <= o.config.MaxRetries; attempt++ {
		result, err := o.provider.Generate(ctx, prompt, opts...)
		if err == nil && strings.TrimSpace(result) != "" {
			return EnsureSentenceCompleteness(strings.TrimSpace(result)), nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("empty completion")
		}
		o.log.Warn("generate", "generation attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   lastErr.Error(),
		})

		if attempt == o.config.MaxRetries {
			break
		}
		select {
		case <-time.After(o.config.RetryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", o.config.MaxRetries, lastErr)
}

// Stream produces a streamed completion. Deltas stop flowing as soon as the
// context dies or onDelta rejects one; partial output is returned as-is since
// the client already saw it. Streams are not retried.
func (o *Orchestrator) Stream(ctx context.Context, prompt string, onDelta llm.DeltaFunc, opts ...llm.Option) (string, error) {
	if err := o.acquire(ctx); err != nil {
		return "", err
	}
	defer o.release()

	if o.config.MaxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.MaxDuration)
		defer cancel()
	}

	guarded := func(delta string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if onDelta == nil {
			return nil
		}
		return onDelta(delta)
	}

	return o.provider.ChatStream(ctx, []llm.Message{{Role: "user", Content: prompt}}, guarded, opts...)
}

var sentenceEndings = []rune{'。', '！', '？', '；', '：', '\n'}

func isSentenceEnding(r rune) bool {
	for _, e := range sentenceEndings {
		if r == e {
			return true
		}
	}
	return false
}

// EnsureSentenceCompleteness trims trailing text that was cut mid-sentence.
// It backs up to the last terminator, then to the last full-width comma, and
// leaves the text alone when neither exists.
func EnsureSentenceCompleteness(text string) string {
	if text == "" {
		return text
	}

	runes := []rune(text)
	if isSentenceEnding(runes[len(runes)-1]) {
		return text
	}

	for i := len(runes) - 1; i >= 0; i-- {
		if isSentenceEnding(runes[i]) {
			return string(runes[:i+1])
		}
	}

	if idx := strings.LastIndex(text, "，"); idx > 0 {
		return text[:idx+len("，")]
	}
	return text
}
