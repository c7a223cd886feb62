package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Sentinel errors for generation failures. Both are terminal for the
// current turn; there is no automatic retry.
var (
	// ErrGenerationTimeout indicates the model call exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGenerationUnavailable indicates the inference backend failed.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// generate invokes the model with the rendered prompt. When onToken is
// non-nil, streamed chunks pass through the final-answer marker filter
// before being forwarded; the returned text is always the complete model
// output regardless of streaming.
func (a *Assistant) generate(ctx context.Context, promptText string, onToken TokenCallback) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", classifyGenerationError(err)
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithPrompt(promptText),
	}

	if onToken != nil {
		filter := newMarkerFilter(a.marker)
		cb := func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if chunk == nil {
				return nil
			}
			for _, part := range chunk.Content {
				if part.Text == "" {
					continue
				}
				if out := filter.feed(part.Text); out != "" {
					if err := onToken(ctx, out); err != nil {
						return err
					}
				}
			}
			return nil
		}
		opts = append(opts, ai.WithStreaming(cb))
	}

	resp, err := genkit.Generate(ctx, a.g, opts...)
	if err != nil {
		return "", classifyGenerationError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		a.logger.Warn("model returned empty response")
		text = fallbackResponseMessage
	}
	return text, nil
}

// classifyGenerationError maps backend failures onto the package's
// sentinel errors while preserving the cause chain.
func classifyGenerationError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrGenerationTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
}
