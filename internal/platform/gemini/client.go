// Package gemini implements the prompt enhancement and artifact production
// collaborators on top of Google's generative AI APIs: Gemini for text
// enhancement and Imagen for image generation.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/generation"
	"google.golang.org/genai"
)

// newClient builds a genai client for the Gemini API backend.
func newClient(ctx context.Context, cfg config.LLMConfig) (*genai.Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create genai client: %v", generation.ErrInvalidConfig, err)
	}
	return client, nil
}

// callWithRetry runs fn with exponential backoff and jitter. Transient
// failures are retried up to maxRetries times; permanent errors (blocked
// content, malformed responses) are returned immediately.
func callWithRetry(
	ctx context.Context,
	logger *slog.Logger,
	maxRetries, baseDelaySeconds int,
	op string,
	fn func() error,
) error {
	if maxRetries < 0 {
		maxRetries = 3
	}
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		logger.ErrorContext(ctx, "API call failed",
			"op", op,
			"attempt", attempt+1,
			"error", err)

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return err
		}
		if attempt >= maxRetries {
			return fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		delay := backoffDelay(baseDelaySeconds, attempt, rng.Float64())
		logger.InfoContext(ctx, "retrying after delay",
			"op", op,
			"attempt", attempt+1,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// backoffDelay computes baseDelay * 2^attempt scaled by a jitter factor in
// [0.5, 1.0); jitter is the caller's random draw in [0, 1).
func backoffDelay(baseDelaySeconds, attempt int, jitter float64) time.Duration {
	backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
	return time.Duration(backoff * (0.5 + jitter*0.5) * float64(time.Second))
}
