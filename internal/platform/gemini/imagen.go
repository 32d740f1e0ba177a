package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/generation"
	"google.golang.org/genai"
)

// progressTickInterval paces the synthetic step reports emitted while a
// remote generation call is in flight.
const progressTickInterval = time.Second

// ImagenBackend produces images through the Imagen API. It implements
// generation.Backend. The remote API accepts one request at a time per
// instance as far as this application is concerned; callers serialize access.
type ImagenBackend struct {
	logger         *slog.Logger
	config         config.LLMConfig
	client         *genai.Client
	model          string
	negativePrompt string
}

// NewImagenBackend creates an ImagenBackend from the LLM and generation
// configuration.
func NewImagenBackend(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
	negativePrompt string,
) (*ImagenBackend, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ImageModelName == "" {
		return nil, fmt.Errorf("%w: image model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &ImagenBackend{
		logger:         logger,
		config:         cfg,
		client:         client,
		model:          cfg.ImageModelName,
		negativePrompt: negativePrompt,
	}, nil
}

// Produce generates one image for the prompt pair. The remote API exposes no
// per-step callback, so progress is reported on a timer while the call is in
// flight, never past the penultimate step.
func (b *ImagenBackend) Produce(
	ctx context.Context,
	primary, secondary string,
	settings domain.Settings,
	seed int64,
	onStep generation.StepFunc,
) ([]byte, error) {
	prompt := primary
	if secondary != "" {
		prompt = primary + ". " + secondary
	}

	genCfg := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		NegativePrompt: b.negativePrompt,
		GuidanceScale:  genai.Ptr(float32(settings.GuidanceScale)),
		Seed:           genai.Ptr(int32(seed)),
		OutputMIMEType: "image/png",
	}

	stop := reportProgress(ctx, settings.Steps, onStep)
	defer stop()

	var image []byte
	err := callWithRetry(ctx, b.logger, b.config.MaxRetries, b.config.RetryDelaySeconds,
		"produce", func() error {
			resp, err := b.client.Models.GenerateImages(ctx, b.model, prompt, genCfg)
			if err != nil {
				return err
			}
			image, err = extractImage(resp)
			return err
		})
	if err != nil {
		return nil, err
	}

	b.logger.InfoContext(ctx, "image produced",
		"model", b.model,
		"seed", seed,
		"bytes", len(image))
	return image, nil
}

// reportProgress emits synthetic step reports on a ticker until the returned
// stop function is called or the context is done.
func reportProgress(ctx context.Context, total int, onStep generation.StepFunc) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressTickInterval)
		defer ticker.Stop()
		step := 0
		for {
			select {
			case <-ticker.C:
				if step < total-1 {
					step += max(total/15, 1)
					if step > total-1 {
						step = total - 1
					}
					onStep(step)
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	var once bool
	return func() {
		if !once {
			once = true
			close(done)
		}
	}
}

// extractImage validates a GenerateImages response and returns the raw image
// bytes of its single image.
func extractImage(resp *genai.GenerateImagesResponse) ([]byte, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("%w: no images generated", generation.ErrInvalidResponse)
	}
	generated := resp.GeneratedImages[0]
	if generated.RAIFilteredReason != "" {
		return nil, fmt.Errorf("%w: %s", generation.ErrContentBlocked, generated.RAIFilteredReason)
	}
	if generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		return nil, fmt.Errorf("%w: empty image in response", generation.ErrInvalidResponse)
	}
	return generated.Image.ImageBytes, nil
}
