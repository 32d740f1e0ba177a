package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/generation"
	"google.golang.org/genai"
)

// ErrEmptyRequest is returned when an empty request is passed to Enhance.
var ErrEmptyRequest = errors.New("request text cannot be empty")

// systemPrompt steers the model toward a two-line, photorealistic prompt
// pair: a subject line and a style line. The model must preserve the user's
// subject untouched and only add technical detail.
const systemPrompt = `You are an expert image prompt engineer. Transform the user's request into a highly detailed, hyper-realistic image generation prompt.

CRITICAL RULES:
1. PRESERVE the user's EXACT request. Do NOT change the subject, action, pose, or key elements they specified.
2. Only ADD technical details (lighting, quality, camera). Never REMOVE or CHANGE what the user asked for.
3. Output exactly two lines: the first describes the subject in detail, the second describes lighting, camera, and quality enhancers.

Output ONLY the prompt text, nothing else. No explanations, no bullet points, no formatting.`

// Enhancer turns a raw user request into a detailed generation prompt using
// the Gemini API. It implements generation.Enhancer.
type Enhancer struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string
}

// NewEnhancer creates an Enhancer from the LLM configuration.
func NewEnhancer(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Enhancer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Enhancer{
		logger: logger,
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// Enhance sends the request to the model and returns the enhanced prompt
// text. Transient API failures are retried with exponential backoff.
func (e *Enhancer) Enhance(ctx context.Context, request string) (string, error) {
	if request == "" {
		return "", ErrEmptyRequest
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		Temperature: genai.Ptr[float32](0.7),
	}

	var text string
	err := callWithRetry(ctx, e.logger, e.config.MaxRetries, e.config.RetryDelaySeconds,
		"enhance", func() error {
			resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(request), genCfg)
			if err != nil {
				return err
			}
			text, err = extractText(resp)
			return err
		})
	if err != nil {
		return "", err
	}

	e.logger.DebugContext(ctx, "request enhanced",
		"request_length", len(request),
		"enhanced_length", len(text))
	return text, nil
}

// extractText validates a GenerateContent response and concatenates its text
// parts.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("%w: response contains no text", generation.ErrInvalidResponse)
	}
	return text, nil
}
