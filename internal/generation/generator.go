package generation

import (
	"context"

	"github.com/atelierhq/atelier-api/internal/domain"
)

// Enhancer rewrites a raw user request into a richer generation prompt.
// This interface is the boundary to the external LLM service; a failure is
// recoverable ("no enhancement"), never fatal to the calling pipeline.
type Enhancer interface {
	// Enhance returns the rewritten prompt text for the raw request.
	Enhance(ctx context.Context, request string) (string, error)
}

// StepFunc receives 1-based step indices while an artifact is being
// produced. Implementations may invoke it zero or more times.
type StepFunc func(step int)

// Backend produces the artifact itself. Implementations wrap one concrete
// image backend each and are selected at construction time; the
// implementation is NOT safe to call concurrently with itself, so callers
// must serialize access.
type Backend interface {
	// Produce generates an image for the primary and secondary descriptors
	// with the given settings and seed, reporting progress through onStep.
	// It returns the encoded artifact bytes.
	Produce(
		ctx context.Context,
		primary string,
		secondary string,
		settings domain.Settings,
		seed int64,
		onStep StepFunc,
	) ([]byte, error)
}
