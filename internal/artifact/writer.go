// Package artifact persists produced images and their metadata sidecars to
// the local filesystem.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/pipeline"
)

// imageName and metadataName are the fixed file names inside each artifact
// directory.
const (
	imageName    = "artifact.png"
	metadataName = "metadata.json"
)

// ErrInvalidArtifactPath indicates a result filename that escapes the output
// directory.
var ErrInvalidArtifactPath = errors.New("invalid artifact path")

// timestampLayout matches the original deployment's file naming.
const timestampLayout = "20060102_150405"

// Metadata is the sidecar written next to every artifact so a result stays
// reproducible after the job record is evicted.
type Metadata struct {
	JobID           string                   `json:"job_id"`
	Request         string                   `json:"request"`
	EnhancedRequest string                   `json:"enhanced_request"`
	PrimaryPrompt   string                   `json:"primary_prompt"`
	SecondaryPrompt string                   `json:"secondary_prompt,omitempty"`
	Seed            int64                    `json:"seed"`
	Settings        domain.Settings          `json:"settings"`
	Character       *domain.CharacterBinding `json:"character,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// Writer implements pipeline.Persister on the local filesystem. Each result
// gets its own directory under the output root; bound jobs nest under a
// per-character subdirectory.
type Writer struct {
	outputDir string
	logger    *slog.Logger
}

// Ensure Writer implements pipeline.Persister.
var _ pipeline.Persister = (*Writer)(nil)

// NewWriter creates a Writer rooted at outputDir, creating it if needed.
func NewWriter(outputDir string, logger *slog.Logger) (*Writer, error) {
	if outputDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{
		outputDir: outputDir,
		logger:    logger.With(slog.String("component", "artifact_writer")),
	}, nil
}

// Persist writes the image and its metadata sidecar and returns the result
// filename relative to the output root.
func (w *Writer) Persist(_ context.Context, job domain.Job, result pipeline.Result) (string, error) {
	relDir := fmt.Sprintf("%s_%s", job.ID, time.Now().UTC().Format(timestampLayout))
	if job.Character != nil {
		relDir = filepath.Join(sanitizeName(job.Character.Name), relDir)
	}

	dir := filepath.Join(w.outputDir, relDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, imageName), result.Image, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	metadata := Metadata{
		JobID:           job.ID.String(),
		Request:         job.Request,
		EnhancedRequest: result.EnhancedRequest,
		PrimaryPrompt:   result.Primary,
		SecondaryPrompt: result.Secondary,
		Seed:            result.Seed,
		Settings:        result.Settings,
		Character:       job.Character,
		CreatedAt:       time.Now().UTC(),
	}
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataName), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact metadata: %w", err)
	}

	filename := filepath.Join(relDir, imageName)
	w.logger.Info("artifact persisted",
		slog.String("job_id", job.ID.String()),
		slog.String("filename", filename),
		slog.Int("bytes", len(result.Image)))
	return filename, nil
}

// Path resolves a result filename back to an absolute path, rejecting
// anything that escapes the output root.
func (w *Writer) Path(filename string) (string, error) {
	if filename == "" || filepath.IsAbs(filename) {
		return "", ErrInvalidArtifactPath
	}
	cleaned := filepath.Clean(filename)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrInvalidArtifactPath
	}
	return filepath.Join(w.outputDir, cleaned), nil
}

// sanitizeName reduces a character name to a safe directory segment.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "character"
	}
	return b.String()
}
