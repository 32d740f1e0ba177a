package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier-api/internal/domain"
)

// CharacterStore defines persistence operations for character profiles.
// Implementations exist for PostgreSQL and for a single JSON file; the
// application selects one at construction time based on configuration.
type CharacterStore interface {
	// Create saves a new character profile.
	Create(ctx context.Context, character *domain.Character) error

	// GetByID retrieves a character profile by its unique ID.
	// Returns ErrCharacterNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Character, error)

	// List returns all saved character profiles.
	List(ctx context.Context) ([]*domain.Character, error)

	// Delete removes a character profile.
	// Returns ErrCharacterNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// TouchUsage records that the profile was used for a generation,
	// updating its last-used timestamp and usage counter.
	TouchUsage(ctx context.Context, id uuid.UUID) error
}
