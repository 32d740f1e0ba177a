package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/store"
)

// CreateCharacterParams carries a character profile submission.
type CreateCharacterParams struct {
	Name           string
	Description    string
	Seed           int64
	Settings       *domain.Settings
	ReferenceImage string
}

// CharacterService coordinates character profile CRUD.
type CharacterService struct {
	characters store.CharacterStore
	logger     *slog.Logger
}

// NewCharacterService creates a CharacterService.
func NewCharacterService(characters store.CharacterStore, logger *slog.Logger) *CharacterService {
	return &CharacterService{
		characters: characters,
		logger:     logger,
	}
}

// Create validates and saves a new character profile.
func (s *CharacterService) Create(ctx context.Context, params CreateCharacterParams) (*domain.Character, error) {
	character, err := domain.NewCharacter(
		params.Name,
		params.Description,
		params.Seed,
		params.Settings,
		params.ReferenceImage,
	)
	if err != nil {
		return nil, err
	}

	if err := s.characters.Create(ctx, character); err != nil {
		return nil, err
	}

	s.logger.Info("character profile created",
		"character_id", character.ID,
		"name", character.Name)
	return character, nil
}

// Get retrieves a character profile by ID.
func (s *CharacterService) Get(ctx context.Context, id uuid.UUID) (*domain.Character, error) {
	return s.characters.GetByID(ctx, id)
}

// List returns all saved character profiles.
func (s *CharacterService) List(ctx context.Context) ([]*domain.Character, error) {
	return s.characters.List(ctx)
}

// Delete removes a character profile.
func (s *CharacterService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.characters.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("character profile deleted", "character_id", id)
	return nil
}
