package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Character
var (
	ErrEmptyCharacterID          = errors.New("character ID cannot be empty")
	ErrEmptyCharacterName        = errors.New("character name cannot be empty")
	ErrEmptyCharacterDescription = errors.New("character description cannot be empty")
)

// Character is a saved profile for consistent generation: a fixed seed and
// description that reproduce the same subject across scenes, plus the
// settings the profile was captured with.
type Character struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Seed           int64     `json:"seed"`
	Settings       *Settings `json:"settings,omitempty"`
	ReferenceImage string    `json:"reference_image,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastUsedAt     time.Time `json:"last_used_at"`
	TimesUsed      int       `json:"times_used"`
}

// NewCharacter creates a new character profile with a fresh ID and timestamps.
// Returns an error if validation fails.
func NewCharacter(name, description string, seed int64, settings *Settings, referenceImage string) (*Character, error) {
	now := time.Now().UTC()
	character := &Character{
		ID:             uuid.New(),
		Name:           name,
		Description:    description,
		Seed:           seed,
		Settings:       settings,
		ReferenceImage: referenceImage,
		CreatedAt:      now,
		LastUsedAt:     now,
	}

	if err := character.Validate(); err != nil {
		return nil, err
	}

	return character, nil
}

// Validate checks if the Character has valid data.
func (c *Character) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCharacterID
	}
	if c.Name == "" {
		return ErrEmptyCharacterName
	}
	if c.Description == "" {
		return ErrEmptyCharacterDescription
	}
	return nil
}

// Binding converts the profile into the slice of it a job carries.
func (c *Character) Binding() *CharacterBinding {
	return &CharacterBinding{
		ProfileID:   c.ID,
		Name:        c.Name,
		Description: c.Description,
		Seed:        c.Seed,
		Settings:    c.Settings,
	}
}
