// Package jsonfile implements store.CharacterStore on top of a single JSON
// file. It is the default profile store when no database is configured,
// suited to single-host deployments.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/google/uuid"
)

// ErrDuplicateCharacterName indicates a profile with the same name already
// exists.
var ErrDuplicateCharacterName = errors.New("character name already exists")

// CharacterStore keeps all profiles in memory and rewrites the backing file
// on every mutation. The file is the source of truth only at startup; a
// single process must own it.
type CharacterStore struct {
	mu         sync.RWMutex
	path       string
	characters map[uuid.UUID]*domain.Character
	logger     *slog.Logger
}

// Ensure CharacterStore implements store.CharacterStore.
var _ store.CharacterStore = (*CharacterStore)(nil)

// NewCharacterStore loads profiles from the given file, tolerating a missing
// or corrupt file by starting empty.
func NewCharacterStore(path string, logger *slog.Logger) (*CharacterStore, error) {
	if path == "" {
		return nil, errors.New("characters file path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &CharacterStore{
		path:       path,
		characters: make(map[uuid.UUID]*domain.Character),
		logger:     logger.With(slog.String("component", "character_store")),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run; the file is created on the first save.
	case err != nil:
		return nil, fmt.Errorf("failed to read characters file: %w", err)
	default:
		var loaded []*domain.Character
		if err := json.Unmarshal(data, &loaded); err != nil {
			s.logger.Warn("characters file is corrupt, starting empty",
				slog.String("path", path),
				slog.String("error", err.Error()))
			break
		}
		for _, character := range loaded {
			s.characters[character.ID] = character
		}
	}

	return s, nil
}

// Create saves a new character profile and rewrites the backing file.
func (s *CharacterStore) Create(_ context.Context, character *domain.Character) error {
	if err := character.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.characters {
		if existing.Name == character.Name {
			return fmt.Errorf("%w: %q", ErrDuplicateCharacterName, character.Name)
		}
	}

	clone := *character
	s.characters[character.ID] = &clone
	if err := s.persistLocked(); err != nil {
		delete(s.characters, character.ID)
		return err
	}

	s.logger.Info("character created",
		slog.String("character_id", character.ID.String()),
		slog.String("name", character.Name))
	return nil
}

// GetByID retrieves a character profile by its unique ID.
func (s *CharacterStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	character, ok := s.characters[id]
	if !ok {
		return nil, store.ErrCharacterNotFound
	}
	clone := *character
	return &clone, nil
}

// List returns all saved character profiles, most recently used first.
func (s *CharacterStore) List(_ context.Context) ([]*domain.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	characters := make([]*domain.Character, 0, len(s.characters))
	for _, character := range s.characters {
		clone := *character
		characters = append(characters, &clone)
	}
	sort.Slice(characters, func(i, j int) bool {
		return characters[i].LastUsedAt.After(characters[j].LastUsedAt)
	})
	return characters, nil
}

// Delete removes a character profile and rewrites the backing file.
func (s *CharacterStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	character, ok := s.characters[id]
	if !ok {
		return store.ErrCharacterNotFound
	}
	delete(s.characters, id)
	if err := s.persistLocked(); err != nil {
		s.characters[id] = character
		return err
	}
	return nil
}

// TouchUsage updates the last-used timestamp and usage counter of a profile.
func (s *CharacterStore) TouchUsage(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	character, ok := s.characters[id]
	if !ok {
		return store.ErrCharacterNotFound
	}
	character.LastUsedAt = time.Now().UTC()
	character.TimesUsed++
	return s.persistLocked()
}

// persistLocked writes all profiles to the backing file. Callers hold the
// write lock. The write goes through a temp file and rename so a crash never
// leaves a half-written file behind.
func (s *CharacterStore) persistLocked() error {
	characters := make([]*domain.Character, 0, len(s.characters))
	for _, character := range s.characters {
		characters = append(characters, character)
	}
	sort.Slice(characters, func(i, j int) bool {
		return characters[i].CreatedAt.Before(characters[j].CreatedAt)
	})

	data, err := json.MarshalIndent(characters, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal characters: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create characters directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".characters-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp characters file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write characters file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close characters file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace characters file: %w", err)
	}
	return nil
}
