package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/store"
)

func newCharacterService() (*CharacterService, *fakeCharacterStore) {
	characters := newFakeCharacterStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCharacterService(characters, logger), characters
}

func TestCharacterService_Create(t *testing.T) {
	t.Parallel()
	svc, characters := newCharacterService()

	character, err := svc.Create(context.Background(), CreateCharacterParams{
		Name:        "mira",
		Description: "a silver-haired cartographer",
		Seed:        4242,
		Settings:    &domain.Settings{GuidanceScale: 7.5, Steps: 50},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, character.ID)
	assert.Contains(t, characters.characters, character.ID)
}

func TestCharacterService_CreateValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newCharacterService()

	_, err := svc.Create(context.Background(), CreateCharacterParams{Description: "no name"})
	assert.ErrorIs(t, err, domain.ErrEmptyCharacterName)

	_, err = svc.Create(context.Background(), CreateCharacterParams{Name: "no description"})
	assert.ErrorIs(t, err, domain.ErrEmptyCharacterDescription)
}

func TestCharacterService_GetAndDelete(t *testing.T) {
	t.Parallel()
	svc, _ := newCharacterService()
	ctx := context.Background()

	character, err := svc.Create(ctx, CreateCharacterParams{
		Name:        "mira",
		Description: "a cartographer",
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, character.ID)
	require.NoError(t, err)
	assert.Equal(t, character.ID, got.ID)

	require.NoError(t, svc.Delete(ctx, character.ID))
	_, err = svc.Get(ctx, character.ID)
	assert.ErrorIs(t, err, store.ErrCharacterNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, character.ID), store.ErrCharacterNotFound)
}
