package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelierhq/atelier-api/internal/api/shared"
	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/platform/jsonfile"
	"github.com/atelierhq/atelier-api/internal/platform/postgres"
	"github.com/atelierhq/atelier-api/internal/service"
	"github.com/atelierhq/atelier-api/internal/store"
)

// CharacterHandler handles character profile HTTP requests.
type CharacterHandler struct {
	characters *service.CharacterService
	validator  *validator.Validate
}

// NewCharacterHandler creates a new CharacterHandler.
func NewCharacterHandler(characters *service.CharacterService) *CharacterHandler {
	return &CharacterHandler{
		characters: characters,
		validator:  validator.New(),
	}
}

// Create handles POST /api/characters requests.
func (h *CharacterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCharacterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Name and description are required")
		return
	}

	var settings *domain.Settings
	if req.Settings != nil {
		settings = &domain.Settings{
			GuidanceScale: req.Settings.GuidanceScale,
			Steps:         req.Settings.Steps,
		}
	}

	character, err := h.characters.Create(r.Context(), service.CreateCharacterParams{
		Name:           req.Name,
		Description:    req.Description,
		Seed:           req.Seed,
		Settings:       settings,
		ReferenceImage: req.ReferenceImage,
	})
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrDuplicateCharacterName),
			errors.Is(err, jsonfile.ErrDuplicateCharacterName):
			shared.RespondWithError(w, r, http.StatusConflict, "Character name already exists")
		case errors.Is(err, domain.ErrEmptyCharacterName),
			errors.Is(err, domain.ErrEmptyCharacterDescription):
			shared.RespondWithError(w, r, http.StatusBadRequest, "Name and description are required")
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to create character", err)
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, characterToResponse(character))
}

// Get handles GET /api/characters/{id} requests.
func (h *CharacterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid character ID")
		return
	}

	character, err := h.characters.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCharacterNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Character not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to get character", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, characterToResponse(character))
}

// List handles GET /api/characters requests.
func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	characters, err := h.characters.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list characters", err)
		return
	}

	responses := make([]CharacterResponse, 0, len(characters))
	for _, character := range characters {
		responses = append(responses, characterToResponse(character))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// Delete handles DELETE /api/characters/{id} requests.
func (h *CharacterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid character ID")
		return
	}

	if err := h.characters.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrCharacterNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Character not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to delete character", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
