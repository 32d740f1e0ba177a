// Package postgres implements persistence interfaces from internal/store
// using a PostgreSQL database accessed through database/sql with the pgx
// driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/platform/logger"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolationCode = "23505"

// ErrDuplicateCharacterName indicates a profile with the same name already
// exists.
var ErrDuplicateCharacterName = errors.New("character name already exists")

// CharacterStore implements store.CharacterStore using PostgreSQL.
type CharacterStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCharacterStore creates a PostgreSQL-backed character store. It accepts a
// database connection or transaction managed by the caller. If logger is
// nil, the default logger is used.
func NewCharacterStore(db store.DBTX, logger *slog.Logger) *CharacterStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CharacterStore{
		db:     db,
		logger: logger.With(slog.String("component", "character_store")),
	}
}

// Ensure CharacterStore implements store.CharacterStore.
var _ store.CharacterStore = (*CharacterStore)(nil)

// Create saves a new character profile. Returns validation errors from the
// domain Character if data is invalid and ErrDuplicateCharacterName on a
// name collision.
func (s *CharacterStore) Create(ctx context.Context, character *domain.Character) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := character.Validate(); err != nil {
		log.Warn("character validation failed during create",
			slog.String("error", err.Error()),
			slog.String("character_id", character.ID.String()))
		return err
	}

	settings, err := marshalSettings(character.Settings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO characters (id, name, description, seed, settings, reference_image, created_at, last_used_at, times_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		character.ID,
		character.Name,
		character.Description,
		character.Seed,
		settings,
		character.ReferenceImage,
		character.CreatedAt,
		character.LastUsedAt,
		character.TimesUsed,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			log.Warn("duplicate character name",
				slog.String("name", character.Name))
			return fmt.Errorf("%w: %v", ErrDuplicateCharacterName, err)
		}
		log.Error("failed to create character",
			slog.String("character_id", character.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create character: %w", err)
	}

	return nil
}

// GetByID retrieves a character profile by its unique ID.
func (s *CharacterStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Character, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description, seed, settings, reference_image, created_at, last_used_at, times_used
		FROM characters
		WHERE id = $1
	`
	character, err := scanCharacter(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCharacterNotFound
		}
		log.Error("failed to get character",
			slog.String("character_id", id.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get character: %w", err)
	}

	return character, nil
}

// List returns all saved character profiles, most recently used first.
func (s *CharacterStore) List(ctx context.Context) ([]*domain.Character, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description, seed, settings, reference_image, created_at, last_used_at, times_used
		FROM characters
		ORDER BY last_used_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list characters", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var characters []*domain.Character
	for rows.Next() {
		character, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan character row: %w", err)
		}
		characters = append(characters, character)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate character rows: %w", err)
	}

	return characters, nil
}

// Delete removes a character profile.
func (s *CharacterStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM characters WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete character",
			slog.String("character_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete character: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrCharacterNotFound
	}

	return nil
}

// TouchUsage updates the last-used timestamp and usage counter of a profile.
func (s *CharacterStore) TouchUsage(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE characters
		SET last_used_at = $1, times_used = times_used + 1
		WHERE id = $2
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to touch character usage",
			slog.String("character_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to touch character usage: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrCharacterNotFound
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(row rowScanner) (*domain.Character, error) {
	var (
		character domain.Character
		settings  []byte
	)
	err := row.Scan(
		&character.ID,
		&character.Name,
		&character.Description,
		&character.Seed,
		&settings,
		&character.ReferenceImage,
		&character.CreatedAt,
		&character.LastUsedAt,
		&character.TimesUsed,
	)
	if err != nil {
		return nil, err
	}

	if len(settings) > 0 {
		var s domain.Settings
		if err := json.Unmarshal(settings, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal character settings: %w", err)
		}
		character.Settings = &s
	}

	return &character, nil
}

// marshalSettings encodes optional settings as JSONB, using SQL NULL when
// the profile has none.
func marshalSettings(settings *domain.Settings) (any, error) {
	if settings == nil {
		return nil, nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal character settings: %w", err)
	}
	return data, nil
}
