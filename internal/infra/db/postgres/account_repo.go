package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"shipboard-community/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo holds the write paths behind the attribute cache. Each method
// is a single autocommitted statement, so when it returns the change is
// committed and a cache refresh will read the new state.
type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) CreateUser(ctx context.Context, userID uuid.UUID, username, displayName string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, display_name) VALUES ($1,$2,NULLIF($3,''));`,
		userID, username, displayName)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *AccountRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarRef string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET display_name=NULLIF($2,''), avatar_ref=NULLIF($3,'') WHERE id=$1;`,
		userID, displayName, avatarRef)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (r *AccountRepo) AddBlock(ctx context.Context, userID, blockedID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_blocks (user_id, blocked_id) VALUES ($1,$2) ON CONFLICT DO NOTHING;`,
		userID, blockedID)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func (r *AccountRepo) RemoveBlock(ctx context.Context, userID, blockedID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM user_blocks WHERE user_id=$1 AND blocked_id=$2;`, userID, blockedID)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

func (r *AccountRepo) AddMute(ctx context.Context, userID, mutedID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_mutes (user_id, muted_id) VALUES ($1,$2) ON CONFLICT DO NOTHING;`,
		userID, mutedID)
	if err != nil {
		return fmt.Errorf("insert mute: %w", err)
	}
	return nil
}

func (r *AccountRepo) RemoveMute(ctx context.Context, userID, mutedID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM user_mutes WHERE user_id=$1 AND muted_id=$2;`, userID, mutedID)
	if err != nil {
		return fmt.Errorf("delete mute: %w", err)
	}
	return nil
}

func (r *AccountRepo) AddUserWord(ctx context.Context, userID uuid.UUID, kind repository.WordKind, word string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_words (user_id, kind, word) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING;`,
		userID, string(kind), word)
	if err != nil {
		return fmt.Errorf("insert %s word: %w", kind, err)
	}
	return nil
}

func (r *AccountRepo) RemoveUserWord(ctx context.Context, userID uuid.UUID, kind repository.WordKind, word string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM user_words WHERE user_id=$1 AND kind=$2 AND word=$3;`,
		userID, string(kind), word)
	if err != nil {
		return fmt.Errorf("delete %s word: %w", kind, err)
	}
	return nil
}
