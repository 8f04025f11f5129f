package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shipboard-community/internal/domain"
	"shipboard-community/internal/domain/model"
	"shipboard-community/internal/domain/ports/repository"
)

var _ repository.SnapshotSource = (*SnapshotRepo)(nil)

// SnapshotRepo assembles UserHeader snapshots from the relational tables.
// Block rows are merged bidirectionally in SQL, so the snapshot's block set
// already contains both "users X blocked" and "users who blocked X".
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

type rawAttrs struct {
	username    string
	displayName string
	avatarRef   string
	blocked     []uuid.UUID
	muted       []uuid.UUID
	muteWords   []string
	alertWords  []string
}

func (r *SnapshotRepo) LoadAll(ctx context.Context) ([]*model.UserHeader, error) {
	users := map[uuid.UUID]*rawAttrs{}

	rows, err := r.pool.Query(ctx,
		`SELECT id, username, COALESCE(display_name,''), COALESCE(avatar_ref,'') FROM users;`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		ra := &rawAttrs{}
		if err := rows.Scan(&id, &ra.username, &ra.displayName, &ra.avatarRef); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[id] = ra
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	// Blocks, both directions in one pass.
	rows, err = r.pool.Query(ctx,
		`SELECT user_id, blocked_id FROM user_blocks
		 UNION ALL
		 SELECT blocked_id, user_id FROM user_blocks;`)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	for rows.Next() {
		var owner, other uuid.UUID
		if err := rows.Scan(&owner, &other); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan block: %w", err)
		}
		if ra, ok := users[owner]; ok {
			ra.blocked = append(ra.blocked, other)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT user_id, muted_id FROM user_mutes;`)
	if err != nil {
		return nil, fmt.Errorf("load mutes: %w", err)
	}
	for rows.Next() {
		var owner, other uuid.UUID
		if err := rows.Scan(&owner, &other); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan mute: %w", err)
		}
		if ra, ok := users[owner]; ok {
			ra.muted = append(ra.muted, other)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load mutes: %w", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT user_id, kind, word FROM user_words;`)
	if err != nil {
		return nil, fmt.Errorf("load user words: %w", err)
	}
	for rows.Next() {
		var owner uuid.UUID
		var kind, word string
		if err := rows.Scan(&owner, &kind, &word); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user word: %w", err)
		}
		ra, ok := users[owner]
		if !ok {
			continue
		}
		switch repository.WordKind(kind) {
		case repository.MuteWord:
			ra.muteWords = append(ra.muteWords, word)
		case repository.AlertWord:
			ra.alertWords = append(ra.alertWords, word)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load user words: %w", err)
	}

	headers := make([]*model.UserHeader, 0, len(users))
	for id, ra := range users {
		h, err := ra.toHeader(id)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}

func (r *SnapshotRepo) LoadOne(ctx context.Context, userID uuid.UUID) (*model.UserHeader, error) {
	ra := &rawAttrs{}
	err := r.pool.QueryRow(ctx,
		`SELECT username, COALESCE(display_name,''), COALESCE(avatar_ref,'') FROM users WHERE id=$1;`,
		userID).Scan(&ra.username, &ra.displayName, &ra.avatarRef)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT blocked_id FROM user_blocks WHERE user_id=$1
		 UNION
		 SELECT user_id FROM user_blocks WHERE blocked_id=$1;`, userID)
	if err != nil {
		return nil, fmt.Errorf("load blocks for %s: %w", userID, err)
	}
	for rows.Next() {
		var other uuid.UUID
		if err := rows.Scan(&other); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan block: %w", err)
		}
		ra.blocked = append(ra.blocked, other)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load blocks for %s: %w", userID, err)
	}

	rows, err = r.pool.Query(ctx, `SELECT muted_id FROM user_mutes WHERE user_id=$1;`, userID)
	if err != nil {
		return nil, fmt.Errorf("load mutes for %s: %w", userID, err)
	}
	for rows.Next() {
		var other uuid.UUID
		if err := rows.Scan(&other); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan mute: %w", err)
		}
		ra.muted = append(ra.muted, other)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load mutes for %s: %w", userID, err)
	}

	rows, err = r.pool.Query(ctx, `SELECT kind, word FROM user_words WHERE user_id=$1;`, userID)
	if err != nil {
		return nil, fmt.Errorf("load words for %s: %w", userID, err)
	}
	for rows.Next() {
		var kind, word string
		if err := rows.Scan(&kind, &word); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user word: %w", err)
		}
		switch repository.WordKind(kind) {
		case repository.MuteWord:
			ra.muteWords = append(ra.muteWords, word)
		case repository.AlertWord:
			ra.alertWords = append(ra.alertWords, word)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load words for %s: %w", userID, err)
	}

	return ra.toHeader(userID)
}

func (ra *rawAttrs) toHeader(id uuid.UUID) (*model.UserHeader, error) {
	h, err := model.NewUserHeader(id, ra.username, ra.displayName, ra.avatarRef,
		ra.blocked, ra.muted, ra.muteWords, ra.alertWords)
	if err != nil {
		return nil, fmt.Errorf("assemble snapshot for %s: %w", id, err)
	}
	return h, nil
}
