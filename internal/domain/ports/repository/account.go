package repository

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository covers the write paths that can change a user's cached
// attributes. Every method commits before returning; the caller refreshes the
// attribute cache afterwards so the refresh reads post-commit state.
type AccountRepository interface {
	CreateUser(ctx context.Context, userID uuid.UUID, username, displayName string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarRef string) error

	AddBlock(ctx context.Context, userID, blockedID uuid.UUID) error
	RemoveBlock(ctx context.Context, userID, blockedID uuid.UUID) error
	AddMute(ctx context.Context, userID, mutedID uuid.UUID) error
	RemoveMute(ctx context.Context, userID, mutedID uuid.UUID) error

	AddUserWord(ctx context.Context, userID uuid.UUID, kind WordKind, word string) error
	RemoveUserWord(ctx context.Context, userID uuid.UUID, kind WordKind, word string) error
}

// WordKind distinguishes the two per-user word lists.
type WordKind string

const (
	MuteWord  WordKind = "mute"
	AlertWord WordKind = "alert"
)
