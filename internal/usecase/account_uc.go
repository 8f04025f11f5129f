package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shipboard-community/internal/domain/model"
	"shipboard-community/internal/domain/ports/repository"
	"shipboard-community/internal/infra/logging"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase covers the write paths that change a user's cached
// attributes. Every method commits to the relational store first and
// refreshes the attribute cache after, so the refresh reads post-commit state.
//
// Only CreateAccount treats a failed refresh as a failure of the operation
// itself: a client may use the new account in its very next request, and a
// cache without the entry would spuriously reject it everywhere. All other
// writes tolerate a stale snapshot until the next refresh.
type AccountUseCase interface {
	CreateAccount(ctx context.Context, username, displayName string) (*model.UserHeader, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarRef string) error

	BlockUser(ctx context.Context, userID, blockedID uuid.UUID) error
	UnblockUser(ctx context.Context, userID, blockedID uuid.UUID) error
	MuteUser(ctx context.Context, userID, mutedID uuid.UUID) error
	UnmuteUser(ctx context.Context, userID, mutedID uuid.UUID) error

	AddMuteWord(ctx context.Context, userID uuid.UUID, word string) error
	RemoveMuteWord(ctx context.Context, userID uuid.UUID, word string) error
	AddAlertWord(ctx context.Context, userID uuid.UUID, word string) error
	RemoveAlertWord(ctx context.Context, userID uuid.UUID, word string) error
}

type accountUC struct {
	accounts       repository.AccountRepository
	cache          UserCache
	notifications  repository.NotificationStore
	refreshTimeout time.Duration
	log            *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, cache UserCache,
	notifications repository.NotificationStore, refreshTimeout time.Duration, logger *zerolog.Logger) *accountUC {
	if refreshTimeout <= 0 {
		refreshTimeout = 2 * time.Second
	}
	return &accountUC{
		accounts:       accounts,
		cache:          cache,
		notifications:  notifications,
		refreshTimeout: refreshTimeout,
		log:            logger,
	}
}

func (a *accountUC) CreateAccount(ctx context.Context, username, displayName string) (*model.UserHeader, error) {
	defer logging.TraceDuration(a.log, "AccountUC.CreateAccount")()

	id := uuid.New()
	if err := a.accounts.CreateUser(ctx, id, username, displayName); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Read-after-write: the success response must not leave this method until
	// the cache holds the new entry. No timeout fallback here; an account the
	// cache cannot see is not a created account.
	header, err := a.cache.Update(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("install cache entry for new account: %w", err)
	}
	a.log.Info().Str("user_id", id.String()).Str("username", username).Msg("account created")
	return header, nil
}

func (a *accountUC) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarRef string) error {
	if err := a.accounts.UpdateProfile(ctx, userID, displayName, avatarRef); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	a.refresh(ctx, userID)
	return nil
}

func (a *accountUC) BlockUser(ctx context.Context, userID, blockedID uuid.UUID) error {
	if err := a.accounts.AddBlock(ctx, userID, blockedID); err != nil {
		return fmt.Errorf("add block: %w", err)
	}
	// Blocks are bidirectional in the cache: both parties' snapshots change.
	a.refresh(ctx, userID, blockedID)
	return nil
}

func (a *accountUC) UnblockUser(ctx context.Context, userID, blockedID uuid.UUID) error {
	if err := a.accounts.RemoveBlock(ctx, userID, blockedID); err != nil {
		return fmt.Errorf("remove block: %w", err)
	}
	a.refresh(ctx, userID, blockedID)
	return nil
}

func (a *accountUC) MuteUser(ctx context.Context, userID, mutedID uuid.UUID) error {
	if err := a.accounts.AddMute(ctx, userID, mutedID); err != nil {
		return fmt.Errorf("add mute: %w", err)
	}
	a.refresh(ctx, userID)
	return nil
}

func (a *accountUC) UnmuteUser(ctx context.Context, userID, mutedID uuid.UUID) error {
	if err := a.accounts.RemoveMute(ctx, userID, mutedID); err != nil {
		return fmt.Errorf("remove mute: %w", err)
	}
	a.refresh(ctx, userID)
	return nil
}

func (a *accountUC) AddMuteWord(ctx context.Context, userID uuid.UUID, word string) error {
	word = model.NormalizeWord(word)
	if word == "" {
		return nil
	}
	if err := a.accounts.AddUserWord(ctx, userID, repository.MuteWord, word); err != nil {
		return fmt.Errorf("add mute word: %w", err)
	}
	a.refresh(ctx, userID)
	return nil
}

func (a *accountUC) RemoveMuteWord(ctx context.Context, userID uuid.UUID, word string) error {
	word = model.NormalizeWord(word)
	if word == "" {
		return nil
	}
	if err := a.accounts.RemoveUserWord(ctx, userID, repository.MuteWord, word); err != nil {
		return fmt.Errorf("remove mute word: %w", err)
	}
	a.refresh(ctx, userID)
	return nil
}

func (a *accountUC) AddAlertWord(ctx context.Context, userID uuid.UUID, word string) error {
	word = model.NormalizeWord(word)
	if word == "" {
		return nil
	}
	if err := a.accounts.AddUserWord(ctx, userID, repository.AlertWord, word); err != nil {
		return fmt.Errorf("add alert word: %w", err)
	}
	// Watcher bookkeeping is advisory; a failure here only delays alert-word
	// hits until the next change, so it does not fail the request.
	if err := a.notifications.AddWordWatcher(ctx, word, userID); err != nil {
		a.log.Warn().Err(err).Str("word", word).Msg("alert word watcher registration skipped")
	}
	a.refresh(ctx, userID)
	return nil
}

func (a *accountUC) RemoveAlertWord(ctx context.Context, userID uuid.UUID, word string) error {
	word = model.NormalizeWord(word)
	if word == "" {
		return nil
	}
	if err := a.accounts.RemoveUserWord(ctx, userID, repository.AlertWord, word); err != nil {
		return fmt.Errorf("remove alert word: %w", err)
	}
	if err := a.notifications.RemoveWordWatcher(ctx, word, userID); err != nil {
		a.log.Warn().Err(err).Str("word", word).Msg("alert word watcher removal skipped")
	}
	a.refresh(ctx, userID)
	return nil
}

// refresh is the ordinary eventual-consistency path: bounded wait, stale
// snapshot on failure, warning already logged by the cache.
func (a *accountUC) refresh(ctx context.Context, userIDs ...uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, a.refreshTimeout)
	defer cancel()
	if len(userIDs) == 1 {
		_, _ = a.cache.Update(ctx, userIDs[0])
		return
	}
	_ = a.cache.UpdateMany(ctx, userIDs)
}
