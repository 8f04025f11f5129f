package repository

import (
	"context"

	"github.com/google/uuid"

	"shipboard-community/internal/domain/model"
)

// SnapshotSource reads cache-relevant user attributes out of the relational
// store and hands back fully assembled, pre-merged UserHeader snapshots.
// Block sets arrive bidirectional (users blocked by X plus users who blocked X)
// so the cache never has to reason about direction.
type SnapshotSource interface {
	// LoadAll returns one header per existing user. Used once at startup;
	// any error must abort the boot sequence.
	LoadAll(ctx context.Context) ([]*model.UserHeader, error)

	// LoadOne rebuilds a single user's header from the current committed
	// state. Returns domain.ErrNotFound if the user row is gone.
	LoadOne(ctx context.Context, userID uuid.UUID) (*model.UserHeader, error)
}
