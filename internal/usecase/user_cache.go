package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"shipboard-community/internal/domain"
	"shipboard-community/internal/domain/model"
	"shipboard-community/internal/domain/ports/repository"
	"shipboard-community/internal/infra/logging"
	"shipboard-community/internal/infra/metrics"
)

// Compile-time check
var _ UserCache = (*userCache)(nil)

// UserCache is the process-wide map of user attribute snapshots. After
// Populate it is complete: it holds an entry for every user in the relational
// store, and a lookup miss is an invariant violation rather than a signal to
// load on demand.
//
// The mutex guards only map structural operations. Building a snapshot (the
// I/O-bound part of Update) happens before the lock is taken, so a slow
// rebuild for one user never blocks lookups for the rest.
type UserCache interface {
	// Populate performs the one-time bulk load. It must complete before the
	// HTTP listener starts accepting connections; failure is fatal to boot.
	Populate(ctx context.Context) error

	// Lookup returns the snapshot for a user known to exist. A miss after
	// Populate returns domain.ErrUserCacheMiss.
	Lookup(userID uuid.UUID) (*model.UserHeader, error)

	// LookupByUsername resolves a snapshot by case-insensitive username.
	LookupByUsername(username string) (*model.UserHeader, error)

	// Update rebuilds one user's snapshot from committed relational state and
	// swaps it in. The returned snapshot gives callers read-after-write
	// without a second lookup; account creation must await this call.
	Update(ctx context.Context, userID uuid.UUID) (*model.UserHeader, error)

	// UpdateMany rebuilds several snapshots concurrently and installs them
	// under a single lock acquisition.
	UpdateMany(ctx context.Context, userIDs []uuid.UUID) error

	// Len reports the number of cached snapshots.
	Len() int

	// AllIDs returns the IDs of every cached user, for fan-out paths such as
	// sitewide announcements.
	AllIDs() []uuid.UUID
}

type userCache struct {
	source  repository.SnapshotSource
	log     *zerolog.Logger
	workers int

	mu        sync.Mutex
	byID      map[uuid.UUID]*model.UserHeader
	byName    map[string]*model.UserHeader
	populated bool
}

func NewUserCache(source repository.SnapshotSource, workers int, logger *zerolog.Logger) *userCache {
	if workers <= 0 {
		workers = 8
	}
	return &userCache{
		source:  source,
		log:     logger,
		workers: workers,
		byID:    map[uuid.UUID]*model.UserHeader{},
		byName:  map[string]*model.UserHeader{},
	}
}

func (c *userCache) Populate(ctx context.Context) error {
	defer logging.TraceDuration(c.log, "UserCache.Populate")()

	headers, err := c.source.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("bulk load user snapshots: %w", err)
	}

	byID := make(map[uuid.UUID]*model.UserHeader, len(headers))
	byName := make(map[string]*model.UserHeader, len(headers))
	for _, h := range headers {
		byID[h.ID] = h
		byName[strings.ToLower(h.Username)] = h
	}

	c.mu.Lock()
	c.byID = byID
	c.byName = byName
	c.populated = true
	c.mu.Unlock()

	metrics.SetCacheSize(len(byID))
	c.log.Info().Int("users", len(byID)).Msg("user attribute cache populated")
	return nil
}

func (c *userCache) Lookup(userID uuid.UUID) (*model.UserHeader, error) {
	c.mu.Lock()
	populated := c.populated
	h, ok := c.byID[userID]
	c.mu.Unlock()

	if !populated {
		return nil, domain.ErrCacheNotPopulated
	}
	if !ok {
		metrics.IncCacheLookup("invariant_miss")
		c.log.Error().Str("user_id", userID.String()).Msg("cache lookup miss for user that should exist")
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserCacheMiss)
	}
	metrics.IncCacheLookup("hit")
	return h, nil
}

func (c *userCache) LookupByUsername(username string) (*model.UserHeader, error) {
	key := strings.ToLower(username)

	c.mu.Lock()
	populated := c.populated
	h, ok := c.byName[key]
	c.mu.Unlock()

	if !populated {
		return nil, domain.ErrCacheNotPopulated
	}
	if !ok {
		// Unlike ID lookups, a name miss is a normal outcome: handlers probe
		// arbitrary @mention strings that may not be users at all.
		return nil, domain.ErrNotFound
	}
	metrics.IncCacheLookup("hit")
	return h, nil
}

func (c *userCache) Update(ctx context.Context, userID uuid.UUID) (*model.UserHeader, error) {
	defer logging.TraceDuration(c.log, "UserCache.Update")()

	// All I/O happens before the lock.
	h, err := c.source.LoadOne(ctx, userID)
	if err != nil {
		metrics.IncCacheRefresh("error")
		c.log.Warn().Err(err).Str("user_id", userID.String()).Msg("snapshot refresh failed; keeping stale entry")
		return nil, fmt.Errorf("refresh snapshot for %s: %w", userID, err)
	}

	c.mu.Lock()
	c.install(h)
	size := len(c.byID)
	c.mu.Unlock()

	metrics.IncCacheRefresh("ok")
	metrics.SetCacheSize(size)
	return h, nil
}

func (c *userCache) UpdateMany(ctx context.Context, userIDs []uuid.UUID) error {
	defer logging.TraceDuration(c.log, "UserCache.UpdateMany")()

	var (
		p  = pool.New().WithContext(ctx).WithMaxGoroutines(c.workers)
		mu sync.Mutex
	)
	headers := make([]*model.UserHeader, 0, len(userIDs))

	for _, id := range userIDs {
		id := id
		p.Go(func(ctx context.Context) error {
			h, err := c.source.LoadOne(ctx, id)
			if err != nil {
				return fmt.Errorf("refresh snapshot for %s: %w", id, err)
			}
			mu.Lock()
			headers = append(headers, h)
			mu.Unlock()
			return nil
		})
	}
	err := p.Wait()

	// Install whatever rebuilt successfully, all under one lock acquisition.
	c.mu.Lock()
	for _, h := range headers {
		c.install(h)
	}
	size := len(c.byID)
	c.mu.Unlock()
	metrics.SetCacheSize(size)

	if err != nil {
		metrics.IncCacheRefresh("error")
		c.log.Warn().Err(err).Int("requested", len(userIDs)).Int("installed", len(headers)).
			Msg("batch snapshot refresh partially failed")
		return err
	}
	metrics.IncCacheRefresh("ok")
	return nil
}

func (c *userCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

func (c *userCache) AllIDs() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uuid.UUID, 0, len(c.byID))
	for id := range c.byID {
		out = append(out, id)
	}
	return out
}

// install replaces one entry. Caller holds c.mu. A username change must not
// leave the old name pointing at the new snapshot.
func (c *userCache) install(h *model.UserHeader) {
	if old, ok := c.byID[h.ID]; ok && !strings.EqualFold(old.Username, h.Username) {
		delete(c.byName, strings.ToLower(old.Username))
	}
	c.byID[h.ID] = h
	c.byName[strings.ToLower(h.Username)] = h
}
