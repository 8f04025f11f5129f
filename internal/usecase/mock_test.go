package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shipboard-community/internal/domain"
	"shipboard-community/internal/domain/model"
	"shipboard-community/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// -----------------------------
// fakeDirectory: in-memory stand-in for the relational store. Implements both
// the write side (AccountRepository) and the read side (SnapshotSource), so
// tests exercise the real commit-then-refresh flow.
// -----------------------------

type dirRecord struct {
	username    string
	displayName string
	avatarRef   string
	muted       map[uuid.UUID]struct{}
	muteWords   map[string]struct{}
	alertWords  map[string]struct{}
}

type fakeDirectory struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*dirRecord
	blocks map[uuid.UUID]map[uuid.UUID]struct{} // directional: blocker -> blocked

	loadAllErr error
	loadOneErr error
	// loadOneHook runs inside LoadOne before the snapshot is built, outside
	// the directory lock. Tests use it to stall or interleave refreshes.
	loadOneHook func(id uuid.UUID)
}

var (
	_ repository.SnapshotSource    = (*fakeDirectory)(nil)
	_ repository.AccountRepository = (*fakeDirectory)(nil)
)

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:  map[uuid.UUID]*dirRecord{},
		blocks: map[uuid.UUID]map[uuid.UUID]struct{}{},
	}
}

func (d *fakeDirectory) addUser(username string) uuid.UUID {
	id := uuid.New()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = &dirRecord{
		username:   username,
		muted:      map[uuid.UUID]struct{}{},
		muteWords:  map[string]struct{}{},
		alertWords: map[string]struct{}{},
	}
	return id
}

func (d *fakeDirectory) setUsername(id uuid.UUID, username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id].username = username
}

// --- SnapshotSource ---

func (d *fakeDirectory) LoadAll(ctx context.Context) ([]*model.UserHeader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loadAllErr != nil {
		return nil, d.loadAllErr
	}
	out := make([]*model.UserHeader, 0, len(d.users))
	for id := range d.users {
		h, err := d.buildLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (d *fakeDirectory) LoadOne(ctx context.Context, id uuid.UUID) (*model.UserHeader, error) {
	if hook := d.loadOneHook; hook != nil {
		hook(id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loadOneErr != nil {
		return nil, d.loadOneErr
	}
	if _, ok := d.users[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return d.buildLocked(id)
}

// buildLocked merges the bidirectional block set the way the SQL layer does.
func (d *fakeDirectory) buildLocked(id uuid.UUID) (*model.UserHeader, error) {
	rec := d.users[id]
	var blocked []uuid.UUID
	for other := range d.blocks[id] {
		blocked = append(blocked, other)
	}
	for blocker, set := range d.blocks {
		if _, ok := set[id]; ok {
			blocked = append(blocked, blocker)
		}
	}
	var muted []uuid.UUID
	for m := range rec.muted {
		muted = append(muted, m)
	}
	var muteWords, alertWords []string
	for w := range rec.muteWords {
		muteWords = append(muteWords, w)
	}
	for w := range rec.alertWords {
		alertWords = append(alertWords, w)
	}
	return model.NewUserHeader(id, rec.username, rec.displayName, rec.avatarRef,
		blocked, muted, muteWords, alertWords)
}

// --- AccountRepository ---

func (d *fakeDirectory) CreateUser(ctx context.Context, id uuid.UUID, username, displayName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; ok {
		return domain.ErrAlreadyExists
	}
	d.users[id] = &dirRecord{
		username:    username,
		displayName: displayName,
		muted:       map[uuid.UUID]struct{}{},
		muteWords:   map[string]struct{}{},
		alertWords:  map[string]struct{}{},
	}
	return nil
}

func (d *fakeDirectory) UpdateProfile(ctx context.Context, id uuid.UUID, displayName, avatarRef string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.displayName = displayName
	rec.avatarRef = avatarRef
	return nil
}

func (d *fakeDirectory) AddBlock(ctx context.Context, userID, blockedID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.blocks[userID] == nil {
		d.blocks[userID] = map[uuid.UUID]struct{}{}
	}
	d.blocks[userID][blockedID] = struct{}{}
	return nil
}

func (d *fakeDirectory) RemoveBlock(ctx context.Context, userID, blockedID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.blocks[userID], blockedID)
	return nil
}

func (d *fakeDirectory) AddMute(ctx context.Context, userID, mutedID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.muted[mutedID] = struct{}{}
	return nil
}

func (d *fakeDirectory) RemoveMute(ctx context.Context, userID, mutedID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(rec.muted, mutedID)
	return nil
}

func (d *fakeDirectory) AddUserWord(ctx context.Context, userID uuid.UUID, kind repository.WordKind, word string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if kind == repository.MuteWord {
		rec.muteWords[word] = struct{}{}
	} else {
		rec.alertWords[word] = struct{}{}
	}
	return nil
}

func (d *fakeDirectory) RemoveUserWord(ctx context.Context, userID uuid.UUID, kind repository.WordKind, word string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if kind == repository.MuteWord {
		delete(rec.muteWords, word)
	} else {
		delete(rec.alertWords, word)
	}
	return nil
}

// -----------------------------
// memNotificationStore: in-memory NotificationStore with the same flooring
// and snapshot-and-copy semantics as the redis implementation.
// -----------------------------

type memNotificationStore struct {
	mu       sync.Mutex
	hashes   map[string]map[string]int64 // bucket -> field -> value
	watchers map[string]map[uuid.UUID]struct{}

	failAll bool
}

var _ repository.NotificationStore = (*memNotificationStore)(nil)

func newMemNotificationStore() *memNotificationStore {
	return &memNotificationStore{
		hashes:   map[string]map[string]int64{},
		watchers: map[string]map[uuid.UUID]struct{}{},
	}
}

var errStoreDown = fmt.Errorf("counter store unreachable")

func (m *memNotificationStore) field(bucket, field string) int64 {
	return m.hashes[bucket][field]
}

func (m *memNotificationStore) setField(bucket, field string, v int64) {
	if m.hashes[bucket] == nil {
		m.hashes[bucket] = map[string]int64{}
	}
	m.hashes[bucket][field] = v
}

func (m *memNotificationStore) Increment(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errStoreDown
	}
	b, f := cat.Bucket(userID), cat.Field()
	m.setField(b, f, m.field(b, f)+delta)
	return nil
}

func (m *memNotificationStore) Decrement(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errStoreDown
	}
	b, f := cat.Bucket(userID), cat.Field()
	v := m.field(b, f) - delta
	if v < 0 {
		v = 0
	}
	m.setField(b, f, v)
	return nil
}

func (m *memNotificationStore) MarkViewed(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errStoreDown
	}
	if !cat.HasViewed() {
		return nil
	}
	b, f := cat.Bucket(userID), cat.Field()
	m.setField(b, model.ViewedField(f), m.field(b, f))
	return nil
}

func (m *memNotificationStore) Summarize(ctx context.Context, userID uuid.UUID, cats []model.NotificationCategory) (model.NotificationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return model.NotificationSummary{}, errStoreDown
	}
	counts := make([]model.CategoryCount, len(cats))
	for i, cat := range cats {
		b, f := cat.Bucket(userID), cat.Field()
		counts[i] = model.CategoryCount{
			Category: cat,
			Current:  m.field(b, f),
			Viewed:   m.field(b, model.ViewedField(f)),
		}
	}
	return model.NotificationSummary{UserID: userID, Counts: counts}, nil
}

func (m *memNotificationStore) ClearConversation(ctx context.Context, cat model.ConversationCategory, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errStoreDown
	}
	b, f := cat.Bucket(userID), cat.Field()
	delete(m.hashes[b], f)
	delete(m.hashes[b], model.ViewedField(f))
	return nil
}

func (m *memNotificationStore) AddWordWatcher(ctx context.Context, word string, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errStoreDown
	}
	if m.watchers[word] == nil {
		m.watchers[word] = map[uuid.UUID]struct{}{}
	}
	m.watchers[word][userID] = struct{}{}
	return nil
}

func (m *memNotificationStore) RemoveWordWatcher(ctx context.Context, word string, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errStoreDown
	}
	delete(m.watchers[word], userID)
	return nil
}

func (m *memNotificationStore) WordWatchers(ctx context.Context, word string) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errStoreDown
	}
	out := make([]uuid.UUID, 0, len(m.watchers[word]))
	for id := range m.watchers[word] {
		out = append(out, id)
	}
	return out, nil
}

func (m *memNotificationStore) IsWatchedWord(ctx context.Context, word string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return false, errStoreDown
	}
	return len(m.watchers[word]) > 0, nil
}

// currentOf reads a raw counter for assertions.
func (m *memNotificationStore) currentOf(cat model.NotificationCategory, userID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.field(cat.Bucket(userID), cat.Field())
}
