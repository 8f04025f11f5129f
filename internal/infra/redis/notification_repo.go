package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"shipboard-community/internal/domain/model"
	"shipboard-community/internal/domain/ports/repository"
	"shipboard-community/internal/infra/metrics"
)

var _ repository.NotificationStore = (*NotificationRepo)(nil)

// NotificationRepo keeps per-user notification counters in user-scoped hashes
// and alert-word watcher bookkeeping in a sorted set plus one set per word.
// All mutations are redis-side atomic primitives; there is no client-side
// read-modify-write on a counter.
type NotificationRepo struct {
	client RedisClient
}

func NewNotificationRepo(client RedisClient) *NotificationRepo {
	return &NotificationRepo{client: client}
}

const (
	// watchCountsKey is a ZSET of word -> number of users watching it.
	watchCountsKey = "alertwords"
)

func wordWatchersKey(word string) string {
	return fmt.Sprintf("alertword:%s:watchers", word)
}

func (r *NotificationRepo) Increment(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID, delta int64) error {
	if delta <= 0 {
		return fmt.Errorf("increment delta must be positive, got %d", delta)
	}
	_, err := r.client.HIncrBy(ctx, cat.Bucket(userID), cat.Field(), delta)
	if err != nil {
		metrics.IncCounterOp("incr", "error")
		return fmt.Errorf("increment %s: %w", cat.Field(), err)
	}
	metrics.IncCounterOp("incr", "ok")
	return nil
}

func (r *NotificationRepo) Decrement(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID, delta int64) error {
	if delta <= 0 {
		return fmt.Errorf("decrement delta must be positive, got %d", delta)
	}
	key, field := cat.Bucket(userID), cat.Field()
	val, err := r.client.HIncrBy(ctx, key, field, -delta)
	if err != nil {
		metrics.IncCounterOp("decr", "error")
		return fmt.Errorf("decrement %s: %w", field, err)
	}
	if val < 0 {
		// Out-of-order decrements can undershoot. Clamp back to zero; a
		// concurrent increment lost to this write only costs one badge count,
		// and summaries floor independently.
		if err := r.client.HSet(ctx, key, field, 0); err != nil {
			metrics.IncCounterOp("decr", "error")
			return fmt.Errorf("clamp %s: %w", field, err)
		}
	}
	metrics.IncCounterOp("decr", "ok")
	return nil
}

func (r *NotificationRepo) MarkViewed(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID) error {
	if !cat.HasViewed() {
		return nil
	}
	key, field := cat.Bucket(userID), cat.Field()
	cur, err := r.client.HGet(ctx, key, field)
	if IsNil(err) {
		cur = "0"
	} else if err != nil {
		metrics.IncCounterOp("viewed", "error")
		return fmt.Errorf("read current %s: %w", field, err)
	}
	// Snapshot-and-copy: viewed is pinned to the value read above, not kept
	// in sync with later increments.
	if err := r.client.HSet(ctx, key, model.ViewedField(field), cur); err != nil {
		metrics.IncCounterOp("viewed", "error")
		return fmt.Errorf("mark viewed %s: %w", field, err)
	}
	metrics.IncCounterOp("viewed", "ok")
	return nil
}

func (r *NotificationRepo) Summarize(ctx context.Context, userID uuid.UUID, cats []model.NotificationCategory) (model.NotificationSummary, error) {
	// Group fields by bucket, preserving a flat index back to categories so
	// results can be reassembled positionally.
	type slot struct {
		catIdx int
		viewed bool
	}
	bucketFields := map[string][]string{}
	bucketSlots := map[string][]slot{}
	var bucketOrder []string
	for i, cat := range cats {
		b := cat.Bucket(userID)
		if _, seen := bucketFields[b]; !seen {
			bucketOrder = append(bucketOrder, b)
		}
		bucketFields[b] = append(bucketFields[b], cat.Field())
		bucketSlots[b] = append(bucketSlots[b], slot{catIdx: i})
		if cat.HasViewed() {
			bucketFields[b] = append(bucketFields[b], model.ViewedField(cat.Field()))
			bucketSlots[b] = append(bucketSlots[b], slot{catIdx: i, viewed: true})
		}
	}

	queries := make([]HashQuery, len(bucketOrder))
	for i, b := range bucketOrder {
		queries[i] = HashQuery{Key: b, Fields: bucketFields[b]}
	}

	rows, err := r.client.HMGetPipelined(ctx, queries)
	if err != nil {
		metrics.IncCounterOp("summarize", "error")
		return model.NotificationSummary{}, fmt.Errorf("summarize for %s: %w", userID, err)
	}

	counts := make([]model.CategoryCount, len(cats))
	for i, cat := range cats {
		counts[i].Category = cat
	}
	for i, b := range bucketOrder {
		for j, raw := range rows[i] {
			s := bucketSlots[b][j]
			n := parseCount(raw)
			if s.viewed {
				counts[s.catIdx].Viewed = n
			} else {
				counts[s.catIdx].Current = n
			}
		}
	}
	metrics.IncCounterOp("summarize", "ok")
	return model.NotificationSummary{UserID: userID, Counts: counts}, nil
}

func (r *NotificationRepo) ClearConversation(ctx context.Context, cat model.ConversationCategory, userID uuid.UUID) error {
	field := cat.Field()
	if err := r.client.HDel(ctx, cat.Bucket(userID), field, model.ViewedField(field)); err != nil {
		return fmt.Errorf("clear conversation %s: %w", field, err)
	}
	return nil
}

func (r *NotificationRepo) AddWordWatcher(ctx context.Context, word string, userID uuid.UUID) error {
	if err := r.client.SAdd(ctx, wordWatchersKey(word), userID.String()); err != nil {
		return fmt.Errorf("add watcher for %q: %w", word, err)
	}
	if _, err := r.client.ZIncrBy(ctx, watchCountsKey, 1, word); err != nil {
		return fmt.Errorf("bump watch count for %q: %w", word, err)
	}
	return nil
}

func (r *NotificationRepo) RemoveWordWatcher(ctx context.Context, word string, userID uuid.UUID) error {
	if err := r.client.SRem(ctx, wordWatchersKey(word), userID.String()); err != nil {
		return fmt.Errorf("remove watcher for %q: %w", word, err)
	}
	if _, err := r.client.ZIncrBy(ctx, watchCountsKey, -1, word); err != nil {
		return fmt.Errorf("drop watch count for %q: %w", word, err)
	}
	return nil
}

func (r *NotificationRepo) WordWatchers(ctx context.Context, word string) ([]uuid.UUID, error) {
	members, err := r.client.SMembers(ctx, wordWatchersKey(word))
	if err != nil {
		return nil, fmt.Errorf("watchers for %q: %w", word, err)
	}
	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (r *NotificationRepo) IsWatchedWord(ctx context.Context, word string) (bool, error) {
	score, err := r.client.ZScore(ctx, watchCountsKey, word)
	if IsNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("watch count for %q: %w", word, err)
	}
	return score > 0, nil
}

func parseCount(raw interface{}) int64 {
	s, ok := raw.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
