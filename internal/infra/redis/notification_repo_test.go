package redis

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipboard-community/internal/config"
	"shipboard-community/internal/domain/model"
)

func setupTest(t *testing.T) *NotificationRepo {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), &config.RedisConfig{URL: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewNotificationRepo(client)
}

func unseen(t *testing.T, repo *NotificationRepo, userID uuid.UUID, cat model.NotificationCategory) int64 {
	t.Helper()
	sum, err := repo.Summarize(context.Background(), userID, []model.NotificationCategory{cat})
	require.NoError(t, err)
	require.Len(t, sum.Counts, 1)
	return sum.Counts[0].Unseen()
}

func TestConcurrentIncrementsCountExactlyOnce(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	userID := uuid.New()
	cat := model.MentionCategory{}

	// 100 concurrent increments from 100 goroutines land exactly 100: the
	// increment is a store-side atomic, not read-modify-write.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Increment(context.Background(), cat, userID, 1))
		}()
	}
	wg.Wait()

	sum, err := repo.Summarize(context.Background(), userID, []model.NotificationCategory{cat})
	require.NoError(t, err)
	assert.EqualValues(t, 100, sum.Counts[0].Current)
	assert.EqualValues(t, 100, sum.Counts[0].Unseen())
}

func TestMarkViewedCycle(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	userID := uuid.New()
	cat := model.AnnouncementCategory{}
	ctx := context.Background()

	require.NoError(t, repo.Increment(ctx, cat, userID, 3))
	require.EqualValues(t, 3, unseen(t, repo, userID, cat))

	require.NoError(t, repo.MarkViewed(ctx, cat, userID))
	assert.EqualValues(t, 0, unseen(t, repo, userID, cat))

	// Viewed is a snapshot, not a sync: the next increment shows again.
	require.NoError(t, repo.Increment(ctx, cat, userID, 1))
	assert.EqualValues(t, 1, unseen(t, repo, userID, cat))
}

func TestMarkViewedOnAbsentCounter(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	userID := uuid.New()
	cat := model.MentionCategory{}

	// Viewing before anything was ever counted must not error.
	require.NoError(t, repo.MarkViewed(context.Background(), cat, userID))
	assert.EqualValues(t, 0, unseen(t, repo, userID, cat))
}

func TestDecrementFloorsAtZero(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	userID := uuid.New()
	cat := model.FollowedEventCategory{}
	ctx := context.Background()

	require.NoError(t, repo.Increment(ctx, cat, userID, 2))
	require.NoError(t, repo.Decrement(ctx, cat, userID, 5))

	sum, err := repo.Summarize(ctx, userID, []model.NotificationCategory{cat})
	require.NoError(t, err)
	assert.EqualValues(t, 0, sum.Counts[0].Current)

	// A later increment starts from the clamped zero, not from -3.
	require.NoError(t, repo.Increment(ctx, cat, userID, 1))
	sum, err = repo.Summarize(ctx, userID, []model.NotificationCategory{cat})
	require.NoError(t, err)
	assert.EqualValues(t, 1, sum.Counts[0].Current)
}

func TestUnseenNeverNegativeAcrossOrderings(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	ctx := context.Background()

	// A 5-message conversation with 3 participants, deleted down to nothing
	// under both orderings relative to the read.
	conv := uuid.New()
	cat := model.ConversationCategory{Kind: model.KindSeamail, ConversationID: conv}
	reader, lurker, late := uuid.New(), uuid.New(), uuid.New()
	members := []uuid.UUID{reader, lurker, late}

	for i := 0; i < 5; i++ {
		for _, m := range members {
			require.NoError(t, repo.Increment(ctx, cat, m, 1))
		}
	}
	// reader reads everything, late reads after 2 deletions, lurker never reads.
	require.NoError(t, repo.MarkViewed(ctx, cat, reader))

	for i := 0; i < 2; i++ {
		for _, m := range members {
			if unseen(t, repo, m, cat) > 0 {
				require.NoError(t, repo.Decrement(ctx, cat, m, 1))
			}
		}
	}
	require.NoError(t, repo.MarkViewed(ctx, cat, late))

	for i := 0; i < 6; i++ {
		for _, m := range members {
			if unseen(t, repo, m, cat) > 0 {
				require.NoError(t, repo.Decrement(ctx, cat, m, 1))
			}
		}
	}

	for _, m := range members {
		assert.GreaterOrEqual(t, unseen(t, repo, m, cat), int64(0))
		assert.EqualValues(t, 0, unseen(t, repo, m, cat))
	}
}

func TestSummarizeSpansBuckets(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	userID := uuid.New()
	ctx := context.Background()

	seamail := model.ConversationCategory{Kind: model.KindSeamail, ConversationID: uuid.New()}
	lfg := model.ConversationCategory{Kind: model.KindGroupChat, ConversationID: uuid.New()}
	word := model.AlertWordCategory{Word: "towel"}

	require.NoError(t, repo.Increment(ctx, model.AnnouncementCategory{}, userID, 1))
	require.NoError(t, repo.Increment(ctx, seamail, userID, 2))
	require.NoError(t, repo.Increment(ctx, lfg, userID, 3))
	require.NoError(t, repo.Increment(ctx, word, userID, 4))
	require.NoError(t, repo.MarkViewed(ctx, word, userID))

	cats := []model.NotificationCategory{
		model.AnnouncementCategory{},
		model.MentionCategory{}, // never incremented: must read as zero
		seamail,
		lfg,
		word,
	}
	sum, err := repo.Summarize(ctx, userID, cats)
	require.NoError(t, err)
	require.Len(t, sum.Counts, len(cats))

	byField := map[string]model.CategoryCount{}
	for _, c := range sum.Counts {
		byField[c.Category.Field()] = c
	}
	assert.EqualValues(t, 1, byField["announcement"].Current)
	assert.EqualValues(t, 0, byField["mention"].Current)
	assert.EqualValues(t, 2, byField[seamail.Field()].Current)
	assert.EqualValues(t, 3, byField[lfg.Field()].Current)
	assert.EqualValues(t, 4, byField[word.Field()].Current)
	assert.EqualValues(t, 4, byField[word.Field()].Viewed)
	assert.EqualValues(t, 0, byField[word.Field()].Unseen())
	assert.EqualValues(t, 6, sum.TotalUnseen())
}

func TestConversationKindsDoNotCollide(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	userID := uuid.New()
	conv := uuid.New()
	ctx := context.Background()

	// Same conversation ID, different kinds: a moderator's counter and the
	// member counter live in separate buckets.
	member := model.ConversationCategory{Kind: model.KindSeamail, ConversationID: conv}
	mod := model.ConversationCategory{Kind: model.KindModSeamail, ConversationID: conv}

	require.NoError(t, repo.Increment(ctx, member, userID, 2))
	require.NoError(t, repo.Increment(ctx, mod, userID, 7))

	sum, err := repo.Summarize(ctx, userID, []model.NotificationCategory{member, mod})
	require.NoError(t, err)
	assert.EqualValues(t, 2, sum.Counts[0].Current)
	assert.EqualValues(t, 7, sum.Counts[1].Current)
}

func TestClearConversation(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	userID := uuid.New()
	cat := model.ConversationCategory{Kind: model.KindGroupChat, ConversationID: uuid.New()}
	ctx := context.Background()

	require.NoError(t, repo.Increment(ctx, cat, userID, 4))
	require.NoError(t, repo.MarkViewed(ctx, cat, userID))
	require.NoError(t, repo.ClearConversation(ctx, cat, userID))

	sum, err := repo.Summarize(ctx, userID, []model.NotificationCategory{cat})
	require.NoError(t, err)
	assert.EqualValues(t, 0, sum.Counts[0].Current)
	assert.EqualValues(t, 0, sum.Counts[0].Viewed)
}

func TestWordWatcherBookkeeping(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	heidi, james := uuid.New(), uuid.New()
	ctx := context.Background()

	watched, err := repo.IsWatchedWord(ctx, "karaoke")
	require.NoError(t, err)
	assert.False(t, watched)

	require.NoError(t, repo.AddWordWatcher(ctx, "karaoke", heidi))
	require.NoError(t, repo.AddWordWatcher(ctx, "karaoke", james))

	watched, err = repo.IsWatchedWord(ctx, "karaoke")
	require.NoError(t, err)
	assert.True(t, watched)

	watchers, err := repo.WordWatchers(ctx, "karaoke")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{heidi, james}, watchers)

	require.NoError(t, repo.RemoveWordWatcher(ctx, "karaoke", heidi))
	require.NoError(t, repo.RemoveWordWatcher(ctx, "karaoke", james))

	watched, err = repo.IsWatchedWord(ctx, "karaoke")
	require.NoError(t, err)
	assert.False(t, watched)
}

func TestRejectsNonPositiveDeltas(t *testing.T) {
	t.Parallel()
	repo := setupTest(t)
	userID := uuid.New()
	cat := model.MentionCategory{}

	assert.Error(t, repo.Increment(context.Background(), cat, userID, 0))
	assert.Error(t, repo.Increment(context.Background(), cat, userID, -1))
	assert.Error(t, repo.Decrement(context.Background(), cat, userID, 0))
}
