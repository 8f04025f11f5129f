package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shipboard-community/internal/domain/model"
	"shipboard-community/internal/domain/ports/repository"
	"shipboard-community/internal/infra/logging"
	"shipboard-community/internal/infra/metrics"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase is the emission driver: every content-mutation call site
// reports what happened and this layer works out which per-user counters move.
//
// Counters are derived display state, so no method here fails the caller: a
// counter-store outage is logged and swallowed, and Summary degrades to
// all-zero counts.
type NotificationUseCase interface {
	// MessageCreated bumps the conversation's unread counter for every member
	// but the author, fires alert-word counters for watchers the text matches,
	// and fires mention counters for @username references.
	MessageCreated(ctx context.Context, kind model.ConversationKind, convID, authorID uuid.UUID, memberIDs []uuid.UUID, text string)

	// MessageEdited handles text changes: newly matched alert words and newly
	// added mentions increment. Words or mentions the edit removed do NOT
	// decrement; counts stay monotonic within an edit session.
	MessageEdited(ctx context.Context, authorID uuid.UUID, oldText, newText string)

	// MessageDeleted decrements the conversation counter, but only for
	// members whose viewed count says they had not yet seen the message.
	MessageDeleted(ctx context.Context, kind model.ConversationKind, convID, authorID uuid.UUID, memberIDs []uuid.UUID)

	// MembershipChanged syncs counters when a user joins (viewed pinned to
	// current, so history does not show as unread) or leaves (fields removed).
	MembershipChanged(ctx context.Context, kind model.ConversationKind, convID, userID uuid.UUID, joined bool)

	// AnnouncementCreated bumps the announcement counter for every user.
	AnnouncementCreated(ctx context.Context)

	// EventFollowed / EventUnfollowed move the upcoming-event badge.
	EventFollowed(ctx context.Context, userID uuid.UUID)
	EventUnfollowed(ctx context.Context, userID uuid.UUID)

	// MarkViewed pins a category's viewed counter to its current value.
	MarkViewed(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID) error

	// Summary assembles the user's counters in one store round trip:
	// announcement, mention, upcoming events, the user's alert words (from
	// the attribute cache), plus the caller-supplied conversation categories.
	Summary(ctx context.Context, userID uuid.UUID, convs []model.ConversationCategory) model.NotificationSummary
}

type notificationUC struct {
	store repository.NotificationStore
	cache UserCache
	log   *zerolog.Logger
}

func NewNotificationUseCase(store repository.NotificationStore, cache UserCache, logger *zerolog.Logger) *notificationUC {
	return &notificationUC{store: store, cache: cache, log: logger}
}

func (n *notificationUC) MessageCreated(ctx context.Context, kind model.ConversationKind, convID, authorID uuid.UUID, memberIDs []uuid.UUID, text string) {
	defer logging.TraceDuration(n.log, "NotificationUC.MessageCreated")()

	cat := model.ConversationCategory{Kind: kind, ConversationID: convID}
	for _, member := range memberIDs {
		if member == authorID {
			continue
		}
		if err := n.store.Increment(ctx, cat, member, 1); err != nil {
			n.warn(err, "unread increment skipped")
		}
	}

	n.fireAlertWords(ctx, authorID, wordsIn(text))
	n.fireMentions(ctx, authorID, mentionsIn(text))
}

func (n *notificationUC) MessageEdited(ctx context.Context, authorID uuid.UUID, oldText, newText string) {
	defer logging.TraceDuration(n.log, "NotificationUC.MessageEdited")()

	// Only words/mentions the edit introduced fire. Removing a previously
	// matched word does not retroactively decrement: hit counts are monotonic
	// within an edit session, matching client badge expectations.
	n.fireAlertWords(ctx, authorID, diffSet(wordsIn(newText), wordsIn(oldText)))
	n.fireMentions(ctx, authorID, diffSet(mentionsIn(newText), mentionsIn(oldText)))
}

func (n *notificationUC) MessageDeleted(ctx context.Context, kind model.ConversationKind, convID, authorID uuid.UUID, memberIDs []uuid.UUID) {
	defer logging.TraceDuration(n.log, "NotificationUC.MessageDeleted")()

	cat := model.ConversationCategory{Kind: kind, ConversationID: convID}
	cats := []model.NotificationCategory{cat}
	for _, member := range memberIDs {
		if member == authorID {
			continue
		}
		// Decrement only if this member had not yet seen the message; a
		// member who already read the conversation keeps viewed == current
		// and must not be pushed to a negative unseen count.
		sum, err := n.store.Summarize(ctx, member, cats)
		if err != nil {
			n.warn(err, "delete decrement skipped")
			continue
		}
		if len(sum.Counts) == 1 && sum.Counts[0].Unseen() > 0 {
			if err := n.store.Decrement(ctx, cat, member, 1); err != nil {
				n.warn(err, "delete decrement skipped")
			}
		}
	}
}

func (n *notificationUC) MembershipChanged(ctx context.Context, kind model.ConversationKind, convID, userID uuid.UUID, joined bool) {
	cat := model.ConversationCategory{Kind: kind, ConversationID: convID}
	var err error
	if joined {
		err = n.store.MarkViewed(ctx, cat, userID)
	} else {
		err = n.store.ClearConversation(ctx, cat, userID)
	}
	if err != nil {
		n.warn(err, "membership counter sync skipped")
	}
}

func (n *notificationUC) AnnouncementCreated(ctx context.Context) {
	defer logging.TraceDuration(n.log, "NotificationUC.AnnouncementCreated")()

	cat := model.AnnouncementCategory{}
	for _, id := range n.cache.AllIDs() {
		if err := n.store.Increment(ctx, cat, id, 1); err != nil {
			n.warn(err, "announcement increment skipped")
		}
	}
}

func (n *notificationUC) EventFollowed(ctx context.Context, userID uuid.UUID) {
	if err := n.store.Increment(ctx, model.FollowedEventCategory{}, userID, 1); err != nil {
		n.warn(err, "event follow increment skipped")
	}
}

func (n *notificationUC) EventUnfollowed(ctx context.Context, userID uuid.UUID) {
	if err := n.store.Decrement(ctx, model.FollowedEventCategory{}, userID, 1); err != nil {
		n.warn(err, "event unfollow decrement skipped")
	}
}

func (n *notificationUC) MarkViewed(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID) error {
	return n.store.MarkViewed(ctx, cat, userID)
}

func (n *notificationUC) Summary(ctx context.Context, userID uuid.UUID, convs []model.ConversationCategory) model.NotificationSummary {
	defer logging.TraceDuration(n.log, "NotificationUC.Summary")()

	cats := []model.NotificationCategory{
		model.AnnouncementCategory{},
		model.MentionCategory{},
		model.FollowedEventCategory{},
	}
	if header, err := n.cache.Lookup(userID); err == nil {
		for _, w := range header.AlertWords() {
			cats = append(cats, model.AlertWordCategory{Word: w})
		}
	}
	for _, c := range convs {
		cats = append(cats, c)
	}

	sum, err := n.store.Summarize(ctx, userID, cats)
	if err != nil {
		metrics.IncDegradedSummary()
		n.warn(err, "summary degraded to zero counts")
		return model.ZeroSummary(userID, cats)
	}
	return sum
}

// fireAlertWords increments the alert-word counter of every watcher a word
// reaches. The sorted-set gate keeps the common case (no watchers) to one
// cheap read per distinct word; the cache re-check covers watcher lists that
// lag a recent word removal.
func (n *notificationUC) fireAlertWords(ctx context.Context, authorID uuid.UUID, words map[string]struct{}) {
	for word := range words {
		watched, err := n.store.IsWatchedWord(ctx, word)
		if err != nil {
			n.warn(err, "alert word check skipped")
			continue
		}
		if !watched {
			continue
		}
		watchers, err := n.store.WordWatchers(ctx, word)
		if err != nil {
			n.warn(err, "alert word watchers unavailable")
			continue
		}
		for _, watcher := range watchers {
			if watcher == authorID {
				continue
			}
			header, err := n.cache.Lookup(watcher)
			if err != nil || !header.WatchesWord(word) {
				continue
			}
			if err := n.store.Increment(ctx, model.AlertWordCategory{Word: word}, watcher, 1); err != nil {
				n.warn(err, "alert word increment skipped")
			}
		}
	}
}

func (n *notificationUC) fireMentions(ctx context.Context, authorID uuid.UUID, names map[string]struct{}) {
	for name := range names {
		header, err := n.cache.LookupByUsername(name)
		if err != nil {
			// Most @strings are not users; nothing to do.
			continue
		}
		if header.ID == authorID || header.Blocks(authorID) || header.Mutes(authorID) {
			continue
		}
		if err := n.store.Increment(ctx, model.MentionCategory{}, header.ID, 1); err != nil {
			n.warn(err, "mention increment skipped")
		}
	}
}

func (n *notificationUC) warn(err error, msg string) {
	n.log.Warn().Err(err).Msg(msg)
}

// wordsIn returns the normalized word set of a text.
func wordsIn(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.Fields(text) {
		if w := model.NormalizeWord(f); w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

// mentionsIn returns normalized usernames referenced as @name.
func mentionsIn(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.Fields(text) {
		if !strings.HasPrefix(f, "@") {
			continue
		}
		if name := model.NormalizeWord(strings.TrimPrefix(f, "@")); name != "" {
			out[name] = struct{}{}
		}
	}
	return out
}

// diffSet returns the members of a that are not in b.
func diffSet(a, b map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}
