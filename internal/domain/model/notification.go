package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ConversationKind selects the per-user unread bucket a conversation's counter
// lives in. Moderator counters get their own bucket so that a moderator's
// unread count for a conversation never collides with the count they carry as
// an ordinary member of the same conversation.
type ConversationKind string

const (
	KindSeamail    ConversationKind = "seamail"
	KindGroupChat  ConversationKind = "lfg"
	KindModSeamail ConversationKind = "modseamail"
)

// ViewedSuffix is appended to a category's field name to form the paired
// "viewed" field. The fixed suffix is what lets summary assembly pair
// current/viewed fields without a lookup table.
const ViewedSuffix = ":viewed"

// NotificationCategory is the closed union of event kinds a user can be
// notified about. Each category knows where its counter lives: the redis hash
// key for a given user, the field inside that hash, and whether a paired
// viewed counter exists.
type NotificationCategory interface {
	// Bucket returns the redis key of the user-scoped hash holding this
	// category's counter.
	Bucket(userID uuid.UUID) string
	// Field returns the stable hash-field name for the current counter.
	Field() string
	// HasViewed reports whether the category carries a paired viewed counter.
	HasViewed() bool
}

// ViewedField derives the viewed-counter field name for a current field.
func ViewedField(field string) string { return field + ViewedSuffix }

// notificationHashKey is the bucket for all scalar/keyed counters of one user.
func notificationHashKey(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

// AnnouncementCategory counts sitewide announcements.
type AnnouncementCategory struct{}

func (AnnouncementCategory) Bucket(userID uuid.UUID) string { return notificationHashKey(userID) }
func (AnnouncementCategory) Field() string                  { return "announcement" }
func (AnnouncementCategory) HasViewed() bool                { return true }

// MentionCategory counts @username mentions of the user.
type MentionCategory struct{}

func (MentionCategory) Bucket(userID uuid.UUID) string { return notificationHashKey(userID) }
func (MentionCategory) Field() string                  { return "mention" }
func (MentionCategory) HasViewed() bool                { return true }

// AlertWordCategory counts posts matching one of the user's alert words.
// Word must already be normalized (NormalizeWord).
type AlertWordCategory struct {
	Word string
}

func (c AlertWordCategory) Bucket(userID uuid.UUID) string { return notificationHashKey(userID) }
func (c AlertWordCategory) Field() string                  { return "alertword:" + c.Word }
func (c AlertWordCategory) HasViewed() bool                { return true }

// ConversationCategory counts unread messages in one conversation. Each
// conversation kind is its own bucket; the field is the conversation's ID.
type ConversationCategory struct {
	Kind           ConversationKind
	ConversationID uuid.UUID
}

func (c ConversationCategory) Bucket(userID uuid.UUID) string {
	return fmt.Sprintf("unread:%s:%s", c.Kind, userID)
}
func (c ConversationCategory) Field() string   { return c.ConversationID.String() }
func (c ConversationCategory) HasViewed() bool { return true }

// FollowedEventCategory counts upcoming events the user follows. There is no
// viewed variant; the count itself is the badge.
type FollowedEventCategory struct{}

func (FollowedEventCategory) Bucket(userID uuid.UUID) string { return notificationHashKey(userID) }
func (FollowedEventCategory) Field() string                  { return "nextEvent" }
func (FollowedEventCategory) HasViewed() bool                { return false }

// CategoryCount is one category's counters as read back from the store.
type CategoryCount struct {
	Category NotificationCategory
	Current  int64
	Viewed   int64
}

// Unseen floors at zero: a decrement racing a markViewed can leave
// current < viewed briefly and that must never surface as a negative badge.
func (c CategoryCount) Unseen() int64 {
	if n := c.Current - c.Viewed; n > 0 {
		return n
	}
	return 0
}

// NotificationSummary is the per-request assembly of a user's counters.
// It is ephemeral: rebuilt from the store on every request, never cached.
type NotificationSummary struct {
	UserID uuid.UUID
	Counts []CategoryCount
}

// TotalUnseen sums unseen across every category in the summary.
func (s NotificationSummary) TotalUnseen() int64 {
	var total int64
	for _, c := range s.Counts {
		if c.Category.HasViewed() {
			total += c.Unseen()
		} else {
			total += c.Current
		}
	}
	return total
}

// ZeroSummary is the degraded result served when the counter store is
// unreachable: every requested category present, all counts zero.
func ZeroSummary(userID uuid.UUID, cats []NotificationCategory) NotificationSummary {
	counts := make([]CategoryCount, len(cats))
	for i, c := range cats {
		counts[i] = CategoryCount{Category: c}
	}
	return NotificationSummary{UserID: userID, Counts: counts}
}
