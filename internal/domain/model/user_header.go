package model

import (
	"strings"

	"github.com/google/uuid"

	"shipboard-community/internal/domain"
)

// UserHeader is an immutable snapshot of one user's cache-relevant attributes.
// It is built wholesale by the snapshot source and atomically swapped into the
// attribute cache; nothing mutates a header after construction, so readers may
// hold one across an entire request without copying.
type UserHeader struct {
	ID          uuid.UUID
	Username    string
	DisplayName string
	AvatarRef   string

	blockedUserIDs map[uuid.UUID]struct{}
	mutedUserIDs   map[uuid.UUID]struct{}
	muteWords      map[string]struct{}
	alertWords     map[string]struct{}
}

// NewUserHeader builds a snapshot. Every input collection is copied and word
// sets are case-normalized, so callers keep ownership of their slices.
func NewUserHeader(id uuid.UUID, username, displayName, avatarRef string,
	blocked, muted []uuid.UUID, muteWords, alertWords []string) (*UserHeader, error) {
	if id == uuid.Nil {
		return nil, domain.ErrInvalidArgument
	}
	h := &UserHeader{
		ID:             id,
		Username:       username,
		DisplayName:    displayName,
		AvatarRef:      avatarRef,
		blockedUserIDs: make(map[uuid.UUID]struct{}, len(blocked)),
		mutedUserIDs:   make(map[uuid.UUID]struct{}, len(muted)),
		muteWords:      make(map[string]struct{}, len(muteWords)),
		alertWords:     make(map[string]struct{}, len(alertWords)),
	}
	for _, b := range blocked {
		h.blockedUserIDs[b] = struct{}{}
	}
	for _, m := range muted {
		h.mutedUserIDs[m] = struct{}{}
	}
	for _, w := range muteWords {
		if w = NormalizeWord(w); w != "" {
			h.muteWords[w] = struct{}{}
		}
	}
	for _, w := range alertWords {
		if w = NormalizeWord(w); w != "" {
			h.alertWords[w] = struct{}{}
		}
	}
	return h, nil
}

// Blocks reports whether the relationship between this user and other is
// blocked in either direction (the source pre-merges both directions).
func (h *UserHeader) Blocks(other uuid.UUID) bool {
	_, ok := h.blockedUserIDs[other]
	return ok
}

func (h *UserHeader) Mutes(other uuid.UUID) bool {
	_, ok := h.mutedUserIDs[other]
	return ok
}

func (h *UserHeader) MutesWord(word string) bool {
	_, ok := h.muteWords[NormalizeWord(word)]
	return ok
}

func (h *UserHeader) WatchesWord(word string) bool {
	_, ok := h.alertWords[NormalizeWord(word)]
	return ok
}

// BlockedUserIDs returns a copy; the interior set never leaves the snapshot.
func (h *UserHeader) BlockedUserIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(h.blockedUserIDs))
	for id := range h.blockedUserIDs {
		out = append(out, id)
	}
	return out
}

func (h *UserHeader) MutedUserIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(h.mutedUserIDs))
	for id := range h.mutedUserIDs {
		out = append(out, id)
	}
	return out
}

func (h *UserHeader) AlertWords() []string {
	out := make([]string, 0, len(h.alertWords))
	for w := range h.alertWords {
		out = append(out, w)
	}
	return out
}

// NormalizeWord lower-cases and trims surrounding punctuation so that mute and
// alert word matching is insensitive to casing and trailing commas/periods.
func NormalizeWord(w string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(w)), ".,;:!?\"'()[]")
}
