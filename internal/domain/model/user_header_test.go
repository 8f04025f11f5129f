package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipboard-community/internal/domain"
)

func TestNewUserHeaderRequiresID(t *testing.T) {
	t.Parallel()
	_, err := NewUserHeader(uuid.Nil, "sam", "", "", nil, nil, nil, nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUserHeaderPredicates(t *testing.T) {
	t.Parallel()
	blocked := uuid.New()
	muted := uuid.New()
	h, err := NewUserHeader(uuid.New(), "sam", "Sam", "",
		[]uuid.UUID{blocked}, []uuid.UUID{muted},
		[]string{"Spoilers", "plot,"}, []string{"KARAOKE"})
	require.NoError(t, err)

	assert.True(t, h.Blocks(blocked))
	assert.False(t, h.Blocks(muted))
	assert.True(t, h.Mutes(muted))

	// Word matching is case-insensitive and punctuation-trimmed, both at
	// construction and at query time.
	assert.True(t, h.MutesWord("spoilers"))
	assert.True(t, h.MutesWord("Plot"))
	assert.True(t, h.WatchesWord("karaoke!"))
	assert.False(t, h.WatchesWord("bingo"))
}

func TestUserHeaderCopiesInputs(t *testing.T) {
	t.Parallel()
	other := uuid.New()
	blocked := []uuid.UUID{other}
	h, err := NewUserHeader(uuid.New(), "sam", "", "", blocked, nil, nil, nil)
	require.NoError(t, err)

	// Mutating the caller's slice after construction changes nothing.
	blocked[0] = uuid.New()
	assert.True(t, h.Blocks(other))

	// Accessors hand out copies, not interior state.
	ids := h.BlockedUserIDs()
	require.Len(t, ids, 1)
	ids[0] = uuid.New()
	assert.True(t, h.Blocks(other))
}

func TestNormalizeWord(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "towel", NormalizeWord("  Towel!  "))
	assert.Equal(t, "towel", NormalizeWord("(towel),"))
	assert.Equal(t, "", NormalizeWord("..."))
	assert.Equal(t, "", NormalizeWord("  "))
}
