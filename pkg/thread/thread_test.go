package thread

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSetJSONRoundTrip(t *testing.T) {
	s := NewHandleSet("zoe", "amir", "kai")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["amir","kai","zoe"]`, string(data), "set serializes sorted")

	var back HandleSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Has("zoe"))
	assert.True(t, back.Has("amir"))
	assert.False(t, back.Has("nobody"))
}

func TestReactionSetsStateFor(t *testing.T) {
	sets := ReactionSets{
		Up:   NewHandleSet("amir"),
		Down: NewHandleSet("zoe"),
	}

	assert.Equal(t, ReactionUp, sets.StateFor("amir"))
	assert.Equal(t, ReactionDown, sets.StateFor("zoe"))
	assert.Equal(t, ReactionNone, sets.StateFor("kai"))
}

func TestCommentCloneIsIndependent(t *testing.T) {
	edited := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	original := Comment{
		ID:            "c1",
		Body:          "hello",
		LastEditedAt:  &edited,
		ReactingUsers: ReactionSets{Up: NewHandleSet("amir"), Down: NewHandleSet()},
	}

	clone := original.Clone()
	clone.ReactingUsers.Up.Add("zoe")
	*clone.LastEditedAt = edited.Add(time.Hour)

	assert.False(t, original.ReactingUsers.Up.Has("zoe"), "clone shares the reaction set")
	assert.Equal(t, edited, *original.LastEditedAt, "clone shares the edit timestamp")
}

func TestBadge(t *testing.T) {
	tests := []struct {
		association string
		isOwner     bool
		want        string
	}{
		{"NONE", true, "Owner"},
		{"OWNER", false, "Owner"},
		{"MEMBER", false, "Maintainer"},
		{"COLLABORATOR", false, "Maintainer"},
		{"CONTRIBUTOR", false, "Contributor"},
		{"contributor", false, "Contributor"},
		{"NONE", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Badge(tt.association, tt.isOwner),
			"association=%q isOwner=%v", tt.association, tt.isOwner)
	}
}

func TestCommentScore(t *testing.T) {
	c := Comment{Reactions: ReactionTally{Up: 7, Down: 3}}
	assert.Equal(t, 4, c.Score())
}
