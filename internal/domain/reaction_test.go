package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextReaction(t *testing.T) {
	tests := []struct {
		name     string
		current  ReactionType
		incoming ReactionType
		want     ReactionChange
	}{
		{"none to like", ReactionNone, ReactionLike, ReactionChange{Next: ReactionLike, LikesDelta: 1}},
		{"none to dislike", ReactionNone, ReactionDislike, ReactionChange{Next: ReactionDislike, DislikesDelta: 1}},
		{"like toggled off", ReactionLike, ReactionLike, ReactionChange{Next: ReactionNone, LikesDelta: -1}},
		{"dislike toggled off", ReactionDislike, ReactionDislike, ReactionChange{Next: ReactionNone, DislikesDelta: -1}},
		{"like to dislike", ReactionLike, ReactionDislike, ReactionChange{Next: ReactionDislike, LikesDelta: -1, DislikesDelta: 1}},
		{"dislike to like", ReactionDislike, ReactionLike, ReactionChange{Next: ReactionLike, LikesDelta: 1, DislikesDelta: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextReaction(tt.current, tt.incoming))
		})
	}
}

func TestReactionType_Valid(t *testing.T) {
	assert.True(t, ReactionLike.Valid())
	assert.True(t, ReactionDislike.Valid())
	assert.False(t, ReactionNone.Valid())
	assert.False(t, ReactionType("love").Valid())
}
