package domain

import "time"

// ReactionType is the state of one user's reaction to one review.
// The zero value means no reaction.
type ReactionType string

const (
	ReactionNone    ReactionType = ""
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

type Reaction struct {
	ID        int64        `json:"id" gorm:"primaryKey"`
	ReviewID  int64        `json:"review_id" gorm:"not null;uniqueIndex:idx_reactions_review_user,priority:1"`
	UserID    int64        `json:"user_id" gorm:"not null;index;uniqueIndex:idx_reactions_review_user,priority:2"`
	Type      ReactionType `json:"type" gorm:"type:varchar(16);not null;check:type IN ('like','dislike')"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Reaction) TableName() string { return "reactions" }

// ReactionChange describes what a reaction request does to the stored state
// and to the review's cached counters.
type ReactionChange struct {
	Next          ReactionType
	LikesDelta    int
	DislikesDelta int
}

// NextReaction applies toggle semantics: reacting with the current type
// clears it, reacting with another type switches it.
func NextReaction(current, incoming ReactionType) ReactionChange {
	var ch ReactionChange
	if current == incoming {
		ch.Next = ReactionNone
	} else {
		ch.Next = incoming
	}
	ch.LikesDelta = counter(ch.Next, ReactionLike) - counter(current, ReactionLike)
	ch.DislikesDelta = counter(ch.Next, ReactionDislike) - counter(current, ReactionDislike)
	return ch
}

func counter(state, kind ReactionType) int {
	if state == kind {
		return 1
	}
	return 0
}
