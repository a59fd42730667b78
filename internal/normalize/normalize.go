// Package normalize converts raw host payloads into the engine's thread
// records. It is the single place host schema drift is absorbed: timestamp
// parsing, count clamping, and badge derivation all happen here, so the
// store stays schema-agnostic.
package normalize

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/threadkit/internal/gateway"
	"github.com/threadkit/pkg/thread"
)

// Comment converts one host comment payload into a thread record.
func Comment(p gateway.CommentPayload) thread.Comment {
	c := thread.Comment{
		ID: p.ID,
		Author: thread.Actor{
			Handle:     p.Author.Handle,
			AvatarURL:  p.Author.AvatarURL,
			ProfileURL: p.Author.ProfileURL,
		},
		Body:             p.Body,
		CreatedAt:        parseTime(p.ID, p.CreatedAt),
		AssociationBadge: thread.Badge(p.AuthorAssociation, p.IsOwner),
		ReplyCount:       clamp(p.ReplyCount),
		Reactions:        Tally(p.Reactions),
		ReactingUsers:    Sets(p.ReactingUsers),
		Deleted:          p.Deleted,
	}
	if p.LastEditedAt != "" {
		t := parseTime(p.ID, p.LastEditedAt)
		c.LastEditedAt = &t
	}
	return c
}

// Comments converts a host comment listing, preserving its order.
func Comments(payloads []gateway.CommentPayload) []thread.Comment {
	out := make([]thread.Comment, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, Comment(p))
	}
	return out
}

// Reply converts one host reply payload.
func Reply(p gateway.ReplyPayload) thread.Reply {
	return thread.Reply{Comment: Comment(p.CommentPayload), ParentID: p.ParentID}
}

// Replies converts a host reply listing, preserving its order.
func Replies(payloads []gateway.ReplyPayload) []thread.Reply {
	out := make([]thread.Reply, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, Reply(p))
	}
	return out
}

// Reaction converts the host's authoritative post-reaction state.
func Reaction(s gateway.ReactionState) (thread.ReactionTally, thread.ReactionSets) {
	return Tally(s.Reactions), Sets(s.ReactingUsers)
}

// Tally clamps host counts so a miscounting host can never push a tally
// below zero locally.
func Tally(c gateway.ReactionCounts) thread.ReactionTally {
	return thread.ReactionTally{Up: clamp(c.Up), Down: clamp(c.Down)}
}

// Sets converts the host's per-direction handle lists.
func Sets(u gateway.ReactionUsers) thread.ReactionSets {
	return thread.ReactionSets{
		Up:   thread.NewHandleSet(u.Up...),
		Down: thread.NewHandleSet(u.Down...),
	}
}

// parseTime accepts RFC3339 with or without sub-second precision. A
// malformed timestamp yields the zero time rather than failing the whole
// listing; the record is still usable, it just sorts first under "oldest".
func parseTime(id, raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		log.Warn().Str("id", id).Str("timestamp", raw).Msg("unparseable host timestamp")
		return time.Time{}
	}
	return t.UTC()
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
