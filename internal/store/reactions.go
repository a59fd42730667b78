package store

import (
	"github.com/threadkit/internal/normalize"
	"github.com/threadkit/pkg/thread"
)

// ReactionRequest describes one reaction toggle. TargetKind selects where
// the target lives; ParentID is required when the target is a reply.
type ReactionRequest struct {
	TargetID   string              `json:"targetId"`
	TargetKind thread.TargetKind   `json:"targetKind"`
	Kind       thread.ReactionKind `json:"kind"`
	ParentID   string              `json:"parentId,omitempty"`
}

// reactionState is the pre-mutation snapshot used for rollback.
type reactionState struct {
	tally thread.ReactionTally
	sets  thread.ReactionSets
}

// ToggleReaction applies one toggle for the acting user. Toggling the
// actor's current reaction retracts it; toggling the opposite direction
// retracts the old reaction and applies the new one in the same optimistic
// batch, so no observable snapshot ever shows the actor in both sets.
//
// The host call carries the final intended state. The response is applied
// only if it is the newest issued for the target; otherwise it is discarded
// silently (a later toggle has already superseded it).
func (s *Store) ToggleReaction(req ReactionRequest) error {
	if req.Kind != thread.ReactionUp && req.Kind != thread.ReactionDown {
		return validationErr("toggleReaction", "reaction kind must be up or down")
	}
	if req.TargetKind == thread.TargetReply && req.ParentID == "" {
		return validationErr("toggleReaction", "reply reactions need a parent id")
	}
	actor := s.gate.Identity()
	if actor == nil || !s.gate.IsEligible() {
		return authorizationErr("toggleReaction", "sign in to react")
	}

	s.mu.Lock()
	tally, sets, ok := s.reactionTargetLocked(req)
	if !ok {
		s.mu.Unlock()
		return &OpError{Kind: KindNotFound, Op: "toggleReaction", Message: "target not found"}
	}

	prev := reactionState{tally: *tally, sets: sets.Clone()}
	final := applyToggle(tally, sets, actor.Handle, req.Kind)
	token := s.bumpSeqLocked(req.TargetID)
	s.mu.Unlock()
	s.notify()

	go func() {
		state, err := s.gw.SetReaction(s.ctx, req.TargetID, final)

		s.mu.Lock()
		if s.ctx.Err() != nil || s.seq[req.TargetID] != token {
			// Stale response for a superseded toggle; discard entirely.
			s.mu.Unlock()
			return
		}
		tally, sets, ok := s.reactionTargetLocked(req)
		if ok {
			if err != nil {
				*tally = prev.tally
				*sets = prev.sets
				s.lastErr = remoteErr("toggleReaction", err)
				s.log.Warn().Err(err).Str("target", req.TargetID).Msg("reaction rolled back")
			} else {
				*tally, *sets = normalize.Reaction(state)
			}
		}
		s.mu.Unlock()
		s.notify()
	}()
	return nil
}

// applyToggle mutates the tally and sets in place and returns the final
// intended state for the host: the requested kind, or ReactionNone when the
// toggle retracted the actor's existing reaction.
func applyToggle(tally *thread.ReactionTally, sets *thread.ReactionSets, handle string, kind thread.ReactionKind) thread.ReactionKind {
	current := sets.StateFor(handle)

	if current == kind {
		retract(tally, sets, handle, current)
		return thread.ReactionNone
	}
	if current != thread.ReactionNone {
		retract(tally, sets, handle, current)
	}
	switch kind {
	case thread.ReactionUp:
		tally.Up++
		sets.Up.Add(handle)
	case thread.ReactionDown:
		tally.Down++
		sets.Down.Add(handle)
	}
	return kind
}

func retract(tally *thread.ReactionTally, sets *thread.ReactionSets, handle string, kind thread.ReactionKind) {
	switch kind {
	case thread.ReactionUp:
		if tally.Up > 0 {
			tally.Up--
		}
		sets.Up.Remove(handle)
	case thread.ReactionDown:
		if tally.Down > 0 {
			tally.Down--
		}
		sets.Down.Remove(handle)
	}
}

// reactionTargetLocked resolves the request onto pointers into canonical
// state so the toggle mutates the thread record itself.
func (s *Store) reactionTargetLocked(req ReactionRequest) (*thread.ReactionTally, *thread.ReactionSets, bool) {
	if req.TargetKind == thread.TargetReply {
		if i := s.replyIndexLocked(req.ParentID, req.TargetID); i >= 0 {
			r := &s.replies[req.ParentID][i]
			return &r.Reactions, &r.ReactingUsers, true
		}
		return nil, nil, false
	}
	if i := s.commentIndexLocked(req.TargetID); i >= 0 {
		c := &s.comments[i]
		return &c.Reactions, &c.ReactingUsers, true
	}
	return nil, nil, false
}
