// Package store owns the local, editable projection of one remote
// discussion thread. It is the sole writer of canonical comment state:
// views subscribe, render snapshots, and invoke operations; they never
// mutate thread records directly.
//
// Every mutation applies its optimistic delta synchronously, then
// reconciles (or rolls back) when the host call settles. Per-target
// sequence tokens guarantee that a stale response can never overwrite a
// newer optimistic or reconciled state.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/threadkit/internal/gateway"
	"github.com/threadkit/internal/identity"
	"github.com/threadkit/internal/normalize"
	"github.com/threadkit/pkg/thread"
)

// LoadState is the lifecycle state of the initial comment listing.
type LoadState string

const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateReady   LoadState = "ready"
	StateFailed  LoadState = "failed"
)

// Snapshot is an immutable view of the store handed to subscribers. The
// comment list is already projected through the active sort option; the
// canonical insertion order never leaves the store.
type Snapshot struct {
	Number         int                       `json:"number"`
	State          LoadState                 `json:"state"`
	Comments       []thread.Comment          `json:"comments"`
	Replies        map[string][]thread.Reply `json:"replies"`
	RepliesLoading map[string]bool           `json:"repliesLoading"`
	ExpandedID     string                    `json:"expandedId,omitempty"`
	SortBy         thread.SortOption         `json:"sortBy"`
	LastError      *OpError                  `json:"lastError,omitempty"`
}

// Store projects one remote discussion into local, reactive state.
type Store struct {
	gw   gateway.Gateway
	gate identity.Gate
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	number         int
	state          LoadState
	comments       []thread.Comment // canonical, insertion order
	replies        map[string][]thread.Reply
	repliesLoading map[string]bool
	expandedID     string
	sortBy         thread.SortOption
	seq            map[string]uint64 // per-target request sequence
	loadSeq        uint64
	lastErr        *OpError

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// New creates a store bound to a gateway and an identity gate. The store
// is empty until Load is called.
func New(gw gateway.Gateway, gate identity.Gate) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		gw:             gw,
		gate:           gate,
		log:            log.With().Str("component", "store").Logger(),
		ctx:            ctx,
		cancel:         cancel,
		state:          StateIdle,
		replies:        map[string][]thread.Reply{},
		repliesLoading: map[string]bool{},
		sortBy:         thread.SortNewest,
		seq:            map[string]uint64{},
		subs:           map[int]func(){},
	}
}

// Close tears the store down. In-flight host requests are abandoned; no
// reconciliation or rollback happens after Close returns.
func (s *Store) Close() {
	s.cancel()
}

// Subscribe registers a change listener and returns its unsubscribe
// function. Listeners are invoked synchronously after every observable
// state change and must not invoke store operations re-entrantly; reading
// a fresh Snapshot is fine.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Snapshot returns an independent copy of the current state, with the
// comment list projected through the active sort option.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments := make([]thread.Comment, 0, len(s.comments))
	for _, c := range s.comments {
		comments = append(comments, c.Clone())
	}

	replies := make(map[string][]thread.Reply, len(s.replies))
	for id, rs := range s.replies {
		out := make([]thread.Reply, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.Clone())
		}
		replies[id] = out
	}

	loading := make(map[string]bool, len(s.repliesLoading))
	for id, v := range s.repliesLoading {
		loading[id] = v
	}

	return Snapshot{
		Number:         s.number,
		State:          s.state,
		Comments:       thread.Project(comments, s.sortBy),
		Replies:        replies,
		RepliesLoading: loading,
		ExpandedID:     s.expandedID,
		SortBy:         s.sortBy,
		LastError:      s.lastErr,
	}
}

// Load fetches the full comment listing (without replies) and replaces
// canonical state. On failure the store enters StateFailed; the user
// retries explicitly, there is no automatic retry.
func (s *Store) Load(discussionNumber int) {
	s.mu.Lock()
	s.number = discussionNumber
	s.state = StateLoading
	s.lastErr = nil
	s.loadSeq++
	token := s.loadSeq
	s.mu.Unlock()
	s.notify()

	go func() {
		payloads, err := s.gw.FetchComments(s.ctx, discussionNumber)

		s.mu.Lock()
		if s.ctx.Err() != nil || token != s.loadSeq {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.state = StateFailed
			s.lastErr = remoteErr("load", err)
			s.log.Warn().Err(err).Int("discussion", discussionNumber).Msg("load failed")
		} else {
			s.comments = normalize.Comments(payloads)
			s.replies = map[string][]thread.Reply{}
			s.repliesLoading = map[string]bool{}
			s.expandedID = ""
			s.state = StateReady
		}
		s.mu.Unlock()
		s.notify()
	}()
}

// SetSortBy changes the projection order. Pure state change, no network
// effect, never touches canonical order.
func (s *Store) SetSortBy(by thread.SortOption) error {
	if !by.Valid() {
		return validationErr("setSortBy", "unknown sort option")
	}
	s.mu.Lock()
	s.sortBy = by
	s.mu.Unlock()
	s.notify()
	return nil
}

// DismissError clears the last recoverable error signal.
func (s *Store) DismissError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()
}

// AddComment optimistically prepends a comment under a temporary id, then
// reconciles it with the host's permanent record. The optimistic entry is
// removed if the host rejects it.
func (s *Store) AddComment(body string) error {
	if strings.TrimSpace(body) == "" {
		return validationErr("addComment", "comment body is empty")
	}
	actor := s.gate.Identity()
	if actor == nil || !s.gate.IsEligible() {
		return authorizationErr("addComment", "sign in to comment")
	}

	tempID := "pending-" + uuid.NewString()
	optimistic := thread.Comment{
		ID:            tempID,
		Author:        *actor,
		Body:          body,
		CreatedAt:     time.Now().UTC(),
		ReactingUsers: thread.NewReactionSets(),
	}

	s.mu.Lock()
	s.comments = append([]thread.Comment{optimistic}, s.comments...)
	token := s.bumpSeqLocked(tempID)
	number := s.number
	s.mu.Unlock()
	s.notify()

	go func() {
		payload, err := s.gw.CreateComment(s.ctx, number, body)

		s.mu.Lock()
		if s.ctx.Err() != nil || s.seq[tempID] != token {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.removeCommentLocked(tempID)
			s.lastErr = remoteErr("addComment", err)
			s.log.Warn().Err(err).Msg("comment creation rolled back")
		} else if i := s.commentIndexLocked(tempID); i >= 0 {
			s.comments[i] = normalize.Comment(payload)
		}
		delete(s.seq, tempID)
		s.mu.Unlock()
		s.notify()
	}()
	return nil
}

// AddReply optimistically appends a reply under parentID and bumps the
// parent's reply count; both are reverted if the host rejects the reply.
func (s *Store) AddReply(parentID, body string) error {
	if strings.TrimSpace(body) == "" {
		return validationErr("addReply", "reply body is empty")
	}
	actor := s.gate.Identity()
	if actor == nil || !s.gate.IsEligible() {
		return authorizationErr("addReply", "sign in to reply")
	}

	s.mu.Lock()
	parent := s.commentIndexLocked(parentID)
	if parent < 0 {
		s.mu.Unlock()
		return &OpError{Kind: KindNotFound, Op: "addReply", Message: "parent comment not found"}
	}

	tempID := "pending-" + uuid.NewString()
	optimistic := thread.Reply{
		Comment: thread.Comment{
			ID:            tempID,
			Author:        *actor,
			Body:          body,
			CreatedAt:     time.Now().UTC(),
			ReactingUsers: thread.NewReactionSets(),
		},
		ParentID: parentID,
	}
	// Only a loaded cache gets the optimistic entry; an unloaded cache will
	// pick the reply up from the host on first expansion.
	if cached, ok := s.replies[parentID]; ok {
		s.replies[parentID] = append(cached, optimistic)
	}
	s.comments[parent].ReplyCount++
	token := s.bumpSeqLocked(tempID)
	s.mu.Unlock()
	s.notify()

	go func() {
		payload, err := s.gw.CreateReply(s.ctx, parentID, body)

		s.mu.Lock()
		if s.ctx.Err() != nil || s.seq[tempID] != token {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.removeReplyLocked(parentID, tempID)
			if i := s.commentIndexLocked(parentID); i >= 0 && s.comments[i].ReplyCount > 0 {
				s.comments[i].ReplyCount--
			}
			s.lastErr = remoteErr("addReply", err)
			s.log.Warn().Err(err).Str("parent", parentID).Msg("reply creation rolled back")
		} else if i := s.replyIndexLocked(parentID, tempID); i >= 0 {
			s.replies[parentID][i] = normalize.Reply(payload)
		}
		delete(s.seq, tempID)
		s.mu.Unlock()
		s.notify()
	}()
	return nil
}

// EditReply updates the body of the actor's own reply. The edit is applied
// optimistically (with a provisional edit timestamp) and rolled back to the
// prior body if the host rejects it.
func (s *Store) EditReply(parentID, replyID, body string) error {
	if strings.TrimSpace(body) == "" {
		return validationErr("editReply", "reply body is empty")
	}

	s.mu.Lock()
	i := s.replyIndexLocked(parentID, replyID)
	if i < 0 {
		s.mu.Unlock()
		return &OpError{Kind: KindNotFound, Op: "editReply", Message: "reply not found"}
	}
	if !identity.CanEdit(s.gate, s.replies[parentID][i].Author.Handle) {
		s.mu.Unlock()
		return authorizationErr("editReply", "only the author can edit a reply")
	}

	prev := s.replies[parentID][i].Clone()
	now := time.Now().UTC()
	s.replies[parentID][i].Body = body
	s.replies[parentID][i].LastEditedAt = &now
	token := s.bumpSeqLocked(replyID)
	s.mu.Unlock()
	s.notify()

	go func() {
		payload, err := s.gw.UpdateReply(s.ctx, replyID, body)

		s.mu.Lock()
		if s.ctx.Err() != nil || s.seq[replyID] != token {
			s.mu.Unlock()
			return
		}
		if j := s.replyIndexLocked(parentID, replyID); j >= 0 {
			if err != nil {
				s.replies[parentID][j] = prev
				s.lastErr = remoteErr("editReply", err)
				s.log.Warn().Err(err).Str("reply", replyID).Msg("reply edit rolled back")
			} else {
				s.replies[parentID][j] = normalize.Reply(payload)
			}
		}
		s.mu.Unlock()
		s.notify()
	}()
	return nil
}

// DeleteComment tombstones a comment in place. The record keeps its id,
// position, and reply count so nested replies are never orphaned.
func (s *Store) DeleteComment(id string) error {
	s.mu.Lock()
	i := s.commentIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return &OpError{Kind: KindNotFound, Op: "deleteComment", Message: "comment not found"}
	}
	if !identity.CanDelete(s.gate, s.comments[i].Author.Handle) {
		s.mu.Unlock()
		return authorizationErr("deleteComment", "only the author or an admin can delete a comment")
	}
	if s.comments[i].Deleted {
		s.mu.Unlock()
		return nil
	}

	s.comments[i].Deleted = true
	token := s.bumpSeqLocked(id)
	s.mu.Unlock()
	s.notify()

	go func() {
		err := s.gw.DeleteComment(s.ctx, id)

		s.mu.Lock()
		if s.ctx.Err() != nil || s.seq[id] != token {
			s.mu.Unlock()
			return
		}
		// A 404 means the comment is already gone remotely; the local
		// tombstone already shows the right thing.
		if err != nil && !gateway.IsNotFound(err) {
			if j := s.commentIndexLocked(id); j >= 0 {
				s.comments[j].Deleted = false
			}
			s.lastErr = remoteErr("deleteComment", err)
			s.log.Warn().Err(err).Str("comment", id).Msg("comment delete rolled back")
		}
		s.mu.Unlock()
		s.notify()
	}()
	return nil
}

// DeleteReply tombstones a reply in place under its parent.
func (s *Store) DeleteReply(parentID, id string) error {
	s.mu.Lock()
	i := s.replyIndexLocked(parentID, id)
	if i < 0 {
		s.mu.Unlock()
		return &OpError{Kind: KindNotFound, Op: "deleteReply", Message: "reply not found"}
	}
	if !identity.CanDelete(s.gate, s.replies[parentID][i].Author.Handle) {
		s.mu.Unlock()
		return authorizationErr("deleteReply", "only the author or an admin can delete a reply")
	}
	if s.replies[parentID][i].Deleted {
		s.mu.Unlock()
		return nil
	}

	s.replies[parentID][i].Deleted = true
	token := s.bumpSeqLocked(id)
	s.mu.Unlock()
	s.notify()

	go func() {
		err := s.gw.DeleteReply(s.ctx, id)

		s.mu.Lock()
		if s.ctx.Err() != nil || s.seq[id] != token {
			s.mu.Unlock()
			return
		}
		if err != nil && !gateway.IsNotFound(err) {
			if j := s.replyIndexLocked(parentID, id); j >= 0 {
				s.replies[parentID][j].Deleted = false
			}
			s.lastErr = remoteErr("deleteReply", err)
			s.log.Warn().Err(err).Str("reply", id).Msg("reply delete rolled back")
		}
		s.mu.Unlock()
		s.notify()
	}()
	return nil
}

// bumpSeqLocked increments and returns the request sequence for a target.
// Responses carrying an older token are discarded on arrival.
func (s *Store) bumpSeqLocked(targetID string) uint64 {
	s.seq[targetID]++
	return s.seq[targetID]
}

func (s *Store) commentIndexLocked(id string) int {
	for i := range s.comments {
		if s.comments[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) replyIndexLocked(parentID, id string) int {
	for i := range s.replies[parentID] {
		if s.replies[parentID][i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeCommentLocked(id string) {
	if i := s.commentIndexLocked(id); i >= 0 {
		s.comments = append(s.comments[:i], s.comments[i+1:]...)
	}
}

func (s *Store) removeReplyLocked(parentID, id string) {
	if i := s.replyIndexLocked(parentID, id); i >= 0 {
		s.replies[parentID] = append(s.replies[parentID][:i], s.replies[parentID][i+1:]...)
	}
}
