package store

import (
	"github.com/threadkit/internal/normalize"
	"github.com/threadkit/pkg/thread"
)

// replyPageLimit is the page size requested from the host when draining a
// comment's replies on first expansion.
const replyPageLimit = 100

// ToggleExpanded expands or collapses a comment's reply pane. At most one
// comment is expanded at a time; expanding a new one collapses the old one
// but keeps its reply cache. The first expansion of a comment with replies
// drains the host's cursor-paged listing into the cache; a comment with
// replyCount zero gets an empty cache without any host call.
func (s *Store) ToggleExpanded(commentID string) {
	s.mu.Lock()
	if s.expandedID == commentID {
		s.expandedID = ""
		s.mu.Unlock()
		s.notify()
		return
	}

	i := s.commentIndexLocked(commentID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.expandedID = commentID

	if _, loaded := s.replies[commentID]; loaded || s.repliesLoading[commentID] {
		s.mu.Unlock()
		s.notify()
		return
	}
	if s.comments[i].ReplyCount == 0 {
		s.replies[commentID] = []thread.Reply{}
		s.mu.Unlock()
		s.notify()
		return
	}

	s.repliesLoading[commentID] = true
	s.mu.Unlock()
	s.notify()

	go s.drainReplies(commentID)
}

// drainReplies loops the cursor-paged reply listing until exhaustion, then
// installs the full list as the comment's cache. Any page failure aborts
// the drain and returns the comment to the unloaded state so the user can
// retry; sibling comments are unaffected.
func (s *Store) drainReplies(commentID string) {
	var all []thread.Reply
	cursor := ""
	for {
		page, err := s.gw.FetchReplies(s.ctx, commentID, cursor, replyPageLimit)
		if err != nil {
			s.mu.Lock()
			if s.ctx.Err() != nil {
				s.mu.Unlock()
				return
			}
			delete(s.repliesLoading, commentID)
			s.lastErr = remoteErr("loadReplies", err)
			s.log.Warn().Err(err).Str("comment", commentID).Msg("reply fetch failed")
			s.mu.Unlock()
			s.notify()
			return
		}
		all = append(all, normalize.Replies(page.Replies)...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if all == nil {
		all = []thread.Reply{}
	}
	s.replies[commentID] = all
	delete(s.repliesLoading, commentID)
	// The authoritative count can lag a listing that just revealed more
	// replies; it must never be below what is cached.
	if i := s.commentIndexLocked(commentID); i >= 0 && s.comments[i].ReplyCount < len(all) {
		s.comments[i].ReplyCount = len(all)
	}
	s.mu.Unlock()
	s.notify()
}
