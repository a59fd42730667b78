package thread

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Actor identifies who is commenting or reacting.
type Actor struct {
	Handle     string `json:"handle"`
	AvatarURL  string `json:"avatarUrl"`
	ProfileURL string `json:"profileUrl"`
}

// ReactionKind is the direction of a reaction on a comment or reply.
type ReactionKind string

const (
	ReactionUp   ReactionKind = "up"
	ReactionDown ReactionKind = "down"
	// ReactionNone is the settled state after a retraction. It is what the
	// gateway receives when the actor removes their reaction.
	ReactionNone ReactionKind = "none"
)

// TargetKind distinguishes top-level comments from replies in reaction requests.
type TargetKind string

const (
	TargetComment TargetKind = "comment"
	TargetReply   TargetKind = "reply"
)

// ReactionTally holds the aggregate reaction counts for one target.
type ReactionTally struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// HandleSet is a set of actor handles. It serializes as a sorted JSON array.
type HandleSet map[string]struct{}

// NewHandleSet builds a set from a list of handles.
func NewHandleSet(handles ...string) HandleSet {
	s := make(HandleSet, len(handles))
	for _, h := range handles {
		s[h] = struct{}{}
	}
	return s
}

// Has reports whether handle is in the set.
func (s HandleSet) Has(handle string) bool {
	_, ok := s[handle]
	return ok
}

// Add inserts handle into the set.
func (s HandleSet) Add(handle string) {
	s[handle] = struct{}{}
}

// Remove deletes handle from the set.
func (s HandleSet) Remove(handle string) {
	delete(s, handle)
}

// Clone returns an independent copy of the set.
func (s HandleSet) Clone() HandleSet {
	out := make(HandleSet, len(s))
	for h := range s {
		out[h] = struct{}{}
	}
	return out
}

// MarshalJSON renders the set as a sorted array of handles.
func (s HandleSet) MarshalJSON() ([]byte, error) {
	handles := make([]string, 0, len(s))
	for h := range s {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return json.Marshal(handles)
}

// UnmarshalJSON reads an array of handles back into a set.
func (s *HandleSet) UnmarshalJSON(data []byte) error {
	var handles []string
	if err := json.Unmarshal(data, &handles); err != nil {
		return err
	}
	*s = NewHandleSet(handles...)
	return nil
}

// ReactionSets tracks which actors reacted in which direction. For any
// actor the up and down sets are mutually exclusive once a mutation settles.
type ReactionSets struct {
	Up   HandleSet `json:"up"`
	Down HandleSet `json:"down"`
}

// NewReactionSets returns empty, non-nil reaction sets.
func NewReactionSets() ReactionSets {
	return ReactionSets{Up: HandleSet{}, Down: HandleSet{}}
}

// Clone returns an independent copy of both sets.
func (r ReactionSets) Clone() ReactionSets {
	return ReactionSets{Up: r.Up.Clone(), Down: r.Down.Clone()}
}

// StateFor returns the actor's current reaction on the target: ReactionUp,
// ReactionDown, or ReactionNone.
func (r ReactionSets) StateFor(handle string) ReactionKind {
	if r.Up.Has(handle) {
		return ReactionUp
	}
	if r.Down.Has(handle) {
		return ReactionDown
	}
	return ReactionNone
}

// Comment is a top-level entry in a discussion thread.
type Comment struct {
	ID               string        `json:"id"`
	Author           Actor         `json:"author"`
	Body             string        `json:"body"`
	CreatedAt        time.Time     `json:"createdAt"`
	LastEditedAt     *time.Time    `json:"lastEditedAt,omitempty"`
	AssociationBadge string        `json:"associationBadge,omitempty"`
	ReplyCount       int           `json:"replyCount"`
	Reactions        ReactionTally `json:"reactions"`
	ReactingUsers    ReactionSets  `json:"reactingUsers"`
	Deleted          bool          `json:"deleted"`
}

// Clone returns a deep copy safe to hand to subscribers.
func (c Comment) Clone() Comment {
	out := c
	out.ReactingUsers = c.ReactingUsers.Clone()
	if c.LastEditedAt != nil {
		t := *c.LastEditedAt
		out.LastEditedAt = &t
	}
	return out
}

// Score is the popularity score used by the "popular" sort.
func (c Comment) Score() int {
	return c.Reactions.Up - c.Reactions.Down
}

// Reply is a nested entry under a parent comment.
type Reply struct {
	Comment
	ParentID string `json:"parentId"`
}

// Clone returns a deep copy of the reply.
func (r Reply) Clone() Reply {
	return Reply{Comment: r.Comment.Clone(), ParentID: r.ParentID}
}

// Discussion identifies the remote thread backing a content item. Number is
// the only field the store needs once resolution has happened.
type Discussion struct {
	Number      int    `json:"number"`
	ContentType string `json:"contentType"`
	Identifier  string `json:"identifier"`
}

// Badge maps an author association onto the label shown next to the handle.
// The content owner always wins over the hosted platform's association.
func Badge(association string, isOwner bool) string {
	if isOwner {
		return "Owner"
	}
	switch strings.ToUpper(association) {
	case "OWNER":
		return "Owner"
	case "MEMBER", "COLLABORATOR":
		return "Maintainer"
	case "CONTRIBUTOR":
		return "Contributor"
	default:
		return ""
	}
}
