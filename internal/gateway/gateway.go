package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/threadkit/pkg/thread"
)

// The gateway package defines the contract of the remote discussion host.
// The store never talks HTTP directly; it speaks these interfaces and the
// wire payloads below, which internal/normalize converts into thread records.

// AuthorPayload is the author object as the host serializes it.
type AuthorPayload struct {
	Handle     string `json:"handle"`
	AvatarURL  string `json:"avatarUrl"`
	ProfileURL string `json:"profileUrl"`
}

// ReactionCounts are the aggregate tallies on the wire.
type ReactionCounts struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// ReactionUsers lists the handles that reacted in each direction.
type ReactionUsers struct {
	Up   []string `json:"up"`
	Down []string `json:"down"`
}

// CommentPayload is the host's canonical comment record (spec'd wire shape).
// Timestamps are ISO8601 strings; parsing happens in the normalizer so the
// rest of the engine never sees host formatting quirks.
type CommentPayload struct {
	ID                string         `json:"id"`
	Author            AuthorPayload  `json:"author"`
	Body              string         `json:"body"`
	CreatedAt         string         `json:"createdAt"`
	LastEditedAt      string         `json:"lastEditedAt,omitempty"`
	AuthorAssociation string         `json:"authorAssociation"`
	IsOwner           bool           `json:"isOwner"`
	ReplyCount        int            `json:"replyCount"`
	Reactions         ReactionCounts `json:"reactions"`
	ReactingUsers     ReactionUsers  `json:"reactingUsers"`
	Deleted           bool           `json:"deleted"`
}

// ReplyPayload is a comment payload plus its parent.
type ReplyPayload struct {
	CommentPayload
	ParentID string `json:"parentId"`
}

// ReplyPage is one page of a cursor-paged reply listing. An empty
// NextCursor means the listing is exhausted.
type ReplyPage struct {
	Replies    []ReplyPayload `json:"replies"`
	NextCursor string         `json:"nextCursor"`
}

// ReactionState is the host's authoritative reaction state returned after a
// SetReaction call.
type ReactionState struct {
	Reactions     ReactionCounts `json:"reactions"`
	ReactingUsers ReactionUsers  `json:"reactingUsers"`
}

// Gateway is the remote discussion host as consumed by the store.
type Gateway interface {
	FetchComments(ctx context.Context, discussionNumber int) ([]CommentPayload, error)
	FetchReplies(ctx context.Context, commentID, cursor string, limit int) (ReplyPage, error)
	CreateComment(ctx context.Context, discussionNumber int, body string) (CommentPayload, error)
	CreateReply(ctx context.Context, commentID, body string) (ReplyPayload, error)
	UpdateReply(ctx context.Context, replyID, body string) (ReplyPayload, error)
	DeleteComment(ctx context.Context, commentID string) error
	DeleteReply(ctx context.Context, replyID string) error
	SetReaction(ctx context.Context, targetID string, kind thread.ReactionKind) (ReactionState, error)
}

// Resolver maps a content item onto its backing discussion number.
type Resolver interface {
	ResolveDiscussion(ctx context.Context, contentType, identifier string) (int, error)
	CreateDiscussion(ctx context.Context, contentType, identifier string) (int, error)
}

// ErrNoDiscussion is returned by ResolveDiscussion when no discussion backs
// the content item yet.
var ErrNoDiscussion = errors.New("no discussion for content item")

// NotFoundError reports that a remote comment, reply, or discussion no
// longer exists.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// TransportError wraps a non-2xx host response that is not a 404.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("host request failed with status %d: %s", e.Status, e.Body)
}

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
