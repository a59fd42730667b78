package discussions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/threadkit/internal/gateway"
	"github.com/threadkit/pkg/thread"
)

// Client is an HTTP client for the hosted discussion API. It implements
// both gateway.Gateway and gateway.Resolver.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a client for the given host. The token is sent as a
// bearer credential on every request.
func NewClient(baseURL, token string) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{},
		// Reaction toggles can arrive in bursts; stay friendly to the host.
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5), // 5 requests per second
		log:     log.With().Str("component", "discussions-client").Logger(),
	}
}

// do executes one API request, decoding a JSON response into out when out
// is non-nil. 404s are translated to gateway.NotFoundError so callers can
// collapse missing targets instead of failing hard.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", "Bearer "+c.token)
	req.Header.Add("Accept", "application/json")
	if payload != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("host request")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &gateway.NotFoundError{Resource: "target", ID: path}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &gateway.TransportError{Status: resp.StatusCode, Body: string(snippet)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// FetchComments lists all top-level comments of a discussion, without replies.
func (c *Client) FetchComments(ctx context.Context, discussionNumber int) ([]gateway.CommentPayload, error) {
	var comments []gateway.CommentPayload
	path := fmt.Sprintf("/discussions/%d/comments", discussionNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// FetchReplies lists one page of replies under a comment.
func (c *Client) FetchReplies(ctx context.Context, commentID, cursor string, limit int) (gateway.ReplyPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/comments/%s/replies", url.PathEscape(commentID))
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var page gateway.ReplyPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return gateway.ReplyPage{}, err
	}
	return page, nil
}

// CreateComment posts a new top-level comment and returns the host's record.
func (c *Client) CreateComment(ctx context.Context, discussionNumber int, body string) (gateway.CommentPayload, error) {
	var created gateway.CommentPayload
	path := fmt.Sprintf("/discussions/%d/comments", discussionNumber)
	err := c.do(ctx, http.MethodPost, path, map[string]string{"body": body}, &created)
	return created, err
}

// CreateReply posts a reply under a comment.
func (c *Client) CreateReply(ctx context.Context, commentID, body string) (gateway.ReplyPayload, error) {
	var created gateway.ReplyPayload
	path := fmt.Sprintf("/comments/%s/replies", url.PathEscape(commentID))
	err := c.do(ctx, http.MethodPost, path, map[string]string{"body": body}, &created)
	return created, err
}

// UpdateReply replaces the body of an existing reply.
func (c *Client) UpdateReply(ctx context.Context, replyID, body string) (gateway.ReplyPayload, error) {
	var updated gateway.ReplyPayload
	path := fmt.Sprintf("/replies/%s", url.PathEscape(replyID))
	err := c.do(ctx, http.MethodPatch, path, map[string]string{"body": body}, &updated)
	return updated, err
}

// DeleteComment tombstones a comment on the host.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	path := fmt.Sprintf("/comments/%s", url.PathEscape(commentID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// DeleteReply tombstones a reply on the host.
func (c *Client) DeleteReply(ctx context.Context, replyID string) error {
	path := fmt.Sprintf("/replies/%s", url.PathEscape(replyID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// SetReaction sets the acting user's final reaction state on a target and
// returns the host's authoritative tallies. The call carries the intended
// end state, never a delta.
func (c *Client) SetReaction(ctx context.Context, targetID string, kind thread.ReactionKind) (gateway.ReactionState, error) {
	var state gateway.ReactionState
	path := fmt.Sprintf("/targets/%s/reaction", url.PathEscape(targetID))
	err := c.do(ctx, http.MethodPut, path, map[string]string{"kind": string(kind)}, &state)
	return state, err
}

type discussionNumberResponse struct {
	DiscussionNumber int `json:"discussionNumber"`
}

// ResolveDiscussion looks up the discussion backing a content item. Returns
// gateway.ErrNoDiscussion when none exists yet.
func (c *Client) ResolveDiscussion(ctx context.Context, contentType, identifier string) (int, error) {
	var resp discussionNumberResponse
	path := fmt.Sprintf("/discussions/content/%s/%s", url.PathEscape(contentType), url.PathEscape(identifier))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if gateway.IsNotFound(err) {
			return 0, gateway.ErrNoDiscussion
		}
		return 0, err
	}
	return resp.DiscussionNumber, nil
}

// CreateDiscussion creates the backing discussion for a content item.
func (c *Client) CreateDiscussion(ctx context.Context, contentType, identifier string) (int, error) {
	var resp discussionNumberResponse
	path := fmt.Sprintf("/discussions/content/%s/%s", url.PathEscape(contentType), url.PathEscape(identifier))
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.DiscussionNumber, nil
}
