package discussions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadkit/internal/gateway"
	"github.com/threadkit/pkg/thread"
)

func newTestHost(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret-token") // trailing slash must be tolerated
}

func TestFetchCommentsRequestShape(t *testing.T) {
	client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/discussions/42/comments", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]gateway.CommentPayload{{ID: "c1"}, {ID: "c2"}})
	})

	comments, err := client.FetchComments(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].ID)
}

func TestFetchRepliesCursorAndLimit(t *testing.T) {
	client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/c1/replies", r.URL.Path)
		assert.Equal(t, "page-2", r.URL.Query().Get("cursor"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(gateway.ReplyPage{
			Replies:    []gateway.ReplyPayload{{CommentPayload: gateway.CommentPayload{ID: "r9"}, ParentID: "c1"}},
			NextCursor: "page-3",
		})
	})

	page, err := client.FetchReplies(context.Background(), "c1", "page-2", 100)
	require.NoError(t, err)
	require.Len(t, page.Replies, 1)
	assert.Equal(t, "page-3", page.NextCursor)
}

func TestCreateCommentPostsBody(t *testing.T) {
	client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/discussions/7/comments", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "hello there", in["body"])
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(gateway.CommentPayload{ID: "c-new", Body: in["body"]})
	})

	created, err := client.CreateComment(context.Background(), 7, "hello there")
	require.NoError(t, err)
	assert.Equal(t, "c-new", created.ID)
}

func TestSetReactionCarriesFinalState(t *testing.T) {
	client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/targets/c1/reaction", r.URL.Path)
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "none", in["kind"])
		json.NewEncoder(w).Encode(gateway.ReactionState{
			Reactions: gateway.ReactionCounts{Up: 2},
		})
	})

	state, err := client.SetReaction(context.Background(), "c1", thread.ReactionNone)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Reactions.Up)
}

func TestDeleteReplyAcceptsNoContent(t *testing.T) {
	client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/replies/r1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteReply(context.Background(), "r1"))
}

func TestNotFoundMapsToTypedError(t *testing.T) {
	client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	err := client.DeleteComment(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, gateway.IsNotFound(err))
}

func TestServerErrorMapsToTransportError(t *testing.T) {
	client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database is on fire", http.StatusInternalServerError)
	})

	_, err := client.FetchComments(context.Background(), 1)
	require.Error(t, err)
	var te *gateway.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.Status)
	assert.Contains(t, te.Body, "database is on fire")
}

func TestResolveDiscussion(t *testing.T) {
	t.Run("existing discussion", func(t *testing.T) {
		client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/discussions/content/article/hello-world", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]int{"discussionNumber": 99})
		})

		number, err := client.ResolveDiscussion(context.Background(), "article", "hello-world")
		require.NoError(t, err)
		assert.Equal(t, 99, number)
	})

	t.Run("missing discussion", func(t *testing.T) {
		client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})

		_, err := client.ResolveDiscussion(context.Background(), "article", "hello-world")
		assert.ErrorIs(t, err, gateway.ErrNoDiscussion)
	})

	t.Run("create on demand", func(t *testing.T) {
		client := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			json.NewEncoder(w).Encode(map[string]int{"discussionNumber": 100})
		})

		number, err := client.CreateDiscussion(context.Background(), "article", "hello-world")
		require.NoError(t, err)
		assert.Equal(t, 100, number)
	})
}
