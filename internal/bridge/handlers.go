package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/threadkit/internal/store"
	"github.com/threadkit/pkg/thread"
)

type bodyInput struct {
	Body string `json:"body"`
}

type sortInput struct {
	By thread.SortOption `json:"by"`
}

func (s *Server) getSnapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) addComment(c echo.Context) error {
	var in bodyInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := s.store.AddComment(in.Body); err != nil {
		return opErrorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) addReply(c echo.Context) error {
	var in bodyInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := s.store.AddReply(c.Param("id"), in.Body); err != nil {
		return opErrorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) editReply(c echo.Context) error {
	var in bodyInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := s.store.EditReply(c.Param("id"), c.Param("rid"), in.Body); err != nil {
		return opErrorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) deleteComment(c echo.Context) error {
	if err := s.store.DeleteComment(c.Param("id")); err != nil {
		return opErrorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) deleteReply(c echo.Context) error {
	if err := s.store.DeleteReply(c.Param("id"), c.Param("rid")); err != nil {
		return opErrorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) toggleReaction(c echo.Context) error {
	var req store.ReactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.TargetID = c.Param("id")
	if req.TargetKind == "" {
		req.TargetKind = thread.TargetComment
	}
	if err := s.store.ToggleReaction(req); err != nil {
		return opErrorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) toggleExpanded(c echo.Context) error {
	s.store.ToggleExpanded(c.Param("id"))
	return c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) setSort(c echo.Context) error {
	var in sortInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := s.store.SetSortBy(in.By); err != nil {
		return opErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) dismissError(c echo.Context) error {
	s.store.DismissError()
	return c.JSON(http.StatusOK, s.store.Snapshot())
}

// streamSnapshots pushes one snapshot event per observed store change over
// server-sent events. Changes arriving while a write is in progress are
// coalesced into a single trailing event.
func (s *Server) streamSnapshots(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	changes := make(chan struct{}, 1)
	unsubscribe := s.store.Subscribe(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	if err := writeSnapshotEvent(res, s.store.Snapshot()); err != nil {
		return err
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := writeSnapshotEvent(res, s.store.Snapshot()); err != nil {
				return err
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": heartbeat\n\n"); err != nil {
				return err
			}
			res.Flush()
		}
	}
}

func writeSnapshotEvent(res *echo.Response, snap store.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: snapshot\ndata: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}

// opErrorResponse maps the store's error taxonomy onto HTTP statuses.
func opErrorResponse(c echo.Context, err error) error {
	status := http.StatusBadGateway
	switch store.KindOf(err) {
	case store.KindValidation:
		status = http.StatusUnprocessableEntity
	case store.KindAuthorization:
		status = http.StatusForbidden
	case store.KindNotFound:
		status = http.StatusNotFound
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
