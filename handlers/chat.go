package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/assistant"
	"github.com/padraicbc/wagergenie/metrics"
	mw "github.com/padraicbc/wagergenie/middleware"
	"github.com/padraicbc/wagergenie/models"
)

// streamHeartbeat keeps idle event streams open through proxies.
const streamHeartbeat = 25 * time.Second

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest accepts either a single message or the client's transcript.
// userId is accepted for compatibility and ignored; the session decides.
type chatRequest struct {
	Message  string     `json:"message"`
	UserID   any        `json:"userId,omitempty"`
	Messages []chatTurn `json:"messages"`
}

// question returns the message, or the last user turn of the transcript.
func (r *chatRequest) question() string {
	if m := strings.TrimSpace(r.Message); m != "" {
		return m
	}
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == string(models.RoleUser) {
			return strings.TrimSpace(r.Messages[i].Content)
		}
	}
	return ""
}

// Chat answers one question and returns {message, picks}.
func (h *Handler) Chat(c echo.Context) error {
	userID, ok := mw.UserID(c)
	if !ok {
		metrics.RecordChat("unauthorized")
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		metrics.RecordChat("bad_request")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	q := req.question()
	if q == "" {
		metrics.RecordChat("bad_request")
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	reply, err := h.Assistant.Reply(c.Request().Context(), userID, q)
	if err != nil {
		if errors.Is(err, assistant.ErrNoMessage) {
			metrics.RecordChat("bad_request")
			return echo.NewHTTPError(http.StatusBadRequest, "message is required")
		}
		metrics.RecordChat("error")
		h.log.Error("chat failed", zap.Int64("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}

	metrics.RecordChat("ok")
	return c.JSON(http.StatusOK, reply)
}

// ChatMessages returns the caller's transcript in creation order.
func (h *Handler) ChatMessages(c echo.Context) error {
	userID, ok := mw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	limit := queryLimit(c.QueryParam("limit"), 50, 500)
	msgs, err := h.store.ChatMessages(c.Request().Context(), userID, limit)
	if err != nil {
		h.log.Error("loading chat messages failed", zap.Int64("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return c.JSON(http.StatusOK, msgs)
}

// ChatStream sends each message stored for the caller after the stream
// opened as a server-sent event. Frames a slow client cannot take are
// dropped.
func (h *Handler) ChatStream(c echo.Context) error {
	userID, ok := mw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	msgs, cancel := h.Stream.Subscribe(userID)
	defer cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case m, open := <-msgs:
			if !open {
				return nil
			}
			b, err := json.Marshal(m)
			if err != nil {
				h.log.Warn("encoding stream frame failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(res, "id: %d\nevent: message\ndata: %s\n\n", m.ID, b); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
