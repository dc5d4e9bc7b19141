package handler

import (
	"errors"
	"io"
	"net/http"

	"chat-backend/internal/application"
	"chat-backend/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	sessions *application.SessionService
	log      *zap.Logger
}

func NewSessionHandler(sessions *application.SessionService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: log}
}

func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]sessionDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionDTO(s))
	}
	c.JSON(http.StatusOK, out)
}

// Create accepts an optional {"title": "..."}; an empty body is fine.
func (h *SessionHandler) Create(c *gin.Context) {
	var req struct {
		Title *string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}
	title := ""
	if req.Title != nil {
		title = *req.Title
	}

	session, err := h.sessions.Create(c.Request.Context(), c.GetString(middleware.UserIDKey), title)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": session.ID, "title": session.Title})
}

func (h *SessionHandler) Rename(c *gin.Context) {
	var req struct {
		Title *string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Title == nil {
		badRequest(c, "title is required")
		return
	}

	err := h.sessions.Rename(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("sid"), *req.Title)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("sid")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
