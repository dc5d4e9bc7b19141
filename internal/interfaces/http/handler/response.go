package handler

import (
	"errors"
	"net/http"

	"chat-backend/internal/application"
	"chat-backend/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type sessionDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type messageDTO struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

type exchangeDTO struct {
	User      messageDTO `json:"user"`
	Assistant messageDTO `json:"assistant"`
}

func toSessionDTO(s *domain.Session) sessionDTO {
	return sessionDTO{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt.UnixMilli(),
		UpdatedAt: s.UpdatedAt.UnixMilli(),
	}
}

func toMessageDTO(m *domain.Message) messageDTO {
	return messageDTO{
		ID:   m.ID,
		Role: m.Role.String(),
		Text: m.Content,
		TS:   m.CreatedAt.UnixMilli(),
	}
}

func toExchangeDTO(ex *application.Exchange) exchangeDTO {
	return exchangeDTO{
		User:      toMessageDTO(ex.User),
		Assistant: toMessageDTO(ex.Assistant),
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// respondError maps domain errors to status codes. Anything unexpected is
// logged and reported as a bare 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	default:
		_ = c.Error(err)
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
