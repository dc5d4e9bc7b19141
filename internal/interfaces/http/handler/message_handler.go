package handler

import (
	"net/http"

	"chat-backend/internal/application"
	"chat-backend/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MessageHandler struct {
	messages  *application.MessageLog
	assembler *application.Assembler
	log       *zap.Logger
}

func NewMessageHandler(messages *application.MessageLog, assembler *application.Assembler, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messages:  messages,
		assembler: assembler,
		log:       log,
	}
}

func (h *MessageHandler) List(c *gin.Context) {
	msgs, err := h.messages.List(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("sid"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageDTO(m))
	}
	c.JSON(http.StatusOK, out)
}

// Send stores the user's text and answers it with a generated reply.
func (h *MessageHandler) Send(c *gin.Context) {
	var req struct {
		Text *string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text must be a string")
		return
	}
	if req.Text == nil {
		badRequest(c, "text is required")
		return
	}

	ex, err := h.assembler.Send(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("sid"), *req.Text)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toExchangeDTO(ex))
}
