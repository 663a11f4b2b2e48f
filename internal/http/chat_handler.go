package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rafpad/internal/domain"
	"rafpad/internal/service"
)

const (
	testSessionID = "test_session"
	testPrompt    = "Hello, how are you?"
)

// ChatHandler mantiene dependencias para los endpoints de chat.
type ChatHandler struct {
	logger     *zap.Logger
	chatServ   *service.ChatService
	defaultTag string
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chatServ *service.ChatService, defaultTag string) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTag == "" {
		defaultTag = domain.DefaultProjectTag
	}
	return &ChatHandler{
		logger:     logger,
		chatServ:   chatServ,
		defaultTag: defaultTag,
	}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (r chatRequest) valid() bool {
	return strings.TrimSpace(r.Message) != "" && strings.TrimSpace(r.SessionID) != ""
}

// Chat maneja POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing message or session_id"})
		return
	}

	reply := h.chatServ.Respond(c.Request.Context(), req.Message, req.SessionID, nil)
	c.JSON(http.StatusOK, gin.H{
		"response": reply,
		"history":  h.chatServ.History(req.SessionID),
	})
}

// History maneja GET /api/chat/history.
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session_id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": h.chatServ.History(sessionID)})
}

// Clear maneja POST /api/chat/clear.
func (h *ChatHandler) Clear(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session_id"})
		return
	}
	h.chatServ.ClearHistory(req.SessionID)
	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared"})
}

// CreateFromChat maneja POST /api/chat/create: igual que Chat pero con una pista de contexto.
func (h *ChatHandler) CreateFromChat(c *gin.Context) {
	var req struct {
		chatRequest
		Type     string `json:"type"`
		Project  string `json:"project"`
		Category string `json:"category"`
		Priority string `json:"priority"`
		Deadline string `json:"deadline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		h.logger.Warn("invalid create from chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing message or session_id"})
		return
	}

	chatCtx := domain.ChatContext{
		Type:     req.Type,
		Content:  req.Message,
		Project:  req.Project,
		Category: req.Category,
	}
	if chatCtx.Type == "" {
		chatCtx.Type = domain.ContextTypeNote
	}
	if chatCtx.Project == "" {
		chatCtx.Project = h.defaultTag
	}
	if chatCtx.Type == domain.ContextTypeTask {
		chatCtx.Priority = req.Priority
		if chatCtx.Priority == "" {
			chatCtx.Priority = domain.PriorityMedium
		}
		chatCtx.Deadline = req.Deadline
	}

	reply := h.chatServ.Respond(c.Request.Context(), req.Message, req.SessionID, &chatCtx)
	c.JSON(http.StatusOK, gin.H{
		"response": reply,
		"context":  chatCtx,
	})
}

// Test maneja GET /api/chat/test: un turno fijo sobre una sesión reservada.
func (h *ChatHandler) Test(c *gin.Context) {
	reply := h.chatServ.Respond(c.Request.Context(), testPrompt, testSessionID, nil)
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"response": reply,
	})
}
