package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rafpad/internal/domain"
	"rafpad/internal/service"
)

// ListNotes maneja GET /api/notes.
func (h *TaskHandler) ListNotes(c *gin.Context) {
	notes, err := h.taskServ.ListNotes(c.Request.Context())
	if err != nil {
		h.respondError(c, "list notes failed", err)
		return
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// CreateNote maneja POST /api/notes.
func (h *TaskHandler) CreateNote(c *gin.Context) {
	var req struct {
		Content    string `json:"content" binding:"required"`
		Category   string `json:"category"`
		ProjectTag string `json:"project_tag"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create note request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	note, err := h.taskServ.CreateNote(c.Request.Context(), service.NoteInput{
		Content:    req.Content,
		Category:   req.Category,
		ProjectTag: req.ProjectTag,
	})
	if err != nil {
		h.respondError(c, "create note failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

// GetNote maneja GET /api/notes/:id.
func (h *TaskHandler) GetNote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	note, err := h.taskServ.GetNote(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get note failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

// UpdateNote maneja PUT /api/notes/:id.
func (h *TaskHandler) UpdateNote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Content    *string `json:"content"`
		Category   *string `json:"category"`
		ProjectTag *string `json:"project_tag"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update note request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	note, err := h.taskServ.UpdateNote(c.Request.Context(), id, service.NotePatch{
		Content:    req.Content,
		Category:   req.Category,
		ProjectTag: req.ProjectTag,
	})
	if err != nil {
		h.respondError(c, "update note failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

// MoveNote maneja PATCH /api/notes/:id/move.
func (h *TaskHandler) MoveNote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid move note request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "new project tag is required"})
		return
	}
	note, err := h.taskServ.MoveNote(c.Request.Context(), id, req.ProjectTag)
	if err != nil {
		h.respondError(c, "move note failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}
