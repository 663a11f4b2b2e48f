package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rafpad/internal/domain"
	"rafpad/internal/service"
)

// TaskHandler expone proyectos y tareas.
type TaskHandler struct {
	logger   *zap.Logger
	taskServ *service.TaskService
}

func NewTaskHandler(logger *zap.Logger, taskServ *service.TaskService) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{logger: logger, taskServ: taskServ}
}

// ListProjects maneja GET /api/projects.
func (h *TaskHandler) ListProjects(c *gin.Context) {
	projects, err := h.taskServ.ListProjects(c.Request.Context())
	if err != nil {
		h.respondError(c, "list projects failed", err)
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// CreateProject maneja POST /api/projects.
func (h *TaskHandler) CreateProject(c *gin.Context) {
	var req struct {
		Tag  string `json:"tag" binding:"required"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create project request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	project, err := h.taskServ.CreateProject(c.Request.Context(), req.Tag, req.Name)
	if err != nil {
		h.respondError(c, "create project failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project})
}

// ListTasks maneja GET /api/tasks.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.taskServ.ListTasks(c.Request.Context())
	if err != nil {
		h.respondError(c, "list tasks failed", err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateTask maneja POST /api/tasks.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req struct {
		Content    string `json:"content" binding:"required"`
		Category   string `json:"category"`
		Priority   string `json:"priority"`
		Deadline   string `json:"deadline"`
		ProjectTag string `json:"project_tag"`
		Subtasks   []struct {
			Content string `json:"content"`
		} `json:"subtasks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create task request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	subtasks := make([]string, 0, len(req.Subtasks))
	for _, s := range req.Subtasks {
		subtasks = append(subtasks, s.Content)
	}
	task, err := h.taskServ.CreateTask(c.Request.Context(), service.TaskInput{
		Content:    req.Content,
		Category:   req.Category,
		Priority:   req.Priority,
		Deadline:   req.Deadline,
		ProjectTag: req.ProjectTag,
		Subtasks:   subtasks,
	})
	if err != nil {
		h.respondError(c, "create task failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// GetTask maneja GET /api/tasks/:id.
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	task, err := h.taskServ.GetTask(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get task failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// UpdateTask maneja PUT /api/tasks/:id; solo cambia los campos presentes en el body.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Content     *string `json:"content"`
		Category    *string `json:"category"`
		Priority    *string `json:"priority"`
		Deadline    *string `json:"deadline"`
		ProjectTag  *string `json:"project_tag"`
		IsCompleted *bool   `json:"is_completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update task request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	task, err := h.taskServ.UpdateTask(c.Request.Context(), id, service.TaskPatch{
		Content:     req.Content,
		Category:    req.Category,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
		ProjectTag:  req.ProjectTag,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		h.respondError(c, "update task failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// MoveTask maneja PATCH /api/tasks/:id/move.
func (h *TaskHandler) MoveTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid move task request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "new project tag is required"})
		return
	}
	task, err := h.taskServ.MoveTask(c.Request.Context(), id, req.ProjectTag)
	if err != nil {
		h.respondError(c, "move task failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// Delete maneja DELETE /api/:type/:id con borrado lógico.
func (h *TaskHandler) Delete(c *gin.Context) {
	kind := c.Param("type")
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.taskServ.Delete(c.Request.Context(), kind, id); err != nil {
		h.respondError(c, "soft delete failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": kind + " soft deleted successfully"})
}

type moveRequest struct {
	ProjectTag string `json:"project_tag" binding:"required"`
}

// parseID lee :id y responde 400 si no es un entero positivo.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *TaskHandler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrTaskInvalidInput),
		errors.Is(err, service.ErrProjectInvalidInput),
		errors.Is(err, service.ErrNoteInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidEntityKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid element type"})
	case errors.Is(err, service.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "target project not found"})
	case errors.Is(err, service.ErrProjectExists):
		c.JSON(http.StatusConflict, gin.H{"error": "project already exists"})
	case errors.Is(err, service.ErrTaskServiceNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task store unavailable"})
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("request_id", GetRequestID(c)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
