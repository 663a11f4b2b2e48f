package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rafpad/internal/service"
)

// RateLimits agrupa los limiters por tipo de ruta. Un campo nil desactiva ese límite.
type RateLimits struct {
	Chat  service.RateLimiter
	Write service.RateLimiter
}

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	chatH *ChatHandler,
	taskH *TaskHandler,
	limits RateLimits,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()

	// Middlewares basicos: request id, logging, recovery y JSON content-type.
	r.Use(requestIDMiddleware(), zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	api := r.Group("/api")

	chat := api.Group("/chat")
	chat.POST("", rateLimitMiddleware(limits.Chat, "chat"), chatH.Chat)
	chat.GET("/history", chatH.History)
	chat.POST("/clear", chatH.Clear)
	chat.POST("/create", rateLimitMiddleware(limits.Chat, "chat"), chatH.CreateFromChat)
	chat.GET("/test", chatH.Test)

	writeLimit := rateLimitMiddleware(limits.Write, "write")
	api.GET("/projects", taskH.ListProjects)
	api.POST("/projects", writeLimit, taskH.CreateProject)
	api.GET("/tasks", taskH.ListTasks)
	api.POST("/tasks", writeLimit, taskH.CreateTask)
	api.GET("/tasks/:id", taskH.GetTask)
	api.PUT("/tasks/:id", writeLimit, taskH.UpdateTask)
	api.PATCH("/tasks/:id/move", writeLimit, taskH.MoveTask)
	api.GET("/notes", taskH.ListNotes)
	api.POST("/notes", writeLimit, taskH.CreateNote)
	api.GET("/notes/:id", taskH.GetNote)
	api.PUT("/notes/:id", writeLimit, taskH.UpdateNote)
	api.PATCH("/notes/:id/move", writeLimit, taskH.MoveNote)
	api.DELETE("/:type/:id", writeLimit, taskH.Delete)

	return r
}
