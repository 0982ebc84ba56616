package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kholst-labs/kholst/backend/internal/canvas"
	"github.com/kholst-labs/kholst/backend/internal/media"
	"go.uber.org/zap"
)

var (
	errMissingCanvasService = errors.New("canvas service dependency required")
	errMissingMediaStore    = errors.New("media store dependency required")
)

// Dependencies collects everything the HTTP surface needs.
type Dependencies struct {
	CanvasService *canvas.Service
	MediaStore    *media.Store
	StaticDir     string
	Logger        *zap.Logger
}

// NewHTTPHandler assembles the gin router: CORS, static mounts and the
// /api resource routes.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.CanvasService == nil {
		return nil, errMissingCanvasService
	}
	if deps.MediaStore == nil {
		return nil, errMissingMediaStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	if deps.StaticDir != "" {
		router.Static("/static", deps.StaticDir)
	}
	router.Static("/media", deps.MediaStore.Root())

	handler := &httpHandler{
		service: deps.CanvasService,
		store:   deps.MediaStore,
		logger:  logger,
	}

	api := router.Group("/api")
	api.GET("/health", handler.handleHealth)

	api.POST("/cards", handler.handleCreateCard)
	api.GET("/cards", handler.handleListCards)
	api.GET("/cards/:id", handler.handleGetCard)
	api.PUT("/cards/:id", handler.handleUpdateCard)
	api.DELETE("/cards/:id", handler.handleDeleteCard)
	api.POST("/cards/:id/files", handler.handleUploadCardFile)

	api.POST("/notes", handler.handleCreateNote)
	api.GET("/notes", handler.handleListNotes)
	api.GET("/notes/:id", handler.handleGetNote)
	api.PUT("/notes/:id", handler.handleUpdateNote)
	api.DELETE("/notes/:id", handler.handleDeleteNote)

	api.POST("/task-links", handler.handleCreateTaskLink)
	api.GET("/task-links", handler.handleListTaskLinks)
	api.DELETE("/task-links/:id", handler.handleDeleteTaskLink)

	api.POST("/note-links", handler.handleCreateNoteLink)
	api.GET("/note-links", handler.handleListNoteLinks)
	api.DELETE("/note-links/:id", handler.handleDeleteNoteLink)

	api.GET("/files/:id/download", handler.handleDownloadFile)
	api.GET("/max-z-index", handler.handleMaxZIndex)
	api.GET("/search", handler.handleSearch)
	api.GET("/graph", handler.handleGraph)

	return router, nil
}

type httpHandler struct {
	service *canvas.Service
	store   *media.Store
	logger  *zap.Logger
}

// respondError maps the service taxonomy onto HTTP statuses: NotFound to
// 404, InvalidArgument and cycle rejection to 400, everything else to 500.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, canvas.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, canvas.ErrInvalidArgument), errors.Is(err, canvas.ErrLinkCycle):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Холст API работает"})
}
