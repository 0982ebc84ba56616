package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleMaxZIndex(c *gin.Context) {
	maxZ, err := h.service.MaxZIndex(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"max_z_index": maxZ})
}

func (h *httpHandler) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_query"})
		return
	}

	result, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	tasks := make([]taskResponse, 0, len(result.Tasks))
	for i := range result.Tasks {
		tasks = append(tasks, newTaskResponse(&result.Tasks[i]))
	}
	notes := make([]noteResponse, 0, len(result.Notes))
	for i := range result.Notes {
		notes = append(notes, newNoteResponse(&result.Notes[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "notes": notes})
}

func (h *httpHandler) handleGraph(c *gin.Context) {
	graph, err := h.service.AssembleGraph(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}
