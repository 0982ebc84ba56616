package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kholst-labs/kholst/backend/internal/canvas"
)

type taskLinkPayload struct {
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
	LinkType   string `json:"link_type"`
	TargetType string `json:"link_target_type"`
}

type taskLinkResponse struct {
	ID         int64     `json:"id"`
	SourceID   string    `json:"source_id"`
	TargetID   string    `json:"target_id"`
	LinkType   string    `json:"link_type"`
	TargetType string    `json:"link_target_type"`
	CreatedAt  time.Time `json:"created_at"`
}

func newTaskLinkResponse(link *canvas.TaskLink) taskLinkResponse {
	return taskLinkResponse{
		ID:         link.ID,
		SourceID:   link.SourceID,
		TargetID:   link.TargetID,
		LinkType:   link.LinkType,
		TargetType: link.TargetType,
		CreatedAt:  link.CreatedAt,
	}
}

type noteLinkPayload struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	LinkType string `json:"link_type"`
}

type noteLinkResponse struct {
	ID        int64     `json:"id"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	LinkType  string    `json:"link_type"`
	CreatedAt time.Time `json:"created_at"`
}

func newNoteLinkResponse(link *canvas.NoteLink) noteLinkResponse {
	return noteLinkResponse{
		ID:        link.ID,
		SourceID:  link.SourceID,
		TargetID:  link.TargetID,
		LinkType:  link.LinkType,
		CreatedAt: link.CreatedAt,
	}
}

// linkID parses the numeric link identifier path parameter, writing a 400
// response and returning ok=false on malformed input.
func linkID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_link_id"})
		return 0, false
	}
	return id, true
}

func (h *httpHandler) handleCreateTaskLink(c *gin.Context) {
	var payload taskLinkPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.SourceID == "" || payload.TargetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	link, err := h.service.CreateTaskLink(c.Request.Context(), canvas.TaskLinkInput{
		SourceID:   payload.SourceID,
		TargetID:   payload.TargetID,
		LinkType:   payload.LinkType,
		TargetType: payload.TargetType,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskLinkResponse(link))
}

func (h *httpHandler) handleListTaskLinks(c *gin.Context) {
	links, err := h.service.ListTaskLinks(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := make([]taskLinkResponse, 0, len(links))
	for i := range links {
		response = append(response, newTaskLinkResponse(&links[i]))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleDeleteTaskLink(c *gin.Context) {
	id, ok := linkID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteTaskLink(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Связь удалена"})
}

func (h *httpHandler) handleCreateNoteLink(c *gin.Context) {
	var payload noteLinkPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.SourceID == "" || payload.TargetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	link, err := h.service.CreateNoteLink(c.Request.Context(), canvas.NoteLinkInput{
		SourceID: payload.SourceID,
		TargetID: payload.TargetID,
		LinkType: payload.LinkType,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteLinkResponse(link))
}

func (h *httpHandler) handleListNoteLinks(c *gin.Context) {
	links, err := h.service.ListNoteLinks(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := make([]noteLinkResponse, 0, len(links))
	for i := range links {
		response = append(response, newNoteLinkResponse(&links[i]))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleDeleteNoteLink(c *gin.Context) {
	id, ok := linkID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteNoteLink(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Связь удалена"})
}
