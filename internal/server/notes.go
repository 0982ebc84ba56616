package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kholst-labs/kholst/backend/internal/canvas"
)

type notePayload struct {
	Title    *string         `json:"title"`
	Content  json.RawMessage `json:"content"`
	X        *int            `json:"x"`
	Y        *int            `json:"y"`
	ZIndex   *int            `json:"z_index"`
	Width    *int            `json:"width"`
	Height   *int            `json:"height"`
	TaskID   *string         `json:"task_id"`
	NoteType *string         `json:"note_type"`
}

type noteResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	X         int             `json:"x"`
	Y         int             `json:"y"`
	ZIndex    int             `json:"z_index"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	TaskID    *string         `json:"task_id"`
	NoteType  string          `json:"note_type"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at"`
}

func newNoteResponse(note *canvas.Note) noteResponse {
	return noteResponse{
		ID:        note.ID,
		Title:     note.Title,
		Content:   contentJSON(note.ContentJSON),
		X:         note.X,
		Y:         note.Y,
		ZIndex:    note.ZIndex,
		Width:     note.Width,
		Height:    note.Height,
		TaskID:    note.TaskID,
		NoteType:  note.NoteType,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

func (p notePayload) noteInput() canvas.NoteInput {
	return canvas.NoteInput{
		CardInput: canvas.CardInput{
			Title:   p.Title,
			Content: p.Content,
			X:       p.X,
			Y:       p.Y,
			ZIndex:  p.ZIndex,
			Width:   p.Width,
			Height:  p.Height,
		},
		TaskID:   p.TaskID,
		NoteType: p.NoteType,
	}
}

// paginationParams parses offset/limit query values, writing a 400 response
// and returning ok=false on malformed input.
func paginationParams(c *gin.Context) (offset, limit int, ok bool) {
	offsetValue := c.DefaultQuery("offset", "0")
	limitValue := c.DefaultQuery("limit", "100")

	offset, err := strconv.Atoi(offsetValue)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_offset"})
		return 0, 0, false
	}
	limit, err = strconv.Atoi(limitValue)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
		return 0, 0, false
	}
	return offset, limit, true
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var payload notePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.service.CreateNote(c.Request.Context(), payload.noteInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteResponse(note))
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	offset, limit, ok := paginationParams(c)
	if !ok {
		return
	}

	notes, err := h.service.ListNotes(c.Request.Context(), offset, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := make([]noteResponse, 0, len(notes))
	for i := range notes {
		response = append(response, newNoteResponse(&notes[i]))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	note, err := h.service.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteResponse(note))
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	var payload notePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.service.UpdateNote(c.Request.Context(), c.Param("id"), payload.noteInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteResponse(note))
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	if err := h.service.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Заметка удалена"})
}
