package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kholst-labs/kholst/backend/internal/canvas"
)

// cardPayload is the partial-update wire shape shared by create and update.
// Nil fields were not supplied by the caller.
type cardPayload struct {
	Title    *string         `json:"title"`
	Content  json.RawMessage `json:"content"`
	X        *int            `json:"x"`
	Y        *int            `json:"y"`
	ZIndex   *int            `json:"z_index"`
	Width    *int            `json:"width"`
	Height   *int            `json:"height"`
	ParentID *string         `json:"parent_id"`
	TaskType *string         `json:"task_type"`
}

type taskResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	X         int             `json:"x"`
	Y         int             `json:"y"`
	ZIndex    int             `json:"z_index"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	ParentID  *string         `json:"parent_id"`
	TaskType  string          `json:"task_type"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at"`
}

func newTaskResponse(task *canvas.Task) taskResponse {
	return taskResponse{
		ID:        task.ID,
		Title:     task.Title,
		Content:   contentJSON(task.ContentJSON),
		X:         task.X,
		Y:         task.Y,
		ZIndex:    task.ZIndex,
		Width:     task.Width,
		Height:    task.Height,
		ParentID:  task.ParentID,
		TaskType:  task.TaskType,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}

func contentJSON(stored string) json.RawMessage {
	if stored == "" {
		return json.RawMessage("[]")
	}
	return json.RawMessage(stored)
}

func (p cardPayload) taskInput() canvas.TaskInput {
	return canvas.TaskInput{
		CardInput: canvas.CardInput{
			Title:   p.Title,
			Content: p.Content,
			X:       p.X,
			Y:       p.Y,
			ZIndex:  p.ZIndex,
			Width:   p.Width,
			Height:  p.Height,
		},
		ParentID: p.ParentID,
		TaskType: p.TaskType,
	}
}

func (h *httpHandler) handleCreateCard(c *gin.Context) {
	var payload cardPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), payload.taskInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *httpHandler) handleListCards(c *gin.Context) {
	offset, limit, ok := paginationParams(c)
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), offset, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		response = append(response, newTaskResponse(&tasks[i]))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleGetCard(c *gin.Context) {
	task, err := h.service.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *httpHandler) handleUpdateCard(c *gin.Context) {
	var payload cardPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), c.Param("id"), payload.taskInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *httpHandler) handleDeleteCard(c *gin.Context) {
	if err := h.service.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Карточка удалена"})
}
