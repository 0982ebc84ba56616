package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kholst-labs/kholst/backend/internal/canvas"
)

type fileResponse struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Filepath  string    `json:"filepath"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	TaskID    *string   `json:"task_id"`
	NoteID    *string   `json:"note_id"`
	CreatedAt time.Time `json:"created_at"`
}

// handleUploadCardFile stores the multipart payload under the media root
// and records the attachment. Bytes are written before the insert; a failed
// insert leaves them orphaned (no cross-step rollback).
func (h *httpHandler) handleUploadCardFile(c *gin.Context) {
	taskID := c.Param("id")
	if _, err := h.service.GetTask(c.Request.Context(), taskID); err != nil {
		h.respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	source, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer source.Close()

	storedPath, size, err := h.store.Save(fileHeader.Filename, source)
	if err != nil {
		h.respondError(c, err)
		return
	}

	record, err := h.service.AttachFile(c.Request.Context(), canvas.FileInput{
		Filename: fileHeader.Filename,
		Filepath: storedPath,
		FileSize: size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		TaskID:   &taskID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, fileResponse{
		ID:        record.ID,
		Filename:  record.Filename,
		Filepath:  record.Filepath,
		FileSize:  record.FileSize,
		MimeType:  record.MimeType,
		TaskID:    record.TaskID,
		NoteID:    record.NoteID,
		CreatedAt: record.CreatedAt,
	})
}

// handleDownloadFile resolves a stored file to its /media URL. The static
// mount does the byte serving.
func (h *httpHandler) handleDownloadFile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_file_id"})
		return
	}

	url, err := h.service.FileURL(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
