package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "canvas.service.new"
	opCreateTask = "canvas.create_task"
	opGetTask    = "canvas.get_task"
	opListTasks  = "canvas.list_tasks"
	opUpdateTask = "canvas.update_task"
	opDeleteTask = "canvas.delete_task"
	opCreateNote = "canvas.create_note"
	opGetNote    = "canvas.get_note"
	opListNotes  = "canvas.list_notes"
	opUpdateNote = "canvas.update_note"
	opDeleteNote = "canvas.delete_note"
	opNextZIndex = "canvas.next_z_index"
	opSearch     = "canvas.search"
	opAttachFile = "canvas.attach_file"
	opFileURL    = "canvas.file_url"
	opByPosition = "canvas.by_position"
)

const defaultListLimit = 100

// ServiceConfig describes the dependencies of the canvas service.
type ServiceConfig struct {
	Database         *gorm.DB
	Clock            func() time.Time
	IDProvider       IDProvider
	Logger           *zap.Logger
	RejectLinkCycles bool
}

// Service implements the canvas domain: card CRUD, the shared stacking
// order, links, search and the graph projection.
type Service struct {
	db               *gorm.DB
	clock            func() time.Time
	idProvider       IDProvider
	logger           *zap.Logger
	rejectLinkCycles bool
}

// NewService validates dependencies and constructs the canvas service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:               cfg.Database,
		clock:            clock,
		idProvider:       cfg.IDProvider,
		logger:           logger,
		rejectLinkCycles: cfg.RejectLinkCycles,
	}, nil
}

// CardInput carries the caller-supplied card fields. Nil pointers mean the
// field was not supplied; creation applies defaults and updates leave the
// stored value untouched.
type CardInput struct {
	Title   *string
	Content json.RawMessage
	X       *int
	Y       *int
	ZIndex  *int
	Width   *int
	Height  *int
}

// TaskInput extends CardInput with task-specific fields.
type TaskInput struct {
	CardInput
	ParentID *string
	TaskType *string
}

// NoteInput extends CardInput with note-specific fields.
type NoteInput struct {
	CardInput
	TaskID   *string
	NoteType *string
}

// CreateTask persists a new task with defaults applied and a fresh
// identifier and stacking position assigned server-side.
func (s *Service) CreateTask(ctx context.Context, input TaskInput) (*Task, error) {
	card, err := s.newCard(ctx, opCreateTask, input.CardInput, defaultTaskTitle)
	if err != nil {
		return nil, err
	}

	task := &Task{
		Card:     card,
		ParentID: input.ParentID,
		TaskType: defaultTaskType,
	}
	if input.TaskType != nil {
		task.TaskType = *input.TaskType
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return newServiceError(opCreateTask, "insert_failed", err)
		}
		return s.recordEvent(tx, ActionCreate, TargetTypeTask, task.ID, nil, task)
	})
	if err != nil {
		s.logError(opCreateTask, err)
		return nil, err
	}
	return task, nil
}

// GetTask returns the task with the given identifier.
func (s *Service) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(opGetTask, "task_not_found", "task", id)
	}
	if err != nil {
		s.logError(opGetTask, err)
		return nil, newServiceError(opGetTask, "query_failed", err)
	}
	return &task, nil
}

// ListTasks returns tasks ordered by creation time, paginated.
func (s *Service) ListTasks(ctx context.Context, offset, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var tasks []Task
	err := s.db.WithContext(ctx).
		Order("created_at, id").
		Offset(offset).
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		s.logError(opListTasks, err)
		return nil, newServiceError(opListTasks, "query_failed", err)
	}
	return tasks, nil
}

// UpdateTask applies a partial update. Only supplied fields change; the
// identifier and created_at are immutable and updated_at is stamped by the
// service clock. Parent reassignment rejects self and descendants.
func (s *Service) UpdateTask(ctx context.Context, id string, input TaskInput) (*Task, error) {
	var updated *Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task Task
		err := tx.Where("id = ?", id).Take(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(opUpdateTask, "task_not_found", "task", id)
		}
		if err != nil {
			return newServiceError(opUpdateTask, "query_failed", err)
		}
		before := task

		applyCardInput(&task.Card, input.CardInput)
		if input.TaskType != nil {
			task.TaskType = *input.TaskType
		}
		if input.ParentID != nil {
			if err := validateParent(tx, task.ID, *input.ParentID); err != nil {
				return err
			}
			task.ParentID = input.ParentID
		}

		now := s.clock().UTC()
		task.UpdatedAt = &now

		if err := tx.Save(&task).Error; err != nil {
			return newServiceError(opUpdateTask, "save_failed", err)
		}
		if err := s.recordEvent(tx, ActionUpdate, TargetTypeTask, task.ID, &before, &task); err != nil {
			return err
		}
		updated = &task
		return nil
	})
	if err != nil {
		s.logError(opUpdateTask, err)
		return nil, err
	}
	return updated, nil
}

// DeleteTask removes a task under the nullify-then-delete policy: children
// lose their parent reference, attached notes are detached, and file
// records plus links touching the task are removed in the same transaction.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task Task
		err := tx.Where("id = ?", id).Take(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(opDeleteTask, "task_not_found", "task", id)
		}
		if err != nil {
			return newServiceError(opDeleteTask, "query_failed", err)
		}

		if err := tx.Model(&Task{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
			return newServiceError(opDeleteTask, "detach_children_failed", err)
		}
		if err := tx.Model(&Note{}).Where("task_id = ?", id).Update("task_id", nil).Error; err != nil {
			return newServiceError(opDeleteTask, "detach_notes_failed", err)
		}
		if err := tx.Where("task_id = ?", id).Delete(&File{}).Error; err != nil {
			return newServiceError(opDeleteTask, "delete_files_failed", err)
		}
		if err := tx.Where("source_id = ? OR (target_id = ? AND link_target_type = ?)", id, id, TargetTypeTask).
			Delete(&TaskLink{}).Error; err != nil {
			return newServiceError(opDeleteTask, "delete_links_failed", err)
		}
		if err := tx.Delete(&Task{}, "id = ?", id).Error; err != nil {
			return newServiceError(opDeleteTask, "delete_failed", err)
		}
		return s.recordEvent(tx, ActionDelete, TargetTypeTask, id, &task, nil)
	})
	if err != nil {
		s.logError(opDeleteTask, err)
	}
	return err
}

// CreateNote persists a new note with defaults applied.
func (s *Service) CreateNote(ctx context.Context, input NoteInput) (*Note, error) {
	card, err := s.newCard(ctx, opCreateNote, input.CardInput, defaultNoteTitle)
	if err != nil {
		return nil, err
	}

	note := &Note{
		Card:     card,
		TaskID:   input.TaskID,
		NoteType: defaultNoteType,
	}
	if input.NoteType != nil {
		note.NoteType = *input.NoteType
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(note).Error; err != nil {
			return newServiceError(opCreateNote, "insert_failed", err)
		}
		return s.recordEvent(tx, ActionCreate, TargetTypeNote, note.ID, nil, note)
	})
	if err != nil {
		s.logError(opCreateNote, err)
		return nil, err
	}
	return note, nil
}

// GetNote returns the note with the given identifier.
func (s *Service) GetNote(ctx context.Context, id string) (*Note, error) {
	var note Note
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(opGetNote, "note_not_found", "note", id)
	}
	if err != nil {
		s.logError(opGetNote, err)
		return nil, newServiceError(opGetNote, "query_failed", err)
	}
	return &note, nil
}

// ListNotes returns notes ordered by creation time, paginated.
func (s *Service) ListNotes(ctx context.Context, offset, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var notes []Note
	err := s.db.WithContext(ctx).
		Order("created_at, id").
		Offset(offset).
		Limit(limit).
		Find(&notes).Error
	if err != nil {
		s.logError(opListNotes, err)
		return nil, newServiceError(opListNotes, "query_failed", err)
	}
	return notes, nil
}

// UpdateNote applies a partial update with the same semantics as UpdateTask.
func (s *Service) UpdateNote(ctx context.Context, id string, input NoteInput) (*Note, error) {
	var updated *Note
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note Note
		err := tx.Where("id = ?", id).Take(&note).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(opUpdateNote, "note_not_found", "note", id)
		}
		if err != nil {
			return newServiceError(opUpdateNote, "query_failed", err)
		}
		before := note

		applyCardInput(&note.Card, input.CardInput)
		if input.NoteType != nil {
			note.NoteType = *input.NoteType
		}
		if input.TaskID != nil {
			note.TaskID = input.TaskID
		}

		now := s.clock().UTC()
		note.UpdatedAt = &now

		if err := tx.Save(&note).Error; err != nil {
			return newServiceError(opUpdateNote, "save_failed", err)
		}
		if err := s.recordEvent(tx, ActionUpdate, TargetTypeNote, note.ID, &before, &note); err != nil {
			return err
		}
		updated = &note
		return nil
	})
	if err != nil {
		s.logError(opUpdateNote, err)
		return nil, err
	}
	return updated, nil
}

// DeleteNote removes a note, its file records and every link touching it.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note Note
		err := tx.Where("id = ?", id).Take(&note).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(opDeleteNote, "note_not_found", "note", id)
		}
		if err != nil {
			return newServiceError(opDeleteNote, "query_failed", err)
		}

		if err := tx.Where("note_id = ?", id).Delete(&File{}).Error; err != nil {
			return newServiceError(opDeleteNote, "delete_files_failed", err)
		}
		if err := tx.Where("source_id = ? OR target_id = ?", id, id).Delete(&NoteLink{}).Error; err != nil {
			return newServiceError(opDeleteNote, "delete_note_links_failed", err)
		}
		if err := tx.Where("target_id = ? AND link_target_type = ?", id, TargetTypeNote).
			Delete(&TaskLink{}).Error; err != nil {
			return newServiceError(opDeleteNote, "delete_task_links_failed", err)
		}
		if err := tx.Delete(&Note{}, "id = ?", id).Error; err != nil {
			return newServiceError(opDeleteNote, "delete_failed", err)
		}
		return s.recordEvent(tx, ActionDelete, TargetTypeNote, id, &note, nil)
	})
	if err != nil {
		s.logError(opDeleteNote, err)
	}
	return err
}

// TaskByPosition returns the first task at the exact coordinates, or nil.
// Tie-break among cards sharing a position is undefined.
func (s *Service) TaskByPosition(ctx context.Context, x, y int) (*Task, error) {
	var task Task
	err := s.db.WithContext(ctx).Where("x = ? AND y = ?", x, y).Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logError(opByPosition, err)
		return nil, newServiceError(opByPosition, "query_failed", err)
	}
	return &task, nil
}

// NoteByPosition returns the first note at the exact coordinates, or nil.
func (s *Service) NoteByPosition(ctx context.Context, x, y int) (*Note, error) {
	var note Note
	err := s.db.WithContext(ctx).Where("x = ? AND y = ?", x, y).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logError(opByPosition, err)
		return nil, newServiceError(opByPosition, "query_failed", err)
	}
	return &note, nil
}

// NextZIndex computes the next stacking position. Tasks and notes share a
// single global order, so the maximum spans both tables. Always derived
// from stored maxima, never cached.
func (s *Service) NextZIndex(ctx context.Context) (int, error) {
	return nextZIndex(s.db.WithContext(ctx))
}

// MaxZIndex returns the current global maximum z-index, zero when the
// canvas is empty.
func (s *Service) MaxZIndex(ctx context.Context) (int, error) {
	next, err := s.NextZIndex(ctx)
	if err != nil {
		return 0, err
	}
	return next - 1, nil
}

func nextZIndex(tx *gorm.DB) (int, error) {
	var maxTask, maxNote int
	if err := tx.Model(&Task{}).Select("COALESCE(MAX(z_index), 0)").Scan(&maxTask).Error; err != nil {
		return 0, newServiceError(opNextZIndex, "task_max_failed", err)
	}
	if err := tx.Model(&Note{}).Select("COALESCE(MAX(z_index), 0)").Scan(&maxNote).Error; err != nil {
		return 0, newServiceError(opNextZIndex, "note_max_failed", err)
	}
	if maxNote > maxTask {
		return maxNote + 1, nil
	}
	return maxTask + 1, nil
}

// SearchResult holds the independently matched task and note slices.
type SearchResult struct {
	Tasks []Task
	Notes []Note
}

// Search matches the query case-insensitively against titles only. Case
// folding runs in Go because sqlite's LIKE only folds ASCII and titles are
// routinely Cyrillic.
func (s *Service) Search(ctx context.Context, query string) (SearchResult, error) {
	var tasks []Task
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&tasks).Error; err != nil {
		s.logError(opSearch, err)
		return SearchResult{}, newServiceError(opSearch, "list_tasks_failed", err)
	}
	var notes []Note
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&notes).Error; err != nil {
		s.logError(opSearch, err)
		return SearchResult{}, newServiceError(opSearch, "list_notes_failed", err)
	}

	result := SearchResult{Tasks: make([]Task, 0), Notes: make([]Note, 0)}
	for _, task := range tasks {
		if titleMatches(task.Title, query) {
			result.Tasks = append(result.Tasks, task)
		}
	}
	for _, note := range notes {
		if titleMatches(note.Title, query) {
			result.Notes = append(result.Notes, note)
		}
	}
	return result, nil
}

func titleMatches(title, query string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(query))
}

// FileInput describes an attachment record to persist after its bytes have
// been written under the media root.
type FileInput struct {
	Filename string
	Filepath string
	FileSize int64
	MimeType string
	TaskID   *string
	NoteID   *string
}

// AttachFile persists a file record. The owning task or note must exist.
func (s *Service) AttachFile(ctx context.Context, input FileInput) (*File, error) {
	if input.TaskID != nil {
		if _, err := s.GetTask(ctx, *input.TaskID); err != nil {
			return nil, err
		}
	}
	if input.NoteID != nil {
		if _, err := s.GetNote(ctx, *input.NoteID); err != nil {
			return nil, err
		}
	}

	record := &File{
		Filename:  input.Filename,
		Filepath:  input.Filepath,
		FileSize:  input.FileSize,
		MimeType:  input.MimeType,
		TaskID:    input.TaskID,
		NoteID:    input.NoteID,
		CreatedAt: s.clock().UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return newServiceError(opAttachFile, "insert_failed", err)
		}
		return s.recordEvent(tx, ActionCreate, "file", record.Filename, nil, record)
	})
	if err != nil {
		s.logError(opAttachFile, err)
		return nil, err
	}
	return record, nil
}

// FileURL resolves the public media URL for a stored file. No byte
// streaming happens here; the static /media mount serves the content.
func (s *Service) FileURL(ctx context.Context, id int64) (string, error) {
	var record File
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", newServiceError(opFileURL, "file_not_found",
			fmt.Errorf("%w: file %d", ErrNotFound, id))
	}
	if err != nil {
		s.logError(opFileURL, err)
		return "", newServiceError(opFileURL, "query_failed", err)
	}
	return "/media/" + path.Base(record.Filepath), nil
}

func (s *Service) newCard(ctx context.Context, operation string, input CardInput, defaultTitle string) (Card, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		return Card{}, newServiceError(operation, "id_generation_failed", err)
	}

	card := Card{
		ID:          id,
		Title:       defaultTitle,
		ContentJSON: emptyContent,
		X:           defaultPositionX,
		Y:           defaultPositionY,
		Width:       defaultWidth,
		Height:      defaultHeight,
		CreatedAt:   s.clock().UTC(),
	}
	applyCardInput(&card, input)

	if input.ZIndex == nil {
		next, err := nextZIndex(s.db.WithContext(ctx))
		if err != nil {
			return Card{}, err
		}
		card.ZIndex = next
	}
	return card, nil
}

func applyCardInput(card *Card, input CardInput) {
	if input.Title != nil {
		card.Title = *input.Title
	}
	if input.Content != nil {
		card.ContentJSON = string(input.Content)
	}
	if input.X != nil {
		card.X = *input.X
	}
	if input.Y != nil {
		card.Y = *input.Y
	}
	if input.ZIndex != nil {
		card.ZIndex = *input.ZIndex
	}
	if input.Width != nil {
		card.Width = *input.Width
	}
	if input.Height != nil {
		card.Height = *input.Height
	}
}

// validateParent rejects parent assignment to the task itself or to any of
// its descendants with a bounded ancestor walk from the candidate parent.
func validateParent(tx *gorm.DB, taskID, parentID string) error {
	if parentID == taskID {
		return newServiceError(opUpdateTask, "parent_is_self",
			fmt.Errorf("%w: task cannot be its own parent", ErrInvalidArgument))
	}

	seen := map[string]bool{}
	current := parentID
	for current != "" && !seen[current] {
		seen[current] = true
		var ancestor Task
		err := tx.Select("id", "parent_id").Where("id = ?", current).Take(&ancestor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(opUpdateTask, "parent_not_found", "task", current)
		}
		if err != nil {
			return newServiceError(opUpdateTask, "ancestor_walk_failed", err)
		}
		if ancestor.ParentID == nil {
			return nil
		}
		if *ancestor.ParentID == taskID {
			return newServiceError(opUpdateTask, "parent_is_descendant",
				fmt.Errorf("%w: task cannot be parented to its own descendant", ErrInvalidArgument))
		}
		current = *ancestor.ParentID
	}
	return nil
}

func (s *Service) logError(operation string, err error) {
	if err == nil {
		return
	}
	logger := s.logger
	if logger == nil {
		logger = noOpLogger
	}
	logger.Error("canvas service error", zap.String("operation", operation), zap.Error(err))
}
