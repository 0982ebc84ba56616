package canvas

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const (
	opCreateTaskLink = "canvas.create_task_link"
	opListTaskLinks  = "canvas.list_task_links"
	opDeleteTaskLink = "canvas.delete_task_link"
	opCreateNoteLink = "canvas.create_note_link"
	opListNoteLinks  = "canvas.list_note_links"
	opDeleteNoteLink = "canvas.delete_note_link"
)

// TaskLinkInput describes a typed edge from a task to a task or note.
type TaskLinkInput struct {
	SourceID   string
	TargetID   string
	LinkType   string
	TargetType string
}

// NoteLinkInput describes an edge between two notes.
type NoteLinkInput struct {
	SourceID string
	TargetID string
	LinkType string
}

// CreateTaskLink validates and persists a task link. The source must be an
// existing task and the target must exist in the table named by TargetType.
// When cycle rejection is enabled, a task→task link that would close a
// dependency cycle is refused.
func (s *Service) CreateTaskLink(ctx context.Context, input TaskLinkInput) (*TaskLink, error) {
	targetType := input.TargetType
	if targetType == "" {
		targetType = TargetTypeTask
	}
	if targetType != TargetTypeTask && targetType != TargetTypeNote {
		err := newServiceError(opCreateTaskLink, "invalid_target_type",
			fmt.Errorf("%w: link_target_type %q", ErrInvalidArgument, input.TargetType))
		s.logError(opCreateTaskLink, err)
		return nil, err
	}

	linkType := input.LinkType
	if linkType == "" {
		linkType = LinkTypeDependsOn
	}

	var link *TaskLink
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireTask(tx, opCreateTaskLink, "source_not_found", input.SourceID); err != nil {
			return err
		}
		switch targetType {
		case TargetTypeTask:
			if err := requireTask(tx, opCreateTaskLink, "target_not_found", input.TargetID); err != nil {
				return err
			}
		case TargetTypeNote:
			if err := requireNote(tx, opCreateTaskLink, "target_not_found", input.TargetID); err != nil {
				return err
			}
		}

		if s.rejectLinkCycles && targetType == TargetTypeTask {
			if err := rejectCycle(tx, input.SourceID, input.TargetID); err != nil {
				return err
			}
		}

		link = &TaskLink{
			SourceID:   input.SourceID,
			TargetID:   input.TargetID,
			LinkType:   linkType,
			TargetType: targetType,
			CreatedAt:  s.clock().UTC(),
		}
		if err := tx.Create(link).Error; err != nil {
			return newServiceError(opCreateTaskLink, "insert_failed", err)
		}
		return s.recordEvent(tx, ActionLink, "task_link", fmt.Sprint(link.ID), nil, link)
	})
	if err != nil {
		s.logError(opCreateTaskLink, err)
		return nil, err
	}
	return link, nil
}

// ListTaskLinks returns every task link in insertion order.
func (s *Service) ListTaskLinks(ctx context.Context) ([]TaskLink, error) {
	var links []TaskLink
	if err := s.db.WithContext(ctx).Order("id").Find(&links).Error; err != nil {
		s.logError(opListTaskLinks, err)
		return nil, newServiceError(opListTaskLinks, "query_failed", err)
	}
	return links, nil
}

// DeleteTaskLink removes a task link by identifier.
func (s *Service) DeleteTaskLink(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link TaskLink
		err := tx.Where("id = ?", id).Take(&link).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opDeleteTaskLink, "link_not_found",
				fmt.Errorf("%w: task link %d", ErrNotFound, id))
		}
		if err != nil {
			return newServiceError(opDeleteTaskLink, "query_failed", err)
		}
		if err := tx.Delete(&TaskLink{}, "id = ?", id).Error; err != nil {
			return newServiceError(opDeleteTaskLink, "delete_failed", err)
		}
		return s.recordEvent(tx, ActionUnlink, "task_link", fmt.Sprint(id), &link, nil)
	})
	if err != nil {
		s.logError(opDeleteTaskLink, err)
	}
	return err
}

// CreateNoteLink validates and persists a note link. Both endpoints must be
// existing notes; the original service skipped this check on note links only,
// and the asymmetry was judged an oversight.
func (s *Service) CreateNoteLink(ctx context.Context, input NoteLinkInput) (*NoteLink, error) {
	linkType := input.LinkType
	if linkType == "" {
		linkType = LinkTypeLinkedTo
	}

	var link *NoteLink
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireNote(tx, opCreateNoteLink, "source_not_found", input.SourceID); err != nil {
			return err
		}
		if err := requireNote(tx, opCreateNoteLink, "target_not_found", input.TargetID); err != nil {
			return err
		}

		link = &NoteLink{
			SourceID:  input.SourceID,
			TargetID:  input.TargetID,
			LinkType:  linkType,
			CreatedAt: s.clock().UTC(),
		}
		if err := tx.Create(link).Error; err != nil {
			return newServiceError(opCreateNoteLink, "insert_failed", err)
		}
		return s.recordEvent(tx, ActionLink, "note_link", fmt.Sprint(link.ID), nil, link)
	})
	if err != nil {
		s.logError(opCreateNoteLink, err)
		return nil, err
	}
	return link, nil
}

// ListNoteLinks returns every note link in insertion order.
func (s *Service) ListNoteLinks(ctx context.Context) ([]NoteLink, error) {
	var links []NoteLink
	if err := s.db.WithContext(ctx).Order("id").Find(&links).Error; err != nil {
		s.logError(opListNoteLinks, err)
		return nil, newServiceError(opListNoteLinks, "query_failed", err)
	}
	return links, nil
}

// DeleteNoteLink removes a note link by identifier.
func (s *Service) DeleteNoteLink(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link NoteLink
		err := tx.Where("id = ?", id).Take(&link).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opDeleteNoteLink, "link_not_found",
				fmt.Errorf("%w: note link %d", ErrNotFound, id))
		}
		if err != nil {
			return newServiceError(opDeleteNoteLink, "query_failed", err)
		}
		if err := tx.Delete(&NoteLink{}, "id = ?", id).Error; err != nil {
			return newServiceError(opDeleteNoteLink, "delete_failed", err)
		}
		return s.recordEvent(tx, ActionUnlink, "note_link", fmt.Sprint(id), &link, nil)
	})
	if err != nil {
		s.logError(opDeleteNoteLink, err)
	}
	return err
}

func requireTask(tx *gorm.DB, operation, reason, id string) error {
	var count int64
	if err := tx.Model(&Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return newServiceError(operation, "query_failed", err)
	}
	if count == 0 {
		return notFoundError(operation, reason, "task", id)
	}
	return nil
}

func requireNote(tx *gorm.DB, operation, reason, id string) error {
	var count int64
	if err := tx.Model(&Note{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return newServiceError(operation, "query_failed", err)
	}
	if count == 0 {
		return notFoundError(operation, reason, "note", id)
	}
	return nil
}

// rejectCycle refuses a source→target link when the target can already
// reach the source through existing task→task links. Breadth-first over the
// stored edges, bounded by a visited set.
func rejectCycle(tx *gorm.DB, sourceID, targetID string) error {
	if sourceID == targetID {
		return newServiceError(opCreateTaskLink, "cycle_detected",
			fmt.Errorf("%w: task %q cannot link to itself", ErrLinkCycle, sourceID))
	}

	visited := map[string]bool{targetID: true}
	frontier := []string{targetID}
	for len(frontier) > 0 {
		var next []TaskLink
		err := tx.Select("target_id").
			Where("source_id IN ? AND link_target_type = ?", frontier, TargetTypeTask).
			Find(&next).Error
		if err != nil {
			return newServiceError(opCreateTaskLink, "cycle_walk_failed", err)
		}

		frontier = frontier[:0]
		for _, edge := range next {
			if edge.TargetID == sourceID {
				return newServiceError(opCreateTaskLink, "cycle_detected",
					fmt.Errorf("%w: %q is already reachable from %q", ErrLinkCycle, sourceID, targetID))
			}
			if !visited[edge.TargetID] {
				visited[edge.TargetID] = true
				frontier = append(frontier, edge.TargetID)
			}
		}
	}
	return nil
}
