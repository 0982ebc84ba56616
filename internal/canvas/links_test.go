package canvas

import (
	"context"
	"errors"
	"testing"
)

func TestCreateTaskLinkValidatesPolymorphicTarget(t *testing.T) {
	db := newTestDatabase(t)
	service := newTestService(t, db, newTestClock())
	ctx := context.Background()

	source := mustCreateTask(t, service, TaskInput{})
	other := mustCreateTask(t, service, TaskInput{})

	// A task identifier is not a valid target when the tag says note.
	_, err := service.CreateTaskLink(ctx, TaskLinkInput{
		SourceID:   source.ID,
		TargetID:   other.ID,
		TargetType: TargetTypeNote,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a task id tagged as note, got %v", err)
	}

	note := mustCreateNote(t, service, NoteInput{})
	link, err := service.CreateTaskLink(ctx, TaskLinkInput{
		SourceID:   source.ID,
		TargetID:   note.ID,
		TargetType: TargetTypeNote,
	})
	if err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}
	if link.TargetType != TargetTypeNote {
		t.Fatalf("expected target type to persist as note, got %q", link.TargetType)
	}

	var stored TaskLink
	if err := db.Where("id = ?", link.ID).Take(&stored).Error; err != nil {
		t.Fatalf("failed to reload link: %v", err)
	}
	if stored.TargetType != TargetTypeNote {
		t.Fatalf("stored target type mismatch: %q", stored.TargetType)
	}
}

func TestCreateTaskLinkRejectsUnknownTargetType(t *testing.T) {
	db := newTestDatabase(t)
	service := newTestService(t, db, newTestClock())
	ctx := context.Background()

	source := mustCreateTask(t, service, TaskInput{})
	target := mustCreateTask(t, service, TaskInput{})

	_, err := service.CreateTaskLink(ctx, TaskLinkInput{
		SourceID:   source.ID,
		TargetID:   target.ID,
		TargetType: "bogus",
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	var count int64
	if err := db.Model(&TaskLink{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count links: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no link row after rejection, got %d", count)
	}
}

func TestCreateTaskLinkRequiresExistingSource(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())

	target := mustCreateTask(t, service, TaskInput{})
	_, err := service.CreateTaskLink(context.Background(), TaskLinkInput{
		SourceID: "missing",
		TargetID: target.ID,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing source, got %v", err)
	}
}

func TestCreateTaskLinkDefaultsLinkType(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	source := mustCreateTask(t, service, TaskInput{})
	target := mustCreateTask(t, service, TaskInput{})

	link, err := service.CreateTaskLink(ctx, TaskLinkInput{SourceID: source.ID, TargetID: target.ID})
	if err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}
	if link.LinkType != LinkTypeDependsOn {
		t.Fatalf("expected default link type depends_on, got %q", link.LinkType)
	}
	if link.TargetType != TargetTypeTask {
		t.Fatalf("expected default target type task, got %q", link.TargetType)
	}
}

func TestCreateTaskLinkRejectsDependencyCycle(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	a := mustCreateTask(t, service, TaskInput{})
	b := mustCreateTask(t, service, TaskInput{})
	c := mustCreateTask(t, service, TaskInput{})

	if _, err := service.CreateTaskLink(ctx, TaskLinkInput{SourceID: a.ID, TargetID: b.ID}); err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}
	if _, err := service.CreateTaskLink(ctx, TaskLinkInput{SourceID: b.ID, TargetID: c.ID}); err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}

	_, err := service.CreateTaskLink(ctx, TaskLinkInput{SourceID: c.ID, TargetID: a.ID})
	if !errors.Is(err, ErrLinkCycle) {
		t.Fatalf("expected ErrLinkCycle closing a->b->c->a, got %v", err)
	}

	_, err = service.CreateTaskLink(ctx, TaskLinkInput{SourceID: a.ID, TargetID: a.ID})
	if !errors.Is(err, ErrLinkCycle) {
		t.Fatalf("expected ErrLinkCycle on a self link, got %v", err)
	}
}

func TestCreateTaskLinkCyclePolicyDisabled(t *testing.T) {
	db := newTestDatabase(t)
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      newTestClock().Now,
		IDProvider: NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	ctx := context.Background()

	a := mustCreateTask(t, service, TaskInput{})
	b := mustCreateTask(t, service, TaskInput{})

	if _, err := service.CreateTaskLink(ctx, TaskLinkInput{SourceID: a.ID, TargetID: b.ID}); err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}
	if _, err := service.CreateTaskLink(ctx, TaskLinkInput{SourceID: b.ID, TargetID: a.ID}); err != nil {
		t.Fatalf("expected cycle to be allowed when the policy is off, got %v", err)
	}
}

func TestCreateNoteLinkValidatesBothEndpoints(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	source := mustCreateNote(t, service, NoteInput{})

	_, err := service.CreateNoteLink(ctx, NoteLinkInput{SourceID: source.ID, TargetID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing target note, got %v", err)
	}

	target := mustCreateNote(t, service, NoteInput{})
	link, err := service.CreateNoteLink(ctx, NoteLinkInput{SourceID: source.ID, TargetID: target.ID})
	if err != nil {
		t.Fatalf("unexpected note link error: %v", err)
	}
	if link.LinkType != LinkTypeLinkedTo {
		t.Fatalf("expected default link type linked_to, got %q", link.LinkType)
	}
}

func TestDeleteLinksByIdentifier(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	if err := service.DeleteTaskLink(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing task link, got %v", err)
	}
	if err := service.DeleteNoteLink(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing note link, got %v", err)
	}

	source := mustCreateTask(t, service, TaskInput{})
	target := mustCreateTask(t, service, TaskInput{})
	link, err := service.CreateTaskLink(ctx, TaskLinkInput{SourceID: source.ID, TargetID: target.ID})
	if err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}

	if err := service.DeleteTaskLink(ctx, link.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	links, err := service.ListTaskLinks(ctx)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected no links after delete, got %d", len(links))
	}
}
