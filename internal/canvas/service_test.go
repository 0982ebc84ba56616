package canvas

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateTaskAppliesDefaults(t *testing.T) {
	clock := newTestClock()
	service := newTestService(t, newTestDatabase(t), clock)

	task := mustCreateTask(t, service, TaskInput{})

	if task.ID == "" {
		t.Fatalf("expected server-assigned identifier")
	}
	if task.Title != defaultTaskTitle {
		t.Fatalf("unexpected default title: %q", task.Title)
	}
	if task.ContentJSON != "[]" {
		t.Fatalf("unexpected default content: %q", task.ContentJSON)
	}
	if task.X != 100 || task.Y != 100 {
		t.Fatalf("unexpected default position: %d,%d", task.X, task.Y)
	}
	if task.Width != 300 || task.Height != 200 {
		t.Fatalf("unexpected default size: %dx%d", task.Width, task.Height)
	}
	if task.ZIndex != 1 {
		t.Fatalf("expected first card to land on z-index 1, got %d", task.ZIndex)
	}
	if task.TaskType != "task" {
		t.Fatalf("unexpected default task type: %q", task.TaskType)
	}
	if !task.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("expected created_at from the service clock, got %v", task.CreatedAt)
	}
	if task.UpdatedAt != nil {
		t.Fatalf("expected updated_at to be null before the first update")
	}
}

func TestUpdateTaskStampsUpdatedAtAndKeepsCreatedAt(t *testing.T) {
	clock := newTestClock()
	service := newTestService(t, newTestDatabase(t), clock)
	ctx := context.Background()

	task := mustCreateTask(t, service, TaskInput{})
	createdAt := task.CreatedAt

	clock.Advance(time.Minute)
	updated, err := service.UpdateTask(ctx, task.ID, TaskInput{CardInput: CardInput{Title: strPtr("Корневая задача")}})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if !updated.CreatedAt.Equal(createdAt) {
		t.Fatalf("created_at changed on update: %v != %v", updated.CreatedAt, createdAt)
	}
	if updated.UpdatedAt == nil || !updated.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updated_at stamped by the clock, got %v", updated.UpdatedAt)
	}

	firstUpdate := *updated.UpdatedAt
	clock.Advance(time.Minute)
	updated, err = service.UpdateTask(ctx, task.ID, TaskInput{CardInput: CardInput{X: intPtr(5)}})
	if err != nil {
		t.Fatalf("unexpected second update error: %v", err)
	}
	if !updated.UpdatedAt.After(firstUpdate) {
		t.Fatalf("expected updated_at to move on every update")
	}
	if updated.Title != "Корневая задача" {
		t.Fatalf("partial update overwrote an unsupplied field: %q", updated.Title)
	}
}

func TestNextZIndexEmptyCanvasReturnsOne(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())

	next, err := service.NextZIndex(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected 1 on an empty canvas, got %d", next)
	}
}

func TestNextZIndexSpansTasksAndNotes(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	mustCreateTask(t, service, TaskInput{CardInput: CardInput{ZIndex: intPtr(3)}})
	mustCreateNote(t, service, NoteInput{CardInput: CardInput{ZIndex: intPtr(7)}})
	mustCreateTask(t, service, TaskInput{CardInput: CardInput{ZIndex: intPtr(2)}})

	next, err := service.NextZIndex(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != 8 {
		t.Fatalf("expected the max to span both kinds, got %d", next)
	}

	maxZ, err := service.MaxZIndex(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxZ != 7 {
		t.Fatalf("expected global max 7, got %d", maxZ)
	}
}

func TestCreateTaskWithoutZIndexTakesNextGlobalSlot(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())

	mustCreateNote(t, service, NoteInput{CardInput: CardInput{ZIndex: intPtr(4)}})
	task := mustCreateTask(t, service, TaskInput{})
	if task.ZIndex != 5 {
		t.Fatalf("expected z-index above the note, got %d", task.ZIndex)
	}
}

func TestGetTaskMissingReturnsNotFound(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())

	_, err := service.GetTask(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTaskDetachesChildrenNotesAndLinks(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	root := mustCreateTask(t, service, TaskInput{CardInput: CardInput{Title: strPtr("Root")}})
	child := mustCreateTask(t, service, TaskInput{ParentID: &root.ID})
	note := mustCreateNote(t, service, NoteInput{TaskID: &root.ID})
	if _, err := service.CreateTaskLink(ctx, TaskLinkInput{SourceID: root.ID, TargetID: child.ID}); err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}

	if err := service.DeleteTask(ctx, root.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	if _, err := service.GetTask(ctx, root.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted task to be gone, got %v", err)
	}

	tasks, err := service.ListTasks(ctx, 0, 0)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected only the child to remain, got %d tasks", len(tasks))
	}
	if tasks[0].ParentID != nil {
		t.Fatalf("expected child parent reference to be nullified, got %v", *tasks[0].ParentID)
	}

	reloaded, err := service.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("unexpected note error: %v", err)
	}
	if reloaded.TaskID != nil {
		t.Fatalf("expected note to be detached, got %v", *reloaded.TaskID)
	}

	links, err := service.ListTaskLinks(ctx)
	if err != nil {
		t.Fatalf("unexpected link list error: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected links touching the task to be removed, got %d", len(links))
	}
}

func TestDeleteTaskMissingReturnsNotFound(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())

	err := service.DeleteTask(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTaskRejectsSelfParent(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	task := mustCreateTask(t, service, TaskInput{})
	_, err := service.UpdateTask(ctx, task.ID, TaskInput{ParentID: &task.ID})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestUpdateTaskRejectsDescendantParent(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	parent := mustCreateTask(t, service, TaskInput{})
	child := mustCreateTask(t, service, TaskInput{ParentID: &parent.ID})
	grandchild := mustCreateTask(t, service, TaskInput{ParentID: &child.ID})

	_, err := service.UpdateTask(ctx, parent.ID, TaskInput{ParentID: &grandchild.ID})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected descendant parent to be rejected, got %v", err)
	}
}

func TestTaskByPosition(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	created := mustCreateTask(t, service, TaskInput{CardInput: CardInput{X: intPtr(42), Y: intPtr(17)}})

	found, err := service.TaskByPosition(ctx, 42, 17)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("expected exact-position match, got %#v", found)
	}

	missing, err := service.TaskByPosition(ctx, 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for an unoccupied position, got %#v", missing)
	}
}

func TestMutationsAppendToEventLog(t *testing.T) {
	db := newTestDatabase(t)
	service := newTestService(t, db, newTestClock())
	ctx := context.Background()

	task := mustCreateTask(t, service, TaskInput{})
	if _, err := service.UpdateTask(ctx, task.ID, TaskInput{CardInput: CardInput{X: intPtr(1)}}); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if err := service.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	var entries []EventLog
	if err := db.Order("id").Find(&entries).Error; err != nil {
		t.Fatalf("failed to load event log: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected one audit row per mutation, got %d", len(entries))
	}
	actions := []string{entries[0].Action, entries[1].Action, entries[2].Action}
	expected := []string{ActionCreate, ActionUpdate, ActionDelete}
	for i := range expected {
		if actions[i] != expected[i] {
			t.Fatalf("unexpected audit actions: %v", actions)
		}
	}
	if entries[0].OldData != nil {
		t.Fatalf("create snapshot should have no before image")
	}
	if entries[2].NewData != nil {
		t.Fatalf("delete snapshot should have no after image")
	}
}

func TestAttachFileValidatesOwnerAndResolvesURL(t *testing.T) {
	service := newTestService(t, newTestDatabase(t), newTestClock())
	ctx := context.Background()

	missing := "missing"
	_, err := service.AttachFile(ctx, FileInput{Filename: "a.png", Filepath: "media/x_a.png", MimeType: "image/png", TaskID: &missing})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing owner, got %v", err)
	}

	task := mustCreateTask(t, service, TaskInput{})
	record, err := service.AttachFile(ctx, FileInput{
		Filename: "diagram.png",
		Filepath: "media/abc_diagram.png",
		FileSize: 3,
		MimeType: "image/png",
		TaskID:   &task.ID,
	})
	if err != nil {
		t.Fatalf("unexpected attach error: %v", err)
	}

	url, err := service.FileURL(ctx, record.ID)
	if err != nil {
		t.Fatalf("unexpected url error: %v", err)
	}
	if url != "/media/abc_diagram.png" {
		t.Fatalf("unexpected media url: %q", url)
	}

	if _, err := service.FileURL(ctx, record.ID+1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing file, got %v", err)
	}
}
