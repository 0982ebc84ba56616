package canvas

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "canvas.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

// manualClock lets tests advance service time between mutations.
type manualClock struct {
	current time.Time
}

func (c *manualClock) Now() time.Time {
	return c.current
}

func (c *manualClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestClock() *manualClock {
	return &manualClock{current: time.Unix(1700000000, 0).UTC()}
}

func newTestService(t *testing.T, db *gorm.DB, clock *manualClock) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Database:         db,
		Clock:            clock.Now,
		IDProvider:       NewUUIDProvider(),
		RejectLinkCycles: true,
	})
	if err != nil {
		t.Fatalf("failed to build canvas service: %v", err)
	}
	return service
}

func strPtr(value string) *string {
	return &value
}

func intPtr(value int) *int {
	return &value
}

func mustCreateTask(t *testing.T, service *Service, input TaskInput) *Task {
	t.Helper()
	task, err := service.CreateTask(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected create task error: %v", err)
	}
	return task
}

func mustCreateNote(t *testing.T, service *Service, input NoteInput) *Note {
	t.Helper()
	note, err := service.CreateNote(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected create note error: %v", err)
	}
	return note
}
