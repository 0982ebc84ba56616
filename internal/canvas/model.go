package canvas

import "time"

// Link target kinds stored on task links. The relational schema cannot
// express a foreign key to either of two tables, so the tag is the only
// discriminant and existence is checked in application code at write time.
const (
	TargetTypeTask = "task"
	TargetTypeNote = "note"
)

// Default semantic link types.
const (
	LinkTypeDependsOn = "depends_on"
	LinkTypeLinkedTo  = "linked_to"
)

// Audit actions recorded in the event log.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionLink   = "link"
	ActionUnlink = "unlink"
)

const (
	defaultTaskTitle = "Новая задача"
	defaultNoteTitle = "Новая заметка"
	defaultTaskType  = "task"
	defaultNoteType  = "note"
	defaultPositionX = 100
	defaultPositionY = 100
	defaultWidth     = 300
	defaultHeight    = 200
	emptyContent     = "[]"
)

// Card is the shared shape of canvas items, embedded by value in Task and
// Note. The identifier is immutable after creation; created_at is written
// once and updated_at stays null until the first mutation, both stamped by
// the service clock rather than by GORM's timestamp tracking.
type Card struct {
	ID          string     `gorm:"column:id;primaryKey;size:190;not null"`
	Title       string     `gorm:"column:title;not null;index"`
	ContentJSON string     `gorm:"column:content;type:text;not null;default:'[]'"`
	X           int        `gorm:"column:x;not null;default:0"`
	Y           int        `gorm:"column:y;not null;default:0"`
	ZIndex      int        `gorm:"column:z_index;not null;default:0"`
	Width       int        `gorm:"column:width;not null;default:300"`
	Height      int        `gorm:"column:height;not null;default:200"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt   *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

// Task is a canvas work item, optionally nested under a parent task.
type Task struct {
	Card     `gorm:"embedded"`
	ParentID *string `gorm:"column:parent_id;size:190;index"`
	TaskType string  `gorm:"column:task_type;not null;default:task"`
}

// TableName provides the explicit table binding for GORM.
func (Task) TableName() string {
	return "tasks"
}

// Note is a canvas note, optionally attached to a single owning task.
type Note struct {
	Card     `gorm:"embedded"`
	TaskID   *string `gorm:"column:task_id;size:190;index"`
	NoteType string  `gorm:"column:note_type;not null;default:note"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// File records an uploaded attachment. Rows are immutable after creation;
// at most one of TaskID and NoteID is set by the upload paths, though the
// schema keeps both nullable without a check constraint.
type File struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Filename  string    `gorm:"column:filename;not null"`
	Filepath  string    `gorm:"column:filepath;not null"`
	FileSize  int64     `gorm:"column:file_size;not null"`
	MimeType  string    `gorm:"column:mime_type;not null"`
	TaskID    *string   `gorm:"column:task_id;size:190;index"`
	NoteID    *string   `gorm:"column:note_id;size:190;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (File) TableName() string {
	return "files"
}

// TaskLink is a directed, typed edge from a task to either a task or a
// note, disambiguated by TargetType.
type TaskLink struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SourceID   string    `gorm:"column:source_id;size:190;not null;index"`
	TargetID   string    `gorm:"column:target_id;size:190;not null;index"`
	LinkType   string    `gorm:"column:link_type;not null"`
	TargetType string    `gorm:"column:link_target_type;not null;default:task"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (TaskLink) TableName() string {
	return "task_links"
}

// NoteLink is a directed edge between two notes. Storage is directional;
// "linked_to" symmetry is the caller's responsibility.
type NoteLink struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SourceID  string    `gorm:"column:source_id;size:190;not null;index"`
	TargetID  string    `gorm:"column:target_id;size:190;not null;index"`
	LinkType  string    `gorm:"column:link_type;not null;default:linked_to"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (NoteLink) TableName() string {
	return "note_links"
}

// EventLog captures an append-only audit trail for every mutation. UserID
// is a placeholder for future multi-user support and is never populated by
// the current handlers.
type EventLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Action     string    `gorm:"column:action;not null"`
	EntityType string    `gorm:"column:entity_type;not null"`
	EntityID   string    `gorm:"column:entity_id;not null"`
	UserID     *string   `gorm:"column:user_id;size:190"`
	OldData    *string   `gorm:"column:old_data;type:text"`
	NewData    *string   `gorm:"column:new_data;type:text"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;autoCreateTime:false"`
	Details    string    `gorm:"column:details;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (EventLog) TableName() string {
	return "event_logs"
}

// Models lists every persisted type for schema migration.
func Models() []any {
	return []any{&Task{}, &Note{}, &File{}, &TaskLink{}, &NoteLink{}, &EventLog{}}
}
