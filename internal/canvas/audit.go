package canvas

import (
	"encoding/json"

	"gorm.io/gorm"
)

// recordEvent appends an audit row inside the caller's transaction. Before
// and after snapshots are stored as opaque JSON; nil means the entity did
// not exist on that side of the mutation.
func (s *Service) recordEvent(tx *gorm.DB, action, entityType, entityID string, before, after any) error {
	oldData, err := snapshotJSON(before)
	if err != nil {
		return newServiceError("canvas.record_event", "old_snapshot_failed", err)
	}
	newData, err := snapshotJSON(after)
	if err != nil {
		return newServiceError("canvas.record_event", "new_snapshot_failed", err)
	}

	entry := EventLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldData:    oldData,
		NewData:    newData,
		Timestamp:  s.clock().UTC(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return newServiceError("canvas.record_event", "insert_failed", err)
	}
	return nil
}

func snapshotJSON(value any) (*string, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	encoded := string(raw)
	return &encoded, nil
}
