package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationRenameCardsToTasks  = "2025-03-02_rename_cards_to_tasks"
	migrationRenameCardRefs      = "2025-03-02_rename_card_id_references"
	migrationRebuildTitleIndexes = "2025-03-09_rebuild_title_indexes"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

// schemaMigrations run before AutoMigrate so legacy tables and columns are
// renamed in place rather than recreated alongside their successors.
func schemaMigrations() []migrationDefinition {
	return []migrationDefinition{
		{name: migrationRenameCardsToTasks, apply: renameCardsToTasks},
		{name: migrationRenameCardRefs, apply: renameCardReferences},
	}
}

// postSchemaMigrations run after AutoMigrate, once every table exists.
func postSchemaMigrations() []migrationDefinition {
	return []migrationDefinition{
		{name: migrationRebuildTitleIndexes, apply: rebuildTitleIndexes},
	}
}

func applyMigrations(db *gorm.DB, logger *zap.Logger, migrations []migrationDefinition) error {
	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// renameCardsToTasks carries forward databases created before tasks and
// cards were split in the product vocabulary.
func renameCardsToTasks(db *gorm.DB) error {
	migrator := db.Migrator()
	if !migrator.HasTable("cards") || migrator.HasTable("tasks") {
		return nil
	}
	return migrator.RenameTable("cards", "tasks")
}

// renameCardReferences renames the legacy card_id foreign key columns on
// notes and files to task_id.
func renameCardReferences(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, table := range []string{"notes", "files"} {
		if !migrator.HasTable(table) {
			continue
		}
		if migrator.HasColumn(table, "card_id") && !migrator.HasColumn(table, "task_id") {
			if err := migrator.RenameColumn(table, "card_id", "task_id"); err != nil {
				return err
			}
		}
	}
	return nil
}

// rebuildTitleIndexes ensures the title lookup indexes exist for search on
// both card kinds.
func rebuildTitleIndexes(db *gorm.DB) error {
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tasks_title ON tasks (title)").Error; err != nil {
		return err
	}
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_notes_title ON notes (title)").Error
}
