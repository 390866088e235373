package migrations

import (
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DataMigration is one applied entry of the data_migrations ledger.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

// Migration is a data fix that schema auto-migration cannot express.
type Migration struct {
	ID string
	Fn func(*gorm.DB) error
}

// registered runs in order. Append only; ids are stored and must never change.
var registered = []Migration{
	{ID: "00001_normalize_position_state", Fn: normalizePositionState},
	{ID: "00002_uppercase_order_symbols", Fn: uppercaseOrderSymbols},
}

// RunOnce runs fn only if migrationID was not executed before.
// It records the migration as executed only after fn succeeds.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) error {
	if db == nil {
		return nil
	}
	if migrationID == "" {
		return fmt.Errorf("migration id is empty")
	}
	if fn == nil {
		return fmt.Errorf("migration %q has nil fn", migrationID)
	}

	if err := db.AutoMigrate(&DataMigration{}); err != nil {
		return fmt.Errorf("ensure data migrations table: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var m DataMigration
		err := tx.First(&m, "id = ?", migrationID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check migration %q: %w", migrationID, err)
		}

		if err := fn(tx); err != nil {
			return fmt.Errorf("run migration %q: %w", migrationID, err)
		}

		rec := DataMigration{
			ID:        migrationID,
			AppliedAt: time.Now().UTC(),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}
		logger.WithField("migration", migrationID).Info("[database] data migration applied")
		return nil
	})
}

// Run executes every registered migration that has not been applied yet.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	for _, m := range registered {
		if err := RunOnce(db, m.ID, m.Fn); err != nil {
			return err
		}
	}
	return nil
}

// Applied returns the ids recorded in data_migrations, oldest first.
func Applied(db *gorm.DB) ([]string, error) {
	var rows []DataMigration
	if err := db.Order("applied_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
