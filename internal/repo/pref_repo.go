// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the keyed preference rows behind the
// preference store. Writes are unconditional upserts: the table's contract
// is last-writer-wins with no locking across concurrent clients.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/healthsphere/go-health-backend/internal/domain"
)

// GetPreference fetches one preference value by full key, or ErrNotFound.
func GetPreference(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var p domain.Preference
	if err := db.WithContext(ctx).Where("key = ?", key).First(&p).Error; err != nil {
		return "", err
	}
	return p.Value, nil
}

// SetPreference upserts one preference value. The newer UpdatedAt simply
// replaces the older row; concurrent writers overwrite each other.
func SetPreference(ctx context.Context, db *gorm.DB, key, value string) error {
	p := domain.Preference{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&p).Error
}

// DeletePreference removes one preference row. Missing keys are not an error.
func DeletePreference(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Where("key = ?", key).Delete(&domain.Preference{}).Error
}
