// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Checkin
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a row is not found, functions return gorm.ErrRecordNotFound
//     (also exported in this package as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healthsphere/go-health-backend/internal/domain"
)

// CreateCheckin inserts a new check-in row owned by userID. Answers and
// questions arrive pre-serialized as JSON text; the record date is stored
// as given so the caller controls the calendar-day semantics.
func CreateCheckin(ctx context.Context, db *gorm.DB, c *domain.Checkin) (*domain.Checkin, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListCheckins returns up to limit check-ins for userID ordered by record
// date descending (most recent first). A limit <= 0 returns all rows.
func ListCheckins(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Checkin, error) {
	var out []domain.Checkin
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// LatestCheckin fetches the most recent check-in for userID, or ErrNotFound
// when the user has never submitted. The daily submission guard relies on
// this rather than on a unique constraint.
func LatestCheckin(ctx context.Context, db *gorm.DB, userID string) (*domain.Checkin, error) {
	var c domain.Checkin
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AttachAnalysis stores the narrative analysis JSON on an existing check-in.
// Analysis is attached server-side after submission and is read-only to
// clients. Returns ErrNotFound when the row is missing or not owned.
func AttachAnalysis(ctx context.Context, db *gorm.DB, id, userID, analysisJSON string) error {
	res := db.WithContext(ctx).
		Model(&domain.Checkin{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("llm_analysis", analysisJSON)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAnalyzedCheckins returns up to limit check-ins that carry a stored
// analysis, ordered by date ascending. The risk series is derived from these.
func ListAnalyzedCheckins(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Checkin, error) {
	var out []domain.Checkin
	q := db.WithContext(ctx).
		Where("user_id = ? AND llm_analysis IS NOT NULL", userID).
		Order("date asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountCheckins returns the total number of check-ins owned by userID.
func CountCheckins(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Checkin{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}
