// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for uploads and
// their report analyses.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healthsphere/go-health-backend/internal/domain"
)

// CreateUpload records an accepted report file for userID.
func CreateUpload(ctx context.Context, db *gorm.DB, userID, filename string) (*domain.Upload, error) {
	u := &domain.Upload{
		ID:        uuid.NewString(),
		UserID:    userID,
		Filename:  filename,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// ListUploads returns up to limit uploads for userID, newest first.
func ListUploads(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Upload, error) {
	var out []domain.Upload
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CreateReportAnalysis persists the OCR text and narrative analysis for an
// upload. Findings arrive pre-serialized as a JSON array of strings.
func CreateReportAnalysis(ctx context.Context, db *gorm.DB, a *domain.ReportAnalysis) (*domain.ReportAnalysis, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetReportAnalysis fetches the analysis for an upload owned by userID,
// or ErrNotFound.
func GetReportAnalysis(ctx context.Context, db *gorm.DB, uploadID, userID string) (*domain.ReportAnalysis, error) {
	var a domain.ReportAnalysis
	err := db.WithContext(ctx).
		Where("upload_id = ? AND user_id = ?", uploadID, userID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}
