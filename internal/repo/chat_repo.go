// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatTurn
// model (one row per user/assistant exchange).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healthsphere/go-health-backend/internal/domain"
)

// CreateChatTurn inserts a completed user/assistant exchange.
func CreateChatTurn(ctx context.Context, db *gorm.DB, t *domain.ChatTurn) (*domain.ChatTurn, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// ListChatTurns returns up to limit turns for userID ordered deterministically
// oldest first (CreatedAt ASC, ID ASC). A limit <= 0 returns all rows.
func ListChatTurns(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.ChatTurn, error) {
	var out []domain.ChatTurn
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// RecentChatTurns returns the newest limit turns in oldest-first order, for
// building conversation context windows.
func RecentChatTurns(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.ChatTurn, error) {
	var out []domain.ChatTurn
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	// Reverse to oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DeleteChatTurns removes every turn belonging to userID ("clear
// conversation"). Soft deletion keeps rows for audit.
func DeleteChatTurns(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.ChatTurn{}).Error
}

// CountChatTurns returns the total number of turns for userID.
func CountChatTurns(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatTurn{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}
