package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/healthsphere/go-health-backend/internal/domain"
)

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCheckin(t *testing.T, db *gorm.DB, userID string, date time.Time) *domain.Checkin {
	t.Helper()
	c, err := CreateCheckin(context.Background(), db, &domain.Checkin{
		UserID:          userID,
		Date:            date,
		Answers:         `{"headache":"None"}`,
		QuestionVersion: "fallback-v1",
	})
	if err != nil {
		t.Fatalf("create checkin: %v", err)
	}
	return c
}

func TestListCheckins_NewestFirstAndLimited(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedCheckin(t, db, "u1", base.AddDate(0, 0, i))
	}
	seedCheckin(t, db, "u2", base)

	got, err := ListCheckins(ctx, db, "u1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.After(got[i-1].Date) {
			t.Fatalf("not descending at %d", i)
		}
	}

	all, err := ListCheckins(ctx, db, "u1", 0)
	if err != nil || len(all) != 5 {
		t.Fatalf("unlimited len = %d err=%v", len(all), err)
	}
}

func TestLatestCheckin(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if _, err := LatestCheckin(ctx, db, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty err = %v", err)
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seedCheckin(t, db, "u1", base)
	newest := seedCheckin(t, db, "u1", base.AddDate(0, 0, 3))

	got, err := LatestCheckin(ctx, db, "u1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.ID != newest.ID {
		t.Fatalf("latest = %s want %s", got.ID, newest.ID)
	}
}

func TestAttachAnalysis_OwnershipEnforced(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	c := seedCheckin(t, db, "u1", time.Now().UTC())

	if err := AttachAnalysis(ctx, db, c.ID, "u2", `{"risk_score":0.5}`); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user attach err = %v", err)
	}
	if err := AttachAnalysis(ctx, db, c.ID, "u1", `{"risk_score":0.5}`); err != nil {
		t.Fatalf("attach: %v", err)
	}

	got, err := LatestCheckin(ctx, db, "u1")
	if err != nil || got.Analysis == nil {
		t.Fatalf("analysis not stored, err=%v", err)
	}
}

func TestListAnalyzedCheckins_AscendingAnalyzedOnly(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		c := seedCheckin(t, db, "u1", base.AddDate(0, 0, i))
		if i%2 == 0 {
			if err := AttachAnalysis(ctx, db, c.ID, "u1", fmt.Sprintf(`{"risk_score":0.%d}`, i)); err != nil {
				t.Fatalf("attach: %v", err)
			}
		}
	}

	got, err := ListAnalyzedCheckins(ctx, db, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if !got[0].Date.Before(got[1].Date) {
		t.Fatal("not ascending")
	}
}

func TestCheckinStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	count, maxUpdated, err := CheckinStats(ctx, db, "u1")
	if err != nil || count != 0 || maxUpdated != nil {
		t.Fatalf("empty stats = %d %v err=%v", count, maxUpdated, err)
	}

	seedCheckin(t, db, "u1", time.Now().UTC())
	seedCheckin(t, db, "u1", time.Now().UTC().AddDate(0, 0, -1))

	count, maxUpdated, err = CheckinStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 || maxUpdated == nil {
		t.Fatalf("stats = %d %v", count, maxUpdated)
	}
}
