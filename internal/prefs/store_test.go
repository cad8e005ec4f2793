package prefs

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/healthsphere/go-health-backend/internal/repo"
)

func newPrefsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:prefs_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestKey_AnonymousFallback(t *testing.T) {
	if got := Key("chat", "u1", "history"); got != "chat:u1:history" {
		t.Fatalf("key = %q", got)
	}
	if got := Key("chat", "", "history"); got != "chat:anonymous:history" {
		t.Fatalf("empty identity key = %q", got)
	}
	if got := Key("chat", "   ", "history"); got != "chat:anonymous:history" {
		t.Fatalf("blank identity key = %q", got)
	}
}

func TestStore_StringRoundTrip(t *testing.T) {
	s := NewStore(newPrefsDB(t))
	ctx := context.Background()

	got, err := s.GetString(ctx, "chat", "u1", "history", "fallback")
	if err != nil || got != "fallback" {
		t.Fatalf("unset read = %q err=%v", got, err)
	}

	if err := s.SetString(ctx, "chat", "u1", "history", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetString(ctx, "chat", "u1", "history", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = s.GetString(ctx, "chat", "u1", "history", "")
	if err != nil || got != "v2" {
		t.Fatalf("read = %q err=%v", got, err)
	}
}

func TestStore_BoolRoundTrip(t *testing.T) {
	s := NewStore(newPrefsDB(t))
	ctx := context.Background()

	got, err := s.GetBool(ctx, "checkin", "u1", "reminders", true)
	if err != nil || !got {
		t.Fatalf("unset default = %v err=%v", got, err)
	}

	if err := s.SetBool(ctx, "checkin", "u1", "reminders", false); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = s.GetBool(ctx, "checkin", "u1", "reminders", true)
	if err != nil || got {
		t.Fatalf("stored false read = %v err=%v", got, err)
	}
}

func TestStore_IdentitiesIsolated(t *testing.T) {
	s := NewStore(newPrefsDB(t))
	ctx := context.Background()

	if err := s.SetString(ctx, "chat", "u1", "history", "mine"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.GetString(ctx, "chat", "u2", "history", "")
	if err != nil || got != "" {
		t.Fatalf("cross-identity read = %q err=%v", got, err)
	}
	got, err = s.GetString(ctx, "chat", "", "history", "")
	if err != nil || got != "" {
		t.Fatalf("anonymous read = %q err=%v", got, err)
	}
}

func TestStore_DeleteIdempotent(t *testing.T) {
	s := NewStore(newPrefsDB(t))
	ctx := context.Background()

	if err := s.SetString(ctx, "chat", "u1", "history", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Delete(ctx, "chat", "u1", "history"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "chat", "u1", "history"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	got, err := s.GetString(ctx, "chat", "u1", "history", "gone")
	if err != nil || got != "gone" {
		t.Fatalf("read after delete = %q err=%v", got, err)
	}
}
