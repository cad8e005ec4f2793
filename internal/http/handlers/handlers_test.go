package handlers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/healthsphere/go-health-backend/internal/auth"
	"github.com/healthsphere/go-health-backend/internal/config"
	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/http/middleware"
	"github.com/healthsphere/go-health-backend/internal/llm"
	"github.com/healthsphere/go-health-backend/internal/ocr"
	"github.com/healthsphere/go-health-backend/internal/prefs"
	"github.com/healthsphere/go-health-backend/internal/repo"
	"github.com/healthsphere/go-health-backend/internal/services"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- narrative and extractor fakes ----------

type fakeNarrative struct {
	questions    []domain.Question
	questionsErr error
	analysis     *llm.CheckinAnalysis
	report       *llm.ReportAnalysis
	reply        string
	err          error
}

func (f *fakeNarrative) GenerateQuestions(ctx context.Context, recent []domain.Checkin) ([]domain.Question, error) {
	return f.questions, f.questionsErr
}

func (f *fakeNarrative) AnalyzeCheckin(ctx context.Context, c *domain.Checkin, recent []domain.Checkin) (*llm.CheckinAnalysis, error) {
	if f.analysis == nil {
		return nil, llm.ErrUnavailable
	}
	return f.analysis, nil
}

func (f *fakeNarrative) AnalyzeReport(ctx context.Context, ocrText string) (*llm.ReportAnalysis, error) {
	if f.report == nil {
		return nil, llm.ErrUnavailable
	}
	return f.report, nil
}

func (f *fakeNarrative) Chat(ctx context.Context, healthContext string, history []string, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeExtractor struct {
	result *ocr.Result
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, filename string, data []byte, progress func(int)) (*ocr.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if progress != nil {
		progress(50)
	}
	return f.result, nil
}

// ---------- wiring ----------

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxBytes:   1 << 20,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}
}

func newTestHandlers(t *testing.T, db *gorm.DB, fn *fakeNarrative, fx *fakeExtractor) *Handlers {
	t.Helper()
	store := prefs.NewStore(db)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return New(
		services.NewAuthService(db, tokens),
		services.NewCheckinService(db, fn, store),
		services.NewChatService(db, fn, store),
		services.NewUploadService(db, fn, fx, testUploadConfig()),
		services.NewInsightsService(db),
		services.NewEmergencyService(),
	)
}

// asUser injects a verified identity the way the auth middleware would.
func asUser(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uid)
		c.Next()
	}
}
