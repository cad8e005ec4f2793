// Package services – InsightsService
//
// Read-only derivations over stored data: the risk series and its trend,
// the rule-based summary, the wellness score, and the dashboard's recent
// activity feed. Nothing here writes; every output is recomputed from
// check-in rows on demand.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/llm"
	"github.com/healthsphere/go-health-backend/internal/repo"
	"github.com/healthsphere/go-health-backend/internal/risk"
)

// titleCaser renders stored lowercase reasons for display.
var titleCaser = cases.Title(language.English)

// InsightsService derives presentation-ready aggregates from stored rows.
type InsightsService struct {
	DB *gorm.DB

	// Window caps how many check-ins feed the classifier and the series.
	Window int
}

// NewInsightsService constructs an InsightsService with the default window.
func NewInsightsService(db *gorm.DB) *InsightsService {
	return &InsightsService{DB: db, Window: 30}
}

// RiskSeries returns the user's analyzed risk scores ordered by date
// ascending. Records without a stored analysis contribute nothing; an empty
// series means the narrative service has not scored anything yet.
func (s *InsightsService) RiskSeries(ctx context.Context, identity string) ([]risk.Point, error) {
	rows, err := repo.ListAnalyzedCheckins(ctx, s.DB, identity, s.Window)
	if err != nil {
		return nil, err
	}
	points := make([]risk.Point, 0, len(rows))
	for _, row := range rows {
		if row.Analysis == nil {
			continue
		}
		var a llm.CheckinAnalysis
		if err := json.Unmarshal([]byte(*row.Analysis), &a); err != nil {
			continue
		}
		points = append(points, risk.Point{
			Date:  row.Date,
			Score: a.RiskScore,
			Label: row.Date.Format("Jan 2"),
		})
	}
	return points, nil
}

// TrendFor classifies the direction of the user's risk series. Fewer than
// six scored points yields an empty trend.
func (s *InsightsService) TrendFor(ctx context.Context, identity string) (string, error) {
	points, err := s.RiskSeries(ctx, identity)
	if err != nil {
		return "", err
	}
	return risk.Trend(points), nil
}

// Summary runs the rule-based classifier over the user's recent check-ins.
func (s *InsightsService) Summary(ctx context.Context, identity string) (risk.Summary, error) {
	rows, err := repo.ListCheckins(ctx, s.DB, identity, s.Window)
	if err != nil {
		return risk.Summary{}, err
	}
	records := make([]risk.Record, 0, len(rows))
	// Rows arrive newest first; the classifier wants oldest first.
	for i := len(rows) - 1; i >= 0; i-- {
		records = append(records, risk.Record{Answers: rows[i].AnswerMap()})
	}
	return risk.Classify(records), nil
}

// WellnessScore maps the latest check-in's severity mean to a 0-100 display
// score, higher being healthier. No check-ins yet scores 0.
func (s *InsightsService) WellnessScore(ctx context.Context, identity string) (int, error) {
	latest, err := repo.LatestCheckin(ctx, s.DB, identity)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return int(math.Round(risk.ScoreFromAnswers(latest.AnswerMap()) * 100)), nil
}

// HealthInsights is the dashboard's summary card.
type HealthInsights struct {
	WellnessScore int        `json:"wellness_score"`
	RiskLevel     risk.Level `json:"risk_level"`
	Reason        string     `json:"reason"`
	Trend         string     `json:"trend,omitempty"`
	CheckinCount  int64      `json:"checkin_count"`
}

// Insights assembles the dashboard summary for identity.
func (s *InsightsService) Insights(ctx context.Context, identity string) (*HealthInsights, error) {
	summary, err := s.Summary(ctx, identity)
	if err != nil {
		return nil, err
	}
	wellness, err := s.WellnessScore(ctx, identity)
	if err != nil {
		return nil, err
	}
	trend, err := s.TrendFor(ctx, identity)
	if err != nil {
		return nil, err
	}
	count, err := repo.CountCheckins(ctx, s.DB, identity)
	if err != nil {
		return nil, err
	}
	return &HealthInsights{
		WellnessScore: wellness,
		RiskLevel:     summary.Level,
		Reason:        titleCaser.String(summary.Reason),
		Trend:         trend,
		CheckinCount:  count,
	}, nil
}

// Activity is one dashboard feed entry.
type Activity struct {
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	When     time.Time `json:"when"`
	Relative string    `json:"relative"`
}

// RecentActivity merges the user's latest check-ins, report uploads and chat
// turns into one feed, newest first, capped at limit.
func (s *InsightsService) RecentActivity(ctx context.Context, identity string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	now := time.Now()
	var feed []Activity

	checkins, err := repo.ListCheckins(ctx, s.DB, identity, limit)
	if err != nil {
		return nil, err
	}
	for _, c := range checkins {
		feed = append(feed, Activity{
			Type:  "checkin",
			Title: "Daily check-in completed",
			When:  c.CreatedAt,
		})
	}

	uploads, err := repo.ListUploads(ctx, s.DB, identity, limit)
	if err != nil {
		return nil, err
	}
	for _, u := range uploads {
		feed = append(feed, Activity{
			Type:  "report",
			Title: "Report uploaded: " + u.Filename,
			When:  u.CreatedAt,
		})
	}

	turns, err := repo.RecentChatTurns(ctx, s.DB, identity, limit)
	if err != nil {
		return nil, err
	}
	for _, t := range turns {
		feed = append(feed, Activity{
			Type:  "chat",
			Title: "Health assistant conversation",
			When:  t.CreatedAt,
		})
	}

	sort.Slice(feed, func(i, j int) bool { return feed[i].When.After(feed[j].When) })
	if len(feed) > limit {
		feed = feed[:limit]
	}
	for i := range feed {
		feed[i].Relative = relativeTime(feed[i].When, now)
	}
	return feed, nil
}

// relativeTime renders t against now the way the dashboard displays it.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	case d < 48*time.Hour:
		return "yesterday"
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// SubmitFeedback stores one free-text feedback entry.
func (s *InsightsService) SubmitFeedback(ctx context.Context, identity, text string) (*domain.Feedback, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyFeedback
	}
	return repo.CreateFeedback(ctx, s.DB, identity, text)
}
