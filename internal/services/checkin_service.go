// Package services – CheckinService
//
// This file implements the daily check-in session: an explicit orchestrator
// that replaces reactive dependency chains with deterministic sequencing.
// Starting a session issues its three loads (question set, submitted-today
// check, recent history) concurrently, but the submitted-today check is
// authoritative: when a record for the local calendar day exists the session
// lands in Submitted no matter when the other loads arrive, exposing the
// stored record and its analysis instead of the form.
//
// Observability: session entry points are OpenTelemetry-instrumented.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/prefs"
	"github.com/healthsphere/go-health-backend/internal/repo"
	"github.com/healthsphere/go-health-backend/internal/risk"
)

// GeneratedQuestionVersion tags check-ins answered against a generated set.
const GeneratedQuestionVersion = "llm-v1"

// maxNotesRunes bounds the optional notes field.
const maxNotesRunes = 1000

// CheckinState is the session lifecycle position.
type CheckinState string

// Session states. Error returns the session to Ready semantics: every
// operation that fails leaves the session re-attemptable.
const (
	StateLoadingQuestions CheckinState = "loading_questions"
	StateReady            CheckinState = "ready"
	StateSubmitting       CheckinState = "submitting"
	StateSubmitted        CheckinState = "submitted"
)

// CheckinService creates and runs check-in sessions.
type CheckinService struct {
	DB        *gorm.DB
	Narrative Narrative
	Prefs     *prefs.Store

	// HistoryLimit caps the records loaded for the trend chart (<=30).
	HistoryLimit int
}

// NewCheckinService constructs a CheckinService with the default history
// window.
func NewCheckinService(db *gorm.DB, n Narrative, p *prefs.Store) *CheckinService {
	return &CheckinService{DB: db, Narrative: n, Prefs: p, HistoryLimit: 30}
}

// CheckinSession is one user's open check-in screen. All exported methods
// are safe for concurrent use.
type CheckinSession struct {
	svc      *CheckinService
	identity string

	mu              sync.Mutex
	state           CheckinState
	questions       []domain.Question
	questionVersion string
	answers         map[string]string
	notes           string
	history         []domain.Checkin
	today           *domain.Checkin
}

// historyLimit returns the configured window, clamped to the 30-record
// ceiling the trend chart renders.
func (s *CheckinService) historyLimit() int {
	if s.HistoryLimit <= 0 || s.HistoryLimit > 30 {
		return 30
	}
	return s.HistoryLimit
}

// StartSession loads everything a fresh check-in screen needs for identity.
// The three queries run concurrently; their combined result is resolved
// deterministically:
//
//   - submitted-today already true  -> Submitted (form bypassed entirely)
//   - question generation failed or filtered empty -> fallback set,
//     tagged with the sentinel version (degraded, not an error)
//   - history load failed -> empty history (the chart degrades, the form
//     does not)
//
// Only a failure of the authoritative submitted-today check fails the start.
func (s *CheckinService) StartSession(ctx context.Context, identity string) (*CheckinSession, error) {
	tr := otel.Tracer("services/CheckinService")
	ctx, span := tr.Start(ctx, "StartSession",
		trace.WithAttributes(attribute.String("user.id", identity)),
	)
	defer span.End()

	sess := &CheckinSession{
		svc:      s,
		identity: identity,
		state:    StateLoadingQuestions,
		answers:  map[string]string{},
	}

	var (
		questions []domain.Question
		version   string
		today     *domain.Checkin
		history   []domain.Checkin
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		questions, version = s.loadQuestions(gctx, identity)
		return nil
	})
	g.Go(func() error {
		var err error
		today, err = s.todaysRecord(gctx, identity)
		return err
	})
	g.Go(func() error {
		h, err := repo.ListCheckins(gctx, s.DB, identity, s.historyLimit())
		if err != nil {
			log.Warn().Err(err).Str("user_id", identity).Msg("check-in history load failed")
			return nil
		}
		history = h
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sess.questions = questions
	sess.questionVersion = version
	sess.history = history
	if today != nil {
		sess.today = today
		sess.state = StateSubmitted
	} else {
		sess.state = StateReady
	}
	return sess, nil
}

// loadQuestions fetches a generated set and filters it, substituting the
// fallback set when the service fails or filtering empties the result.
func (s *CheckinService) loadQuestions(ctx context.Context, identity string) ([]domain.Question, string) {
	recent, err := repo.ListCheckins(ctx, s.DB, identity, 7)
	if err != nil {
		recent = nil
	}
	generated, err := s.Narrative.GenerateQuestions(ctx, recent)
	if err != nil {
		log.Info().Err(err).Msg("question generation degraded to fallback set")
		return FallbackQuestions(), FallbackQuestionVersion
	}
	filtered := FilterQuestions(generated)
	if len(filtered) == 0 {
		return FallbackQuestions(), FallbackQuestionVersion
	}
	return filtered, GeneratedQuestionVersion
}

// todaysRecord returns the user's record for the current local calendar day,
// or nil. The guard queries the most recent record rather than relying on a
// constraint, so concurrent clients resolve consistently.
func (s *CheckinService) todaysRecord(ctx context.Context, identity string) (*domain.Checkin, error) {
	latest, err := repo.LatestCheckin(ctx, s.DB, identity)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sameLocalDay(latest.Date, time.Now()) {
		return latest, nil
	}
	return nil, nil
}

// sameLocalDay reports whether two instants fall on the same calendar day in
// the local time zone.
func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

// State returns the current session state.
func (c *CheckinSession) State() CheckinState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Questions returns the question set the form renders.
func (c *CheckinSession) Questions() ([]domain.Question, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questions, c.questionVersion
}

// History returns the loaded records, newest first.
func (c *CheckinSession) History() []domain.Checkin {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history
}

// TodaysRecord returns the already-submitted record when the session is in
// Submitted state, or nil.
func (c *CheckinSession) TodaysRecord() *domain.Checkin {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today
}

// Choose records an answer for a question. Choosing is idempotent:
// re-choosing replaces the prior choice. Only a Ready session accepts
// choices.
func (c *CheckinSession) Choose(questionID, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	c.answers[questionID] = answer
	return nil
}

// SetNotes replaces the optional notes text.
func (c *CheckinSession) SetNotes(notes string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	if utf8.RuneCountInString(notes) > maxNotesRunes {
		return ErrNotesTooLong
	}
	c.notes = notes
	return nil
}

// SetFlag persists a preference flag for this identity. Flags are stored
// independently of the submission payload and never gate its validity.
func (c *CheckinSession) SetFlag(ctx context.Context, field string, value bool) error {
	return c.svc.Prefs.SetBool(ctx, "checkin", c.identity, field, value)
}

// Flag reads a persisted preference flag for this identity.
func (c *CheckinSession) Flag(ctx context.Context, field string, def bool) (bool, error) {
	return c.svc.Prefs.GetBool(ctx, "checkin", c.identity, field, def)
}

// Submit validates answers, re-checks the daily guard, persists the record,
// attaches the narrative analysis best-effort, and confirms the submission
// by re-querying rather than trusting the local write.
//
// Error handling: validation failures and the daily guard leave the session
// in Ready/Submitted respectively; a repository failure returns the session
// to Ready so the user can retry.
func (c *CheckinSession) Submit(ctx context.Context) (*domain.Checkin, error) {
	tr := otel.Tracer("services/CheckinService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("user.id", c.identity)),
	)
	defer span.End()

	c.mu.Lock()
	if c.state != StateReady {
		if c.state == StateSubmitted {
			c.mu.Unlock()
			return nil, ErrAlreadySubmitted
		}
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	for _, q := range c.questions {
		if q.Required && strings.TrimSpace(c.answers[q.ID]) == "" {
			c.mu.Unlock()
			return nil, ErrMissingAnswer
		}
	}
	answers := make(map[string]string, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	notes := c.notes
	questions := c.questions
	version := c.questionVersion
	c.state = StateSubmitting
	c.mu.Unlock()

	record, err := c.svc.submit(ctx, c.identity, answers, notes, questions, version)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case errors.Is(err, ErrAlreadySubmitted):
		// Another client of the same identity won the day.
		c.state = StateSubmitted
		c.today = record
		return record, err
	case err != nil:
		c.state = StateReady
		return nil, err
	default:
		c.state = StateSubmitted
		c.today = record
		return record, nil
	}
}

// submit performs the guarded write and post-submission analysis.
func (s *CheckinService) submit(ctx context.Context, identity string, answers map[string]string, notes string, questions []domain.Question, version string) (*domain.Checkin, error) {
	// Guard: the most recent record decides whether today is taken.
	if existing, err := s.todaysRecord(ctx, identity); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, ErrAlreadySubmitted
	}

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}

	record := &domain.Checkin{
		UserID:          identity,
		Date:            time.Now().UTC(),
		Answers:         string(answersJSON),
		Notes:           notes,
		Questions:       string(questionsJSON),
		QuestionVersion: version,
	}
	if _, err := repo.CreateCheckin(ctx, s.DB, record); err != nil {
		return nil, err
	}

	s.attachAnalysis(ctx, record)

	// Confirm against the store instead of trusting the local write, to
	// tolerate a concurrent submission from another client instance.
	confirmed, err := s.todaysRecord(ctx, identity)
	if err != nil || confirmed == nil {
		return record, nil
	}
	return confirmed, nil
}

// attachAnalysis requests and stores the narrative analysis. Unavailability
// is logged and swallowed: rule-based scoring remains available without it.
func (s *CheckinService) attachAnalysis(ctx context.Context, record *domain.Checkin) {
	recent, err := repo.ListCheckins(ctx, s.DB, record.UserID, 7)
	if err != nil {
		recent = nil
	}
	analysis, err := s.Narrative.AnalyzeCheckin(ctx, record, recent)
	if err != nil {
		log.Info().Err(err).Str("checkin_id", record.ID).Msg("check-in analysis omitted")
		return
	}
	b, err := json.Marshal(analysis)
	if err != nil {
		return
	}
	if err := repo.AttachAnalysis(ctx, s.DB, record.ID, record.UserID, string(b)); err != nil {
		log.Warn().Err(err).Str("checkin_id", record.ID).Msg("storing analysis failed")
		return
	}
	js := string(b)
	record.Analysis = &js
}

// Summary runs the rule-based classifier over the session's loaded history,
// oldest first.
func (c *CheckinSession) Summary() risk.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	records := make([]risk.Record, 0, len(c.history))
	// History is stored newest first; the classifier wants oldest first.
	for i := len(c.history) - 1; i >= 0; i-- {
		records = append(records, risk.Record{Answers: c.history[i].AnswerMap()})
	}
	return risk.Classify(records)
}
