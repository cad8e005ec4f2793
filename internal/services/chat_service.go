// Package services – ChatSession
//
// Conversational state for one identity. History lives in the repository for
// authenticated users and in the per-identity preference cache for anonymous
// ones, so each identity owns its own sequence. Sends are optimistic
// two-phase appends: the user turn enters the sequence immediately marked
// pending, and is promoted or removed when the request resolves, keeping the
// "messages are immutable once created" contract honest.
//
// At most one send is outstanding at a time. Clearing the conversation is an
// explicit command on the session, observable through registered callbacks,
// not a process-wide event.
package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/prefs"
	"github.com/healthsphere/go-health-backend/internal/repo"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// replyConfidence is the fixed confidence attached to assistant replies.
// The narrative service does not report one.
const replyConfidence = 0.95

// suggestedActionPhrases are scanned for in replies, in order, to surface
// follow-up buttons.
var suggestedActionPhrases = []string{
	"consult a healthcare provider",
	"monitor your symptoms",
}

// ChatMessage is one turn in a conversation sequence. Pending marks a
// provisional user turn whose send has not resolved yet.
type ChatMessage struct {
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"created_at"`
	Confidence       *float64  `json:"confidence,omitempty"`
	SuggestedActions []string  `json:"suggested_actions,omitempty"`
	Pending          bool      `json:"-"`
}

// ChatToggles are the context-inclusion switches. Any enabled toggle
// requires an authenticated identity at send time.
type ChatToggles struct {
	IncludeCheckins    bool
	IncludeAllCheckins bool
	IncludeProfile     bool
}

func (t ChatToggles) anyEnabled() bool {
	return t.IncludeCheckins || t.IncludeAllCheckins || t.IncludeProfile
}

// ChatService creates chat sessions.
type ChatService struct {
	DB        *gorm.DB
	Narrative Narrative
	Prefs     *prefs.Store

	// HistoryLimit caps loaded turns for authenticated sessions.
	HistoryLimit int
}

// NewChatService constructs a ChatService with the default history window.
func NewChatService(db *gorm.DB, n Narrative, p *prefs.Store) *ChatService {
	return &ChatService{DB: db, Narrative: n, Prefs: p, HistoryLimit: 50}
}

// ChatSession is one identity's conversation. All exported methods are safe
// for concurrent use.
type ChatSession struct {
	svc           *ChatService
	identity      string
	authenticated bool

	mu       sync.Mutex
	messages []ChatMessage
	toggles  ChatToggles
	inflight context.CancelFunc
	draft    string
	onClear  []func()
}

// NewSession loads the identity's history and returns a session.
// Authenticated identities read from the repository; anonymous ones read the
// cached sequence. A history load failure degrades to an empty sequence.
func (s *ChatService) NewSession(ctx context.Context, identity string, authenticated bool) (*ChatSession, error) {
	sess := &ChatSession{svc: s, identity: identity, authenticated: authenticated}

	if authenticated {
		turns, err := repo.RecentChatTurns(ctx, s.DB, identity, s.HistoryLimit)
		if err != nil {
			log.Warn().Err(err).Str("user_id", identity).Msg("chat history load failed")
			return sess, nil
		}
		for _, t := range turns {
			sess.messages = append(sess.messages,
				ChatMessage{Role: RoleUser, Content: t.Message, CreatedAt: t.CreatedAt},
				ChatMessage{
					Role:             RoleAssistant,
					Content:          t.Response,
					CreatedAt:        t.CreatedAt,
					Confidence:       t.Confidence,
					SuggestedActions: ExtractSuggestedActions(t.Response),
				},
			)
		}
		return sess, nil
	}

	raw, err := s.Prefs.GetString(ctx, "chat", identity, "history", "")
	if err != nil || raw == "" {
		return sess, nil
	}
	if err := json.Unmarshal([]byte(raw), &sess.messages); err != nil {
		log.Warn().Err(err).Msg("cached chat history unreadable, starting empty")
		sess.messages = nil
	}
	return sess, nil
}

// Messages returns a copy of the conversation sequence, oldest first.
func (c *ChatSession) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Draft returns the primed input text, set by RegenerateLast or a failed
// send.
func (c *ChatSession) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetToggles replaces the context-inclusion switches. Enabling while
// unauthenticated is allowed; the gate applies at send time so the user
// sees why sending is blocked instead of having the switch silently undone.
func (c *ChatSession) SetToggles(t ChatToggles) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggles = t
}

// Toggles returns the current switches.
func (c *ChatSession) Toggles() ChatToggles {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggles
}

// OnClear registers a callback invoked whenever the conversation is
// cleared, from any control surface.
func (c *ChatSession) OnClear(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClear = append(c.onClear, fn)
}

// Cancel aborts the in-flight send, if any, and drops the tracked handle.
func (c *ChatSession) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
}

// Send issues one chat turn. The user message is appended provisionally
// before the request; it is promoted when the reply arrives and removed when
// the send fails or is canceled (the text returns to the draft so nothing
// typed is lost). A second send while one is outstanding is rejected.
func (c *ChatSession) Send(ctx context.Context, text string) (*ChatMessage, error) {
	tr := otel.Tracer("services/ChatSession")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(attribute.String("user.id", c.identity)),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.toggles.anyEnabled() && !c.authenticated {
		c.mu.Unlock()
		return nil, ErrSignInRequired
	}
	if c.inflight != nil {
		c.mu.Unlock()
		return nil, ErrSendInFlight
	}
	history := c.historyLinesLocked()
	toggles := c.toggles
	c.messages = append(c.messages, ChatMessage{
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now().UTC(),
		Pending:   true,
	})
	c.draft = ""
	cctx, cancel := context.WithCancel(ctx)
	c.inflight = cancel
	c.mu.Unlock()

	healthContext := c.svc.buildHealthContext(cctx, c.identity, c.authenticated, toggles)
	reply, err := c.svc.Narrative.Chat(cctx, healthContext, history, text)

	c.mu.Lock()
	c.inflight = nil
	if err != nil {
		// Remove the provisional user turn and re-prime the input.
		c.dropPendingLocked()
		c.draft = text
		c.mu.Unlock()
		if cctx.Err() != nil {
			return nil, context.Canceled
		}
		return nil, err
	}
	c.promotePendingLocked()
	conf := replyConfidence
	assistant := ChatMessage{
		Role:             RoleAssistant,
		Content:          reply,
		CreatedAt:        time.Now().UTC(),
		Confidence:       &conf,
		SuggestedActions: ExtractSuggestedActions(reply),
	}
	c.messages = append(c.messages, assistant)
	c.mu.Unlock()

	c.persistTurn(ctx, text, assistant)
	return &assistant, nil
}

// RegenerateLast truncates the sequence back through the most recent user
// turn and re-sends its text once. The removed turn re-enters through the
// normal optimistic append, so it is never duplicated.
func (c *ChatSession) RegenerateLast(ctx context.Context) (*ChatMessage, error) {
	c.mu.Lock()
	if c.inflight != nil {
		c.mu.Unlock()
		return nil, ErrSendInFlight
	}
	idx := -1
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleUser {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return nil, ErrNothingToRegenerate
	}
	text := c.messages[idx].Content
	c.messages = c.messages[:idx]
	c.draft = text
	c.mu.Unlock()

	return c.Send(ctx, text)
}

// Clear empties the conversation for this identity everywhere it is stored
// and notifies registered observers. It works from any state; an in-flight
// send is canceled first.
func (c *ChatSession) Clear(ctx context.Context) error {
	c.Cancel()

	c.mu.Lock()
	c.messages = nil
	c.draft = ""
	observers := append([]func(){}, c.onClear...)
	c.mu.Unlock()

	var err error
	if c.authenticated {
		err = repo.DeleteChatTurns(ctx, c.svc.DB, c.identity)
	} else {
		err = c.svc.Prefs.Delete(ctx, "chat", c.identity, "history")
	}
	for _, fn := range observers {
		fn()
	}
	return err
}

// historyLinesLocked renders resolved turns as prompt context lines, oldest
// first. Pending turns are excluded; the current message travels separately.
func (c *ChatSession) historyLinesLocked() []string {
	var lines []string
	for i := 0; i < len(c.messages)-1; i++ {
		m := c.messages[i]
		next := c.messages[i+1]
		if m.Role == RoleUser && !m.Pending && next.Role == RoleAssistant {
			lines = append(lines, "User: "+m.Content+"\nAssistant: "+next.Content)
		}
	}
	return lines
}

// dropPendingLocked removes the trailing provisional user turn.
func (c *ChatSession) dropPendingLocked() {
	if n := len(c.messages); n > 0 && c.messages[n-1].Pending {
		c.messages = c.messages[:n-1]
	}
}

// promotePendingLocked marks the trailing provisional user turn as final.
func (c *ChatSession) promotePendingLocked() {
	if n := len(c.messages); n > 0 && c.messages[n-1].Pending {
		c.messages[n-1].Pending = false
	}
}

// persistTurn stores a resolved user/assistant pair. Repository rows are
// append-only; the anonymous cache persists the whole sequence.
func (c *ChatSession) persistTurn(ctx context.Context, userText string, assistant ChatMessage) {
	if c.authenticated {
		_, err := repo.CreateChatTurn(ctx, c.svc.DB, &domain.ChatTurn{
			UserID:     c.identity,
			Message:    userText,
			Response:   assistant.Content,
			Confidence: assistant.Confidence,
		})
		if err != nil {
			log.Warn().Err(err).Str("user_id", c.identity).Msg("storing chat turn failed")
		}
		return
	}
	c.persistCache(ctx)
}

// persistCache writes the anonymous sequence to the preference cache.
func (c *ChatSession) persistCache(ctx context.Context) {
	c.mu.Lock()
	b, err := json.Marshal(c.messages)
	c.mu.Unlock()
	if err != nil {
		return
	}
	if err := c.svc.Prefs.SetString(ctx, "chat", c.identity, "history", string(b)); err != nil {
		log.Warn().Err(err).Msg("caching chat history failed")
	}
}

// buildHealthContext assembles the optional prompt context from enabled
// toggles. Only authenticated sessions reach this with toggles enabled.
func (s *ChatService) buildHealthContext(ctx context.Context, identity string, authenticated bool, t ChatToggles) string {
	if !authenticated || !t.anyEnabled() {
		return ""
	}
	var parts []string
	if t.IncludeCheckins || t.IncludeAllCheckins {
		limit := 7
		if t.IncludeAllCheckins {
			limit = 0
		}
		recent, err := repo.ListCheckins(ctx, s.DB, identity, limit)
		if err == nil && len(recent) > 0 {
			parts = append(parts, "Recent check-ins: "+summarizeCheckins(recent))
		}
	}
	if t.IncludeProfile {
		if u, err := repo.GetUser(ctx, s.DB, identity); err == nil {
			parts = append(parts, "Profile: registered user, email "+u.Email)
		}
	}
	return strings.Join(parts, "\n")
}

// ExtractSuggestedActions scans a reply for known follow-up phrases and
// returns them in scan order, title-cased for display.
func ExtractSuggestedActions(reply string) []string {
	lower := strings.ToLower(reply)
	var out []string
	for _, phrase := range suggestedActionPhrases {
		if strings.Contains(lower, phrase) {
			out = append(out, strings.ToUpper(phrase[:1])+phrase[1:])
		}
	}
	return out
}
