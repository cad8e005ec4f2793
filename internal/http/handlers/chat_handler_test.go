package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/llm"
	"github.com/healthsphere/go-health-backend/internal/markup"
)

func chatRouter(h *Handlers, uid string) *gin.Engine {
	r := gin.New()
	mw := func(c *gin.Context) { c.Next() }
	if uid != "" {
		mw = asUser(uid)
	}
	g := r.Group("", gin.HandlerFunc(mw))
	g.POST("/chat", h.SendChat)
	g.POST("/chat/regenerate", h.RegenerateChat)
	g.GET("/chat/history", h.ChatHistory)
	g.DELETE("/chat", h.ClearChat)
	return r
}

func TestSendChat_RendersBlocks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newTestHandlers(t, db, &fakeNarrative{reply: "Take it easy.\n* rest\n* hydrate"}, &fakeExtractor{})
	r := chatRouter(h, "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat",
		bytes.NewBufferString(`{"message":"I feel tired"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("send -> %d body=%s", w.Code, w.Body.String())
	}

	var out ChatReply
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Message.Content != "Take it easy.\n* rest\n* hydrate" {
		t.Fatalf("content = %q", out.Message.Content)
	}
	if len(out.Blocks) != 2 {
		t.Fatalf("blocks = %d", len(out.Blocks))
	}
	if out.Blocks[1].Kind != markup.BlockList || len(out.Blocks[1].Items) != 2 {
		t.Fatalf("second block: %+v", out.Blocks[1])
	}
}

func TestSendChat_EmptyAndBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newTestHandlers(t, db, &fakeNarrative{reply: "ok"}, &fakeExtractor{})
	r := chatRouter(h, "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{bad`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad json -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat",
		bytes.NewBufferString(`{"message":"   "}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank message -> %d", w.Code)
	}
}

func TestSendChat_TogglesRequireSignIn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newTestHandlers(t, db, &fakeNarrative{reply: "ok"}, &fakeExtractor{})
	r := chatRouter(h, "") // anonymous

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat",
		bytes.NewBufferString(`{"message":"hi","include_checkins":true}`)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("gated send -> %d body=%s", w.Code, w.Body.String())
	}
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != ErrCodeSignInRequired {
		t.Fatalf("code = %q err=%v", e.Code, err)
	}

	// Without toggles the anonymous send succeeds.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat",
		bytes.NewBufferString(`{"message":"hi"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous send -> %d body=%s", w.Code, w.Body.String())
	}
}

func TestSendChat_AssistantUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newTestHandlers(t, db, &fakeNarrative{err: llm.ErrUnavailable}, &fakeExtractor{})
	r := chatRouter(h, "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat",
		bytes.NewBufferString(`{"message":"hi"}`)))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded send -> %d", w.Code)
	}
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != ErrCodeServiceDegraded {
		t.Fatalf("code = %q err=%v", e.Code, err)
	}
}

func TestChatHistoryAndClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newTestHandlers(t, db, &fakeNarrative{reply: "hello there"}, &fakeExtractor{})
	r := chatRouter(h, "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat",
		bytes.NewBufferString(`{"message":"hi"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("send -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/history", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("history -> %d", w.Code)
	}
	var hist ChatHistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil || len(hist.Messages) != 2 {
		t.Fatalf("messages = %d err=%v", len(hist.Messages), err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/chat", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/history", nil))
	var after ChatHistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &after); err != nil || len(after.Messages) != 0 {
		t.Fatalf("messages after clear = %d err=%v", len(after.Messages), err)
	}
}

func TestRegenerateChat_NothingToRegenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newTestHandlers(t, db, &fakeNarrative{reply: "ok"}, &fakeExtractor{})
	r := chatRouter(h, "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat/regenerate", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty regenerate -> %d", w.Code)
	}
}

func TestRegenerateChat_ReplacesAnswer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	fn := &fakeNarrative{reply: "first answer"}
	h := newTestHandlers(t, db, fn, &fakeExtractor{})
	r := chatRouter(h, "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat",
		bytes.NewBufferString(`{"message":"hi"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("send -> %d", w.Code)
	}

	fn.reply = "second answer"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat/regenerate", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("regenerate -> %d body=%s", w.Code, w.Body.String())
	}
	var out ChatReply
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Message.Content != "second answer" {
		t.Fatalf("content = %q", out.Message.Content)
	}
}
