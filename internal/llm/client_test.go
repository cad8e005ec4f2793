package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/healthsphere/go-health-backend/internal/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.LLMConfig{
		BaseURL:     baseURL,
		Model:       "test-model",
		Timeout:     2 * time.Second,
		MaxTokens:   100,
		Temperature: 0.5,
	})
}

func completionServer(t *testing.T, reply string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func TestComplete_ReturnsTrimmedReply(t *testing.T) {
	var req chatRequest
	srv := completionServer(t, "  hello there \n", &req)
	defer srv.Close()

	got, err := testClient(srv.URL).Complete(context.Background(), "sys", "prompt", 50, 0.2)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "hello there" {
		t.Fatalf("reply = %q", got)
	}
	if req.Model != "test-model" || req.MaxTokens != 50 || req.Temperature != 0.2 {
		t.Fatalf("request = %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[0].Content != "sys" {
		t.Fatalf("messages = %+v", req.Messages)
	}
}

func TestComplete_DefaultsApplied(t *testing.T) {
	var req chatRequest
	srv := completionServer(t, "ok", &req)
	defer srv.Close()

	if _, err := testClient(srv.URL).Complete(context.Background(), "", "p", 0, 0); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if req.MaxTokens != 100 || req.Temperature != 0.5 {
		t.Fatalf("defaults not applied: %+v", req)
	}
	if req.Messages[0].Content == "" {
		t.Fatal("empty system prompt passed through")
	}
}

func TestComplete_ServerErrorWrapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "", "p", 0, 0)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestComplete_ConnectionRefusedWrapsUnavailable(t *testing.T) {
	// Reserved port with no listener.
	_, err := testClient("http://127.0.0.1:1").Complete(context.Background(), "", "p", 0, 0)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestComplete_CancellationReturnedAsIs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches the connection and cancels
		// the request context when the client goes away; otherwise Close
		// deadlocks waiting on this handler.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := testClient(srv.URL).Complete(ctx, "", "p", 0, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatal("cancellation reported as unavailability")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "", "p", 0, 0)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestAPIError_TruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	e := &APIError{StatusCode: 500, Body: string(long)}
	if len(e.Error()) > 300 {
		t.Fatalf("error message too long: %d", len(e.Error()))
	}
}
