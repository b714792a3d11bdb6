package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"magistral-go/internal/config"
)

func TestComplete(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		io.WriteString(w, `{"choices":[{"message":{"content":"Según el RD 226/2005..."}}]}`)
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Model:   "gpt-4",
		Generation: config.LLMGenerationConfig{
			Temperature: 0.2,
		},
	})

	reply, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "Eres un experto."},
		{Role: "user", Content: "¿Qué exige el grupo A?"},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if reply != "Según el RD 226/2005..." {
		t.Errorf("unexpected reply: %q", reply)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotReq["model"] != "gpt-4" {
		t.Errorf("unexpected model: %v", gotReq["model"])
	}
	if gotReq["stream"] != false {
		t.Errorf("Complete must not request streaming, got stream=%v", gotReq["stream"])
	}
	if gotReq["temperature"] != 0.2 {
		t.Errorf("generation params not injected, got %v", gotReq["temperature"])
	}
	msgs, ok := gotReq["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected 2 messages forwarded, got %v", gotReq["messages"])
	}
}

func TestCompleteNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "gpt-4"})
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hola"}})
	if err == nil {
		t.Fatal("expected error on non-200 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry upstream status, got: %v", err)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "gpt-4"})
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hola"}})
	if err == nil {
		t.Fatal("expected error when api returns no choices")
	}
}

// captureWriter 收集流式分块，满足 MessageWriter 接口。
type captureWriter struct {
	chunks []string
}

func (w *captureWriter) WriteMessage(messageType int, data []byte) error {
	w.chunks = append(w.chunks, string(data))
	return nil
}

func TestStreamChatMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("expected event-stream accept header")
		}
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Según\"}}]}\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\" la norma\"}}]}\n")
		io.WriteString(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "gpt-4"})
	writer := &captureWriter{}
	err := c.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hola"}}, writer)
	if err != nil {
		t.Fatalf("StreamChatMessages returned error: %v", err)
	}
	if got := strings.Join(writer.chunks, ""); got != "Según la norma" {
		t.Errorf("unexpected streamed content: %q", got)
	}
}
