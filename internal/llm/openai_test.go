package llm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gmsas95/playground/internal/config"
	"github.com/gmsas95/playground/internal/errors"
)

func TestOpenAIGenerate(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": "gpt-4-0125-preview",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": "Hi there"}, "finish_reason": "stop"},
			},
			"usage": map[string]int64{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
		})
	}))
	defer server.Close()

	p := NewOpenAICompatible("openai", config.Provider{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4-0125-preview",
	})

	resp, err := p.Generate(context.Background(), GenerateRequest{
		System: "You are helpful.",
		Prompt: "Hello",
		History: []Message{
			{Role: RoleUser, Content: "earlier question"},
			{Role: RoleAssistant, Content: "earlier answer"},
		},
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "Hi there" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.Units != UnitTokens {
		t.Errorf("expected token units, got %s", resp.Usage.Units)
	}
	if resp.Usage.InputUnits != 12 || resp.Usage.OutputUnits != 5 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	if resp.Usage.Tokens == nil || resp.Usage.Tokens.TotalTokens != 17 {
		t.Errorf("expected token detail to carry through, got %+v", resp.Usage.Tokens)
	}

	// system + 2 history turns + prompt, in order.
	if len(captured.Messages) != 4 {
		t.Fatalf("expected 4 wire messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != RoleSystem {
		t.Errorf("expected leading system message, got %s", captured.Messages[0].Role)
	}
	if captured.Messages[3].Content != "Hello" {
		t.Errorf("expected trailing prompt, got %q", captured.Messages[3].Content)
	}
	if captured.Model != "gpt-4-0125-preview" {
		t.Errorf("expected configured default model, got %s", captured.Model)
	}
}

func TestOpenAIGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewOpenAICompatible("openai", config.Provider{BaseURL: server.URL, Model: "gpt-4"})

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "Hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !stderrors.Is(err, errors.ErrProviderUnavailable) {
		t.Errorf("expected provider unavailable, got %v", err)
	}
}

func TestOpenAIGenerateUnreachable(t *testing.T) {
	p := NewOpenAICompatible("openai", config.Provider{BaseURL: "http://127.0.0.1:1", Model: "gpt-4"})

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "Hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !stderrors.Is(err, errors.ErrProviderUnavailable) {
		t.Errorf("expected provider unavailable, got %v", err)
	}
}

func TestOpenAIGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "x", "choices": []interface{}{}})
	}))
	defer server.Close()

	p := NewOpenAICompatible("openai", config.Provider{BaseURL: server.URL, Model: "gpt-4"})

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "Hello"})
	if !stderrors.Is(err, errors.ErrProviderResponse) {
		t.Errorf("expected provider response error, got %v", err)
	}
}

func TestOpenAIGenerateInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	p := NewOpenAICompatible("openai", config.Provider{BaseURL: server.URL, Model: "gpt-4"})

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "Hello"})
	if !stderrors.Is(err, errors.ErrProviderResponse) {
		t.Errorf("expected provider response error, got %v", err)
	}
}

func TestOpenAIModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"id": "gpt-4-0125-preview"},
				{"id": "gpt-3.5-turbo-16k"},
				{"id": "whisper-1"},
				{"id": "text-embedding-3-small"},
			},
		})
	}))
	defer server.Close()

	p := NewOpenAICompatible("openai", config.Provider{BaseURL: server.URL})

	models, err := p.Models(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 chat models, got %d: %v", len(models), models)
	}
	if _, ok := models["whisper-1"]; ok {
		t.Error("non-chat models must be filtered out")
	}
	if desc := models["gpt-3.5-turbo-16k"]; desc == "" {
		t.Error("expected a description for gpt-3.5-turbo-16k")
	}
}

func TestOpenAIGenerateStream(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"Hel"}}]}` + "\n\n"))
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"lo"}}]}` + "\n\n"))
		w.Write([]byte("data: not json\n\n"))
		w.Write([]byte(`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	p := NewOpenAICompatible("openai", config.Provider{BaseURL: server.URL, Model: "gpt-4"})

	var chunks []string
	resp, err := p.GenerateStream(context.Background(), GenerateRequest{Prompt: "Hello"}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !captured.Stream {
		t.Error("expected stream enabled on the wire")
	}
	if len(chunks) != 2 || chunks[0] != "Hel" || chunks[1] != "lo" {
		t.Errorf("unexpected chunks %v", chunks)
	}
	if resp.Content != "Hello" {
		t.Errorf("expected accumulated content, got %q", resp.Content)
	}
	if resp.Usage.Units != UnitTokens {
		t.Errorf("expected token units, got %s", resp.Usage.Units)
	}
}

func TestOpenAIGenerateStreamHandlerAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"a"}}]}` + "\n\n"))
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"b"}}]}` + "\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	p := NewOpenAICompatible("openai", config.Provider{BaseURL: server.URL, Model: "gpt-4"})

	abort := stderrors.New("client gone")
	_, err := p.GenerateStream(context.Background(), GenerateRequest{Prompt: "Hello"}, func(string) error {
		return abort
	})
	if !stderrors.Is(err, abort) {
		t.Errorf("expected handler error to propagate, got %v", err)
	}
}

func TestOpenAIGenerateStreamEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	p := NewOpenAICompatible("openai", config.Provider{BaseURL: server.URL, Model: "gpt-4"})

	_, err := p.GenerateStream(context.Background(), GenerateRequest{Prompt: "Hello"}, func(string) error { return nil })
	if !stderrors.Is(err, errors.ErrProviderResponse) {
		t.Errorf("expected provider response error, got %v", err)
	}
}

func TestGrokUsesOpenAIWireFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "grok-1",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "grok says hi"}},
			},
			"usage": map[string]int64{"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7},
		})
	}))
	defer server.Close()

	p := NewOpenAICompatible("grok", config.Provider{BaseURL: server.URL, Model: "grok-1"})
	if p.Name() != "grok" {
		t.Errorf("expected provider name grok, got %s", p.Name())
	}

	resp, err := p.Generate(context.Background(), GenerateRequest{Prompt: "Hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "grok says hi" {
		t.Errorf("unexpected content %q", resp.Content)
	}
}
