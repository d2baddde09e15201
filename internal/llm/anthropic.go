package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gmsas95/playground/internal/config"
	"github.com/gmsas95/playground/internal/errors"
)

const anthropicVersion = "2023-06-01"

// Anthropic adapts the messages API. Unlike the OpenAI shape, the system
// prompt travels in a dedicated field and max_tokens is mandatory.
type Anthropic struct {
	provider config.Provider
	client   *http.Client
}

func NewAnthropic(provider config.Provider) *Anthropic {
	timeout := provider.Timeout
	if timeout == 0 {
		timeout = 60
	}

	return &Anthropic{
		provider: provider,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// messagesPayload builds the wire request. The messages API only accepts
// user/assistant turns, so anything else in the history is dropped.
func (a *Anthropic) messagesPayload(req GenerateRequest, stream bool) anthropicRequest {
	model := req.Model
	if model == "" {
		model = a.provider.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = a.provider.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1024
	}

	messages := make([]chatMessage, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: RoleUser, Content: req.Prompt})

	return anthropicRequest{
		Model:       model,
		System:      req.System,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (a *Anthropic) newRequest(ctx context.Context, payload anthropicRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.provider.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.provider.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	return httpReq, nil
}

func (a *Anthropic) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	payload := a.messagesPayload(req, false)

	httpReq, err := a.newRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, "anthropic request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errors.Wrap(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))),
			errors.ErrProviderUnavailable.Code, "anthropic API error")
	}

	var result anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderResponse.Code, "anthropic returned invalid JSON")
	}
	if len(result.Content) == 0 || result.Content[0].Text == "" {
		return nil, errors.New(errors.ErrProviderResponse.Code, "anthropic returned empty content")
	}

	usage := Usage{
		InputUnits:  result.Usage.InputTokens,
		OutputUnits: result.Usage.OutputTokens,
		Units:       UnitTokens,
		Tokens: &TokenUsage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
		},
	}

	return &GenerateResponse{
		Content: result.Content[0].Text,
		Model:   payload.Model,
		Usage:   usage,
	}, nil
}

// anthropicStreamEvent is the union of the SSE event payloads the stream
// path cares about, discriminated by Type.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Message struct {
		Usage struct {
			InputTokens int64 `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Usage struct {
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// GenerateStream runs one messages call with stream enabled. Input tokens
// arrive in message_start, output tokens in message_delta, so the streaming
// path reports full usage.
func (a *Anthropic) GenerateStream(ctx context.Context, req GenerateRequest, onChunk StreamHandler) (*GenerateResponse, error) {
	payload := a.messagesPayload(req, true)

	httpReq, err := a.newRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, "anthropic request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errors.Wrap(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))),
			errors.ErrProviderUnavailable.Code, "anthropic API error")
	}

	var content strings.Builder
	var inputTokens, outputTokens int64

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrProviderResponse.Code, "anthropic stream read failed")
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		switch event.Type {
		case "message_start":
			inputTokens = event.Message.Usage.InputTokens
		case "content_block_delta":
			if event.Delta.Text == "" {
				continue
			}
			content.WriteString(event.Delta.Text)
			if err := onChunk(event.Delta.Text); err != nil {
				return nil, err
			}
		case "message_delta":
			outputTokens = event.Usage.OutputTokens
		}
	}

	if content.Len() == 0 {
		return nil, errors.New(errors.ErrProviderResponse.Code, "anthropic stream returned no content")
	}

	return &GenerateResponse{
		Content: content.String(),
		Model:   payload.Model,
		Usage: Usage{
			InputUnits:  inputTokens,
			OutputUnits: outputTokens,
			Units:       UnitTokens,
			Tokens: &TokenUsage{
				PromptTokens:     inputTokens,
				CompletionTokens: outputTokens,
				TotalTokens:      inputTokens + outputTokens,
			},
		},
	}, nil
}

// Models returns the known Claude model catalog. Anthropic has no public
// listing endpoint usable here, so the set is static.
func (a *Anthropic) Models(ctx context.Context) (map[string]string, error) {
	return map[string]string{
		"claude-3-opus-20240229":   "Most capable model, best for complex tasks and reasoning",
		"claude-3-sonnet-20240229": "Balanced model with strong performance and reasonable cost",
		"claude-3-haiku-20240307":  "Fastest and most cost-effective model",
		"claude-2.1":               "Legacy Claude 2 model for backwards compatibility",
	}, nil
}
