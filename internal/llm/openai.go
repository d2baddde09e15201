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

// OpenAICompatible talks to any backend exposing the OpenAI chat-completions
// wire format. It backs both the "openai" and "grok" providers, which differ
// only in base URL and credentials.
type OpenAICompatible struct {
	name     string
	provider config.Provider
	client   *http.Client
}

func NewOpenAICompatible(name string, provider config.Provider) *OpenAICompatible {
	timeout := provider.Timeout
	if timeout == 0 {
		timeout = 60
	}

	return &OpenAICompatible{
		name:     name,
		provider: provider,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

func (c *OpenAICompatible) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// chatPayload builds the wire request: system prompt first, then the prior
// turns in order, then the new prompt.
func (c *OpenAICompatible) chatPayload(req GenerateRequest, stream bool) chatRequest {
	model := req.Model
	if model == "" {
		model = c.provider.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.provider.MaxTokens
	}

	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.History {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: RoleUser, Content: req.Prompt})

	return chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (c *OpenAICompatible) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	payload := c.chatPayload(req, false)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.provider.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.provider.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, c.name+" request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errors.Wrap(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))),
			errors.ErrProviderUnavailable.Code, c.name+" API error")
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderResponse.Code, c.name+" returned invalid JSON")
	}
	if len(result.Choices) == 0 {
		return nil, errors.New(errors.ErrProviderResponse.Code, c.name+" returned no choices")
	}

	usage := Usage{
		InputUnits:  result.Usage.PromptTokens,
		OutputUnits: result.Usage.CompletionTokens,
		Units:       UnitTokens,
		Tokens: &TokenUsage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
	}

	return &GenerateResponse{
		Content: result.Choices[0].Message.Content,
		Model:   payload.Model,
		Usage:   usage,
	}, nil
}

type chatStreamChunk struct {
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GenerateStream runs one chat completion with stream enabled, forwarding
// each content delta. Token usage is not reported on the streaming path.
func (c *OpenAICompatible) GenerateStream(ctx context.Context, req GenerateRequest, onChunk StreamHandler) (*GenerateResponse, error) {
	payload := c.chatPayload(req, true)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.provider.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.provider.APIKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, c.name+" request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errors.Wrap(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))),
			errors.ErrProviderUnavailable.Code, c.name+" API error")
	}

	var content strings.Builder
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrProviderResponse.Code, c.name+" stream read failed")
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks.
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		content.WriteString(chunk.Choices[0].Delta.Content)
		if err := onChunk(chunk.Choices[0].Delta.Content); err != nil {
			return nil, err
		}
	}

	if content.Len() == 0 {
		return nil, errors.New(errors.ErrProviderResponse.Code, c.name+" stream returned no content")
	}

	return &GenerateResponse{
		Content: content.String(),
		Model:   payload.Model,
		Usage:   Usage{Units: UnitTokens},
	}, nil
}

// Models lists chat-capable model IDs from the backend's /models endpoint.
func (c *OpenAICompatible) Models(ctx context.Context) (map[string]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.provider.BaseURL+"/models", nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.provider.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, c.name+" request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrProviderUnavailable.Code,
			fmt.Sprintf("%s models request returned status %d", c.name, resp.StatusCode))
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderResponse.Code, c.name+" returned invalid JSON")
	}

	models := make(map[string]string)
	for _, m := range result.Data {
		if !isChatModel(m.ID) {
			continue
		}
		models[m.ID] = describeModel(m.ID)
	}
	return models, nil
}

func isChatModel(id string) bool {
	for _, prefix := range []string{"gpt-4", "gpt-3.5", "o1", "o3", "grok"} {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

func describeModel(id string) string {
	var parts []string
	switch {
	case strings.Contains(id, "gpt-4"):
		parts = append(parts, "GPT-4")
	case strings.Contains(id, "gpt-3.5"):
		parts = append(parts, "GPT-3.5")
	case strings.Contains(id, "grok"):
		parts = append(parts, "Grok")
	}
	if strings.Contains(id, "vision") {
		parts = append(parts, "Vision capable")
	}
	if strings.Contains(id, "turbo") {
		parts = append(parts, "Turbo version")
	}
	if strings.Contains(id, "16k") {
		parts = append(parts, "16k context")
	} else if strings.Contains(id, "32k") {
		parts = append(parts, "32k context")
	}
	if strings.Contains(id, "preview") {
		parts = append(parts, "Preview")
	}
	if len(parts) == 0 {
		return id
	}
	return strings.Join(parts, " - ")
}
