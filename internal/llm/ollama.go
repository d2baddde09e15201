package llm

import (
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

// Ollama adapts a local Ollama server. Ollama has no token billing; it
// reports wall-clock durations instead, which are normalized to
// milliseconds for usage accounting.
type Ollama struct {
	provider config.Provider
	client   *http.Client
}

func NewOllama(provider config.Provider) *Ollama {
	timeout := provider.Timeout
	if timeout == 0 {
		timeout = 120
	}

	return &Ollama{
		provider: provider,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done               bool  `json:"done"`
	TotalDuration      int64 `json:"total_duration"`
	LoadDuration       int64 `json:"load_duration"`
	PromptEvalDuration int64 `json:"prompt_eval_duration"`
	EvalDuration       int64 `json:"eval_duration"`
}

// chatPayload builds the wire request. Sampling knobs travel in the options
// map rather than top-level fields.
func (o *Ollama) chatPayload(req GenerateRequest, stream bool) ollamaRequest {
	model := req.Model
	if model == "" {
		model = o.provider.Model
	}

	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.History {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: RoleUser, Content: req.Prompt})

	options := map[string]interface{}{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	return ollamaRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
		Options:  options,
	}
}

func (o *Ollama) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	payload := o.chatPayload(req, false)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.provider.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, "ollama server unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errors.Wrap(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))),
			errors.ErrProviderUnavailable.Code, "ollama API error")
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderResponse.Code, "ollama returned invalid JSON")
	}
	if result.Message.Content == "" {
		return nil, errors.New(errors.ErrProviderResponse.Code, "ollama returned empty content")
	}

	promptEval := time.Duration(result.PromptEvalDuration)
	eval := time.Duration(result.EvalDuration)
	usage := Usage{
		InputUnits:  promptEval.Milliseconds(),
		OutputUnits: eval.Milliseconds(),
		Units:       UnitMilliseconds,
		Durations: &DurationUsage{
			TotalDuration:      time.Duration(result.TotalDuration),
			PromptEvalDuration: promptEval,
			EvalDuration:       eval,
		},
	}

	return &GenerateResponse{
		Content: result.Message.Content,
		Model:   payload.Model,
		Usage:   usage,
	}, nil
}

// GenerateStream runs one chat call with stream enabled. Ollama streams
// newline-delimited JSON objects; the final one carries done=true and the
// timings.
func (o *Ollama) GenerateStream(ctx context.Context, req GenerateRequest, onChunk StreamHandler) (*GenerateResponse, error) {
	payload := o.chatPayload(req, true)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.provider.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, "ollama server unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errors.Wrap(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))),
			errors.ErrProviderUnavailable.Code, "ollama API error")
	}

	var content strings.Builder
	var final ollamaResponse

	dec := json.NewDecoder(resp.Body)
	for {
		var chunk ollamaResponse
		if err := dec.Decode(&chunk); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, errors.ErrProviderResponse.Code, "ollama returned invalid JSON")
		}

		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			if err := onChunk(chunk.Message.Content); err != nil {
				return nil, err
			}
		}
		if chunk.Done {
			final = chunk
			break
		}
	}

	if content.Len() == 0 {
		return nil, errors.New(errors.ErrProviderResponse.Code, "ollama stream returned no content")
	}

	promptEval := time.Duration(final.PromptEvalDuration)
	eval := time.Duration(final.EvalDuration)

	return &GenerateResponse{
		Content: content.String(),
		Model:   payload.Model,
		Usage: Usage{
			InputUnits:  promptEval.Milliseconds(),
			OutputUnits: eval.Milliseconds(),
			Units:       UnitMilliseconds,
			Durations: &DurationUsage{
				TotalDuration:      time.Duration(final.TotalDuration),
				PromptEvalDuration: promptEval,
				EvalDuration:       eval,
			},
		},
	}, nil
}

// Models lists locally installed models via /api/tags.
func (o *Ollama) Models(ctx context.Context) (map[string]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.provider.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, "failed to create request")
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderUnavailable.Code, "ollama server unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrProviderUnavailable.Code,
			fmt.Sprintf("ollama tags request returned status %d", resp.StatusCode))
	}

	var result struct {
		Models []struct {
			Name    string `json:"name"`
			Details struct {
				ParameterSize string `json:"parameter_size"`
				Family        string `json:"family"`
				Format        string `json:"format"`
			} `json:"details"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.ErrProviderResponse.Code, "ollama returned invalid JSON")
	}

	models := make(map[string]string, len(result.Models))
	for _, m := range result.Models {
		name := m.Name
		if idx := strings.IndexByte(name, ':'); idx > 0 {
			name = name[:idx]
		}

		var details []string
		if m.Details.ParameterSize != "" {
			details = append(details, "Size: "+m.Details.ParameterSize)
		}
		if m.Details.Format != "" {
			details = append(details, "Format: "+m.Details.Format)
		}
		if m.Details.Family != "" {
			details = append(details, "Family: "+m.Details.Family)
		}
		desc := "No additional details"
		if len(details) > 0 {
			desc = strings.Join(details, ", ")
		}
		models[name] = fmt.Sprintf("%s model (%s)", name, desc)
	}
	return models, nil
}
