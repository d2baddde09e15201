// Package orchestrator composes the generation pipeline: load history, call
// the provider, record the turns, extract and run actions, price the usage.
package orchestrator

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/gmsas95/playground/internal/actions"
	"github.com/gmsas95/playground/internal/errors"
	"github.com/gmsas95/playground/internal/history"
	"github.com/gmsas95/playground/internal/llm"
	"github.com/gmsas95/playground/internal/metrics"
	"github.com/gmsas95/playground/internal/pricing"
)

type Orchestrator struct {
	providers map[string]llm.Provider
	history   *history.Store
	registry  *actions.Registry
	parser    *actions.Parser
	executor  *actions.Executor
	pricing   *pricing.Calculator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func New(
	providers map[string]llm.Provider,
	hist *history.Store,
	registry *actions.Registry,
	executor *actions.Executor,
	calc *pricing.Calculator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		history:   hist,
		registry:  registry,
		parser:    actions.NewParser(logger),
		executor:  executor,
		pricing:   calc,
		metrics:   m,
		logger:    logger,
	}
}

// Request is one inbound generation call.
type Request struct {
	Provider    string
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Result is the unified outcome of one generation call. ActionResults is
// empty, never nil, when the model replied with plain prose.
type Result struct {
	Content       string            `json:"content"`
	Provider      string            `json:"provider"`
	ModelUsed     string            `json:"model_used"`
	Usage         llm.Usage         `json:"usage"`
	Cost          pricing.Breakdown `json:"cost"`
	ActionResults []actions.Result  `json:"action_results"`
}

// Generate runs one request through the pipeline. A provider failure
// (including the caller's timeout) is the only fatal path and leaves the
// conversation history untouched; everything downstream of a successful
// generation fails soft into the result.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	provider, ok := o.providers[req.Provider]
	if !ok {
		o.metrics.RecordRequest(false)
		return nil, errors.New(errors.ErrProviderNotConfigured.Code, "provider "+req.Provider+" not configured")
	}

	hist := o.history.Get(req.Provider)
	o.metrics.RecordProviderRequest(req.Provider)

	resp, err := provider.Generate(ctx, o.buildRequest(req, hist))
	if err != nil {
		o.metrics.RecordRequest(false)
		o.logger.Warn("Provider call failed",
			zap.String("provider", req.Provider),
			zap.String("model", req.Model),
			zap.Error(err),
		)
		return nil, err
	}

	return o.finish(ctx, req, resp), nil
}

// GenerateStream runs one request through the same pipeline as Generate, but
// forwards each content chunk to onChunk as the provider emits it. History,
// actions and cost accounting happen only after the stream completes.
func (o *Orchestrator) GenerateStream(ctx context.Context, req Request, onChunk llm.StreamHandler) (*Result, error) {
	provider, ok := o.providers[req.Provider]
	if !ok {
		o.metrics.RecordRequest(false)
		return nil, errors.New(errors.ErrProviderNotConfigured.Code, "provider "+req.Provider+" not configured")
	}

	hist := o.history.Get(req.Provider)
	o.metrics.RecordProviderRequest(req.Provider)

	resp, err := provider.GenerateStream(ctx, o.buildRequest(req, hist), onChunk)
	if err != nil {
		o.metrics.RecordRequest(false)
		o.logger.Warn("Provider stream failed",
			zap.String("provider", req.Provider),
			zap.String("model", req.Model),
			zap.Error(err),
		)
		return nil, err
	}

	return o.finish(ctx, req, resp), nil
}

func (o *Orchestrator) buildRequest(req Request, hist []llm.Message) llm.GenerateRequest {
	return llm.GenerateRequest{
		Model:       req.Model,
		System:      BuildSystemPrompt(o.registry),
		Prompt:      req.Prompt,
		History:     hist,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

// finish records the turns, runs any actions the model requested and prices
// the usage. It only runs after a successful generation.
func (o *Orchestrator) finish(ctx context.Context, req Request, resp *llm.GenerateResponse) *Result {
	// Both turns are recorded only now that generation succeeded; a failed
	// or timed-out call must not leave a partial turn behind.
	o.history.Append(req.Provider, llm.Message{Role: llm.RoleUser, Content: req.Prompt})
	o.history.Append(req.Provider, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

	invocations := o.parser.Parse(resp.Content)
	actionResults := o.executor.ExecuteBatch(ctx, invocations)
	for i, inv := range invocations {
		o.metrics.RecordActionCall(inv.Name, actionResults[i].Success)
	}

	cost := o.pricing.Compute(req.Provider, resp.Model, resp.Usage)

	o.metrics.RecordUsage(resp.Usage.InputUnits, resp.Usage.OutputUnits)
	o.metrics.RecordCost(cost.TotalCost)
	o.metrics.RecordRequest(true)

	o.logger.Info("Request completed",
		zap.String("provider", req.Provider),
		zap.String("model", resp.Model),
		zap.Int64("input_units", resp.Usage.InputUnits),
		zap.Int64("output_units", resp.Usage.OutputUnits),
		zap.Int("actions", len(actionResults)),
		zap.String("total_cost", cost.TotalCost.String()),
	)

	return &Result{
		Content:       resp.Content,
		Provider:      req.Provider,
		ModelUsed:     resp.Model,
		Usage:         resp.Usage,
		Cost:          cost,
		ActionResults: actionResults,
	}
}

// Provider returns the adapter registered under name.
func (o *Orchestrator) Provider(name string) (llm.Provider, error) {
	p, ok := o.providers[name]
	if !ok {
		return nil, errors.New(errors.ErrProviderNotConfigured.Code, "provider "+name+" not configured")
	}
	return p, nil
}

// Providers lists the configured provider names, sorted.
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.providers))
	for name := range o.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
