// Package app wires the process: configuration, action registration,
// provider construction and lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/playground/internal/actions"
	"github.com/gmsas95/playground/internal/actions/greeting"
	"github.com/gmsas95/playground/internal/actions/weather"
	"github.com/gmsas95/playground/internal/api"
	"github.com/gmsas95/playground/internal/config"
	"github.com/gmsas95/playground/internal/cron"
	"github.com/gmsas95/playground/internal/history"
	"github.com/gmsas95/playground/internal/llm"
	"github.com/gmsas95/playground/internal/metrics"
	"github.com/gmsas95/playground/internal/orchestrator"
	"github.com/gmsas95/playground/internal/pricing"
	"github.com/gmsas95/playground/internal/store"
)

type App struct {
	Config       *config.Config
	Store        *store.Store
	Logger       *zap.Logger
	Registry     *actions.Registry
	Executor     *actions.Executor
	History      *history.Store
	Metrics      *metrics.Metrics
	Orchestrator *orchestrator.Orchestrator
	Runner       *cron.Runner
}

// New builds the full object graph. A duplicate action registration or an
// unreadable pricing file fails startup here rather than at request time.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	st, err := store.New(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	registry := actions.NewRegistry()
	if err := registerActions(registry, cfg); err != nil {
		return nil, err
	}

	table := pricing.DefaultTable()
	if cfg.Pricing.Path != "" {
		table, err = pricing.LoadTable(cfg.Pricing.Path)
		if err != nil {
			return nil, err
		}
	}

	m := metrics.New()
	hist := history.NewStore()
	executor := actions.NewExecutor(registry, logger)

	orch := orchestrator.New(
		buildProviders(cfg, logger),
		hist,
		registry,
		executor,
		pricing.NewCalculator(table),
		m,
		logger,
	)

	runner := cron.NewRunner(cron.Config{
		Interval:  time.Duration(cfg.Evaluation.PruneInterval) * time.Minute,
		Retention: time.Duration(cfg.Evaluation.RetentionDays) * 24 * time.Hour,
	}, st, m, logger)

	return &App{
		Config:       cfg,
		Store:        st,
		Logger:       logger,
		Registry:     registry,
		Executor:     executor,
		History:      hist,
		Metrics:      m,
		Orchestrator: orch,
		Runner:       runner,
	}, nil
}

// registerActions is the explicit startup registration list. Adding an
// action means adding a line here; there is no directory scanning.
func registerActions(registry *actions.Registry, cfg *config.Config) error {
	list := []actions.Action{
		greeting.New(),
		weather.New(cfg.Actions.Weather),
	}
	for _, a := range list {
		if err := registry.Register(a); err != nil {
			return err
		}
	}
	return nil
}

// buildProviders constructs one adapter per configured provider, each
// guarded by a circuit breaker. Unknown names default to the
// OpenAI-compatible wire format.
func buildProviders(cfg *config.Config, logger *zap.Logger) map[string]llm.Provider {
	providers := make(map[string]llm.Provider, len(cfg.LLM.Providers))
	for name, pcfg := range cfg.LLM.Providers {
		var p llm.Provider
		switch name {
		case "anthropic":
			p = llm.NewAnthropic(pcfg)
		case "ollama":
			p = llm.NewOllama(pcfg)
		default:
			p = llm.NewOpenAICompatible(name, pcfg)
		}
		providers[name] = llm.WithBreaker(p, logger)
	}
	return providers
}

// RunServer starts the maintenance runner and the API server and blocks
// until SIGINT/SIGTERM.
func (a *App) RunServer() error {
	if err := a.Runner.Start(); err != nil {
		return err
	}

	server := api.New(a.Config, a.Orchestrator, a.History, a.Registry, a.Executor, a.Store, a.Metrics, a.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.shutdown(nil)
		return err
	case sig := <-sigCh:
		a.Logger.Info("Shutting down", zap.String("signal", sig.String()))
		a.shutdown(server)
		return nil
	}
}

func (a *App) shutdown(server *api.Server) {
	if server != nil {
		if err := server.Shutdown(); err != nil {
			a.Logger.Error("Failed to shut down API server", zap.Error(err))
		}
	}
	a.Runner.Stop()
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("Failed to close store", zap.Error(err))
	}
}

// RunCLI sends one prompt through the orchestrator and prints the unified
// result.
func (a *App) RunCLI(provider, model, prompt string) error {
	defer a.Store.Close()

	if provider == "" {
		provider = a.Config.LLM.DefaultProvider
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := a.Orchestrator.Generate(ctx, orchestrator.Request{
		Provider:    provider,
		Model:       model,
		Prompt:      prompt,
		Temperature: 0.7,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Content)
	for _, r := range result.ActionResults {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		fmt.Printf("[action %s] %s\n", status, r.Message)
	}
	fmt.Printf("(%s, input %d / output %d %s, cost %s USD)\n",
		result.ModelUsed,
		result.Usage.InputUnits, result.Usage.OutputUnits, result.Usage.Units,
		result.Cost.TotalCost.String(),
	)
	return nil
}
