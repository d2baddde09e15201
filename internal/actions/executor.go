package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const defaultMaxConcurrency = 4

// Executor validates and runs invocations against the registry. Every
// failure mode — unknown action, missing parameters, an error or panic
// inside the action — is captured in the returned Result; a bad invocation
// never aborts its siblings or the surrounding request.
type Executor struct {
	registry       *Registry
	logger         *zap.Logger
	maxConcurrency int
}

func NewExecutor(registry *Registry, logger *zap.Logger) *Executor {
	return &Executor{
		registry:       registry,
		logger:         logger,
		maxConcurrency: defaultMaxConcurrency,
	}
}

// SetMaxConcurrency bounds how many invocations of one batch run at once.
func (e *Executor) SetMaxConcurrency(n int) {
	if n > 0 {
		e.maxConcurrency = n
	}
}

// Execute runs a single invocation and always returns a Result.
func (e *Executor) Execute(ctx context.Context, inv Invocation) Result {
	if inv.Name == "" {
		return Result{
			Success: false,
			Message: "Missing action name",
			Error:   "invocation must include a name",
		}
	}

	action, err := e.registry.Get(inv.Name)
	if err != nil {
		return Result{
			Success: false,
			Message: "Unknown action: " + inv.Name,
			Error:   err.Error(),
		}
	}

	params := inv.Parameters
	if params == nil {
		params = map[string]interface{}{}
	}

	if missing := missingParameters(action, params); len(missing) > 0 {
		return Result{
			Success: false,
			Message: "Missing required parameters",
			Error:   "missing parameters: " + strings.Join(missing, ", "),
		}
	}

	result := e.invoke(ctx, action, params)
	if !result.Success {
		e.logger.Debug("Action failed",
			zap.String("action", inv.Name),
			zap.String("error", result.Error),
		)
	}
	return result
}

// ExecuteBatch runs all invocations from one response and returns exactly
// one result per invocation, in input order. Invocations are independent
// and run concurrently under a bounded pool; ordering is preserved by
// index, not completion time.
func (e *Executor) ExecuteBatch(ctx context.Context, invocations []Invocation) []Result {
	results := make([]Result, len(invocations))
	if len(invocations) == 0 {
		return results
	}

	sem := make(chan struct{}, e.maxConcurrency)
	var wg sync.WaitGroup

	for i, inv := range invocations {
		wg.Add(1)
		go func(i int, inv Invocation) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = e.Execute(ctx, inv)
		}(i, inv)
	}

	wg.Wait()
	return results
}

// invoke shields the caller from panicking actions.
func (e *Executor) invoke(ctx context.Context, action Action, params map[string]interface{}) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Action panicked",
				zap.String("action", action.Name()),
				zap.Any("panic", r),
			)
			result = Result{
				Success: false,
				Message: "Action execution failed",
				Error:   fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	return action.Execute(ctx, params)
}

func missingParameters(action Action, params map[string]interface{}) []string {
	var missing []string
	for key := range action.RequiredParameters() {
		if _, ok := params[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}
