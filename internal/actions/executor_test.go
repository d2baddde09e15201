package actions

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestExecutor(t *testing.T, registry *Registry) *Executor {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewExecutor(registry, logger)
}

func TestExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newStubAction("echo", map[string]string{"text": "text to echo"}, func(ctx context.Context, params map[string]interface{}) Result {
		return Result{Success: true, Message: params["text"].(string)}
	})); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	e := newTestExecutor(t, r)

	result := e.Execute(context.Background(), Invocation{
		Name:       "echo",
		Parameters: map[string]interface{}{"text": "hello"},
	})

	if !result.Success {
		t.Fatalf("expected success, got error %s", result.Error)
	}
	if result.Message != "hello" {
		t.Errorf("expected message hello, got %s", result.Message)
	}
}

func TestExecuteMissingName(t *testing.T) {
	e := newTestExecutor(t, NewRegistry())

	result := e.Execute(context.Background(), Invocation{})
	if result.Success {
		t.Error("expected failure for missing name")
	}
	if result.Message != "Missing action name" {
		t.Errorf("unexpected message: %s", result.Message)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	e := newTestExecutor(t, NewRegistry())

	result := e.Execute(context.Background(), Invocation{Name: "nope"})
	if result.Success {
		t.Error("expected failure for unknown action")
	}
	if result.Message != "Unknown action: nope" {
		t.Errorf("unexpected message: %s", result.Message)
	}
}

func TestExecuteMissingParameters(t *testing.T) {
	var invoked atomic.Bool
	r := NewRegistry()
	if err := r.Register(newStubAction("needy", map[string]string{"b": "b", "a": "a"}, func(ctx context.Context, params map[string]interface{}) Result {
		invoked.Store(true)
		return Result{Success: true, Message: "ok"}
	})); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	e := newTestExecutor(t, r)

	result := e.Execute(context.Background(), Invocation{Name: "needy"})
	if result.Success {
		t.Error("expected failure for missing parameters")
	}
	if !strings.Contains(result.Error, "missing parameters: a, b") {
		t.Errorf("expected sorted missing parameter list, got %s", result.Error)
	}
	if invoked.Load() {
		t.Error("action must not run when required parameters are absent")
	}
}

func TestExecutePanicIsolation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newStubAction("boom", nil, func(ctx context.Context, params map[string]interface{}) Result {
		panic("kaboom")
	})); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	e := newTestExecutor(t, r)

	result := e.Execute(context.Background(), Invocation{Name: "boom", Parameters: map[string]interface{}{}})
	if result.Success {
		t.Error("expected panicking action to fail")
	}
	if !strings.Contains(result.Error, "kaboom") {
		t.Errorf("expected panic detail in error, got %s", result.Error)
	}
}

func TestExecuteBatchPreservesOrder(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newStubAction("slow", nil, func(ctx context.Context, params map[string]interface{}) Result {
		time.Sleep(20 * time.Millisecond)
		return Result{Success: true, Message: fmt.Sprintf("slow-%v", params["i"])}
	})); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	if err := r.Register(newStubAction("fast", nil, func(ctx context.Context, params map[string]interface{}) Result {
		return Result{Success: true, Message: fmt.Sprintf("fast-%v", params["i"])}
	})); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	e := newTestExecutor(t, r)

	invocations := []Invocation{
		{Name: "slow", Parameters: map[string]interface{}{"i": "0"}},
		{Name: "fast", Parameters: map[string]interface{}{"i": "1"}},
		{Name: "slow", Parameters: map[string]interface{}{"i": "2"}},
		{Name: "fast", Parameters: map[string]interface{}{"i": "3"}},
	}
	results := e.ExecuteBatch(context.Background(), invocations)

	if len(results) != len(invocations) {
		t.Fatalf("expected %d results, got %d", len(invocations), len(results))
	}
	expected := []string{"slow-0", "fast-1", "slow-2", "fast-3"}
	for i, want := range expected {
		if results[i].Message != want {
			t.Errorf("position %d: expected %s, got %s", i, want, results[i].Message)
		}
	}
}

func TestExecuteBatchBadInvocationDoesNotAbortSiblings(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newStubAction("ok", nil, nil)); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	e := newTestExecutor(t, r)

	results := e.ExecuteBatch(context.Background(), []Invocation{
		{Name: "ok", Parameters: map[string]interface{}{}},
		{Name: "missing"},
		{Name: "ok", Parameters: map[string]interface{}{}},
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Success || !results[2].Success {
		t.Error("expected valid invocations to succeed")
	}
	if results[1].Success {
		t.Error("expected unknown action to fail")
	}
}

func TestExecuteBatchEmpty(t *testing.T) {
	e := newTestExecutor(t, NewRegistry())

	results := e.ExecuteBatch(context.Background(), nil)
	if results == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestExecuteBatchBoundedConcurrency(t *testing.T) {
	var current, peak atomic.Int64
	r := NewRegistry()
	if err := r.Register(newStubAction("counted", nil, func(ctx context.Context, params map[string]interface{}) Result {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
		return Result{Success: true, Message: "ok"}
	})); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	e := newTestExecutor(t, r)
	e.SetMaxConcurrency(2)

	invocations := make([]Invocation, 8)
	for i := range invocations {
		invocations[i] = Invocation{Name: "counted", Parameters: map[string]interface{}{}}
	}
	e.ExecuteBatch(context.Background(), invocations)

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent executions, observed %d", peak.Load())
	}
}
