package actions

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/gmsas95/playground/internal/errors"
)

// stubAction is a minimal Action for registry and executor tests.
type stubAction struct {
	*BaseAction
	execute func(ctx context.Context, params map[string]interface{}) Result
}

func newStubAction(name string, required map[string]string, execute func(ctx context.Context, params map[string]interface{}) Result) *stubAction {
	if execute == nil {
		execute = func(ctx context.Context, params map[string]interface{}) Result {
			return Result{Success: true, Message: "ok"}
		}
	}
	return &stubAction{
		BaseAction: NewBaseAction(name, "stub action "+name, required, nil),
		execute:    execute,
	}
}

func (a *stubAction) Execute(ctx context.Context, params map[string]interface{}) Result {
	return a.execute(ctx, params)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(newStubAction("alpha", nil, nil)); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	a, err := r.Get("alpha")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if a.Name() != "alpha" {
		t.Errorf("expected alpha, got %s", a.Name())
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(newStubAction("alpha", nil, nil)); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	err := r.Register(newStubAction("alpha", nil, nil))
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if !stderrors.Is(err, errors.ErrDuplicateAction) {
		t.Errorf("expected duplicate action error, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected registry to keep one action, got %d", r.Len())
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("missing")
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	if !stderrors.Is(err, errors.ErrUnknownAction) {
		t.Errorf("expected unknown action error, got %v", err)
	}
}

func TestRegistryAllPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"charlie", "alpha", "bravo"}
	for _, name := range names {
		if err := r.Register(newStubAction(name, nil, nil)); err != nil {
			t.Fatalf("unexpected register error: %v", err)
		}
	}

	var got []string
	for a := range r.All() {
		got = append(got, a.Name())
	}

	if len(got) != len(names) {
		t.Fatalf("expected %d actions, got %d", len(names), len(got))
	}
	for i := range names {
		if got[i] != names[i] {
			t.Errorf("position %d: expected %s, got %s", i, names[i], got[i])
		}
	}
}

func TestRegistryCatalog(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newStubAction("alpha", map[string]string{"x": "x value"}, nil)); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	catalog := r.Catalog()
	if len(catalog) != 1 {
		t.Fatalf("expected 1 catalog entry, got %d", len(catalog))
	}
	doc := catalog[0]
	if doc.Name != "alpha" {
		t.Errorf("expected name alpha, got %s", doc.Name)
	}
	if doc.RequiredParameters["x"] != "x value" {
		t.Errorf("expected required parameter to carry through, got %v", doc.RequiredParameters)
	}
	if doc.Examples == nil {
		t.Error("expected examples to be non-nil")
	}
}

func TestRegistryConcurrentReads(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		if err := r.Register(newStubAction(fmt.Sprintf("action-%d", i), nil, nil)); err != nil {
			t.Fatalf("unexpected register error: %v", err)
		}
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for a := range r.All() {
				_ = a.Name()
			}
			_, _ = r.Get("action-3")
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
