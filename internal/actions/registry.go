package actions

import (
	"iter"
	"sync"

	"github.com/gmsas95/playground/internal/errors"
)

// Registry holds the set of available actions. Registration happens once at
// startup from an explicit list; after that the registry is read-only.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Action
	ordered []Action
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Action),
	}
}

// Register adds an action. A second registration under the same name fails;
// names are the identity of an action.
func (r *Registry) Register(a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.byName[name]; exists {
		return errors.New(errors.ErrDuplicateAction.Code, "action "+name+" already registered")
	}

	r.byName[name] = a
	r.ordered = append(r.ordered, a)
	return nil
}

// Get returns the action registered under name.
func (r *Registry) Get(name string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byName[name]
	if !ok {
		return nil, errors.New(errors.ErrUnknownAction.Code, "action "+name+" not found")
	}
	return a, nil
}

// All iterates the registered actions in registration order. The sequence
// is restartable; each iteration walks a snapshot taken under the lock.
func (r *Registry) All() iter.Seq[Action] {
	return func(yield func(Action) bool) {
		r.mu.RLock()
		snapshot := make([]Action, len(r.ordered))
		copy(snapshot, r.ordered)
		r.mu.RUnlock()

		for _, a := range snapshot {
			if !yield(a) {
				return
			}
		}
	}
}

// Len reports the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// Catalog builds the advertised capability catalog in registration order.
func (r *Registry) Catalog() []Documentation {
	docs := make([]Documentation, 0, r.Len())
	for a := range r.All() {
		docs = append(docs, Document(a))
	}
	return docs
}
