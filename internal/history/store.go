// Package history holds in-memory conversation state, one ordered message
// list per provider. Nothing here survives a restart; durable storage is a
// different collaborator's job.
package history

import (
	"sync"

	"github.com/gmsas95/playground/internal/llm"
)

// Store keeps one append-ordered history per provider key. Appends and
// clears on the same key are serialized; different keys never contend
// beyond the map lookup.
type Store struct {
	mu        sync.RWMutex
	histories map[string]*providerHistory
}

type providerHistory struct {
	mu       sync.Mutex
	messages []llm.Message
}

func NewStore() *Store {
	return &Store{
		histories: make(map[string]*providerHistory),
	}
}

func (s *Store) entry(providerID string) *providerHistory {
	s.mu.RLock()
	h, ok := s.histories[providerID]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.histories[providerID]; ok {
		return h
	}
	h = &providerHistory{}
	s.histories[providerID] = h
	return h
}

// Append adds a message to the end of the provider's history.
func (s *Store) Append(providerID string, msg llm.Message) {
	h := s.entry(providerID)
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
}

// Get returns a copy of the provider's history in append order. A provider
// that was never written to yields an empty slice.
func (s *Store) Get(providerID string) []llm.Message {
	s.mu.RLock()
	h, ok := s.histories[providerID]
	s.mu.RUnlock()
	if !ok {
		return []llm.Message{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Clear resets the provider's history to empty. Other providers are
// unaffected.
func (s *Store) Clear(providerID string) {
	s.mu.RLock()
	h, ok := s.histories[providerID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	h.mu.Lock()
	h.messages = nil
	h.mu.Unlock()
}

// Len reports the current number of messages for a provider.
func (s *Store) Len(providerID string) int {
	s.mu.RLock()
	h, ok := s.histories[providerID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}
