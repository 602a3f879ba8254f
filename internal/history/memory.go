package history

import (
	"context"
	"sync"

	"github.com/switchboard-dev/switchboard/pkg/models"
)

// MemoryStore is an in-process Store. Each conversation carries its own
// lock, so concurrent appends for different triples proceed independently
// while appends for the same triple serialize.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[tripleKey]*conversation
}

type tripleKey struct {
	userID    string
	sessionID string
	agentID   string
}

type conversation struct {
	mu    sync.Mutex
	pairs [][2]models.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[tripleKey]*conversation)}
}

// LoadRecent implements Store.
func (s *MemoryStore) LoadRecent(ctx context.Context, userID, sessionID, agentID string, maxPairs int) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	maxPairs = normalizeMaxPairs(maxPairs)

	s.mu.RLock()
	conv := s.convs[tripleKey{userID, sessionID, agentID}]
	s.mu.RUnlock()
	if conv == nil {
		return nil, nil
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	start := 0
	if len(conv.pairs) > maxPairs {
		start = len(conv.pairs) - maxPairs
	}

	msgs := make([]models.Message, 0, 2*(len(conv.pairs)-start))
	for _, pair := range conv.pairs[start:] {
		msgs = append(msgs, pair[0], pair[1])
	}
	return msgs, nil
}

// AppendExchange implements Store.
func (s *MemoryStore) AppendExchange(ctx context.Context, userID, sessionID, agentID string, userMsg, agentMsg models.Message, maxPairs int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePair(userMsg, agentMsg); err != nil {
		return err
	}
	maxPairs = normalizeMaxPairs(maxPairs)

	conv := s.conversation(tripleKey{userID, sessionID, agentID})

	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.pairs = append(conv.pairs, [2]models.Message{userMsg, agentMsg})
	if len(conv.pairs) > maxPairs {
		trimmed := make([][2]models.Message, maxPairs)
		copy(trimmed, conv.pairs[len(conv.pairs)-maxPairs:])
		conv.pairs = trimmed
	}
	return nil
}

// PairCount returns the number of stored pairs for a triple. Intended for
// tests and diagnostics.
func (s *MemoryStore) PairCount(userID, sessionID, agentID string) int {
	s.mu.RLock()
	conv := s.convs[tripleKey{userID, sessionID, agentID}]
	s.mu.RUnlock()
	if conv == nil {
		return 0
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return len(conv.pairs)
}

func (s *MemoryStore) conversation(key tripleKey) *conversation {
	s.mu.RLock()
	conv := s.convs[key]
	s.mu.RUnlock()
	if conv != nil {
		return conv
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if conv = s.convs[key]; conv == nil {
		conv = &conversation{}
		s.convs[key] = conv
	}
	return conv
}
