package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agenttable/agenttable/internal/game"
)

// MemoryStore keeps everything in process memory. Snapshots are cloned
// on the way in and out so callers can never alias stored state.
type MemoryStore struct {
	mu        sync.RWMutex
	states    map[string]*game.HandState
	histories map[string]map[int]*game.HandHistory
	actions   map[string][]game.ActionRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:    make(map[string]*game.HandState),
		histories: make(map[string]map[int]*game.HandHistory),
		actions:   make(map[string][]game.ActionRecord),
	}
}

func (m *MemoryStore) SaveState(_ context.Context, state *game.HandState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.GameID] = state.Clone()
	return nil
}

func (m *MemoryStore) LoadState(_ context.Context, gameID string) (*game.HandState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	return state.Clone(), nil
}

func (m *MemoryStore) SaveHistory(_ context.Context, history *game.HandHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hands, ok := m.histories[history.GameID]
	if !ok {
		hands = make(map[int]*game.HandHistory)
		m.histories[history.GameID] = hands
	}
	hands[history.HandNumber] = history.Clone()
	return nil
}

func (m *MemoryStore) LoadHistories(_ context.Context, gameID string) ([]*game.HandHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hands := m.histories[gameID]
	out := make([]*game.HandHistory, 0, len(hands))
	for _, h := range hands {
		out = append(out, h.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HandNumber < out[j].HandNumber })
	return out, nil
}

func (m *MemoryStore) AppendAction(_ context.Context, gameID string, handNumber int, record game.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := actionKey(gameID, handNumber)
	m.actions[key] = append(m.actions[key], record)
	return nil
}

// Actions returns the recorded actions for one hand, oldest first.
func (m *MemoryStore) Actions(gameID string, handNumber int) []game.ActionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.actions[actionKey(gameID, handNumber)]
	return append([]game.ActionRecord(nil), recs...)
}

func (m *MemoryStore) Close(context.Context) error { return nil }

func actionKey(gameID string, handNumber int) string {
	return fmt.Sprintf("%s/%d", gameID, handNumber)
}
