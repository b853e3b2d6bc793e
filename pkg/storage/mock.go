package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/schedule"
	"github.com/jwebster45206/npc-engine/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu          sync.RWMutex
	worldstates map[uuid.UUID]*state.WorldState
	rooms       map[string]*scenario.Room
	roomOrder   []string
	masks       map[string]*mask.Mask
	manifest    *scenario.Manifest
	schedules   map[string]*schedule.Schedule
	documents   map[string][]byte
	pingError   error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		worldstates: make(map[uuid.UUID]*state.WorldState),
		rooms:       make(map[string]*scenario.Room),
		masks:       make(map[string]*mask.Mask),
		schedules:   make(map[string]*schedule.Schedule),
		documents:   make(map[string][]byte),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveWorldState mocks saving a world state
func (m *MockStorage) SaveWorldState(ctx context.Context, id uuid.UUID, ws *state.WorldState) error {
	if ws == nil {
		return errors.New("world state cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worldstates[id] = ws
	return nil
}

// LoadWorldState mocks loading a world state
func (m *MockStorage) LoadWorldState(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, exists := m.worldstates[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return ws, nil
}

// DeleteWorldState mocks deleting a world state
func (m *MockStorage) DeleteWorldState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.worldstates, id)
	return nil
}

// ListRooms returns scene names in the order they were added
func (m *MockStorage) ListRooms(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.roomOrder), nil
}

// GetRoom mocks getting a room by scene name
func (m *MockStorage) GetRoom(ctx context.Context, scene string) (*scenario.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, exists := m.rooms[scene]
	if !exists {
		return nil, errors.New("room not found")
	}
	return r, nil
}

// GetMask mocks getting the collision mask of a room
func (m *MockStorage) GetMask(ctx context.Context, room *scenario.Room) (*mask.Mask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mk, exists := m.masks[room.SceneName]
	if !exists {
		return nil, errors.New("mask not found")
	}
	return mk, nil
}

// AddRoom adds a room and its mask to the mock storage (for testing). A nil
// mask makes GetMask fail for the room.
func (m *MockStorage) AddRoom(r *scenario.Room, mk *mask.Mask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rooms[r.SceneName]; !exists {
		m.roomOrder = append(m.roomOrder, r.SceneName)
	}
	m.rooms[r.SceneName] = r
	if mk != nil {
		m.masks[r.SceneName] = mk
	}
}

// GetManifest mocks getting the world manifest
func (m *MockStorage) GetManifest(ctx context.Context) (*scenario.Manifest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.manifest == nil {
		return nil, errors.New("manifest not found")
	}
	return m.manifest, nil
}

// SetManifest sets the world manifest (for testing)
func (m *MockStorage) SetManifest(manifest *scenario.Manifest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest = manifest
}

// GetSchedule mocks getting a schedule by file name
func (m *MockStorage) GetSchedule(ctx context.Context, file string) (*schedule.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.schedules[file]
	if !exists {
		return nil, errors.New("schedule not found")
	}
	return s, nil
}

// ListSchedules mocks listing schedule files
func (m *MockStorage) ListSchedules(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]string, 0, len(m.schedules))
	for file := range m.schedules {
		result = append(result, file)
	}
	slices.Sort(result)
	return result, nil
}

// AddSchedule adds a schedule to the mock storage (for testing)
func (m *MockStorage) AddSchedule(file string, s *schedule.Schedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[file] = s
}

// ReadDocument mocks reading a raw data file
func (m *MockStorage) ReadDocument(ctx context.Context, rel string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, exists := m.documents[rel]
	if !exists {
		return nil, fmt.Errorf("document not found: %s", rel)
	}
	return data, nil
}

// SetDocument stores a raw data file (for testing)
func (m *MockStorage) SetDocument(rel string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[rel] = data
}
