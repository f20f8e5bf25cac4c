// Package consensus replicates the record store through Raft. Every node
// applies the same ordered command log to a deterministic key/value machine,
// so any node can serve reads while the leader serializes writes.
package consensus

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	OpPut    = "PUT"
	OpDelete = "DELETE"
)

// Command is one replicated mutation. Value travels base64-encoded inside
// the JSON log entry.
type Command struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// Machine is the deterministic key/value state machine.
type Machine struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMachine() *Machine {
	return &Machine{objects: make(map[string][]byte)}
}

// Apply executes one command. Both ops are idempotent, so log replay after
// snapshot restore is safe.
func (m *Machine) Apply(cmd Command) error {
	key := strings.TrimSpace(cmd.Key)
	if key == "" {
		return errors.New("key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch cmd.Op {
	case OpPut:
		m.objects[key] = append([]byte(nil), cmd.Value...)
	case OpDelete:
		delete(m.objects, key)
	default:
		return fmt.Errorf("unsupported op: %s", cmd.Op)
	}
	return nil
}

// Get returns a copy of the value, or false when the key is absent.
func (m *Machine) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), value...), true
}

// List returns all keys with the prefix, sorted.
func (m *Machine) List(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored objects.
func (m *Machine) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Marshal serializes the full key space for a snapshot.
func (m *Machine) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(m.objects)
}

// Unmarshal replaces machine state from a snapshot payload.
func (m *Machine) Unmarshal(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty snapshot")
	}
	var objects map[string][]byte
	if err := json.Unmarshal(data, &objects); err != nil {
		return err
	}
	if objects == nil {
		objects = make(map[string][]byte)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = objects
	return nil
}
