// Copyright 2025 Certen Protocol

package tasks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/intentmesh/coordinator/pkg/metrics"
)

// KV is the minimal persistence contract tasks.Store needs, modeled on
// the original ledger store's Get/Set key-value shape; pkg/kvdb.KVAdapter
// is the concrete implementation bound at startup.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

var (
	keyTaskPrefix  = []byte("tasks:task:")
	keyNodePrefix  = []byte("tasks:node:")
	keyTaskIndex   = []byte("tasks:index")
)

func taskKey(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return append(append([]byte{}, keyTaskPrefix...), b...)
}

func nodeKey(owner string) []byte {
	return append(append([]byte{}, keyNodePrefix...), []byte(owner)...)
}

// Store holds the live Task/Node/Challenge set in memory, persisting each
// mutation to KV. Matches pkg/consensus.ValidatorApp's pattern (in-memory
// map guarded by one RWMutex, restored from the backing store at startup)
// rather than pkg/ledger.LedgerStore's single-writer-no-lock design: task
// state transitions are driven by concurrent node/DAO callers, not a
// single consensus commit thread.
type Store struct {
	mu         sync.RWMutex
	kv         KV
	tasks      map[uint64]*Task
	nodes      map[string]*Node
	challenges map[uint64]*Challenge
	nextID     uint64
	metrics    *metrics.Registry
}

// SetMetrics attaches a metrics registry state transitions are reported
// against. Optional; nil (the default) makes observations a no-op.
func (s *Store) SetMetrics(m *metrics.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// NewStore creates a Store backed by kv. If kv is non-nil, previously
// persisted tasks are restored (best-effort; a restore failure starts
// fresh rather than blocking startup).
func NewStore(kv KV) *Store {
	s := &Store{
		kv:         kv,
		tasks:      make(map[uint64]*Task),
		nodes:      make(map[string]*Node),
		challenges: make(map[uint64]*Challenge),
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	if s.kv == nil {
		return
	}
	raw, err := s.kv.Get(keyTaskIndex)
	if err != nil || raw == nil {
		return
	}
	var ids []uint64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return
	}
	for _, id := range ids {
		b, err := s.kv.Get(taskKey(id))
		if err != nil || b == nil {
			continue
		}
		var t Task
		if err := json.Unmarshal(b, &t); err != nil {
			continue
		}
		s.tasks[id] = &t
		if id >= s.nextID {
			s.nextID = id + 1
		}
	}
}

func (s *Store) persistTask(t *Task) error {
	if s.kv == nil {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := s.kv.Set(taskKey(t.TaskID), b); err != nil {
		return fmt.Errorf("persist task: %w", err)
	}
	return s.persistIndex()
}

func (s *Store) persistIndex() error {
	ids := make([]uint64, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal task index: %w", err)
	}
	return s.kv.Set(keyTaskIndex, b)
}

func (s *Store) persistNode(n *Node) error {
	if s.kv == nil {
		return nil
	}
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	return s.kv.Set(nodeKey(n.Owner), b)
}

// PutNode registers or updates a node.
func (s *Store) PutNode(n *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.Owner] = n
	return s.persistNode(n)
}

// GetNode returns the node registered under owner.
func (s *Store) GetNode(owner string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[owner]
	return n, ok
}

// GetTask returns the task with the given id.
func (s *Store) GetTask(id uint64) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// CreateTask assigns the next task id, stores t in Pending, and persists.
func (s *Store) CreateTask(t *Task) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.TaskID = s.nextID
	t.Status = StatePending
	s.tasks[t.TaskID] = t
	if err := s.persistTask(t); err != nil {
		return 0, err
	}
	return t.TaskID, nil
}

// PutChallenge stores or updates a challenge record for a task.
func (s *Store) PutChallenge(c *Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[c.TaskID] = c
}

// GetChallenge returns the challenge record for a task, if any.
func (s *Store) GetChallenge(taskID uint64) (*Challenge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[taskID]
	return c, ok
}
