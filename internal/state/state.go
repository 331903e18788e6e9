package state

import (
	"sync"
	"sync/atomic"

	"levelview/internal/depth"
)

// State holds what every chart session shares: the latest upstream snapshot,
// the feed connection flag and the aggregation new sessions start with.
type State struct {
	mu       sync.RWMutex
	snapshot depth.Snapshot
	seq      uint64
	setting  depth.Setting

	connected atomic.Bool
	sessions  atomic.Int64
}

func NewState(defaultSetting depth.Setting) *State {
	return &State{setting: defaultSetting}
}

// SetSnapshot replaces the latest snapshot and returns its sequence number.
func (s *State) SetSnapshot(snap depth.Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.seq++
	return s.seq
}

func (s *State) Snapshot() (depth.Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.seq
}

func (s *State) SetSetting(v depth.Setting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setting = v
}

func (s *State) Setting() depth.Setting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.setting
}

func (s *State) SetConnected(v bool) { s.connected.Store(v) }
func (s *State) Connected() bool     { return s.connected.Load() }

func (s *State) SessionOpened() { s.sessions.Add(1) }
func (s *State) SessionClosed() { s.sessions.Add(-1) }
func (s *State) Sessions() int  { return int(s.sessions.Load()) }
