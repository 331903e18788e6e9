package feed

import (
	"context"

	"levelview/internal/depth"
)

// MockFeed is a SnapshotFeed driven by hand; handy for tests and demos.
type MockFeed struct {
	pipe
}

func NewMockFeed() *MockFeed {
	m := &MockFeed{}
	m.init()
	return m
}

func (m *MockFeed) Run(ctx context.Context, onStatus func(connected bool)) {
	ctx, ok := m.start(ctx)
	if !ok {
		return
	}
	defer m.stopped()
	m.connected.Store(true)
	onStatus(true)
	<-ctx.Done()
}

// Helpers for tests
func (m *MockFeed) SendUpdate(s depth.Snapshot) { m.publish(s) }
func (m *MockFeed) SendError(e error)           { m.emitErr(e) }
