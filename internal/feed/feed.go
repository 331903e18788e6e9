package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"levelview/internal/depth"
)

// SnapshotFeed delivers full market snapshots. Every snapshot replaces the
// previous one, so consumers only ever care about the latest.
type SnapshotFeed interface {
	Run(ctx context.Context, onStatus func(connected bool))
	Updates() <-chan depth.Snapshot
	Errors() <-chan error
	Connected() bool
	Close()
}

// pipe holds the output channels and lifecycle shared by the feed types.
type pipe struct {
	updCh chan depth.Snapshot
	errCh chan error

	connected atomic.Bool

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (p *pipe) init() {
	p.updCh = make(chan depth.Snapshot, 8)
	p.errCh = make(chan error, 16)
}

func (p *pipe) Updates() <-chan depth.Snapshot { return p.updCh }
func (p *pipe) Errors() <-chan error           { return p.errCh }
func (p *pipe) Connected() bool                { return p.connected.Load() }

// start derives the run context. It returns false if the feed is already
// running or closed.
func (p *pipe) start(ctx context.Context) (context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return nil, false
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	return ctx, true
}

func (p *pipe) stopped() {
	p.connected.Store(false)
	close(p.done)
}

// Close stops Run, waits for it to return and closes the output channels.
func (p *pipe) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		if p.done == nil {
			p.done = make(chan struct{})
			close(p.done)
		}
		cancel, done := p.cancel, p.done
		p.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		<-done
		close(p.updCh)
		close(p.errCh)
	})
}

// publish hands a snapshot to the consumer, discarding the oldest queued one
// when the consumer is behind.
func (p *pipe) publish(s depth.Snapshot) {
	for {
		select {
		case p.updCh <- s:
			return
		default:
		}
		select {
		case <-p.updCh:
		default:
		}
	}
}

func (p *pipe) emitErr(err error) {
	select {
	case p.errCh <- err:
	default:
		// drop if buffer full
	}
}
