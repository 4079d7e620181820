package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agenttable/agenttable/internal/game"
	"github.com/agenttable/agenttable/internal/store"
)

const (
	persistQueueSize = 64
	persistTimeout   = 5 * time.Second
)

// persistOp is one pending write. Exactly one field is set.
type persistOp struct {
	state   *game.HandState
	history *game.HandHistory
	action  *actionOp
}

type actionOp struct {
	gameID     string
	handNumber int
	record     game.ActionRecord
}

// persister drains writes for one game on a single goroutine so store
// latency never blocks the action path and writes stay ordered. A full
// queue drops the op with a warning rather than stalling the game.
type persister struct {
	logger zerolog.Logger
	store  store.Store
	ops    chan persistOp
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func newPersister(logger zerolog.Logger, st store.Store, gameID string) *persister {
	p := &persister{
		logger: logger.With().Str("component", "persister").Str("game_id", gameID).Logger(),
		store:  st,
		ops:    make(chan persistOp, persistQueueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) run() {
	defer close(p.done)
	for op := range p.ops {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		p.write(ctx, op)
		cancel()
	}
}

func (p *persister) write(ctx context.Context, op persistOp) {
	var err error
	switch {
	case op.state != nil:
		err = p.store.SaveState(ctx, op.state)
	case op.history != nil:
		err = p.store.SaveHistory(ctx, op.history)
	case op.action != nil:
		err = p.store.AppendAction(ctx, op.action.gameID, op.action.handNumber, op.action.record)
	}
	if err != nil {
		p.logger.Error().Err(err).Msg("persist failed")
	}
}

// enqueue never blocks; a full or closed queue drops the op with a log
// line.
func (p *persister) enqueue(op persistOp) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Debug().Msg("persister closed, dropping write")
		return
	}
	select {
	case p.ops <- op:
	default:
		p.logger.Warn().Msg("persist queue full, dropping write")
	}
}

// close drains remaining ops and waits for the writer to exit. It is
// idempotent and safe against concurrent enqueues.
func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.ops)
	<-p.done
}
