// Package janitor runs the background sweep that removes expired session
// rows. One sweep deletes every row whose expiry is strictly in the past; a
// row expiring exactly at the sweep instant survives until the next tick.
package janitor

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/agrismart/auth/internal/logging"
	"github.com/agrismart/auth/internal/server/repositories/repomanager"
)

type Janitor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	interval    time.Duration
	// errBackoff is how long the loop pauses after a failed sweep before
	// resuming the normal schedule.
	errBackoff time.Duration
	now        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(db *sql.DB, m repomanager.RepositoryManager, interval, errBackoff time.Duration, logger logging.Logger) *Janitor {
	return &Janitor{
		db:          db,
		repomanager: m,
		logger:      logger,
		interval:    interval,
		errBackoff:  errBackoff,
		now:         time.Now,
	}
}

// Start launches the sweep loop. Starting an already-running janitor is a
// no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})

	go j.run(ctx, j.done)
	j.logger.Info(ctx, "janitor started", "interval", j.interval.String())
}

// Stop cancels the loop and waits for the in-flight sweep to finish.
// Stopping a stopped janitor is a no-op.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if j.cancel == nil {
		j.mu.Unlock()
		return
	}
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	cancel()
	<-done
	j.logger.Info(context.Background(), "janitor stopped")
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	wait := j.interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := j.sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			j.logger.Error(ctx, "session sweep failed", "error", err.Error())
			wait = j.errBackoff
			continue
		}
		wait = j.interval
	}
}

func (j *Janitor) sweep(ctx context.Context) error {
	n, err := j.repomanager.Sessions(j.db).DeleteExpired(ctx, j.now().Unix())
	if err != nil {
		return err
	}
	j.logger.Info(ctx, "expired sessions removed", "count", n)
	return nil
}
