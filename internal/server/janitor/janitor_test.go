package janitor

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agrismart/auth/internal/dbx"
	"github.com/agrismart/auth/internal/logging"
	"github.com/agrismart/auth/internal/server/models"
	accountsrepo "github.com/agrismart/auth/internal/server/repositories/accounts"
	providersrepo "github.com/agrismart/auth/internal/server/repositories/providers"
	sessionsrepo "github.com/agrismart/auth/internal/server/repositories/sessions"
)

// fakeSessions records DeleteExpired calls and can be primed with rows or an
// error sequence.
type fakeSessions struct {
	mu      sync.Mutex
	rows    map[string]int64 // jti -> expired_at
	errs    []error          // consumed one per sweep, nil entries succeed
	sweeps  int
	cutoffs []int64
}

func (f *fakeSessions) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	return s, nil
}
func (f *fakeSessions) DeleteByJTI(ctx context.Context, jti string) (int64, error) { return 0, nil }
func (f *fakeSessions) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	return 0, nil
}

func (f *fakeSessions) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	f.cutoffs = append(f.cutoffs, before)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	var n int64
	for jti, exp := range f.rows {
		if exp < before {
			delete(f.rows, jti)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

func (f *fakeSessions) remaining() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for jti := range f.rows {
		out = append(out, jti)
	}
	return out
}

type fakeRepoManager struct {
	s *fakeSessions
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accountsrepo.Repository   { return nil }
func (m *fakeRepoManager) Providers(db dbx.DBTX) providersrepo.Repository { return nil }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository   { return m.s }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSweep_BoundaryIsExclusive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fs := &fakeSessions{rows: map[string]int64{
		"past":     now.Unix() - 10,
		"boundary": now.Unix(),
		"future":   now.Unix() + 10,
	}}
	j := New(nil, &fakeRepoManager{s: fs}, time.Hour, time.Hour, logging.Nop())
	j.now = func() time.Time { return now }

	if err := j.sweep(context.Background()); err != nil {
		t.Fatalf("sweep error: %v", err)
	}

	left := fs.remaining()
	if len(left) != 2 {
		t.Fatalf("want 2 surviving rows, got %v", left)
	}
	for _, jti := range left {
		if jti == "past" {
			t.Fatal("expired row survived the sweep")
		}
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	fs := &fakeSessions{}
	j := New(nil, &fakeRepoManager{s: fs}, 5*time.Millisecond, 5*time.Millisecond, logging.Nop())

	j.Start(context.Background())
	j.Start(context.Background()) // second start is a no-op

	waitFor(t, time.Second, func() bool { return fs.sweepCount() >= 2 })

	j.Stop()
	j.Stop() // second stop is a no-op

	n := fs.sweepCount()
	time.Sleep(25 * time.Millisecond)
	if fs.sweepCount() != n {
		t.Fatal("sweep ran after Stop returned")
	}
}

func TestRun_ErrorBackoffThenResume(t *testing.T) {
	fs := &fakeSessions{errs: []error{errors.New("db down"), nil}}
	j := New(nil, &fakeRepoManager{s: fs}, time.Millisecond, 20*time.Millisecond, logging.Nop())

	j.Start(context.Background())
	defer j.Stop()

	waitFor(t, time.Second, func() bool { return fs.sweepCount() >= 1 })
	start := time.Now()
	waitFor(t, time.Second, func() bool { return fs.sweepCount() >= 2 })
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("second sweep after %v, want the error backoff to apply", elapsed)
	}

	// After a successful sweep the normal schedule is back.
	waitFor(t, time.Second, func() bool { return fs.sweepCount() >= 4 })
}

func TestStop_CancelsPendingWait(t *testing.T) {
	fs := &fakeSessions{}
	j := New(nil, &fakeRepoManager{s: fs}, time.Hour, time.Hour, logging.Nop())

	j.Start(context.Background())

	done := make(chan struct{})
	go func() {
		j.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return while the loop was sleeping")
	}
}
