package app

import (
	"context"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// AbandonFunc delivers the abandon signal back into the engine.
type AbandonFunc func(ctx context.Context, sessionID string) (*domain.Session, error)

// Watchdog enforces quiz time limits. One timer per started session; firing
// calls Abandon, which the tracker guarantees is a no-op-with-error once the
// session is already terminal.
type Watchdog struct {
	abandon AbandonFunc
	after   func(d time.Duration, f func()) *time.Timer

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewWatchdog(abandon AbandonFunc) *Watchdog {
	return &Watchdog{
		abandon: abandon,
		after:   time.AfterFunc,
		timers:  make(map[string]*time.Timer),
	}
}

// Arm schedules an abandon for the session's time limit. Sessions without a
// limit are never armed.
func (w *Watchdog) Arm(session *domain.Session) {
	if session.TimeLimitSeconds <= 0 {
		return
	}
	sessionID := session.ID
	limit := time.Duration(session.TimeLimitSeconds) * time.Second

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[sessionID]; ok {
		timer.Stop()
	}
	w.timers[sessionID] = w.after(limit, func() {
		w.Disarm(sessionID)
		// Already-terminal sessions reject the transition; nothing to do.
		_, _ = w.abandon(context.Background(), sessionID)
	})
}

// Disarm cancels the timer for a session that reached a terminal state on
// its own.
func (w *Watchdog) Disarm(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[sessionID]; ok {
		timer.Stop()
		delete(w.timers, sessionID)
	}
}

// Stop cancels all outstanding timers.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, timer := range w.timers {
		timer.Stop()
		delete(w.timers, id)
	}
}
