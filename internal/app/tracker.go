package app

import (
	"fmt"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// ProgressTracker owns session state transitions, per-question timing, and
// the running score. Submissions for different sessions proceed in parallel;
// mutations on the same session are serialized through a per-session lock,
// with DuplicateSubmission as the correctness backstop against client
// retries and double-clicks.
type ProgressTracker struct {
	clock func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProgressTracker() *ProgressTracker {
	return NewProgressTrackerWithClock(time.Now)
}

// NewProgressTrackerWithClock allows deterministic timestamps in tests.
func NewProgressTrackerWithClock(clock func() time.Time) *ProgressTracker {
	return &ProgressTracker{
		clock: clock,
		locks: make(map[string]*sync.Mutex),
	}
}

func (t *ProgressTracker) lockFor(sessionID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[sessionID] = lock
	}
	return lock
}

// release drops the per-session lock entry once the session is terminal.
func (t *ProgressTracker) release(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.locks, sessionID)
}

// Start moves NotStarted -> InProgress and records the start time.
func (t *ProgressTracker) Start(session *domain.Session) error {
	lock := t.lockFor(session.ID)
	lock.Lock()
	defer lock.Unlock()

	if session.Status != domain.StatusNotStarted {
		return fmt.Errorf("%w: session %s is %s", domain.ErrAlreadyStarted, session.ID, session.Status)
	}
	now := t.clock()
	session.Status = domain.StatusInProgress
	session.StartedAt = &now
	return nil
}

// SubmitAnswer records one answer attempt. Valid only InProgress. The
// evaluator decides correctness; the score grows by the question's weight on
// a correct answer and never decreases. elapsedMs is caller-measured
// wall-clock time and is clamped to be non-negative. Once every session
// question has a record the session auto-completes.
func (t *ProgressTracker) SubmitAnswer(session *domain.Session, questionID string, submission domain.Submission, elapsedMs int64) (domain.AnswerRecord, error) {
	lock := t.lockFor(session.ID)
	lock.Lock()
	defer lock.Unlock()

	if session.Status != domain.StatusInProgress {
		return domain.AnswerRecord{}, fmt.Errorf("%w: cannot submit while %s", domain.ErrInvalidState, session.Status)
	}

	question, ok := session.QuestionByID(questionID)
	if !ok {
		return domain.AnswerRecord{}, fmt.Errorf("%w: %s", domain.ErrUnknownQuestion, questionID)
	}
	if _, exists := session.Records[questionID]; exists {
		return domain.AnswerRecord{}, fmt.Errorf("%w: %s", domain.ErrDuplicateSubmission, questionID)
	}

	evaluation, err := Evaluate(question, submission)
	if err != nil {
		return domain.AnswerRecord{}, err
	}

	if elapsedMs < 0 {
		elapsedMs = 0
	}
	record := domain.AnswerRecord{
		QuestionID:  questionID,
		AnswerID:    submission.AnswerID,
		IsCorrect:   evaluation.IsCorrect,
		Variables:   evaluation.Variables,
		TimeSpentMs: elapsedMs,
		SubmittedAt: t.clock(),
	}
	session.Records[questionID] = record
	if record.IsCorrect {
		session.Score += question.PointsOrDefault()
	}

	if session.Answered() == len(session.Questions) {
		t.completeLocked(session)
	}
	return record, nil
}

// Snapshot deep-copies the session under its lock. Callers that serialize or
// inspect a session while other goroutines (submissions, the time-limit
// watchdog) may still be transitioning it must work off a snapshot, never
// the live session.
func (t *ProgressTracker) Snapshot(session *domain.Session) *domain.Session {
	lock := t.lockFor(session.ID)
	lock.Lock()
	defer lock.Unlock()
	return session.Clone()
}

// RecordFor is the idempotent read counterpart of SubmitAnswer.
func (t *ProgressTracker) RecordFor(session *domain.Session, questionID string) (domain.AnswerRecord, bool) {
	lock := t.lockFor(session.ID)
	lock.Lock()
	defer lock.Unlock()
	record, ok := session.Records[questionID]
	return record, ok
}

// Finish completes an InProgress session, marking any unanswered questions
// as skipped (nil answer, incorrect) before finalizing.
func (t *ProgressTracker) Finish(session *domain.Session) error {
	lock := t.lockFor(session.ID)
	lock.Lock()
	defer lock.Unlock()

	if session.Status != domain.StatusInProgress {
		return fmt.Errorf("%w: cannot finish while %s", domain.ErrInvalidState, session.Status)
	}

	now := t.clock()
	for _, sq := range session.Questions {
		id := sq.Question.ID
		if _, answered := session.Records[id]; answered {
			continue
		}
		session.Records[id] = domain.AnswerRecord{
			QuestionID:  id,
			AnswerID:    nil,
			IsCorrect:   false,
			TimeSpentMs: 0,
			SubmittedAt: now,
		}
	}
	t.completeLocked(session)
	return nil
}

// Abandon terminates an InProgress session early, typically on a time-limit
// or explicit exit signal. Safe to call at most once: the session is
// terminal afterwards, so a second call fails with ErrInvalidState.
func (t *ProgressTracker) Abandon(session *domain.Session) error {
	lock := t.lockFor(session.ID)
	lock.Lock()
	defer lock.Unlock()

	if session.Status != domain.StatusInProgress {
		return fmt.Errorf("%w: cannot abandon while %s", domain.ErrInvalidState, session.Status)
	}
	now := t.clock()
	session.Status = domain.StatusAbandoned
	session.CompletedAt = &now
	t.release(session.ID)
	return nil
}

func (t *ProgressTracker) completeLocked(session *domain.Session) {
	now := t.clock()
	session.Status = domain.StatusCompleted
	session.CompletedAt = &now
	t.release(session.ID)
}
