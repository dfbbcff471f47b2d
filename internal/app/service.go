package app

import (
	"context"
	"errors"
	"log"

	"quiz-session-service/internal/domain"
)

// QuizService contains the core quiz-session use cases. Collaborators are
// injected; the service itself holds no process-wide state beyond the live
// session repository handed to it.
type QuizService struct {
	builder  *SessionBuilder
	tracker  *ProgressTracker
	compiler *ResultCompiler
	sessions SessionRepository
	archive  SessionArchive
	results  ResultSink
	watchdog *Watchdog
}

func NewQuizService(builder *SessionBuilder, sessions SessionRepository, archive SessionArchive, results ResultSink) *QuizService {
	s := &QuizService{
		builder:  builder,
		tracker:  NewProgressTracker(),
		compiler: NewResultCompiler(),
		sessions: sessions,
		archive:  archive,
		results:  results,
	}
	s.watchdog = NewWatchdog(s.Abandon)
	return s
}

// BuildSession assembles a new session and registers it with the live store.
// The session snapshot is persisted on the first state transition, not here.
func (s *QuizService) BuildSession(ctx context.Context, quizID, studentID string, requestedCount int) (*domain.Session, error) {
	session, err := s.builder.BuildSession(ctx, quizID, studentID, requestedCount)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(session)
	return session, nil
}

// Start begins a session and arms the time-limit watchdog when the quiz
// carries one.
func (s *QuizService) Start(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Start(session); err != nil {
		return nil, err
	}
	s.watchdog.Arm(session)
	snapshot := s.tracker.Snapshot(session)
	s.persistSession(ctx, snapshot)
	return snapshot, nil
}

// SubmitAnswer records one answer for the session. Malformed-question
// failures are logged for content triage before being returned: they point at
// authoring bugs, not user mistakes.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID, questionID string, submission domain.Submission, elapsedMs int64) (domain.AnswerRecord, *domain.Session, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.AnswerRecord{}, nil, err
	}
	record, err := s.tracker.SubmitAnswer(session, questionID, submission, elapsedMs)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedQuestion) {
			log.Printf("malformed question in quiz %s: %v", session.QuizID, err)
		}
		return domain.AnswerRecord{}, nil, err
	}

	// The watchdog may abandon the session from its own goroutine at any
	// moment, so everything read or serialized past this point comes from a
	// snapshot taken under the session lock.
	snapshot := s.tracker.Snapshot(session)
	if err := s.archive.AppendAnswerRecord(ctx, session.ID, record); err != nil {
		log.Printf("append answer record for session %s: %v", session.ID, err)
	}
	if snapshot.Status.Terminal() {
		s.watchdog.Disarm(session.ID)
	}
	s.persistSession(ctx, snapshot)
	return record, snapshot, nil
}

// AnswerFor re-reads an existing record without mutating anything, so client
// retries can recover the outcome they missed.
func (s *QuizService) AnswerFor(sessionID, questionID string) (domain.AnswerRecord, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	record, ok := s.tracker.RecordFor(session, questionID)
	if !ok {
		return domain.AnswerRecord{}, domain.ErrUnknownQuestion
	}
	return record, nil
}

// Finish completes the session, skipping unanswered questions.
func (s *QuizService) Finish(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Finish(session); err != nil {
		return nil, err
	}
	s.watchdog.Disarm(session.ID)
	snapshot := s.tracker.Snapshot(session)
	s.persistSession(ctx, snapshot)
	return snapshot, nil
}

// Abandon terminates the session early. Exposed as the cancellation entry
// point for the time-limit collaborator as well as explicit exits.
func (s *QuizService) Abandon(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Abandon(session); err != nil {
		return nil, err
	}
	s.watchdog.Disarm(session.ID)
	snapshot := s.tracker.Snapshot(session)
	s.persistSession(ctx, snapshot)
	return snapshot, nil
}

// Compile produces and persists the final report for a terminal session.
func (s *QuizService) Compile(ctx context.Context, sessionID string) (*domain.QuizResult, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	result, err := s.compiler.Compile(s.tracker.Snapshot(session))
	if err != nil {
		return nil, err
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Session returns the live session, falling back to the archive for sessions
// evicted from the in-memory store.
func (s *QuizService) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	if session, ok := s.sessions.Get(sessionID); ok {
		return s.tracker.Snapshot(session), nil
	}
	session, err := s.archive.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(session)
	return s.tracker.Snapshot(session), nil
}

// Close stops outstanding watchdog timers.
func (s *QuizService) Close() {
	s.watchdog.Stop()
}

func (s *QuizService) session(sessionID string) (*domain.Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// persistSession archives a snapshot taken under the session lock; callers
// must never hand it the live session, which concurrent transitions keep
// mutating. Best effort: the live session stays authoritative, so archive
// hiccups are logged rather than bubbled to the student mid-quiz.
func (s *QuizService) persistSession(ctx context.Context, snapshot *domain.Session) {
	if err := s.archive.SaveSession(ctx, snapshot); err != nil {
		log.Printf("persist session %s: %v", snapshot.ID, err)
	}
}
