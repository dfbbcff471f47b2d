package app_test

import (
	"errors"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func threeQuestionSession() *domain.Session {
	questions := []domain.SessionQuestion{
		{Question: domain.Question{
			ID: "q1", Difficulty: domain.DifficultyEasy, Points: 10,
			Options: []domain.Option{{ID: "a", Correct: true}, {ID: "b"}},
		}},
		{Question: domain.Question{
			ID: "q2", Difficulty: domain.DifficultyMedium, Points: 5,
			Options: []domain.Option{{ID: "a"}, {ID: "b", Correct: true}},
		}},
		{Question: domain.Question{
			ID: "q3", Difficulty: domain.DifficultyHard, Points: 5,
			Options: []domain.Option{{ID: "a", Correct: true}, {ID: "b"}},
		}},
	}
	return &domain.Session{
		ID:        "sess-1",
		QuizID:    "quiz-1",
		StudentID: "student-1",
		Questions: questions,
		Status:    domain.StatusNotStarted,
		Policy:    domain.SkipIncorrect,
		Records:   make(map[string]domain.AnswerRecord),
	}
}

func TestStartTransition(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()

	if err := tracker.Start(session); err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Status != domain.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", session.Status)
	}
	if session.StartedAt == nil {
		t.Fatalf("expected startedAt to be recorded")
	}

	if err := tracker.Start(session); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestSubmitBeforeStartRejected(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()

	_, err := tracker.SubmitAnswer(session, "q1", domain.Submission{AnswerID: strptr("a")}, 100)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

// Answer Q1 correctly (+10), skip Q2, answer Q3 incorrectly; Finish must
// complete with score 10 and three records, Q2's being a nil-answer skip.
func TestFinishSkipsUnanswered(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()
	if err := tracker.Start(session); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := tracker.SubmitAnswer(session, "q1", domain.Submission{AnswerID: strptr("a")}, 4000); err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if _, err := tracker.SubmitAnswer(session, "q3", domain.Submission{AnswerID: strptr("b")}, 9000); err != nil {
		t.Fatalf("submit q3: %v", err)
	}

	if err := tracker.Finish(session); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if session.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", session.Status)
	}
	if session.Score != 10 {
		t.Fatalf("expected score 10, got %d", session.Score)
	}
	if len(session.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(session.Records))
	}
	skipped := session.Records["q2"]
	if skipped.AnswerID != nil || skipped.IsCorrect {
		t.Fatalf("expected q2 skipped as incorrect, got %+v", skipped)
	}
	if session.CompletedAt == nil {
		t.Fatalf("expected completedAt to be set")
	}
}

func TestDuplicateSubmissionRejected(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()
	_ = tracker.Start(session)

	first, err := tracker.SubmitAnswer(session, "q1", domain.Submission{AnswerID: strptr("a")}, 100)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = tracker.SubmitAnswer(session, "q1", domain.Submission{AnswerID: strptr("b")}, 200)
	if !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected ErrDuplicateSubmission, got %v", err)
	}

	// Stored record is unchanged; re-reads stay idempotent.
	stored, ok := tracker.RecordFor(session, "q1")
	if !ok {
		t.Fatalf("expected record")
	}
	if stored.AnswerID == nil || *stored.AnswerID != "a" || stored.TimeSpentMs != first.TimeSpentMs {
		t.Fatalf("expected original record preserved, got %+v", stored)
	}
	if session.Score != 10 {
		t.Fatalf("expected score unchanged at 10, got %d", session.Score)
	}
}

func TestUnknownQuestionRejected(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()
	_ = tracker.Start(session)

	_, err := tracker.SubmitAnswer(session, "q99", domain.Submission{AnswerID: strptr("a")}, 100)
	if !errors.Is(err, domain.ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

func TestAutoCompleteOnLastAnswer(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()
	_ = tracker.Start(session)

	for _, id := range []string{"q1", "q2", "q3"} {
		if _, err := tracker.SubmitAnswer(session, id, domain.Submission{AnswerID: strptr("a")}, 100); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}
	if session.Status != domain.StatusCompleted {
		t.Fatalf("expected auto-complete after last answer, got %s", session.Status)
	}
}

func TestAbandonAfterFinishRejected(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()
	_ = tracker.Start(session)
	if err := tracker.Finish(session); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if err := tracker.Abandon(session); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestAbandonIsTerminal(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()
	_ = tracker.Start(session)

	if _, err := tracker.SubmitAnswer(session, "q1", domain.Submission{AnswerID: strptr("a")}, 100); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := tracker.Abandon(session); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if session.Status != domain.StatusAbandoned {
		t.Fatalf("expected abandoned, got %s", session.Status)
	}
	// Partial score from answered questions is retained.
	if session.Score != 10 {
		t.Fatalf("expected partial score 10, got %d", session.Score)
	}

	if _, err := tracker.SubmitAnswer(session, "q2", domain.Submission{AnswerID: strptr("b")}, 100); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected submissions rejected after abandon, got %v", err)
	}
	if err := tracker.Abandon(session); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected second abandon rejected, got %v", err)
	}
}

// Snapshots are deep copies: transitions that land after the snapshot was
// taken must not show through it.
func TestSnapshotIsolatedFromLaterTransitions(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()
	if err := tracker.Start(session); err != nil {
		t.Fatalf("start: %v", err)
	}

	snapshot := tracker.Snapshot(session)

	if _, err := tracker.SubmitAnswer(session, "q1", domain.Submission{AnswerID: strptr("a")}, 100); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := tracker.Abandon(session); err != nil {
		t.Fatalf("abandon: %v", err)
	}

	if snapshot.Status != domain.StatusInProgress {
		t.Fatalf("expected snapshot to stay in_progress, got %s", snapshot.Status)
	}
	if len(snapshot.Records) != 0 || snapshot.Score != 0 {
		t.Fatalf("expected snapshot untouched by later transitions, got %d records, score %d", len(snapshot.Records), snapshot.Score)
	}
	if snapshot.CompletedAt != nil {
		t.Fatalf("expected nil completedAt on snapshot")
	}
}

func TestElapsedTimeClampedNonNegative(t *testing.T) {
	tracker := app.NewProgressTracker()
	session := threeQuestionSession()
	_ = tracker.Start(session)

	record, err := tracker.SubmitAnswer(session, "q1", domain.Submission{AnswerID: strptr("a")}, -500)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.TimeSpentMs != 0 {
		t.Fatalf("expected clamped 0, got %d", record.TimeSpentMs)
	}
}

// Score only ever grows, and never beyond the weight of correctly answered
// questions.
func TestScoreMonotonicAndBounded(t *testing.T) {
	tracker := app.NewProgressTrackerWithClock(func() time.Time { return time.Unix(1700000000, 0) })
	session := threeQuestionSession()
	_ = tracker.Start(session)

	last := 0
	correctSum := 0
	answers := map[string]string{"q1": "a", "q2": "a", "q3": "a"} // q2 wrong
	for _, id := range []string{"q1", "q2", "q3"} {
		answer := answers[id]
		record, err := tracker.SubmitAnswer(session, id, domain.Submission{AnswerID: &answer}, 100)
		if err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
		if session.Score < last {
			t.Fatalf("score decreased from %d to %d", last, session.Score)
		}
		last = session.Score
		if record.IsCorrect {
			q, _ := session.QuestionByID(id)
			correctSum += q.PointsOrDefault()
		}
	}
	if session.Score > correctSum {
		t.Fatalf("score %d exceeds correct-answer weight %d", session.Score, correctSum)
	}
}
