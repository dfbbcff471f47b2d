package domain

import "errors"

var (
	// ErrInvalidQuiz is returned when a quiz ID does not resolve to any configured quiz.
	ErrInvalidQuiz = errors.New("quiz not found")
	// ErrNoQuestions is returned when a quiz has zero eligible questions.
	ErrNoQuestions = errors.New("no eligible questions for quiz")
	// ErrSessionNotFound is returned when a session ID is unknown to the store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownQuestion indicates a submitted question ID is not part of the session.
	ErrUnknownQuestion = errors.New("question not part of session")
	// ErrDuplicateSubmission rejects a second answer for an already-answered question.
	ErrDuplicateSubmission = errors.New("question already answered")
	// ErrAlreadyStarted rejects starting a session that has left NotStarted.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrMalformedQuestion flags a parametrized question whose rule cannot be
	// evaluated with the supplied variables. Indicates a data-authoring defect
	// rather than bad user input; callers log it for content triage.
	ErrMalformedQuestion = errors.New("malformed question predicate")
	// ErrSessionNotFinished rejects compiling a result for a non-terminal session.
	ErrSessionNotFinished = errors.New("session not finished")
	// ErrInvalidState rejects an illegal state transition.
	ErrInvalidState = errors.New("invalid session state transition")
)
