package app

import (
	"fmt"

	"quiz-session-service/internal/domain"
)

// Evaluation is the outcome of checking one submission against a question.
type Evaluation struct {
	IsCorrect bool
	// Variables are the concrete substitutions used for the attempt; recorded
	// on the answer record so later formula edits never rewrite history.
	Variables map[string]float64
}

// Evaluate determines correctness for a submission. Pure function: no shared
// mutable state, safe to call concurrently for different questions.
//
// Option questions compare the submitted option ID with the stored correct
// option; no partial credit. Parametrized questions run the stored predicate
// over the submitted variable values, with tolerance semantics owned by the
// predicate itself.
func Evaluate(question domain.Question, submission domain.Submission) (Evaluation, error) {
	if question.IsParametrized() {
		return evaluateParametrized(question, submission)
	}

	correct, ok := question.CorrectOption()
	if !ok {
		return Evaluation{}, fmt.Errorf("%w: question %s has no correct option", domain.ErrMalformedQuestion, question.ID)
	}
	if submission.AnswerID == nil {
		return Evaluation{}, nil
	}
	return Evaluation{IsCorrect: *submission.AnswerID == correct.ID}, nil
}

func evaluateParametrized(question domain.Question, submission domain.Submission) (Evaluation, error) {
	vars := submission.Variables
	if vars == nil {
		vars = map[string]float64{}
	}

	holds, err := question.Predicate.Holds(vars)
	if err != nil {
		return Evaluation{}, fmt.Errorf("question %s: %w", question.ID, err)
	}

	snapshot := make(map[string]float64, len(vars))
	for name, value := range vars {
		snapshot[name] = value
	}
	return Evaluation{IsCorrect: holds, Variables: snapshot}, nil
}
