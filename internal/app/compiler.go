package app

import (
	"fmt"

	"quiz-session-service/internal/domain"
)

// ResultCompiler aggregates a terminal session into its final report.
// Read-only over the session; performs no I/O.
type ResultCompiler struct{}

func NewResultCompiler() *ResultCompiler {
	return &ResultCompiler{}
}

// Compile joins each answer record with its question and the question's
// designated correct option and explanation. Entries follow the session's
// question order, so compiling the same terminal session twice yields
// identical content. Abandoned sessions produce a partial result covering
// only the answered questions.
func (c *ResultCompiler) Compile(session *domain.Session) (*domain.QuizResult, error) {
	if !session.Status.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", domain.ErrSessionNotFinished, session.ID, session.Status)
	}

	result := &domain.QuizResult{
		SessionID:    session.ID,
		QuizID:       session.QuizID,
		StudentID:    session.StudentID,
		Status:       session.Status,
		Score:        session.Score,
		CompletedAt:  session.CompletedAt,
		Entries:      make([]domain.ResultEntry, 0, len(session.Records)),
		ByDifficulty: make(map[domain.Difficulty]domain.TierBreakdown),
	}

	for _, sq := range session.Questions {
		question := sq.Question
		record, answered := session.Records[question.ID]
		points := question.PointsOrDefault()

		// A skip marker is a record with neither an option choice nor
		// submitted variables. Under skip-excluded grading, skips and
		// never-answered questions leave the denominator entirely.
		attempted := answered && (record.AnswerID != nil || record.Variables != nil)
		countsTowardMax := attempted || session.Policy != domain.SkipExcluded

		tier := result.ByDifficulty[question.Difficulty]
		if countsTowardMax {
			result.MaxScore += points
			tier.MaxScore += points
		}

		if answered {
			entry := domain.ResultEntry{
				QuestionID: question.ID,
				Prompt:     question.Prompt,
				Difficulty: question.Difficulty,
				Points:     points,
				Record:     record,
			}
			if opt, ok := question.CorrectOption(); ok {
				entry.CorrectOption = &opt
				entry.Explanation = opt.Explanation
			}
			result.Entries = append(result.Entries, entry)
			result.TotalTimeMs += record.TimeSpentMs

			if attempted {
				tier.Answered++
			}
			if record.IsCorrect {
				tier.Correct++
				tier.Score += points
			}
		}
		result.ByDifficulty[question.Difficulty] = tier
	}

	return result, nil
}
