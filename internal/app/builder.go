package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"time"

	"quiz-session-service/internal/domain"
)

// SessionBuilder assembles sessions from question-bank content. The random
// source is injected so tests can assert shuffle distribution and reproduce
// specific orderings.
type SessionBuilder struct {
	bank          QuestionBank
	rnd           *mrand.Rand
	clock         func() time.Time
	newID         func() string
	defaultPolicy domain.GradingPolicy
}

func NewSessionBuilder(bank QuestionBank) *SessionBuilder {
	return NewSessionBuilderWithRand(bank, mrand.New(mrand.NewSource(time.Now().UnixNano())))
}

// NewSessionBuilderWithRand allows a deterministic random source in tests.
func NewSessionBuilderWithRand(bank QuestionBank, rnd *mrand.Rand) *SessionBuilder {
	return &SessionBuilder{
		bank:          bank,
		rnd:           rnd,
		clock:         time.Now,
		newID:         randomID,
		defaultPolicy: domain.SkipIncorrect,
	}
}

// SetDefaultGradingPolicy changes the fallback applied when a quiz config
// does not specify a grading policy. Per-quiz config always wins.
func (b *SessionBuilder) SetDefaultGradingPolicy(policy domain.GradingPolicy) {
	if policy != "" {
		b.defaultPolicy = policy
	}
}

// BuildSession selects up to requestedCount questions for the quiz (the
// quiz's configured count when requestedCount is zero), shuffles question
// order and each question's option presentation order, and returns a
// NotStarted session. Under-supply is not an error: the caller compares
// delivered count against requested. The session is not persisted here.
func (b *SessionBuilder) BuildSession(ctx context.Context, quizID, studentID string, requestedCount int) (*domain.Session, error) {
	cfg, err := b.bank.GetQuizConfig(ctx, quizID)
	if err != nil {
		return nil, err
	}

	questions, err := b.bank.GetQuestionsForQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: quiz %s", domain.ErrNoQuestions, quizID)
	}

	count := requestedCount
	if count <= 0 {
		count = cfg.TotalQuestions
	}
	if count <= 0 || count > len(questions) {
		count = len(questions)
	}

	selected := b.pick(questions, count)

	sessionQuestions := make([]domain.SessionQuestion, 0, len(selected))
	for _, q := range selected {
		sessionQuestions = append(sessionQuestions, domain.SessionQuestion{
			Question:    q,
			OptionOrder: b.shuffleOptionIDs(q.Options),
		})
	}

	policy := cfg.GradingPolicy
	if policy == "" {
		policy = b.defaultPolicy
	}

	return &domain.Session{
		ID:               b.newID(),
		QuizID:           quizID,
		StudentID:        studentID,
		Questions:        sessionQuestions,
		Status:           domain.StatusNotStarted,
		Policy:           policy,
		TimeLimitSeconds: cfg.TimeLimitSeconds,
		Records:          make(map[string]domain.AnswerRecord),
	}, nil
}

// pick selects count questions without replacement via a Fisher-Yates pass
// over a copy, so bank slices are never mutated.
func (b *SessionBuilder) pick(questions []domain.Question, count int) []domain.Question {
	shuffled := make([]domain.Question, len(questions))
	copy(shuffled, questions)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := b.rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:count]
}

// shuffleOptionIDs returns a uniformly shuffled presentation order. Stored
// correctness flags are untouched; only display order changes.
func (b *SessionBuilder) shuffleOptionIDs(options []domain.Option) []string {
	ids := make([]string, len(options))
	for i, opt := range options {
		ids[i] = opt.ID
	}
	for i := len(ids) - 1; i > 0; i-- {
		j := b.rnd.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids
}

func randomID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// math/rand fallback keeps ID generation non-fatal.
		for i := range buf {
			buf[i] = byte(mrand.Intn(256))
		}
	}
	return hex.EncodeToString(buf)
}
