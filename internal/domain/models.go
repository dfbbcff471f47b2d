package domain

import "time"

// Difficulty is an ordered question tier used for selection and score breakdowns.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Rank orders tiers: easy < medium < hard. Unknown tiers sort last.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	}
	return 3
}

// Option represents a possible answer for a question.
type Option struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// Question models a published quiz question. Immutable once published: the
// engine only ever reads it. Single-answer questions carry exactly one option
// with Correct=true; parametrized questions carry a Predicate instead, plus an
// authoring-time example variable set that must satisfy it.
type Question struct {
	ID         string             `json:"id"`
	Prompt     string             `json:"prompt"`
	Difficulty Difficulty         `json:"difficulty"`
	Points     int                `json:"points"` // defaults to 1 if zero
	Options    []Option           `json:"options,omitempty"`
	Variables  map[string]float64 `json:"variables,omitempty"`
	Predicate  *Predicate         `json:"predicate,omitempty"`
}

// IsParametrized reports whether correctness is decided by the predicate
// rather than a stored option flag.
func (q Question) IsParametrized() bool {
	return q.Predicate != nil
}

// PointsOrDefault returns the question weight, treating zero as 1.
func (q Question) PointsOrDefault() int {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// CorrectOption returns the option flagged correct, if any.
func (q Question) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt, true
		}
	}
	return Option{}, false
}

// GradingPolicy decides how unanswered questions count in the final summary.
type GradingPolicy string

const (
	// SkipIncorrect counts a skipped question as answered wrong: it stays in
	// the max-score denominator. Default.
	SkipIncorrect GradingPolicy = "skip-incorrect"
	// SkipExcluded drops skipped questions from the denominator entirely.
	SkipExcluded GradingPolicy = "skip-excluded"
)

// QuizConfig is the per-quiz configuration served by the question bank.
type QuizConfig struct {
	QuizID           string        `json:"quizId"`
	TotalQuestions   int           `json:"totalQuestions"`
	TimeLimitSeconds int           `json:"timeLimitSeconds"`
	CategoryID       string        `json:"categoryId,omitempty"`
	SubcategoryID    string        `json:"subcategoryId,omitempty"`
	GradingPolicy    GradingPolicy `json:"gradingPolicy,omitempty"`
}

// SessionStatus enumerates the session lifecycle.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// SessionQuestion pairs a question with its per-session option presentation
// order. Correct flags are untouched; only display order is shuffled.
type SessionQuestion struct {
	Question    Question `json:"question"`
	OptionOrder []string `json:"optionOrder,omitempty"`
}

// AnswerRecord is the immutable log of one question's submitted answer within
// a session. AnswerID nil means skipped or timed out. Variables snapshots the
// substitutions used for the attempt so later formula edits never change
// historical correctness. Created once, never updated.
type AnswerRecord struct {
	QuestionID  string             `json:"questionId"`
	AnswerID    *string            `json:"answerId"`
	IsCorrect   bool               `json:"isCorrect"`
	Variables   map[string]float64 `json:"variables,omitempty"`
	TimeSpentMs int64              `json:"timeSpentMs"`
	SubmittedAt time.Time          `json:"submittedAt"`
}

// Session is one student's attempt at a quiz. Built by the session builder,
// mutated only through the progress tracker, immutable once terminal.
type Session struct {
	ID               string                  `json:"id"`
	QuizID           string                  `json:"quizId"`
	StudentID        string                  `json:"studentId"`
	Questions        []SessionQuestion       `json:"questions"`
	Status           SessionStatus           `json:"status"`
	StartedAt        *time.Time              `json:"startedAt,omitempty"`
	CompletedAt      *time.Time              `json:"completedAt,omitempty"`
	Score            int                     `json:"score"`
	Policy           GradingPolicy           `json:"policy"`
	TimeLimitSeconds int                     `json:"timeLimitSeconds,omitempty"`
	Records          map[string]AnswerRecord `json:"records"`
}

// Clone returns a copy safe to read or serialize while the original keeps
// being mutated. Questions and the values inside Records are immutable once
// written, so a fresh Records map and Questions slice are enough.
func (s *Session) Clone() *Session {
	copied := *s
	copied.Questions = append([]SessionQuestion(nil), s.Questions...)
	copied.Records = make(map[string]AnswerRecord, len(s.Records))
	for id, record := range s.Records {
		copied.Records[id] = record
	}
	return &copied
}

// QuestionByID looks a question up within the session.
func (s *Session) QuestionByID(questionID string) (Question, bool) {
	for _, sq := range s.Questions {
		if sq.Question.ID == questionID {
			return sq.Question, true
		}
	}
	return Question{}, false
}

// Answered reports how many questions already have a record.
func (s *Session) Answered() int {
	return len(s.Records)
}

// Submission is a single answer attempt: either an option choice or a set of
// computed variable values for a parametrized question.
type Submission struct {
	AnswerID  *string            `json:"answerId,omitempty"`
	Variables map[string]float64 `json:"variables,omitempty"`
}

// ResultEntry joins an answer record with its question and the resolved
// correct option. Explanation text is resolved at compile time, so authoring
// edits show up in historical reports; correctness stays snapshotted.
type ResultEntry struct {
	QuestionID    string       `json:"questionId"`
	Prompt        string       `json:"prompt"`
	Difficulty    Difficulty   `json:"difficulty"`
	Points        int          `json:"points"`
	Record        AnswerRecord `json:"record"`
	CorrectOption *Option      `json:"correctOption,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
}

// TierBreakdown summarizes outcomes within one difficulty tier.
type TierBreakdown struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
	Score    int `json:"score"`
	MaxScore int `json:"maxScore"`
}

// QuizResult is the final report for a terminal session. Derived, read-only.
type QuizResult struct {
	SessionID    string                       `json:"sessionId"`
	QuizID       string                       `json:"quizId"`
	StudentID    string                       `json:"studentId"`
	Status       SessionStatus                `json:"status"`
	Score        int                          `json:"score"`
	MaxScore     int                          `json:"maxScore"`
	CompletedAt  *time.Time                   `json:"completedAt,omitempty"`
	TotalTimeMs  int64                        `json:"totalTimeMs"`
	Entries      []ResultEntry                `json:"entries"`
	ByDifficulty map[Difficulty]TierBreakdown `json:"byDifficulty"`
}
