// Package grading implements deterministic auto-grading of submitted
// answers. Grading is a pure function of the question snapshot and the
// captured answer map; it performs no I/O.
package grading

import (
	"strings"

	"github.com/oes-platform/exam-service/internal/models"
)

// QuestionResult is the outcome of grading a single question.
type QuestionResult struct {
	QuestionID uint   `json:"question_id"`
	Awarded    int    `json:"awarded"`
	MaxPoints  int    `json:"max_points"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
	Submitted  string `json:"submitted,omitempty"`
}

// Summary aggregates per-question outcomes for one attempt.
type Summary struct {
	Score     int              `json:"score"`
	MaxScore  int              `json:"max_score"`
	Questions []QuestionResult `json:"questions"`
}

// Percentage returns score/max_score*100, or 0 for an empty question set.
func (s Summary) Percentage() float64 {
	if s.MaxScore == 0 {
		return 0
	}
	return float64(s.Score) / float64(s.MaxScore) * 100
}

// strategy grades a single question against a submitted answer.
type strategy interface {
	grade(q models.Question, answer string) bool
}

// exactMatch awards full points when the submitted answer equals the
// answer key after whitespace trimming. Comparison is case-sensitive:
// "paris" does not match "Paris". The same normalization applies to every
// auto-gradable type.
type exactMatch struct{}

func (exactMatch) grade(q models.Question, answer string) bool {
	return strings.TrimSpace(answer) == strings.TrimSpace(q.CorrectAnswer)
}

// manualOnly never awards points. Essay answer keys are reference text for
// a human reviewer, so auto-grading scores them zero.
type manualOnly struct{}

func (manualOnly) grade(models.Question, string) bool {
	return false
}

var strategies = map[models.QuestionType]strategy{
	models.MultipleChoice: exactMatch{},
	models.TrueFalse:      exactMatch{},
	models.ShortAnswer:    exactMatch{},
	models.Essay:          manualOnly{},
}

// Grade scores an answer map against a question set. MaxScore always sums
// the points of every question passed in, answered or not; unanswered
// questions score zero without error. Unknown question types are treated
// like essays and score zero.
func Grade(questions []models.Question, answers map[uint]string) Summary {
	summary := Summary{Questions: make([]QuestionResult, 0, len(questions))}

	for _, q := range questions {
		qr := QuestionResult{QuestionID: q.ID, MaxPoints: q.Points}
		summary.MaxScore += q.Points

		answer, ok := answers[q.ID]
		if ok {
			qr.Answered = true
			qr.Submitted = answer

			s, known := strategies[q.Type]
			if known && s.grade(q, answer) {
				qr.Correct = true
				qr.Awarded = q.Points
				summary.Score += q.Points
			}
		}

		summary.Questions = append(summary.Questions, qr)
	}

	return summary
}
