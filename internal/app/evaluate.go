package app

import (
	"strings"

	"quizdesk/internal/domain"
)

// Evaluation is the graded outcome of one answer.
type Evaluation struct {
	Correct      bool
	MarksAwarded int
}

type grader func(submitted, correct domain.Answer) bool

// graders holds exactly one rule per declared question type.
var graders = map[domain.QuestionType]grader{
	domain.QuestionMCQ:         looseMatch,
	domain.QuestionTrueFalse:   looseMatch,
	domain.QuestionFillBlank:   textMatch,
	domain.QuestionDescriptive: textMatch,
	domain.QuestionImage:       textMatch,
}

// HasGrader reports whether t has a grading rule.
func HasGrader(t domain.QuestionType) bool {
	_, ok := graders[t]
	return ok
}

// Evaluate grades submitted against q. It never fails: a nil question, a null
// answer or an unknown type all score zero.
func Evaluate(q *domain.Question, submitted domain.Answer) Evaluation {
	if q == nil || submitted.IsNull() {
		return Evaluation{}
	}
	grade, ok := graders[q.Type]
	if !ok || !grade(submitted, q.CorrectAnswer) {
		return Evaluation{}
	}
	return Evaluation{Correct: true, MarksAwarded: q.Marks}
}

// looseMatch compares string forms, so 4 matches "4" and true matches "True".
func looseMatch(submitted, correct domain.Answer) bool {
	if correct.IsNull() {
		return false
	}
	return normalize(submitted.String()) == normalize(correct.String())
}

// textMatch only accepts text on both sides.
func textMatch(submitted, correct domain.Answer) bool {
	s, ok := submitted.Text()
	if !ok {
		return false
	}
	c, ok := correct.Text()
	if !ok {
		return false
	}
	return normalize(s) == normalize(c)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
