package app

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizdesk/internal/domain"
)

// SubmittedAnswer pairs a question id with the student's answer.
type SubmittedAnswer struct {
	QuestionID string        `json:"question"`
	Answer     domain.Answer `json:"answer"`
}

// UnmarshalJSON keeps an item whose answer has an unsupported shape, such as
// an object, as a null answer so it is graded wrong instead of failing the
// whole submission.
func (a *SubmittedAnswer) UnmarshalJSON(data []byte) error {
	var raw struct {
		QuestionID string          `json:"question"`
		Answer     json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.QuestionID = raw.QuestionID
	a.Answer = domain.Answer{}
	if len(raw.Answer) == 0 {
		return nil
	}
	if answer, err := domain.ParseAnswer(string(raw.Answer)); err == nil {
		a.Answer = answer
	}
	return nil
}

// SubmitResult is returned by Submit. Skipped lists question ids that did not
// resolve to a question of the quiz and were left out of the attempt.
type SubmitResult struct {
	AttemptID  string   `json:"attemptId"`
	TotalScore int      `json:"totalScore"`
	Skipped    []string `json:"skipped"`
}

// Submit grades answers against the quiz's questions and stores one attempt.
// A nil answers slice is rejected; an empty one produces a zero-score attempt.
func (s *Service) Submit(ctx context.Context, id domain.Identity, quizID string, answers []SubmittedAnswer) (SubmitResult, error) {
	if id.ID == "" {
		return SubmitResult{}, domain.ErrForbidden
	}
	if answers == nil {
		return SubmitResult{}, domain.Invalid("answers", "must be an array")
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return SubmitResult{}, err
	}
	now := s.now()
	if s.checkOnSubmit {
		if err := quiz.Availability(now).Err(); err != nil {
			return SubmitResult{}, err
		}
	}

	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	found, err := s.questions.FindQuestions(ctx, quizID, ids)
	if err != nil {
		return SubmitResult{}, err
	}
	byID := make(map[string]*domain.Question, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	attempt := domain.Attempt{
		ID:           uuid.NewString(),
		QuizID:       quiz.ID,
		StudentID:    id.ID,
		StudentName:  id.Name,
		StudentEmail: id.Email,
		Answers:      make([]domain.AnswerRecord, 0, len(answers)),
		SubmittedAt:  now,
	}
	skipped := []string{}
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			skipped = append(skipped, a.QuestionID)
			continue
		}
		ev := Evaluate(q, a.Answer)
		attempt.TotalScore += ev.MarksAwarded
		attempt.Answers = append(attempt.Answers, domain.AnswerRecord{
			QuestionID:   q.ID,
			Answer:       a.Answer,
			Correct:      ev.Correct,
			MarksAwarded: ev.MarksAwarded,
		})
	}

	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		return SubmitResult{}, err
	}

	if len(skipped) > 0 {
		s.log.Info("submission skipped unknown questions",
			zap.String("quiz_id", quiz.ID),
			zap.String("attempt_id", attempt.ID),
			zap.Strings("question_ids", skipped))
	}
	if s.recorder != nil {
		s.recorder.RecordSubmission(len(attempt.Answers), len(skipped), attempt.TotalScore)
	}
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, AttemptSummary{
			AttemptID:   attempt.ID,
			QuizID:      attempt.QuizID,
			StudentID:   attempt.StudentID,
			StudentName: attempt.StudentName,
			TotalScore:  attempt.TotalScore,
			Graded:      len(attempt.Answers),
			Skipped:     len(skipped),
			SubmittedAt: attempt.SubmittedAt,
		})
		if err != nil {
			s.log.Warn("publish attempt", zap.String("attempt_id", attempt.ID), zap.Error(err))
		}
	}

	return SubmitResult{AttemptID: attempt.ID, TotalScore: attempt.TotalScore, Skipped: skipped}, nil
}

// AttemptView is an attempt annotated with its quiz's title and subject.
type AttemptView struct {
	domain.Attempt
	QuizTitle   string `json:"quizTitle"`
	QuizSubject string `json:"quizSubject,omitempty"`
}

// MyAttempts lists the caller's attempts, newest first.
func (s *Service) MyAttempts(ctx context.Context, id domain.Identity) ([]AttemptView, error) {
	if id.ID == "" {
		return nil, domain.ErrForbidden
	}
	attempts, err := s.attempts.ListAttempts(ctx, AttemptFilter{StudentID: id.ID})
	if err != nil {
		return nil, err
	}
	return s.withQuizMeta(ctx, attempts)
}

// QuizAttempts lists every attempt for a quiz owned by the admin, newest first.
func (s *Service) QuizAttempts(ctx context.Context, id domain.Identity, quizID string) ([]domain.Attempt, error) {
	if _, err := s.ownedQuiz(ctx, id, quizID); err != nil {
		return nil, err
	}
	return s.attempts.ListAttempts(ctx, AttemptFilter{QuizID: quizID})
}

// ScoreFilter narrows StudentScores. Date is a calendar day (YYYY-MM-DD) or an
// RFC 3339 timestamp whose day is used.
type ScoreFilter struct {
	Subject string
	Date    string
}

// StudentScores lists all attempts, highest score first and newest first on ties.
func (s *Service) StudentScores(ctx context.Context, id domain.Identity, filter ScoreFilter) ([]AttemptView, error) {
	if err := id.RequireAdmin(); err != nil {
		return nil, err
	}
	var day string
	if filter.Date != "" {
		d, err := s.parseDay(filter.Date)
		if err != nil {
			return nil, err
		}
		day = d
	}

	attempts, err := s.attempts.ListAttempts(ctx, AttemptFilter{})
	if err != nil {
		return nil, err
	}
	views, err := s.withQuizMeta(ctx, attempts)
	if err != nil {
		return nil, err
	}

	out := views[:0]
	for _, v := range views {
		if filter.Subject != "" && v.QuizSubject != filter.Subject {
			continue
		}
		if day != "" && v.SubmittedAt.In(s.reportLocation).Format(time.DateOnly) != day {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

func (s *Service) parseDay(raw string) (string, error) {
	if t, err := time.ParseInLocation(time.DateOnly, raw, s.reportLocation); err == nil {
		return t.Format(time.DateOnly), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(s.reportLocation).Format(time.DateOnly), nil
	}
	return "", domain.Invalid("date", "must be YYYY-MM-DD or RFC 3339")
}

// withQuizMeta joins attempts with their quiz, looking each quiz up once.
func (s *Service) withQuizMeta(ctx context.Context, attempts []domain.Attempt) ([]AttemptView, error) {
	quizzes := make(map[string]*domain.Quiz)
	views := make([]AttemptView, 0, len(attempts))
	for _, a := range attempts {
		q, seen := quizzes[a.QuizID]
		if !seen {
			quiz, err := s.quizzes.GetQuiz(ctx, a.QuizID)
			switch {
			case err == nil:
				q = &quiz
			case isNotFound(err):
				q = nil
			default:
				return nil, err
			}
			quizzes[a.QuizID] = q
		}
		v := AttemptView{Attempt: a, QuizTitle: untitled}
		if q != nil {
			if q.Title != "" {
				v.QuizTitle = q.Title
			}
			v.QuizSubject = q.Subject
		}
		views = append(views, v)
	}
	return views, nil
}
