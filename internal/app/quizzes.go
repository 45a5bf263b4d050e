package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizdesk/internal/domain"
)

// QuizInput carries the fields of a new quiz.
type QuizInput struct {
	Title           string     `json:"title" validate:"required"`
	Subject         string     `json:"subject"`
	DurationMinutes int        `json:"durationMinutes" validate:"gt=0"`
	StartAt         *time.Time `json:"startAt"`
	EndAt           *time.Time `json:"endAt"`
}

// QuizPatch updates only the fields that are set. Empty strings and
// non-positive durations leave the stored value unchanged.
type QuizPatch struct {
	Title           *string    `json:"title"`
	Subject         *string    `json:"subject"`
	DurationMinutes *int       `json:"durationMinutes"`
	StartAt         *time.Time `json:"startAt"`
	EndAt           *time.Time `json:"endAt"`
}

func checkWindow(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return domain.Invalid("endAt", "must not be before startAt")
	}
	return nil
}

// CreateQuiz stores a new quiz owned by the calling admin.
func (s *Service) CreateQuiz(ctx context.Context, id domain.Identity, in QuizInput) (domain.Quiz, error) {
	if err := id.RequireAdmin(); err != nil {
		return domain.Quiz{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Subject = strings.TrimSpace(in.Subject)
	if err := s.validateStruct(in); err != nil {
		return domain.Quiz{}, err
	}
	if err := checkWindow(in.StartAt, in.EndAt); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Subject:         in.Subject,
		DurationMinutes: in.DurationMinutes,
		StartAt:         in.StartAt,
		EndAt:           in.EndAt,
		CreatedBy:       id.ID,
		CreatedAt:       s.now(),
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// ListQuizzes returns the admin's own quizzes, newest first.
func (s *Service) ListQuizzes(ctx context.Context, id domain.Identity) ([]domain.Quiz, error) {
	if err := id.RequireAdmin(); err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.ListQuizzes(ctx, QuizFilter{OwnerID: id.ID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

// UpdateQuiz applies patch to a quiz owned by the admin.
func (s *Service) UpdateQuiz(ctx context.Context, id domain.Identity, quizID string, patch QuizPatch) (domain.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, id, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		quiz.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Subject != nil && strings.TrimSpace(*patch.Subject) != "" {
		quiz.Subject = strings.TrimSpace(*patch.Subject)
	}
	if patch.DurationMinutes != nil && *patch.DurationMinutes > 0 {
		quiz.DurationMinutes = *patch.DurationMinutes
	}
	if patch.StartAt != nil {
		quiz.StartAt = patch.StartAt
	}
	if patch.EndAt != nil {
		quiz.EndAt = patch.EndAt
	}
	if err := checkWindow(quiz.StartAt, quiz.EndAt); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// DeleteQuiz removes a quiz owned by the admin together with its questions.
// Stored images are removed on a best-effort basis.
func (s *Service) DeleteQuiz(ctx context.Context, id domain.Identity, quizID string) error {
	if _, err := s.ownedQuiz(ctx, id, quizID); err != nil {
		return err
	}
	// Image paths are collected first; a SQL store cascades the questions
	// away together with the quiz row.
	questions, err := s.questions.ListQuestions(ctx, quizID)
	if err != nil {
		return err
	}
	if err := s.quizzes.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	removed, err := s.questions.DeleteQuestions(ctx, quizID)
	if err != nil {
		s.log.Warn("sweep questions of deleted quiz", zap.String("quiz_id", quizID), zap.Error(err))
	}
	if len(removed) < len(questions) {
		removed = questions
	}
	if s.images == nil {
		return nil
	}
	for _, q := range removed {
		if q.ImagePath == "" {
			continue
		}
		if err := s.images.Remove(ctx, q.ImagePath); err != nil {
			s.log.Warn("remove question image",
				zap.String("quiz_id", quizID),
				zap.String("path", q.ImagePath),
				zap.Error(err))
		}
	}
	return nil
}

// ListOpenQuizzes returns the quizzes open right now, earliest start first
// (quizzes without a start lead), then newest first.
func (s *Service) ListOpenQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	now := s.now()
	quizzes, err := s.quizzes.ListQuizzes(ctx, QuizFilter{OpenAt: &now})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		a, b := quizzes[i].StartAt, quizzes[j].StartAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

// QuizQuestions is the student view of a quiz ready to be attempted.
type QuizQuestions struct {
	Quiz      QuizMeta                `json:"quiz"`
	Questions []domain.PublicQuestion `json:"questions"`
}

// QuizMeta is the subset of quiz fields shown while attempting it.
type QuizMeta struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes"`
}

// FetchQuestions returns the quiz's questions without their correct answers,
// provided the quiz is open now.
func (s *Service) FetchQuestions(ctx context.Context, id domain.Identity, quizID string) (QuizQuestions, error) {
	if id.ID == "" {
		return QuizQuestions{}, domain.ErrForbidden
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizQuestions{}, err
	}
	if err := quiz.Availability(s.now()).Err(); err != nil {
		return QuizQuestions{}, err
	}
	questions, err := s.questions.ListQuestions(ctx, quizID)
	if err != nil {
		return QuizQuestions{}, err
	}
	out := QuizQuestions{
		Quiz:      QuizMeta{ID: quiz.ID, Title: quiz.Title, DurationMinutes: quiz.DurationMinutes},
		Questions: make([]domain.PublicQuestion, 0, len(questions)),
	}
	for _, q := range questions {
		out.Questions = append(out.Questions, q.Public())
	}
	return out, nil
}
