package app

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizdesk/internal/domain"
)

// QuestionInput carries the fields of a new question.
type QuestionInput struct {
	Type          domain.QuestionType `json:"type" validate:"required"`
	Text          string              `json:"text"`
	Options       []string            `json:"options"`
	CorrectAnswer domain.Answer       `json:"correctAnswer"`
	Marks         int                 `json:"marks" validate:"gte=0"`
}

// ImageUpload is an optional image attached to a new question.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AddQuestion appends a question to a quiz owned by the admin. Marks default to 1.
func (s *Service) AddQuestion(ctx context.Context, id domain.Identity, quizID string, in QuestionInput, image *ImageUpload) (domain.Question, error) {
	if err := id.RequireAdmin(); err != nil {
		return domain.Question{}, err
	}
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validateStruct(in); err != nil {
		return domain.Question{}, err
	}
	if !in.Type.Valid() {
		return domain.Question{}, domain.Invalid("type", "unknown question type "+string(in.Type))
	}
	if _, err := s.ownedQuiz(ctx, id, quizID); err != nil {
		return domain.Question{}, err
	}
	if in.Marks == 0 {
		in.Marks = 1
	}

	q := domain.Question{
		ID:            uuid.NewString(),
		QuizID:        quizID,
		Type:          in.Type,
		Text:          in.Text,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Marks:         in.Marks,
		CreatedAt:     s.now(),
	}
	if q.Options == nil {
		q.Options = []string{}
	}

	if image != nil && image.Body != nil {
		if s.images == nil {
			return domain.Question{}, domain.Invalid("image", "image uploads are not configured")
		}
		name := uuid.NewString() + strings.ToLower(filepath.Ext(image.Filename))
		path, err := s.images.Save(ctx, name, image.Body, image.Size, image.ContentType)
		if err != nil {
			return domain.Question{}, domain.Storage("save image", err)
		}
		q.ImagePath = path
	}

	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		if q.ImagePath != "" {
			if rmErr := s.images.Remove(ctx, q.ImagePath); rmErr != nil {
				s.log.Warn("remove orphaned question image",
					zap.String("quiz_id", quizID),
					zap.String("path", q.ImagePath),
					zap.Error(rmErr))
			}
		}
		return domain.Question{}, err
	}
	return q, nil
}

// ListQuestions returns every question of a quiz owned by the admin, including answers.
func (s *Service) ListQuestions(ctx context.Context, id domain.Identity, quizID string) ([]domain.Question, error) {
	if _, err := s.ownedQuiz(ctx, id, quizID); err != nil {
		return nil, err
	}
	return s.questions.ListQuestions(ctx, quizID)
}
