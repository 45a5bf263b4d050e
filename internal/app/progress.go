package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"quizdesk/internal/domain"
)

const untitled = "Untitled Quiz"

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

// Progress reports every attempt of the caller, newest first, against the
// quiz's current total marks. Questions added or removed after an attempt
// change its reported total.
func (s *Service) Progress(ctx context.Context, id domain.Identity) ([]domain.ProgressEntry, error) {
	if id.ID == "" {
		return nil, domain.ErrForbidden
	}
	attempts, err := s.attempts.ListAttempts(ctx, AttemptFilter{StudentID: id.ID})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ProgressEntry, len(attempts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, a := range attempts {
		g.Go(func() error {
			entry := domain.ProgressEntry{
				AttemptID:   a.ID,
				QuizID:      a.QuizID,
				Title:       untitled,
				AttemptDate: a.SubmittedAt,
				Score:       a.TotalScore,
			}
			quiz, err := s.quizzes.GetQuiz(gctx, a.QuizID)
			switch {
			case err == nil && quiz.Title != "":
				entry.Title = quiz.Title
			case err == nil:
			case !isNotFound(err):
				return err
			}
			total, err := s.questions.TotalMarks(gctx, a.QuizID)
			if err != nil {
				return err
			}
			entry.TotalMarks = total
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
