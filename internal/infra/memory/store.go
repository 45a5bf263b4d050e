package memory

import (
	"context"
	"sort"
	"sync"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// Store keeps quizzes, questions and attempts in process memory. It implements
// the three repositories and is meant for tests and local demos.
type Store struct {
	mu        sync.RWMutex
	seq       int64
	quizzes   map[string]entry[domain.Quiz]
	questions map[string]entry[domain.Question]
	attempts  map[string]entry[domain.Attempt]
}

type entry[T any] struct {
	seq int64
	val T
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[string]entry[domain.Quiz]),
		questions: make(map[string]entry[domain.Question]),
		attempts:  make(map[string]entry[domain.Attempt]),
	}
}

var (
	_ app.QuizRepository     = (*Store)(nil)
	_ app.QuestionRepository = (*Store)(nil)
	_ app.AttemptRepository  = (*Store)(nil)
)

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; ok {
		return domain.Invalid("id", "quiz already exists")
	}
	s.quizzes[quiz.ID] = entry[domain.Quiz]{seq: s.next(), val: quiz}
	return nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.NotFound("quiz", quizID)
	}
	return e.val, nil
}

func (s *Store) ListQuizzes(_ context.Context, filter app.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]entry[domain.Quiz], 0, len(s.quizzes))
	for _, e := range s.quizzes {
		if filter.OwnerID != "" && e.val.CreatedBy != filter.OwnerID {
			continue
		}
		if filter.OpenAt != nil && !e.val.Availability(*filter.OpenAt).Allowed {
			continue
		}
		matched = append(matched, e)
	}
	return values(matched), nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.NotFound("quiz", quiz.ID)
	}
	e.val = quiz
	s.quizzes[quiz.ID] = e
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.NotFound("quiz", quizID)
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[q.QuizID]; !ok {
		return domain.NotFound("quiz", q.QuizID)
	}
	s.questions[q.ID] = entry[domain.Question]{seq: s.next(), val: q}
	return nil
}

// ListQuestions returns the quiz's questions in creation order.
func (s *Store) ListQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.questionsOf(quizID)), nil
}

func (s *Store) FindQuestions(_ context.Context, quizID string, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if e, ok := s.questions[id]; ok && e.val.QuizID == quizID {
			out = append(out, e.val)
		}
	}
	return out, nil
}

func (s *Store) TotalMarks(_ context.Context, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, e := range s.questionsOf(quizID) {
		total += e.val.Marks
	}
	return total, nil
}

func (s *Store) DeleteQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.questionsOf(quizID)
	for _, e := range removed {
		delete(s.questions, e.val.ID)
	}
	return values(removed), nil
}

func (s *Store) CreateAttempt(_ context.Context, a domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[a.ID] = entry[domain.Attempt]{seq: s.next(), val: a}
	return nil
}

// ListAttempts returns matching attempts, newest submission first.
func (s *Store) ListAttempts(_ context.Context, filter app.AttemptFilter) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]entry[domain.Attempt], 0)
	for _, e := range s.attempts {
		if filter.StudentID != "" && e.val.StudentID != filter.StudentID {
			continue
		}
		if filter.QuizID != "" && e.val.QuizID != filter.QuizID {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].val.SubmittedAt, matched[j].val.SubmittedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return matched[i].seq > matched[j].seq
	})
	out := make([]domain.Attempt, len(matched))
	for i, e := range matched {
		out[i] = e.val
	}
	return out, nil
}

func (s *Store) questionsOf(quizID string) []entry[domain.Question] {
	var out []entry[domain.Question]
	for _, e := range s.questions {
		if e.val.QuizID == quizID {
			out = append(out, e)
		}
	}
	return out
}

// values orders entries by insertion and unwraps them.
func values[T any](entries []entry[T]) []T {
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.val
	}
	return out
}
