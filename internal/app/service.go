package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"quizdesk/internal/domain"
)

// QuizFilter narrows ListQuizzes. Zero fields do not filter.
type QuizFilter struct {
	OwnerID string
	// OpenAt keeps only quizzes whose window contains the instant.
	OpenAt *time.Time
}

// AttemptFilter narrows ListAttempts. Zero fields do not filter.
type AttemptFilter struct {
	StudentID string
	QuizID    string
}

// QuizRepository persists quizzes.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter QuizFilter) ([]domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
}

// QuestionRepository persists questions. Lookups are always scoped to one quiz.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q domain.Question) error
	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	FindQuestions(ctx context.Context, quizID string, ids []string) ([]domain.Question, error)
	TotalMarks(ctx context.Context, quizID string) (int, error)
	DeleteQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// AttemptRepository persists attempts. ListAttempts returns newest first.
type AttemptRepository interface {
	CreateAttempt(ctx context.Context, a domain.Attempt) error
	ListAttempts(ctx context.Context, filter AttemptFilter) ([]domain.Attempt, error)
}

// ImageStore keeps uploaded question images and returns a retrievable path.
type ImageStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, path string) error
}

// SubmissionRecorder observes graded submissions (metrics).
type SubmissionRecorder interface {
	RecordSubmission(graded, skipped, score int)
}

// AttemptPublisher announces submitted attempts. AttemptFeed is the in-process
// implementation.
type AttemptPublisher interface {
	Publish(ctx context.Context, summary AttemptSummary) error
}

// Service contains the quiz administration and attempt use cases.
type Service struct {
	quizzes   QuizRepository
	questions QuestionRepository
	attempts  AttemptRepository

	images         ImageStore
	feed           *AttemptFeed
	publisher      AttemptPublisher
	recorder       SubmissionRecorder
	log            *zap.Logger
	now            func() time.Time
	validate       *validator.Validate
	checkOnSubmit  bool
	reportLocation *time.Location
	fanout         int
}

// Option configures a Service.
type Option func(*Service)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithImageStore(store ImageStore) Option {
	return func(s *Service) { s.images = store }
}

// WithFeed enables live attempt subscriptions. Unless WithPublisher is also
// given, attempts are published straight into feed.
func WithFeed(feed *AttemptFeed) Option {
	return func(s *Service) { s.feed = feed }
}

// WithPublisher routes attempt announcements through p, e.g. a relay shared
// by several instances that feeds the local AttemptFeed.
func WithPublisher(p AttemptPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithRecorder(r SubmissionRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithWindowCheckOnSubmit makes Submit reject attempts outside the quiz window.
func WithWindowCheckOnSubmit(enabled bool) Option {
	return func(s *Service) { s.checkOnSubmit = enabled }
}

// WithReportLocation sets the time zone used to match calendar dates in score reports.
func WithReportLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.reportLocation = loc
		}
	}
}

func NewService(quizzes QuizRepository, questions QuestionRepository, attempts AttemptRepository, opts ...Option) *Service {
	s := &Service{
		quizzes:        quizzes,
		questions:      questions,
		attempts:       attempts,
		log:            zap.NewNop(),
		now:            time.Now,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		reportLocation: time.UTC,
		fanout:         8,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil && s.feed != nil {
		s.publisher = s.feed
	}
	return s
}

// Feed returns the live attempt feed, or nil when none is configured.
func (s *Service) Feed() *AttemptFeed { return s.feed }

// validateStruct runs the struct tags and converts the first failure into a ValidationError.
func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.Invalid(lowerFirst(fe.Field()), describeTag(fe))
	}
	return domain.Invalid("", err.Error())
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// ownedQuiz loads quizID and hides quizzes the admin does not own.
func (s *Service) ownedQuiz(ctx context.Context, id domain.Identity, quizID string) (domain.Quiz, error) {
	if err := id.RequireAdmin(); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatedBy != id.ID {
		return domain.Quiz{}, domain.NotFound("quiz", quizID)
	}
	return quiz, nil
}
