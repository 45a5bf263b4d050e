package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"quizdesk/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID              string     `bun:"id,pk"`
	Title           string     `bun:"title"`
	Subject         string     `bun:"subject"`
	DurationMinutes int        `bun:"duration_minutes"`
	StartAt         *time.Time `bun:"start_at"`
	EndAt           *time.Time `bun:"end_at"`
	CreatedBy       string     `bun:"created_by"`
	CreatedAt       time.Time  `bun:"created_at"`
}

func quizToRow(q domain.Quiz) *quizRow {
	return &quizRow{
		ID:              q.ID,
		Title:           q.Title,
		Subject:         q.Subject,
		DurationMinutes: q.DurationMinutes,
		StartAt:         utcPtr(q.StartAt),
		EndAt:           utcPtr(q.EndAt),
		CreatedBy:       q.CreatedBy,
		CreatedAt:       q.CreatedAt.UTC(),
	}
}

func (r *quizRow) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:              r.ID,
		Title:           r.Title,
		Subject:         r.Subject,
		DurationMinutes: r.DurationMinutes,
		StartAt:         r.StartAt,
		EndAt:           r.EndAt,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
	}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID            string        `bun:"id,pk"`
	QuizID        string        `bun:"quiz_id"`
	Type          string        `bun:"type"`
	Text          string        `bun:"text"`
	ImagePath     string        `bun:"image_path"`
	Options       []string      `bun:"options"`
	CorrectAnswer domain.Answer `bun:"correct_answer"`
	Marks         int           `bun:"marks"`
	CreatedAt     time.Time     `bun:"created_at"`
}

func questionToRow(q domain.Question) *questionRow {
	opts := q.Options
	if opts == nil {
		opts = []string{}
	}
	return &questionRow{
		ID:            q.ID,
		QuizID:        q.QuizID,
		Type:          string(q.Type),
		Text:          q.Text,
		ImagePath:     q.ImagePath,
		Options:       opts,
		CorrectAnswer: q.CorrectAnswer,
		Marks:         q.Marks,
		CreatedAt:     q.CreatedAt.UTC(),
	}
}

func (r *questionRow) toDomain() domain.Question {
	opts := r.Options
	if opts == nil {
		opts = []string{}
	}
	return domain.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		Type:          domain.QuestionType(r.Type),
		Text:          r.Text,
		ImagePath:     r.ImagePath,
		Options:       opts,
		CorrectAnswer: r.CorrectAnswer,
		Marks:         r.Marks,
		CreatedAt:     r.CreatedAt,
	}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:att"`

	ID           string                `bun:"id,pk"`
	QuizID       string                `bun:"quiz_id"`
	StudentID    string                `bun:"student_id"`
	StudentName  string                `bun:"student_name"`
	StudentEmail string                `bun:"student_email"`
	Answers      []domain.AnswerRecord `bun:"answers"`
	TotalScore   int                   `bun:"total_score"`
	SubmittedAt  time.Time             `bun:"submitted_at"`
}

func attemptToRow(a domain.Attempt) *attemptRow {
	answers := a.Answers
	if answers == nil {
		answers = []domain.AnswerRecord{}
	}
	return &attemptRow{
		ID:           a.ID,
		QuizID:       a.QuizID,
		StudentID:    a.StudentID,
		StudentName:  a.StudentName,
		StudentEmail: a.StudentEmail,
		Answers:      answers,
		TotalScore:   a.TotalScore,
		SubmittedAt:  a.SubmittedAt.UTC(),
	}
}

func (r *attemptRow) toDomain() domain.Attempt {
	answers := r.Answers
	if answers == nil {
		answers = []domain.AnswerRecord{}
	}
	return domain.Attempt{
		ID:           r.ID,
		QuizID:       r.QuizID,
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		StudentEmail: r.StudentEmail,
		Answers:      answers,
		TotalScore:   r.TotalScore,
		SubmittedAt:  r.SubmittedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
