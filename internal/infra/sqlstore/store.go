package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// Store implements the quiz, question and attempt repositories on bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

var (
	_ app.QuizRepository     = (*Store)(nil)
	_ app.QuestionRepository = (*Store)(nil)
	_ app.AttemptRepository  = (*Store)(nil)
)

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	_, err := s.db.NewInsert().Model(quizToRow(quiz)).Exec(ctx)
	return domain.Storage("create quiz", err)
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	row := new(quizRow)
	err := s.db.NewSelect().Model(row).Where("qz.id = ?", quizID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.NotFound("quiz", quizID)
	}
	if err != nil {
		return domain.Quiz{}, domain.Storage("get quiz", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListQuizzes(ctx context.Context, filter app.QuizFilter) ([]domain.Quiz, error) {
	var rows []quizRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("qz.created_at DESC")
	if filter.OwnerID != "" {
		q = q.Where("qz.created_by = ?", filter.OwnerID)
	}
	if filter.OpenAt != nil {
		at := filter.OpenAt.UTC()
		q = q.Where("(qz.start_at IS NULL OR qz.start_at <= ?)", at).
			Where("(qz.end_at IS NULL OR qz.end_at >= ?)", at)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, domain.Storage("list quizzes", err)
	}
	out := make([]domain.Quiz, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	res, err := s.db.NewUpdate().Model(quizToRow(quiz)).
		Column("title", "subject", "duration_minutes", "start_at", "end_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Storage("update quiz", err)
	}
	return affected(res, "quiz", quiz.ID)
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	res, err := s.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return domain.Storage("delete quiz", err)
	}
	return affected(res, "quiz", quizID)
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	_, err := s.db.NewInsert().Model(questionToRow(q)).Exec(ctx)
	return domain.Storage("create question", err)
}

func (s *Store) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	var rows []questionRow
	err := s.db.NewSelect().Model(&rows).
		Where("qn.quiz_id = ?", quizID).
		OrderExpr("qn.created_at ASC, qn.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, domain.Storage("list questions", err)
	}
	return questionsToDomain(rows), nil
}

func (s *Store) FindQuestions(ctx context.Context, quizID string, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	var rows []questionRow
	err := s.db.NewSelect().Model(&rows).
		Where("qn.quiz_id = ?", quizID).
		Where("qn.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, domain.Storage("find questions", err)
	}
	return questionsToDomain(rows), nil
}

func (s *Store) TotalMarks(ctx context.Context, quizID string) (int, error) {
	var total int
	err := s.db.NewSelect().Model((*questionRow)(nil)).
		ColumnExpr("COALESCE(SUM(qn.marks), 0)").
		Where("qn.quiz_id = ?", quizID).
		Scan(ctx, &total)
	if err != nil {
		return 0, domain.Storage("total marks", err)
	}
	return total, nil
}

func (s *Store) DeleteQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	var rows []questionRow
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&rows).Where("qn.quiz_id = ?", quizID).Scan(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*questionRow)(nil)).Where("quiz_id = ?", quizID).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, domain.Storage("delete questions", err)
	}
	return questionsToDomain(rows), nil
}

func (s *Store) CreateAttempt(ctx context.Context, a domain.Attempt) error {
	_, err := s.db.NewInsert().Model(attemptToRow(a)).Exec(ctx)
	return domain.Storage("create attempt", err)
}

func (s *Store) ListAttempts(ctx context.Context, filter app.AttemptFilter) ([]domain.Attempt, error) {
	var rows []attemptRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("att.submitted_at DESC, att.id DESC")
	if filter.StudentID != "" {
		q = q.Where("att.student_id = ?", filter.StudentID)
	}
	if filter.QuizID != "" {
		q = q.Where("att.quiz_id = ?", filter.QuizID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, domain.Storage("list attempts", err)
	}
	out := make([]domain.Attempt, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func questionsToDomain(rows []questionRow) []domain.Question {
	out := make([]domain.Question, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out
}

func affected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Storage("rows affected", err)
	}
	if n == 0 {
		return domain.NotFound(resource, id)
	}
	return nil
}
