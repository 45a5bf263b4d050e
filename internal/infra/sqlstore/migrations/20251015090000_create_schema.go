package migrations

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

// Table shapes as of this migration.
type quiz struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID              string     `bun:"id,pk,type:varchar(64)"`
	Title           string     `bun:"title,notnull"`
	Subject         string     `bun:"subject,notnull"`
	DurationMinutes int        `bun:"duration_minutes,notnull"`
	StartAt         *time.Time `bun:"start_at"`
	EndAt           *time.Time `bun:"end_at"`
	CreatedBy       string     `bun:"created_by,notnull"`
	CreatedAt       time.Time  `bun:"created_at,notnull"`
}

type question struct {
	bun.BaseModel `bun:"table:questions"`

	ID            string    `bun:"id,pk,type:varchar(64)"`
	QuizID        string    `bun:"quiz_id,notnull,type:varchar(64)"`
	Type          string    `bun:"type,notnull"`
	Text          string    `bun:"text,notnull"`
	ImagePath     string    `bun:"image_path,notnull"`
	Options       string    `bun:"options,notnull,type:text"`
	CorrectAnswer string    `bun:"correct_answer,type:text"`
	Marks         int       `bun:"marks,notnull,default:1"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

type attempt struct {
	bun.BaseModel `bun:"table:attempts"`

	ID           string    `bun:"id,pk,type:varchar(64)"`
	QuizID       string    `bun:"quiz_id,notnull,type:varchar(64)"`
	StudentID    string    `bun:"student_id,notnull"`
	StudentName  string    `bun:"student_name,notnull"`
	StudentEmail string    `bun:"student_email,notnull"`
	Answers      string    `bun:"answers,notnull,type:text"`
	TotalScore   int       `bun:"total_score,notnull"`
	SubmittedAt  time.Time `bun:"submitted_at,notnull"`
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.NewCreateTable().Model((*quiz)(nil)).IfNotExists().Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateTable().Model((*question)(nil)).IfNotExists().
				ForeignKey(`("quiz_id") REFERENCES "quizzes" ("id") ON DELETE CASCADE`).
				Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateTable().Model((*attempt)(nil)).IfNotExists().Exec(ctx); err != nil {
				return err
			}

			indexes := []struct {
				model  interface{}
				name   string
				column string
			}{
				{(*quiz)(nil), "quizzes_created_by_idx", "created_by"},
				{(*question)(nil), "questions_quiz_id_idx", "quiz_id"},
				{(*attempt)(nil), "attempts_student_id_idx", "student_id"},
				{(*attempt)(nil), "attempts_quiz_id_idx", "quiz_id"},
			}
			for _, idx := range indexes {
				if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column).IfNotExists().Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			for _, model := range []interface{}{(*attempt)(nil), (*question)(nil), (*quiz)(nil)} {
				if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
