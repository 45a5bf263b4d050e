package domain

import "time"

// QuestionType is the closed set of gradable question kinds.
type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionTrueFalse   QuestionType = "tf"
	QuestionFillBlank   QuestionType = "fitb"
	QuestionDescriptive QuestionType = "descriptive"
	QuestionImage       QuestionType = "image"
)

// QuestionTypes lists every declared question type.
func QuestionTypes() []QuestionType {
	return []QuestionType{QuestionMCQ, QuestionTrueFalse, QuestionFillBlank, QuestionDescriptive, QuestionImage}
}

// Valid reports whether t is one of the declared question types.
func (t QuestionType) Valid() bool {
	for _, known := range QuestionTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Quiz is an administrator-owned set of questions with an optional availability window.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Subject         string     `json:"subject,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	StartAt         *time.Time `json:"startAt"`
	EndAt           *time.Time `json:"endAt"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Question belongs to exactly one quiz and is immutable once created.
type Question struct {
	ID            string       `json:"id"`
	QuizID        string       `json:"quizId"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	ImagePath     string       `json:"imagePath,omitempty"`
	Options       []string     `json:"options"`
	CorrectAnswer Answer       `json:"correctAnswer"`
	Marks         int          `json:"marks"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// PublicQuestion is the student-facing view of a question; the correct answer is withheld.
type PublicQuestion struct {
	ID        string       `json:"id"`
	Type      QuestionType `json:"type"`
	Text      string       `json:"text"`
	ImagePath string       `json:"imagePath,omitempty"`
	Options   []string     `json:"options"`
	Marks     int          `json:"marks"`
}

// Public strips grading data from q.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:        q.ID,
		Type:      q.Type,
		Text:      q.Text,
		ImagePath: q.ImagePath,
		Options:   q.Options,
		Marks:     q.Marks,
	}
}

// AnswerRecord is the graded outcome of one submitted answer.
type AnswerRecord struct {
	QuestionID   string `json:"question"`
	Answer       Answer `json:"answer"`
	Correct      bool   `json:"correct"`
	MarksAwarded int    `json:"marksAwarded"`
}

// Attempt is one student's submission for one quiz. It is never updated after creation.
type Attempt struct {
	ID           string         `json:"id"`
	QuizID       string         `json:"quiz"`
	StudentID    string         `json:"student"`
	StudentName  string         `json:"studentName,omitempty"`
	StudentEmail string         `json:"studentEmail,omitempty"`
	Answers      []AnswerRecord `json:"answers"`
	TotalScore   int            `json:"totalScore"`
	SubmittedAt  time.Time      `json:"submittedAt"`
}

// ProgressEntry summarizes one attempt against the quiz's current total marks.
type ProgressEntry struct {
	AttemptID   string    `json:"attemptId"`
	QuizID      string    `json:"quizId"`
	Title       string    `json:"title"`
	AttemptDate time.Time `json:"attemptDate"`
	Score       int       `json:"score"`
	TotalMarks  int       `json:"totalMarks"`
}
