package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"quizdesk/internal/app"
	"quizdesk/internal/auth"
	"quizdesk/internal/domain"
	"quizdesk/internal/infra/memory"
	"quizdesk/internal/monitoring"
	"quizdesk/internal/storage"
)

var (
	testNow = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	admin   = domain.Identity{ID: "admin-1", Role: domain.RoleAdmin, Name: "Ada"}
	student = domain.Identity{ID: "stu-1", Role: domain.RoleStudent, Name: "Sam", Email: "sam@example.com"}
)

type testEnv struct {
	t       *testing.T
	router  *gin.Engine
	service *app.Service
	store   *memory.Store
	tokens  *auth.Issuer
	feed    *app.AttemptFeed
	uploads string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	feed := app.NewAttemptFeed()
	uploads := filepath.Join(t.TempDir(), "uploads")
	service := app.NewService(store, store, store,
		app.WithClock(func() time.Time { return testNow }),
		app.WithFeed(feed),
		app.WithImageStore(storage.NewLocal(uploads)),
	)
	tokens := auth.NewIssuer("test-secret", time.Hour)
	router := NewRouter(Options{
		Service:   service,
		Tokens:    tokens,
		Metrics:   monitoring.New(),
		UploadDir: uploads,
	})
	return &testEnv{t: t, router: router, service: service, store: store, tokens: tokens, feed: feed, uploads: uploads}
}

func (e *testEnv) token(id domain.Identity) string {
	e.t.Helper()
	tok, err := e.tokens.Issue(id)
	if err != nil {
		e.t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path string, as *domain.Identity, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(*as))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (e *testEnv) seedQuiz(q domain.Quiz, questions ...domain.Question) {
	e.t.Helper()
	ctx := context.Background()
	if q.CreatedBy == "" {
		q.CreatedBy = admin.ID
	}
	if q.DurationMinutes == 0 {
		q.DurationMinutes = 10
	}
	if err := e.store.CreateQuiz(ctx, q); err != nil {
		e.t.Fatalf("seed quiz: %v", err)
	}
	for _, qn := range questions {
		qn.QuizID = q.ID
		if err := e.store.CreateQuestion(ctx, qn); err != nil {
			e.t.Fatalf("seed question: %v", err)
		}
	}
}

func TestHealthAndAuth(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(http.MethodGet, "/healthz", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/api/student/quizzes", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/api/admin/quizzes", &student, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student on admin route, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/metrics", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestFetchQuestionsBeforeStartIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	start := testNow.Add(time.Hour)
	env.seedQuiz(domain.Quiz{ID: "later", Title: "Later", StartAt: &start})

	rec := env.do(http.MethodGet, "/api/student/quiz/later/questions", &student, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", rec.Code, rec.Body.String())
	}
	body := decode[errorBody](t, rec)
	if body.Reason != domain.NotStarted {
		t.Fatalf("expected NotStarted reason, got %+v", body)
	}

	if rec := env.do(http.MethodGet, "/api/student/quiz/missing/questions", &student, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestFetchQuestionsHidesCorrectAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuiz(domain.Quiz{ID: "open", Title: "Open"},
		domain.Question{ID: "q1", Type: domain.QuestionMCQ, Text: "Pick", Options: []string{"A", "B"}, CorrectAnswer: domain.TextAnswer("B"), Marks: 1})

	rec := env.do(http.MethodGet, "/api/student/quiz/open/questions", &student, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correctAnswer") {
		t.Fatalf("correct answer leaked: %s", rec.Body.String())
	}
	out := decode[app.QuizQuestions](t, rec)
	if out.Quiz.Title != "Open" || len(out.Questions) != 1 {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestSubmitScoresAndReportsSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuiz(domain.Quiz{ID: "quiz-1", Title: "Letters"},
		domain.Question{ID: "q1", Type: domain.QuestionMCQ, CorrectAnswer: domain.TextAnswer("B"), Marks: 2})

	rec := env.do(http.MethodPost, "/api/student/quiz/quiz-1/submit", &student,
		`{"answers":[{"question":"q1","answer":"b"},{"question":"ghost","answer":"y"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	res := decode[app.SubmitResult](t, rec)
	if res.TotalScore != 2 || len(res.Skipped) != 1 || res.Skipped[0] != "ghost" || res.AttemptID == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	progress := env.do(http.MethodGet, "/api/student/progress", &student, nil)
	entries := decode[[]domain.ProgressEntry](t, progress)
	if len(entries) != 1 || entries[0].Score != 2 || entries[0].TotalMarks != 2 || entries[0].Title != "Letters" {
		t.Fatalf("unexpected progress %+v", entries)
	}
}

func TestSubmitRejectsMalformedAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuiz(domain.Quiz{ID: "quiz-1", Title: "Letters"})

	cases := []string{
		`{"answers":"nope"}`,
		`{}`,
	}
	for _, body := range cases {
		rec := env.do(http.MethodPost, "/api/student/quiz/quiz-1/submit", &student, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}

	rec := env.do(http.MethodPost, "/api/student/quiz/quiz-1/submit", &student, `{"answers":[]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("empty answers should be accepted, got %d", rec.Code)
	}
}

func TestSubmitGradesObjectAnswerAsWrong(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuiz(domain.Quiz{ID: "quiz-1", Title: "Mixed"},
		domain.Question{ID: "q1", Type: domain.QuestionMCQ, CorrectAnswer: domain.TextAnswer("a"), Marks: 2},
		domain.Question{ID: "q2", Type: domain.QuestionDescriptive, CorrectAnswer: domain.TextAnswer("Paris"), Marks: 3})

	rec := env.do(http.MethodPost, "/api/student/quiz/quiz-1/submit", &student,
		`{"answers":[{"question":"q1","answer":{"choice":"a"}},{"question":"q2","answer":"paris"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	res := decode[app.SubmitResult](t, rec)
	if res.TotalScore != 3 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	mine := decode[[]app.AttemptView](t, env.do(http.MethodGet, "/api/student/attempts", &student, nil))
	if len(mine) != 1 || len(mine[0].Answers) != 2 {
		t.Fatalf("expected both answers recorded, got %+v", mine)
	}
	first := mine[0].Answers[0]
	if first.QuestionID != "q1" || first.Correct || first.MarksAwarded != 0 || !first.Answer.IsNull() {
		t.Fatalf("object answer should be kept as a wrong null answer, got %+v", first)
	}
}

func TestAdminQuizLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/admin/quizzes", &admin, map[string]any{
		"title":           "  Geography ",
		"subject":         "geo",
		"durationMinutes": 20,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	quiz := decode[domain.Quiz](t, rec)
	if quiz.Title != "Geography" || quiz.CreatedBy != admin.ID {
		t.Fatalf("unexpected quiz %+v", quiz)
	}

	if rec := env.do(http.MethodPost, "/api/admin/quizzes", &admin, map[string]any{"durationMinutes": 5}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without title, got %d", rec.Code)
	}

	rec = env.do(http.MethodPut, "/api/admin/quizzes/"+quiz.ID, &admin, map[string]any{"title": "", "durationMinutes": 30})
	updated := decode[domain.Quiz](t, rec)
	if rec.Code != http.StatusOK || updated.Title != "Geography" || updated.DurationMinutes != 30 {
		t.Fatalf("unexpected update %d %+v", rec.Code, updated)
	}

	other := domain.Identity{ID: "admin-2", Role: domain.RoleAdmin}
	if rec := env.do(http.MethodDelete, "/api/admin/quizzes/"+quiz.ID, &other, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-owner, got %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/admin/quizzes/"+quiz.ID+"/questions", &admin, map[string]any{
		"type":          "tf",
		"text":          "Paris is in France",
		"correctAnswer": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add question: %d %s", rec.Code, rec.Body.String())
	}
	q := decode[domain.Question](t, rec)
	if q.Marks != 1 {
		t.Fatalf("expected default marks 1, got %d", q.Marks)
	}

	list := decode[[]domain.Quiz](t, env.do(http.MethodGet, "/api/admin/quizzes", &admin, nil))
	if len(list) != 1 {
		t.Fatalf("expected 1 quiz, got %d", len(list))
	}

	if rec := env.do(http.MethodDelete, "/api/admin/quizzes/"+quiz.ID, &admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if left, _ := env.store.ListQuestions(context.Background(), quiz.ID); len(left) != 0 {
		t.Fatalf("questions not cascaded: %d left", len(left))
	}
}

func TestAddQuestionMultipartWithImage(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuiz(domain.Quiz{ID: "quiz-1", Title: "Shapes"})

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("type", "image")
	_ = form.WriteField("text", "Name this shape")
	_ = form.WriteField("marks", "3")
	_ = form.WriteField("options", `["circle","square"]`)
	_ = form.WriteField("correctAnswer", `"circle"`)
	part, _ := form.CreateFormFile("image", "shape.PNG")
	_, _ = part.Write([]byte("fake-png"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/quizzes/quiz-1/questions", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.token(admin))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	q := decode[domain.Question](t, rec)
	if !strings.HasPrefix(q.ImagePath, "/uploads/") || !strings.HasSuffix(q.ImagePath, ".png") {
		t.Fatalf("unexpected image path %q", q.ImagePath)
	}
	if q.Marks != 3 || len(q.Options) != 2 {
		t.Fatalf("unexpected question %+v", q)
	}

	img := httptest.NewRecorder()
	env.router.ServeHTTP(img, httptest.NewRequest(http.MethodGet, q.ImagePath, nil))
	if img.Code != http.StatusOK || img.Body.String() != "fake-png" {
		t.Fatalf("image not served: %d", img.Code)
	}
}

func TestAddQuestionRejectsBadFormJSON(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuiz(domain.Quiz{ID: "quiz-1", Title: "Shapes"})

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("type", "mcq")
	_ = form.WriteField("text", "Pick")
	_ = form.WriteField("options", `[not json`)
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/quizzes/quiz-1/questions", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.token(admin))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStudentScoresFilters(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuiz(domain.Quiz{ID: "math", Title: "Math", Subject: "math"},
		domain.Question{ID: "m1", Type: domain.QuestionMCQ, CorrectAnswer: domain.NumberAnswer(4), Marks: 5})
	env.seedQuiz(domain.Quiz{ID: "art", Title: "Art", Subject: "art"},
		domain.Question{ID: "a1", Type: domain.QuestionDescriptive, CorrectAnswer: domain.TextAnswer("Monet"), Marks: 1})

	ctx := context.Background()
	if _, err := env.service.Submit(ctx, student, "math", []app.SubmittedAnswer{{QuestionID: "m1", Answer: domain.TextAnswer("4")}}); err != nil {
		t.Fatalf("submit math: %v", err)
	}
	if _, err := env.service.Submit(ctx, student, "art", []app.SubmittedAnswer{{QuestionID: "a1", Answer: domain.TextAnswer("monet ")}}); err != nil {
		t.Fatalf("submit art: %v", err)
	}

	all := decode[[]app.AttemptView](t, env.do(http.MethodGet, "/api/admin/student-scores", &admin, nil))
	if len(all) != 2 || all[0].QuizID != "math" || all[0].TotalScore != 5 {
		t.Fatalf("unexpected scores %+v", all)
	}

	art := decode[[]app.AttemptView](t, env.do(http.MethodGet, "/api/admin/student-scores?subject=art", &admin, nil))
	if len(art) != 1 || art[0].QuizTitle != "Art" {
		t.Fatalf("unexpected subject filter %+v", art)
	}

	none := decode[[]app.AttemptView](t, env.do(http.MethodGet, "/api/admin/student-scores?date=2025-05-11", &admin, nil))
	if len(none) != 0 {
		t.Fatalf("expected no attempts on another day, got %d", len(none))
	}

	if rec := env.do(http.MethodGet, "/api/admin/student-scores?date=yesterday", &admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}
}
