package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizdesk/internal/app"
	"quizdesk/internal/auth"
	"quizdesk/internal/monitoring"
	"quizdesk/internal/storage"
)

// Options wires the HTTP layer.
type Options struct {
	Service *app.Service
	Tokens  *auth.Issuer
	// Metrics is optional; nil disables /metrics and request instrumentation.
	Metrics *monitoring.Metrics
	Logger  *zap.Logger
	// UploadDir, when set, is served under /uploads/.
	UploadDir string
	// MaxUploadBytes bounds multipart bodies; zero means 10 MiB.
	MaxUploadBytes int64
}

// Handler holds the dependencies shared by every route.
type Handler struct {
	service   *app.Service
	tokens    *auth.Issuer
	log       *zap.Logger
	maxUpload int64
	upgrader  websocket.Upgrader
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		service:   opts.Service,
		tokens:    opts.Tokens,
		log:       log,
		maxUpload: opts.MaxUploadBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 10 << 20
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if opts.UploadDir != "" {
		r.Static(storage.URLPrefix, opts.UploadDir)
	}

	api := r.Group("/api", h.authenticate())

	student := api.Group("/student")
	student.GET("/quizzes", h.listOpenQuizzes)
	student.GET("/quiz/:id/questions", h.fetchQuestions)
	student.POST("/quiz/:id/submit", h.submit)
	student.GET("/attempts", h.myAttempts)
	student.GET("/progress", h.progress)

	admin := api.Group("/admin", requireAdmin())
	admin.POST("/quizzes", h.createQuiz)
	admin.GET("/quizzes", h.listQuizzes)
	admin.PUT("/quizzes/:id", h.updateQuiz)
	admin.DELETE("/quizzes/:id", h.deleteQuiz)
	admin.GET("/quizzes/:id/questions", h.listQuestions)
	admin.POST("/quizzes/:id/questions", h.addQuestion)
	admin.GET("/quizzes/:id/attempts", h.quizAttempts)
	admin.GET("/quizzes/:id/attempts/live", h.liveAttempts)
	admin.GET("/student-scores", h.studentScores)

	return r
}
