package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

func (h *Handler) createQuiz(c *gin.Context) {
	var in app.QuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	quiz, err := h.service.CreateQuiz(c.Request.Context(), identity(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *Handler) listQuizzes(c *gin.Context) {
	quizzes, err := h.service.ListQuizzes(c.Request.Context(), identity(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) updateQuiz(c *gin.Context) {
	var patch app.QuizPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	quiz, err := h.service.UpdateQuiz(c.Request.Context(), identity(c), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) deleteQuiz(c *gin.Context) {
	if err := h.service.DeleteQuiz(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted"})
}

func (h *Handler) listQuestions(c *gin.Context) {
	questions, err := h.service.ListQuestions(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// addQuestion accepts either a JSON body or a multipart form with an optional
// "image" file. In the form, options and correctAnswer are JSON-encoded strings.
func (h *Handler) addQuestion(c *gin.Context) {
	var (
		in    app.QuestionInput
		image *app.ImageUpload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
		parsed, upload, err := questionFromForm(c)
		if err != nil {
			h.writeError(c, err)
			return
		}
		in, image = parsed, upload
		if upload != nil {
			if closer, ok := upload.Body.(interface{ Close() error }); ok {
				defer closer.Close()
			}
		}
	} else if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	q, err := h.service.AddQuestion(c.Request.Context(), identity(c), c.Param("id"), in, image)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func questionFromForm(c *gin.Context) (app.QuestionInput, *app.ImageUpload, error) {
	in := app.QuestionInput{
		Type: domain.QuestionType(c.PostForm("type")),
		Text: c.PostForm("text"),
	}
	if raw := c.PostForm("marks"); raw != "" {
		marks, err := strconv.Atoi(raw)
		if err != nil {
			return in, nil, domain.Invalid("marks", "must be an integer")
		}
		in.Marks = marks
	}
	if raw := c.PostForm("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Options); err != nil {
			return in, nil, domain.Invalid("options", "must be a JSON array of strings")
		}
	}
	if raw := c.PostForm("correctAnswer"); raw != "" {
		answer, err := domain.ParseAnswer(raw)
		if err != nil {
			return in, nil, domain.Invalid("correctAnswer", "must be valid JSON")
		}
		in.CorrectAnswer = answer
	}

	header, err := c.FormFile("image")
	if err == http.ErrMissingFile {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, domain.Invalid("image", "unreadable upload")
	}
	file, err := header.Open()
	if err != nil {
		return in, nil, domain.Invalid("image", "unreadable upload")
	}
	return in, &app.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, nil
}

func (h *Handler) quizAttempts(c *gin.Context) {
	attempts, err := h.service.QuizAttempts(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *Handler) studentScores(c *gin.Context) {
	filter := app.ScoreFilter{
		Subject: c.Query("subject"),
		Date:    c.Query("date"),
	}
	scores, err := h.service.StudentScores(c.Request.Context(), identity(c), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, scores)
}
