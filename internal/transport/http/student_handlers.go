package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quizdesk/internal/app"
)

type submitRequest struct {
	Answers []app.SubmittedAnswer `json:"answers"`
}

func (h *Handler) listOpenQuizzes(c *gin.Context) {
	quizzes, err := h.service.ListOpenQuizzes(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) fetchQuestions(c *gin.Context) {
	out, err := h.service.FetchQuestions(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	res, err := h.service.Submit(c.Request.Context(), identity(c), c.Param("id"), req.Answers)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) myAttempts(c *gin.Context) {
	attempts, err := h.service.MyAttempts(c.Request.Context(), identity(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *Handler) progress(c *gin.Context) {
	entries, err := h.service.Progress(c.Request.Context(), identity(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
