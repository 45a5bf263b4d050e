package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quizdesk/internal/domain"
)

type errorBody struct {
	Message string              `json:"message"`
	Reason  domain.WindowReason `json:"reason,omitempty"`
}

// writeError maps domain error kinds onto status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	var windowErr *domain.AccessWindowError
	switch {
	case errors.As(err, &windowErr):
		c.JSON(http.StatusForbidden, errorBody{Message: windowErr.Error(), Reason: windowErr.Reason})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, errorBody{Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody{Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, errorBody{Message: err.Error()})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Message: "server error"})
	}
}

// bindError turns a body decoding failure into a ValidationError unless it already is one.
func bindError(err error) error {
	if errors.Is(err, domain.ErrValidation) {
		return err
	}
	return domain.Invalid("body", "malformed request body")
}
