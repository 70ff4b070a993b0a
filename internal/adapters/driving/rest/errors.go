package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/diml"
	"github.com/custodia-labs/intentflow/internal/logger"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
	Status  int      `json:"status"`
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoDescription):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidDIML):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Client errors always carry
// the error text; server errors carry it only in development.
func (s *Server) respondError(c *gin.Context, summary string, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: summary, Status: status}

	var verr *diml.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Errors
	}

	if status < http.StatusInternalServerError || s.settings.IsDevelopment() {
		resp.Message = err.Error()
	} else {
		resp.Message = "An unexpected error occurred"
	}
	if status >= http.StatusInternalServerError {
		logger.Error(summary, logger.Err(err), "path", c.FullPath())
	}

	c.JSON(status, resp)
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:  msg,
		Status: http.StatusBadRequest,
	})
}
