package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/narrative"
	"github.com/gin-gonic/gin"
)

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code, a human message and
// whether the client may retry.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string, bool) {
	switch {
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request", false
	case errors.Is(err, core.ErrEmbedding):
		return http.StatusBadGateway, "embedding_error", false
	case errors.Is(err, core.ErrRetrieval):
		return http.StatusServiceUnavailable, "retrieval_error", true
	case errors.Is(err, narrative.ErrExplainerRequired):
		return http.StatusNotImplemented, "explainer_unavailable", false
	case errors.Is(err, core.ErrExplanation):
		return http.StatusBadGateway, "explanation_error", false
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", true
	default:
		return http.StatusInternalServerError, "internal_error", false
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code, retryable := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	s.logger.Warn("request failed",
		"path", c.FullPath(),
		"code", code,
		"request_id", c.GetString(requestIDKey),
		"err", err)
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}})
}

func (s *Server) badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
		Code:    "invalid_request",
		Message: message,
	}})
}
