package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/logger"
	"github.com/balkashynov/wroklog/internal/summary"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination details.
type Meta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func respondPage(c *gin.Context, data interface{}, meta Meta) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: &meta})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// respondError maps err onto an HTTP status and error envelope.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := apperr.CodeOf(err)
	message := err.Error()

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	switch {
	case errors.Is(err, summary.ErrNotConfigured):
		status, code = http.StatusServiceUnavailable, "SUMMARY_UNAVAILABLE"
	case status == http.StatusInternalServerError:
		logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		message = "internal server error"
	}
	fail(c, status, code, message)
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindQuotaExhausted:
		return http.StatusTooManyRequests
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
