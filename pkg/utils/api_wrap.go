package utils

import (
	"errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"net/http"
	"strings"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceIDOf(c *gin.Context) string {
	return c.GetString("trace_id")
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceIDOf(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceIDOf(c),
	})
}

func respondKind(c *gin.Context, code int, err error) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Kind:    ErrorKind(err),
		Message: publicMessage(err),
		TraceID: traceIDOf(c),
	})
}

// publicMessage keeps the wrapped context ("not found: payment 42") but drops
// anything a lower layer appended after a second colon.
func publicMessage(err error) string {
	parts := strings.SplitN(err.Error(), ": ", 3)
	if len(parts) > 2 {
		return parts[0] + ": " + parts[1]
	}
	return err.Error()
}

func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrAlreadyPaid):
		respondKind(c, http.StatusBadRequest, err)
	case errors.Is(err, ErrNotFound):
		respondKind(c, http.StatusNotFound, err)
	case errors.Is(err, ErrForbidden):
		respondKind(c, http.StatusForbidden, err)
	case errors.Is(err, ErrAtCapacity), errors.Is(err, ErrDuplicate):
		respondKind(c, http.StatusConflict, err)
	case errors.Is(err, ErrVerificationFailed):
		respondKind(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrGatewayDeclined):
		respondKind(c, http.StatusPaymentRequired, err)
	case errors.Is(err, ErrGateway):
		zap.L().Warn("gateway error", zap.String("trace_id", traceIDOf(c)), zap.Error(err))
		c.JSON(http.StatusBadGateway, APIResponse{
			Status:  "error",
			Code:    http.StatusBadGateway,
			Kind:    ErrorKind(err),
			Message: "Payment provider unavailable, retry later",
			TraceID: traceIDOf(c),
		})
	default:
		zap.L().Error("unhandled service error", zap.String("trace_id", traceIDOf(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIResponse{
			Status:  "error",
			Code:    http.StatusInternalServerError,
			Kind:    ErrorKind(err),
			Message: "Internal server error",
			TraceID: traceIDOf(c),
		})
	}
}
