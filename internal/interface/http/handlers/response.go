package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/progress-engine/internal/domain/shared"
	"github.com/alem-hub/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// APIError is the body of every failed response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Error codes with a dedicated meaning for clients.
const (
	CodeInvalidInput            = "invalid_input"
	CodeInvalidAccrual          = "invalid_accrual"
	CodeInvalidAnswerIndex      = "invalid_answer_index"
	CodeNotFound                = "not_found"
	CodeAlreadyResolved         = "already_resolved"
	CodeDuplicateQuiz           = "duplicate_quiz"
	CodeQuestionAlreadyAnswered = "question_already_answered"
	CodeQuizCompleted           = "quiz_completed"
	CodeConflict                = "conflict"
	CodeUnauthenticated         = "unauthenticated"
	CodeInternal                = "internal_error"
)

// specific codes are checked before the generic kinds.
var errorCodes = []struct {
	err  error
	code string
}{
	{shared.ErrInvalidAccrual, CodeInvalidAccrual},
	{shared.ErrInvalidAnswerIndex, CodeInvalidAnswerIndex},
	{shared.ErrAlreadyResolved, CodeAlreadyResolved},
	{shared.ErrDuplicateQuiz, CodeDuplicateQuiz},
	{shared.ErrQuestionAlreadyAnswered, CodeQuestionAlreadyAnswered},
	{shared.ErrQuizCompleted, CodeQuizCompleted},
}

// StatusFor maps a domain error to its HTTP status and client code.
func StatusFor(err error) (int, string) {
	status := http.StatusInternalServerError
	switch {
	case shared.IsNotFound(err):
		// Unknown and foreign ids are indistinguishable on purpose.
		return http.StatusNotFound, CodeNotFound
	case shared.IsValidation(err):
		status = http.StatusBadRequest
	case shared.IsConflict(err):
		status = http.StatusConflict
	default:
		return status, CodeInternal
	}

	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return status, ec.code
		}
	}
	if status == http.StatusBadRequest {
		return status, CodeInvalidInput
	}
	return status, CodeConflict
}

// RespondError writes the error envelope. Internal failures are logged and
// hidden behind a generic message.
func RespondError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			logger.String("path", c.FullPath()),
			logger.Err(err),
		)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// RespondBadRequest reports a malformed request body or parameter.
func RespondBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorEnvelope{
		Error: APIError{Message: err.Error(), Code: CodeInvalidInput},
	})
}

// RespondOK writes payload with status 200.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondCreated writes payload with status 201.
func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
