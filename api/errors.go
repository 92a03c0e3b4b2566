package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

var errorCodes = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrValidationFailed, http.StatusBadRequest, "validation_failed"},
	{domain.ErrInsufficientInventory, http.StatusConflict, "insufficient_inventory"},
	{domain.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
	{domain.ErrForeignKeyViolation, http.StatusConflict, "foreign_key_violation"},
	{domain.ErrPersistenceConflict, http.StatusConflict, "persistence_conflict"},
}

func statusFor(err error) (int, errorResponse) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.kind) {
			return ec.status, errorResponse{Error: err.Error(), Code: ec.code, Retryable: domain.IsRetryable(err)}
		}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "unexpected"}
}

func writeError(c *gin.Context, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}
