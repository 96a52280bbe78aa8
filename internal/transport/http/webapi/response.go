package webapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vetrina-server-go/internal/platform/errors"
)

// APIResponse is the uniform JSON envelope for every endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    int         `json:"code"`
}

func RespondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, APIResponse{
		Success: true,
		Data:    data,
		Code:    status,
	})
}

func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{
		Success: false,
		Message: message,
		Code:    status,
	})
}

// RespondDomainError maps the error taxonomy onto HTTP statuses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.IsKind(err, errors.KindValidation):
		RespondError(c, http.StatusBadRequest, err.Error())
	case errors.IsKind(err, errors.KindConflict):
		RespondError(c, http.StatusConflict, err.Error())
	case errors.IsKind(err, errors.KindNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	case errors.IsKind(err, errors.KindAuth):
		RespondError(c, http.StatusUnauthorized, err.Error())
	default:
		RespondError(c, http.StatusInternalServerError, "internal error")
	}
}
