package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// respondError translates an application error into an HTTP status plus a
// stable machine-readable code.
func respondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	c.JSON(statusFor(code), gin.H{
		"code":  string(code),
		"error": err.Error(),
	})
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeUnknownContentType:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeAlreadyExists, apperrors.CodeMaxRetriesExceeded:
		return http.StatusConflict
	case apperrors.CodeUnauthorized:
		return http.StatusForbidden
	case apperrors.CodeServiceUnavail, apperrors.CodeMissingCredential:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
