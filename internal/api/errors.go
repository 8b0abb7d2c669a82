package api

import (
	"errors"   // errors.As for the error code
	"net/http" // HTTP status codes

	"crowdfund_system/internal/apperr" // Typed core errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// statusFor maps an error kind to an HTTP status
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized, apperr.KindExpired:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindPrecondition:
		return http.StatusPreconditionFailed
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a core error. Internal failures are logged and
// reported without detail.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if kind == apperr.KindInternal {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("requestID"), // Request id
			"path":       c.FullPath(),             // Route
			"error":      err.Error(),              // Cause
		}).Error("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error", "code": "INTERNAL"})
		return
	}
	code := "ERROR"
	var e *apperr.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

// badRequest reports a malformed request body or parameter
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": apperr.ErrInvalidInput.Code})
}
