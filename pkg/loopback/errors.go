package loopback

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/entrhq/lookout/pkg/browser"
)

// statusFor maps browser errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, browser.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, browser.ErrPreconditionFailed):
		return http.StatusConflict, "precondition_failed"
	case errors.Is(err, browser.ErrLockConflict):
		return http.StatusLocked, "lock_conflict"
	case errors.Is(err, browser.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, browser.ErrTransport):
		return http.StatusBadGateway, "transport"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(c *gin.Context, err error) {
	status, kind := statusFor(err)
	body := gin.H{"error": err.Error(), "kind": kind}

	var conflict *browser.LockConflictError
	if errors.As(err, &conflict) {
		body["holder"] = conflict.Holder
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_input"})
}
