// Package resp keeps HTTP responses uniform and maps the error taxonomy
// to status codes.
package resp

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"civicx-be/apperr"
)

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// Error renders a typed error with the status its kind implies.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidTransition:
		status = http.StatusConflict
	case apperr.KindMissingAttachment:
		status = http.StatusUnprocessableEntity
	case apperr.KindPermission:
		status = http.StatusForbidden
	case apperr.KindTransport:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
