// Package response holds the error envelope written by middleware that
// rejects a request before it reaches a handler. Handlers themselves respond
// with the dto package's types.
package response

import (
	"github.com/gin-gonic/gin"
)

// Response is the envelope for middleware-level rejections
type Response struct {
	Success bool       `json:"success"`
	Error   *ErrorData `json:"error,omitempty"`
}

// ErrorData carries a machine-readable code alongside the message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error writes an error envelope with the given status
func Error(c *gin.Context, status int, code, message string, details string) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorData{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
