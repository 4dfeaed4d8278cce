// Package response writes the RPC envelope used by the HTTP transport.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "hydration-user-service/pkg/errors"
)

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"httpStatus"`
}

// Envelope is the body of every RPC response.
type Envelope struct {
	Result *Result    `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// Result carries a successful procedure result.
type Result struct {
	Data any `json:"data"`
}

// OK writes data as a successful result.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Result: &Result{Data: data}})
}

// Error writes err with the status derived from its type and aborts the chain.
func Error(c *gin.Context, err error) {
	status := pkgerrors.HTTPStatus(err)
	c.AbortWithStatusJSON(status, Envelope{Error: &ErrorBody{
		Code:       pkgerrors.Code(err),
		Message:    pkgerrors.PublicMessage(err),
		HTTPStatus: status,
	}})
}

// Status writes an error with an explicit status and code and aborts the chain.
func Status(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{Error: &ErrorBody{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}})
}
