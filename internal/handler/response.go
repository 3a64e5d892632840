package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/cityclinic/booking-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondWithError writes an error response, mapping AppError codes to HTTP
// statuses. Anything else is wrapped as an internal error so the client only
// ever sees an opaque 500.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		c.Error(err)
		appErr = apperrors.Internal(err)
	}
	c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))
}
