package util

import (
	"errors"

	"github.com/gin-gonic/gin"
)

func SuccessResponse(data interface{}) gin.H {
	return gin.H{
		"status": "success",
		"data":   data,
	}
}

func FailedResponse(err error) gin.H {
	resp := gin.H{
		"status":  "failed",
		"message": err.Error(),
		"kind":    KindOf(err),
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		// internal causes stay in the logs
		resp["message"] = appErr.Message
		if appErr.Reason != "" {
			resp["reason"] = appErr.Reason
		}
	}
	return resp
}

// Fail writes the failed envelope with the status code of err's kind and aborts.
func Fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusCode(err), FailedResponse(err))
}
