package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success envelope: {"status":"success","code":200,"data":{...}}.
// Error envelope: {"status":"error","message":"..."} plus optional details.

func RespondSuccess(ctx *gin.Context, data any) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "success",
		"code":   http.StatusOK,
		"data":   data,
	})
}

func RespondError(ctx *gin.Context, status int, message string, details interface{}) {
	body := gin.H{
		"status":  "error",
		"message": message,
	}

	if details != nil {
		body["details"] = details
	}

	ctx.JSON(status, body)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message, nil)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, message, nil)
}

func RespondServiceUnavailable(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusServiceUnavailable, message, nil)
}

// RespondInternal surfaces the raw failure message to the caller. That leaks
// internal detail; a hardened deployment should mask it at the gateway.
func RespondInternal(ctx *gin.Context, err error) {
	RespondError(ctx, http.StatusInternalServerError, err.Error(), nil)
}
