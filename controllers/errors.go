package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dinetap/dinein-app/services"
	"github.com/dinetap/dinein-app/utils"
)

// ErrNoPermission is returned on role failures inside handlers.
var ErrNoPermission = &CustomError{"You do not have permission"}

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

// statusForKind maps the engine error taxonomy to HTTP statuses. Capacity
// and lock violations are conflicts; everything malformed is a 400.
func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindInvalidArgument, services.KindNothingToPay:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindCapacityExceeded, services.KindTableFull,
		services.KindConflict, services.KindPendingBalance:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondEngineError surfaces an engine failure with its mapped status.
// Internal errors are logged in full but reach the client as a generic
// message only.
func respondEngineError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	if kind == services.KindInternal {
		utils.ErrorLogger.Printf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		utils.RespondError(c, http.StatusInternalServerError, &CustomError{"internal error"})
		return
	}
	utils.RespondError(c, statusForKind(kind), err)
}
