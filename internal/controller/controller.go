package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RespondError maps the service error taxonomy to HTTP statuses. Every
// override rejection carries its specific reason; administrators act on these
// messages directly.
func RespondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrAttemptNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidExtraTimeRange),
		errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrUnknownEventType):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrConcurrentModification),
		errors.Is(err, service.ErrExamWindowClosed),
		errors.Is(err, service.ErrAttemptLimitReached),
		errors.Is(err, service.ErrAttemptAlreadyActive):
		status = http.StatusConflict
	}
	ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
}

// ParseUintParam reads a numeric path parameter, replying 400 on garbage.
func ParseUintParam(ctx *gin.Context, name string) (uint, bool) {
	raw := ctx.Param(name)
	val, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

// ActingAdmin returns the administrator identity the auth layer passed
// through. Authorization itself is enforced upstream of this core.
func ActingAdmin(ctx *gin.Context) string {
	if admin := ctx.GetHeader("X-Admin-User"); admin != "" {
		return admin
	}
	return "admin"
}
