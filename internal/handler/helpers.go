package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/smsline/smsline/internal/pkg/errcode"
	appErr "github.com/smsline/smsline/internal/pkg/errors"
	"github.com/smsline/smsline/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrNoNumbers):
		response.Error(c, errcode.ErrNoNumbers, "no numbers available")
	case errors.Is(err, appErr.ErrPriceExceeded):
		response.Error(c, errcode.ErrPriceExceeded, "max price exceeded")
	case errors.Is(err, appErr.ErrInsufficientBalance):
		response.Error(c, errcode.ErrInsufficientBalance, "insufficient balance")
	case errors.Is(err, appErr.ErrTooManyRentals):
		response.Error(c, errcode.ErrTooManyRentals, "too many active rentals")
	case errors.Is(err, appErr.ErrExpired):
		response.Error(c, errcode.ErrExpired, "verification expired")
	case errors.Is(err, appErr.ErrCancelled):
		response.Error(c, errcode.ErrCancelled, "verification cancelled")
	case errors.Is(err, appErr.ErrFailed):
		response.Error(c, errcode.ErrFailed, "verification failed")
	case errors.Is(err, appErr.ErrAwaitTimeout):
		response.Error(c, errcode.ErrAwaitTimeout, "no code before timeout")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
