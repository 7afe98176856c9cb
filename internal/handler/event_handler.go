package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smsline/smsline/internal/model"
	"github.com/smsline/smsline/internal/pkg/errcode"
	"github.com/smsline/smsline/internal/pkg/response"
	"github.com/smsline/smsline/internal/repo"
)

const defaultEventLimit = 100

type EventHandler struct {
	events *repo.EventRepo
}

func NewEventHandler(events *repo.EventRepo) *EventHandler {
	return &EventHandler{events: events}
}

func (h *EventHandler) List(c *gin.Context) {
	limit := uint(defaultEventLimit)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || parsed == 0 || parsed > 1000 {
			response.Errorf(c, errcode.ErrInvalid, "invalid limit %q", raw)
			return
		}
		limit = uint(parsed)
	}
	var (
		out []*model.SMSEvent
		err error
	)
	if correlationID := c.Query("correlation_id"); correlationID != "" {
		out, err = h.events.ListByCorrelation(c.Request.Context(), correlationID, limit)
	} else {
		out, err = h.events.ListRecent(c.Request.Context(), limit)
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, out)
}
