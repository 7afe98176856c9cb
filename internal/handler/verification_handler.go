package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smsline/smsline/internal/pkg/errcode"
	"github.com/smsline/smsline/internal/pkg/response"
	"github.com/smsline/smsline/internal/service"
)

const (
	defaultAwaitTimeout = 30 * time.Second
	maxAwaitTimeout     = 5 * time.Minute
)

type VerificationHandler struct {
	coordinator *service.Coordinator
}

func NewVerificationHandler(coordinator *service.Coordinator) *VerificationHandler {
	return &VerificationHandler{coordinator: coordinator}
}

type rentRequest struct {
	Service       string  `json:"service"`
	MaxPrice      float64 `json:"max_price"`
	CorrelationID string  `json:"correlation_id"`
}

func (h *VerificationHandler) Rent(c *gin.Context) {
	var req rentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.CorrelationID == "" {
		response.Error(c, errcode.ErrInvalid, "correlation_id required")
		return
	}
	snap, err := h.coordinator.Rent(c.Request.Context(), req.Service, req.MaxPrice, req.CorrelationID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, snap)
}

func (h *VerificationHandler) List(c *gin.Context) {
	response.Success(c, h.coordinator.ListActive())
}

func (h *VerificationHandler) Get(c *gin.Context) {
	snap, err := h.coordinator.Snapshot(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, snap)
}

// AwaitCode long-polls for the next unconsumed code on a line.
func (h *VerificationHandler) AwaitCode(c *gin.Context) {
	timeout := defaultAwaitTimeout
	if raw := c.Query("timeout_seconds"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			response.Error(c, errcode.ErrInvalid, "invalid timeout_seconds")
			return
		}
		timeout = time.Duration(seconds) * time.Second
		if timeout > maxAwaitTimeout {
			timeout = maxAwaitTimeout
		}
	}
	code, err := h.coordinator.AwaitCode(c.Request.Context(), c.Param("id"), timeout)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"code": code})
}

func (h *VerificationHandler) Cancel(c *gin.Context) {
	if err := h.coordinator.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *VerificationHandler) Complete(c *gin.Context) {
	if err := h.coordinator.Complete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *VerificationHandler) Keep(c *gin.Context) {
	if err := h.coordinator.Keep(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *VerificationHandler) ListByCorrelation(c *gin.Context) {
	response.Success(c, h.coordinator.ListByCorrelation(c.Param("id")))
}

func (h *VerificationHandler) Reassign(c *gin.Context) {
	snap, err := h.coordinator.Reassign(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, snap)
}
