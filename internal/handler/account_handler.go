package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/smsline/smsline/internal/pkg/response"
	"github.com/smsline/smsline/internal/service"
)

type AccountHandler struct {
	coordinator *service.Coordinator
}

func NewAccountHandler(coordinator *service.Coordinator) *AccountHandler {
	return &AccountHandler{coordinator: coordinator}
}

func (h *AccountHandler) Balance(c *gin.Context) {
	amount, err := h.coordinator.Balance(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"balance": amount})
}

func (h *AccountHandler) Services(c *gin.Context) {
	response.Success(c, service.ListServices())
}

func (h *AccountHandler) Status(c *gin.Context) {
	summary, err := h.coordinator.Status(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, summary)
}
