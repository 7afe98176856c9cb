package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/smsline/smsline/internal/pkg/response"
	"github.com/smsline/smsline/internal/service"
)

type ExportHandler struct {
	exporter *service.ExportService
}

func NewExportHandler(exporter *service.ExportService) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

func (h *ExportHandler) Export(c *gin.Context) {
	key, err := h.exporter.Export(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"key": key})
}
