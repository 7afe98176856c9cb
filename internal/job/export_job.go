package job

import (
	"context"

	"github.com/smsline/smsline/internal/service"
)

// ExportJob writes a periodic archive when an export schedule is
// configured.
type ExportJob struct {
	exporter *service.ExportService
}

func NewExportJob(exporter *service.ExportService) *ExportJob {
	return &ExportJob{exporter: exporter}
}

func (j *ExportJob) Name() string {
	return "archive_export"
}

func (j *ExportJob) Run(ctx context.Context) error {
	if j.exporter == nil {
		return nil
	}
	_, err := j.exporter.Export(ctx)
	return err
}
