package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/smsline/smsline/internal/export"
	"github.com/smsline/smsline/internal/model"
	"github.com/smsline/smsline/internal/repo"
)

const exportEventLimit = 10000

// ExportService archives current verification snapshots plus the
// recorded event history as a JSON document in the export store.
type ExportService struct {
	coordinator *Coordinator
	events      *repo.EventRepo
	store       export.Store
}

func NewExportService(coordinator *Coordinator, events *repo.EventRepo, store export.Store) *ExportService {
	return &ExportService{coordinator: coordinator, events: events, store: store}
}

type Archive struct {
	GeneratedAt   int64                 `json:"generated_at_ms"`
	Verifications []*model.Verification `json:"verifications"`
	Events        []*model.SMSEvent     `json:"events"`
}

// Export writes the archive and returns its storage key.
func (s *ExportService) Export(ctx context.Context) (string, error) {
	events, err := s.events.ListRecent(ctx, exportEventLimit)
	if err != nil {
		return "", fmt.Errorf("load events: %w", err)
	}
	archive := Archive{
		GeneratedAt:   time.Now().UnixMilli(),
		Verifications: s.coordinator.ListActive(),
		Events:        events,
	}
	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode archive: %w", err)
	}
	key := fmt.Sprintf("smsline-export-%s.json", time.Now().UTC().Format("20060102-150405"))
	if err := s.store.Save(ctx, key, data); err != nil {
		return "", fmt.Errorf("save archive: %w", err)
	}
	logutil.GetLogger(ctx).Info("archive exported",
		zap.String("key", key),
		zap.Int("verifications", len(archive.Verifications)),
		zap.Int("events", len(archive.Events)),
	)
	return key, nil
}
