// Package export writes JSON archives of verification history to a
// local directory or an S3 bucket.
package export

import (
	"context"
	"fmt"

	"github.com/smsline/smsline/internal/config"
)

type Store interface {
	Save(ctx context.Context, key string, data []byte) error
}

func New(cfg config.ExportConfig) (Store, error) {
	switch cfg.Type {
	case "local":
		return newLocalStore(cfg.Dir)
	case "s3":
		return newS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported export store type: %s", cfg.Type)
	}
}
