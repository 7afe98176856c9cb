package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type localStore struct {
	dir string
}

func newLocalStore(dir string) (Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("export dir is required")
	}
	return &localStore{dir: dir}, nil
}

func (s *localStore) Save(ctx context.Context, key string, data []byte) error {
	_ = ctx
	if strings.Contains(key, "..") {
		return fmt.Errorf("invalid export key")
	}
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
