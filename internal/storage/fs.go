package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FSStorage serves documents from a local directory tree laid out as
// <root>/<tenant_id>/<path>. Development and test use only.
type FSStorage struct {
	root string
}

// NewFS creates an FSStorage rooted at dir.
func NewFS(dir string) *FSStorage {
	return &FSStorage{root: dir}
}

func (s *FSStorage) Download(_ context.Context, storagePath, tenantID string) ([]byte, error) {
	key, err := tenantKey(storagePath, tenantID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, eris.Wrapf(err, "storage: read file for tenant %s", tenantID)
	}
	return data, nil
}
