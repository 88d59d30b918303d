package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nfmw/ttserver/internal/common"
)

const replayDirName = "tt"

// Filesystem stores replay files under <root>/tt/<record-id>.timetrial.
type Filesystem struct {
	root string
}

// NewFilesystem creates the replay directory under root if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if err := os.MkdirAll(filepath.Join(root, replayDirName), 0o755); err != nil {
		return nil, fmt.Errorf("creating filestore directory: %w", err)
	}
	return &Filesystem{root: root}, nil
}

func (s *Filesystem) path(id uuid.UUID) string {
	return filepath.Join(s.root, replayDirName, id.String()+".timetrial")
}

func (s *Filesystem) Write(ctx context.Context, id uuid.UUID, data []byte) error {
	if err := os.WriteFile(s.path(id), data, 0o644); err != nil {
		return fmt.Errorf("writing replay file: %w", err)
	}
	return nil
}

func (s *Filesystem) Read(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("reading replay file: %w", err)
	}
	return data, nil
}
