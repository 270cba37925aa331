package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"securetransfer/internal/transfer"
	"securetransfer/pkg/platform/sentinel"
)

const decryptedPrefix = "decrypted-"

var errInvalidRef = errors.New("invalid content reference")

// FileStore keeps uploads and decrypted results as flat files under one root.
// Raw files are named <uuid>-<name>; decrypted files add a "decrypted-" prefix.
type FileStore struct {
	root string
}

// NewFileStore creates root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) StoreRaw(ctx context.Context, originalName string, data []byte) (string, error) {
	return s.write(ctx, uuid.NewString()+"-"+sanitize(originalName), data)
}

func (s *FileStore) LoadRaw(ctx context.Context, ref string) ([]byte, error) {
	return s.read(ctx, ref)
}

func (s *FileStore) StoreDecrypted(ctx context.Context, data []byte, originalName string) (string, error) {
	return s.write(ctx, decryptedPrefix+uuid.NewString()+"-"+sanitize(originalName), data)
}

func (s *FileStore) LoadDecrypted(ctx context.Context, ref string) ([]byte, error) {
	if !strings.HasPrefix(ref, decryptedPrefix) {
		return nil, fmt.Errorf("load decrypted %q: %w", ref, errInvalidRef)
	}
	return s.read(ctx, ref)
}

func (s *FileStore) write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.root, name)
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

func (s *FileStore) read(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref == "" || filepath.Base(ref) != ref || strings.HasPrefix(ref, ".") {
		return nil, fmt.Errorf("read %q: %w", ref, errInvalidRef)
	}
	data, err := os.ReadFile(filepath.Join(s.root, ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("content %q not found: %w", ref, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read %q: %w", ref, err)
	}
	return data, nil
}

// sanitize keeps only the final path element of a client-supplied name.
func sanitize(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "file"
	}
	return base
}

var _ transfer.ContentStore = (*FileStore)(nil)
