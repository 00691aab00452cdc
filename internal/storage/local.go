package storage

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/oklog/ulid/v2"
)

// PublicPathPrefix is the URL path under which local uploads are served.
const PublicPathPrefix = "/uploads"

// LocalUploader writes files below a directory on local disk.
type LocalUploader struct {
	dir    string
	prefix string
}

// NewLocalUploader creates dir/prefix if needed.
func NewLocalUploader(dir, prefix string) (*LocalUploader, error) {
	if err := os.MkdirAll(filepath.Join(dir, prefix), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalUploader{dir: dir, prefix: prefix}, nil
}

// Dir returns the root directory served at PublicPathPrefix.
func (u *LocalUploader) Dir() string {
	return u.dir
}

// PublicFS serves dir read-only with directories reported as missing,
// so http.FileServer never renders a listing.
func PublicFS(dir string) http.FileSystem {
	return filesOnlyFS{root: http.Dir(dir)}
}

type filesOnlyFS struct {
	root http.FileSystem
}

func (f filesOnlyFS) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

// Ping checks that the upload directory still exists.
func (u *LocalUploader) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Join(u.dir, u.prefix))
	if err != nil {
		return fmt.Errorf("stat upload dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("upload path %s is not a directory", u.dir)
	}
	return ctx.Err()
}

// Store writes data and returns its public path, e.g. /uploads/promanager_uploads/<file>.
func (u *LocalUploader) Store(ctx context.Context, data []byte, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(ulid.Make().String(), meta)
	full := filepath.Join(u.dir, u.prefix, name)

	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path.Join(PublicPathPrefix, u.prefix, name), nil
}
