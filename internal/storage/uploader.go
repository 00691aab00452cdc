// Package storage stores uploaded images on local disk or in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hhaamed74/promanager-api/internal/config"
)

// Upload errors.
var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds maximum upload size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// AllowedImageTypes maps accepted image content types to file extensions.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Metadata describes an uploaded file.
type Metadata struct {
	Filename    string
	ContentType string
	Size        int64
}

// Uploader persists file bytes and returns a public reference to them.
type Uploader interface {
	Store(ctx context.Context, data []byte, meta Metadata) (string, error)
}

// ValidateImage checks size and sniffed content type and returns the
// detected content type. The client-supplied type is ignored.
func ValidateImage(data []byte, meta Metadata, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(data), maxBytes)
	}

	contentType := http.DetectContentType(data)
	if _, ok := AllowedImageTypes[contentType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return contentType, nil
}

// New builds the uploader selected by cfg.UploadBackend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Uploader, error) {
	switch cfg.UploadBackend {
	case config.UploadBackendLocal:
		logger.Info("using local upload storage", slog.String("dir", cfg.UploadDir))
		return NewLocalUploader(cfg.UploadDir, cfg.UploadPrefix)
	case config.UploadBackendS3:
		logger.Info("using s3 upload storage", slog.String("bucket", cfg.S3Bucket))
		return NewS3Uploader(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			UsePathStyle:    cfg.S3UsePathStyle,
			Prefix:          cfg.UploadPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.UploadBackend)
	}
}

// objectName builds "<id>-<sanitized name><ext>" for a stored file.
func objectName(id string, meta Metadata) string {
	base := filepath.Base(meta.Filename)
	ext := strings.ToLower(filepath.Ext(base))
	stem := sanitizeName(strings.TrimSuffix(base, filepath.Ext(base)))

	if want, ok := AllowedImageTypes[meta.ContentType]; ok && ext != want && !(want == ".jpg" && ext == ".jpeg") {
		ext = want
	}
	if stem == "" {
		return id + ext
	}
	return id + "-" + stem + ext
}

func sanitizeName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
		if b.Len() >= 48 {
			break
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
