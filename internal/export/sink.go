package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"medshelf/m/internal/config"
)

// FSSink writes exports into a directory.
type FSSink struct {
	Dir string
}

func (s FSSink) Put(_ context.Context, name string, body []byte, _ string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// NewSink builds the sink selected by cfg.Driver.
func NewSink(ctx context.Context, cfg config.ExportConfig) (Sink, error) {
	switch cfg.Driver {
	case "", "fs":
		return FSSink{Dir: cfg.Dir}, nil
	case "s3":
		return NewS3Sink(ctx, S3Options{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			PathStyle:       cfg.PathStyle,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown export driver %q", cfg.Driver)
	}
}
