package kv

import (
	"context"
	"fmt"

	"github.com/newthinker/signaldesk/internal/config"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/storage/blob"
)

// Open builds the Store selected by the storage configuration.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemory(), nil
	case "localfs", "":
		fs, err := blob.NewLocalFS(cfg.Path)
		if err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		return NewBlob(fs), nil
	case "s3":
		s3, err := blob.NewS3(blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		return NewBlob(s3), nil
	case "redis":
		return NewRedis(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}
