package kv

import (
	"context"
	"errors"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/storage/blob"
)

// Blob stores each key as one <key>.json object in a blob.Storage, so the same
// state can live on local disk or in an S3 bucket.
type Blob struct {
	storage blob.Storage
}

// NewBlob wraps a blob storage as a Store.
func NewBlob(storage blob.Storage) *Blob {
	return &Blob{storage: storage}
}

func (b *Blob) path(key string) string {
	return key + ".json"
}

func (b *Blob) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.storage.Read(ctx, b.path(key))
	if errors.Is(err, blob.ErrNotExist) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return data, nil
}

func (b *Blob) Set(ctx context.Context, key string, value []byte) error {
	if err := b.storage.Write(ctx, b.path(key), value); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

func (b *Blob) Remove(ctx context.Context, key string) error {
	if err := b.storage.Delete(ctx, b.path(key)); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}
