// Package storage persists the tracked inventory between a build and a scan.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edeas123/aws-terraform-casper/internal/config"
	"github.com/edeas123/aws-terraform-casper/types"
)

// ErrStateNotFound is returned by Load when nothing has been saved yet.
var ErrStateNotFound = errors.New("state not found")

// Store saves and loads the tracked inventory.
type Store interface {
	Save(ctx context.Context, inv types.Inventory) error
	Load(ctx context.Context) (types.Inventory, error)
	Location() string
}

// New picks the store for cfg. A configured bucket selects S3 with the local
// backend as fallback.
func New(cfg config.StateConfig, client S3API, log zerolog.Logger) (Store, error) {
	var local Store
	switch cfg.Backend {
	case config.BackendFile, "":
		local = NewFileStore(cfg.File)
	case config.BackendBolt:
		local = NewBoltStore(cfg.File)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}

	if cfg.Bucket == "" {
		return local, nil
	}
	if client == nil {
		return nil, errors.New("s3 client required when a bucket is configured")
	}
	return NewS3Store(client, cfg.Bucket, cfg.File, local, log), nil
}
