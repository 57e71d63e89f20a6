package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/sakif/vidtube/internal/storage"
)

// ErrNoFile is returned by Bridge.Put when the slot was empty.
var ErrNoFile = errors.New("upload: no file staged")

// Bridge forwards staged files to the object store.
type Bridge struct {
	store  storage.Store
	folder string
	logger *slog.Logger
}

// NewBridge stores objects under folder, e.g. "vidtube".
func NewBridge(store storage.Store, folder string, logger *slog.Logger) *Bridge {
	return &Bridge{store: store, folder: folder, logger: logger}
}

// Put uploads f. The public id is "<folder>/<kind>/<staged id>", so a
// retried Put of the same staged file overwrites instead of duplicating.
func (b *Bridge) Put(ctx context.Context, f *StagedFile, kind storage.Kind) (storage.Object, error) {
	if f == nil {
		return storage.Object{}, ErrNoFile
	}
	publicID := path.Join(b.folder, string(kind), f.ID)

	obj, err := b.store.Put(ctx, f.Path, publicID, kind)
	if err != nil {
		return storage.Object{}, fmt.Errorf("upload: storing %s: %w", f.Slot, err)
	}
	b.logger.Info("media uploaded",
		slog.String("slot", f.Slot),
		slog.String("publicId", obj.PublicID),
		slog.Int64("bytes", f.Size),
	)
	return obj, nil
}

// Remove deletes a stored object. An empty publicID is a no-op.
func (b *Bridge) Remove(ctx context.Context, publicID string, kind storage.Kind) error {
	if publicID == "" {
		return nil
	}
	if err := b.store.Delete(ctx, publicID, kind); err != nil {
		return fmt.Errorf("upload: removing %s: %w", publicID, err)
	}
	return nil
}

// RemoveQuietly is Remove for cleanup paths where the caller has already
// succeeded: failures are logged, not returned.
func (b *Bridge) RemoveQuietly(ctx context.Context, publicID string, kind storage.Kind) {
	if err := b.Remove(ctx, publicID, kind); err != nil {
		b.logger.Warn("failed to remove stored media",
			slog.String("publicId", publicID),
			slog.String("error", err.Error()),
		)
	}
}
