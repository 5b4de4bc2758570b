package ingest

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/blobstore"
	"github.com/papercomputeco/stacks/pkg/extract"
)

// Watcher re-ingests documents as they change in a local directory. Created
// and modified files are ingested; removed and renamed-away files have their
// records deleted.
type Watcher struct {
	pipeline *Pipeline
	dir      string
	logger   *zap.Logger
}

// NewWatcher creates a watcher over dir backed by the given pipeline.
func NewWatcher(pipeline *Pipeline, dir string, logger *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving watch dir: %w", err)
	}

	return &Watcher{
		pipeline: pipeline,
		dir:      abs,
		logger:   logger,
	}, nil
}

// Run watches the directory until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.logger.Info("watching directory",
		zap.String("dir", w.dir),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !extract.Supported(filepath.Ext(name)) {
		return
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		obj := blobstore.Object{
			Name: name,
			URL:  fileURL(event.Name),
		}

		// Replace any records from a previous version of the document.
		if _, err := w.pipeline.Delete(ctx, name); err != nil {
			w.logger.Warn("failed to clear previous records",
				zap.String("document", name),
				zap.Error(err),
			)
		}

		if _, err := w.pipeline.Ingest(ctx, obj); err != nil {
			w.logger.Error("failed to ingest changed document",
				zap.String("document", name),
				zap.Error(err),
			)
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		removed, err := w.pipeline.Delete(ctx, name)
		if err != nil {
			w.logger.Error("failed to delete records for removed document",
				zap.String("document", name),
				zap.Error(err),
			)
			return
		}
		w.logger.Info("removed document records",
			zap.String("document", name),
			zap.Int("records", removed),
		)
	}
}

func fileURL(path string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(path),
	}
	return u.String()
}
