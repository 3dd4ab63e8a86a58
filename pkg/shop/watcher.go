package shop

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// CatalogWatcher re-seeds the store when the catalog file changes on disk
type CatalogWatcher struct {
	watcher     *fsnotify.Watcher
	store       *Store
	catalogPath string
	logger      zerolog.Logger
	debounce    time.Duration
	timer       *time.Timer
	stopCh      chan struct{}
}

// NewCatalogWatcher watches catalogPath and reloads it into the store on change
func NewCatalogWatcher(store *Store, catalogPath string, logger zerolog.Logger) (*CatalogWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the parent directory; editors often replace the file wholesale.
	if err := watcher.Add(filepath.Dir(catalogPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	cw := &CatalogWatcher{
		watcher:     watcher,
		store:       store,
		catalogPath: catalogPath,
		logger:      logger,
		debounce:    500 * time.Millisecond,
		stopCh:      make(chan struct{}),
	}

	go cw.run()

	return cw, nil
}

// Stop stops the watcher
func (cw *CatalogWatcher) Stop() error {
	close(cw.stopCh)
	return cw.watcher.Close()
}

func (cw *CatalogWatcher) run() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != filepath.Clean(cw.catalogPath) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				cw.logger.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Catalog change detected")

				cw.scheduleReseed()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error().Err(err).Msg("Catalog watcher error")

		case <-cw.stopCh:
			return
		}
	}
}

// scheduleReseed debounces the reload
func (cw *CatalogWatcher) scheduleReseed() {
	if cw.timer != nil {
		cw.timer.Stop()
	}

	cw.timer = time.AfterFunc(cw.debounce, func() {
		if err := cw.store.Seed(context.Background(), cw.catalogPath); err != nil {
			cw.logger.Error().Err(err).Msg("Catalog reload failed")
			return
		}
		cw.logger.Info().Msg("Catalog reloaded after file change")
	})
}
