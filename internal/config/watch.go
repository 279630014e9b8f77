package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a configuration file whenever it changes on disk.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	logger   *zap.Logger
	done     chan struct{}
}

// Watch starts watching configPath. onChange receives every successfully
// loaded and validated configuration; invalid edits are logged and ignored.
// The parent directory is watched so editors that replace the file are seen.
func Watch(configPath string, logger *zap.Logger, onChange func(*Config)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(configPath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", configPath, err)
	}

	w := &Watcher{
		path:     filepath.Clean(configPath),
		watcher:  fw,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.loop()

	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring invalid config change", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.logger.Info("config reloaded", zap.String("path", w.path), zap.Int("prefixes", len(cfg.Prefixes)))
	w.onChange(cfg)
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
