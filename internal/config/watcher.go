package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"svcrunner/internal/logger"
)

// FileWatcher monitors a single file and invokes a callback on modification.
// The parent directory is watched because editors and config deployers often
// replace the file rather than writing it in place.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewFileWatcher creates a watcher that calls onChange when path is written
// or recreated.
func NewFileWatcher(path string, onChange func()) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		path:     path,
		watcher:  w,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching for file changes.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	if err := fw.watcher.Add(filepath.Dir(fw.path)); err != nil {
		return err
	}

	log := logger.WithComponent("file-watcher")
	log.Info().
		Str("path", fw.path).
		Msg("Started watching file")

	go fw.watch()
	return nil
}

// Stop stops watching for changes.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = false
	fw.mu.Unlock()

	close(fw.stopChan)
	return fw.watcher.Close()
}

// IsRunning returns whether the watcher is currently running.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FileWatcher) watch() {
	log := logger.WithComponent("file-watcher")
	filename := filepath.Base(fw.path)

	for {
		select {
		case <-fw.stopChan:
			log.Info().Str("path", fw.path).Msg("File watcher stopped")
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Info().
					Str("path", fw.path).
					Str("event", event.Op.String()).
					Msg("File changed, reloading")
				if fw.onChange != nil {
					fw.onChange()
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("path", fw.path).Msg("File watcher error")
		}
	}
}

// NewLoggingWatcher creates a watcher that reloads the logging section of
// the config file and hands it to callback.
func NewLoggingWatcher(path string, callback func(*logger.Config)) (*FileWatcher, error) {
	return NewFileWatcher(path, func() {
		log := logger.WithComponent("logging-watcher")
		cfg, err := Load(path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to reload configuration")
			return
		}
		if callback != nil {
			callback(&cfg.Logging)
		}
	})
}
