package shader

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/logger"
)

// Watcher flags edits to shader files in a directory. Events are consumed on
// its own goroutine; the render thread polls Changed once per frame.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	names    map[string]bool
	changed  atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup
	log      *zap.Logger
}

// Watch starts watching dir for writes to the named files.
func Watch(dir string, names ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create shader watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		fsnotify: fw,
		names:    make(map[string]bool, len(names)),
		done:     make(chan struct{}),
		log:      logger.Named("shader"),
	}
	for _, n := range names {
		w.names[n] = true
	}

	w.wg.Add(1)
	go w.run()

	w.log.Info("watching shaders", zap.String("dir", dir), zap.Strings("files", names))
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !w.names[filepath.Base(e.Name)] {
				continue
			}
			w.log.Debug("shader changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
			w.changed.Store(true)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			w.log.Warn("shader watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

// Changed reports whether a watched file changed since the last call.
func (w *Watcher) Changed() bool {
	return w.changed.Swap(false)
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsnotify.Close()
	w.wg.Wait()
	return err
}
