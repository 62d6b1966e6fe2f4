package preview

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

type watcher struct {
	fs     *fsnotify.Watcher
	logger *log.Logger
}

func newWatcher(dirs []string, logger *log.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{fs: fw, logger: logger}
	for _, dir := range dirs {
		if err := w.addRecursive(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *watcher) Close() error { return w.fs.Close() }

func (w *watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

// run forwards debounced change notifications on the returned channel until
// ctx is done. The channel holds at most one pending request.
func (w *watcher) run(ctx context.Context, debounce time.Duration) <-chan struct{} {
	requests := make(chan struct{}, 1)
	trigger := debouncer(debounce, func() {
		select {
		case requests <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fs.Events:
				if !ok {
					return
				}
				if ignored(ev.Name) {
					continue
				}
				if ev.Has(fsnotify.Create) {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						if err := w.addRecursive(ev.Name); err != nil {
							w.logger.Warn("watch new directory", "dir", ev.Name, "err", err)
						}
					}
				}
				w.logger.Debug("file change", "path", ev.Name, "op", ev.Op.String())
				trigger()
			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", "err", err)
			}
		}
	}()
	return requests
}

// debouncer returns a function that calls fn once calls to it have stopped
// for d.
func debouncer(d time.Duration, fn func()) func() {
	var mu sync.Mutex
	var timer *time.Timer
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, fn)
	}
}

// ignored reports whether a change to path should not trigger a rebuild:
// hidden files (including in-flight atomic writes) and editor backups.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasPrefix(base, "#") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp")
}
