package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op names the kind of change seen on a file.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// Change is one settled change to a watched file.
type Change struct {
	Path string
	Op   Op
}

// Watcher watches named files in a single directory. Watching the directory
// rather than the files survives editors that save by renaming.
type Watcher struct {
	fs     *fsnotify.Watcher
	files  map[string]bool
	quiet  time.Duration
	logger *slog.Logger
}

// New watches the given base names inside dir. Changes are reported after
// no further change has arrived for quiet, which defaults to 300ms.
func New(dir string, files []string, quiet time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if quiet <= 0 {
		quiet = 300 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	names := make(map[string]bool, len(files))
	for _, f := range files {
		names[filepath.Base(f)] = true
	}
	return &Watcher{fs: fw, files: names, quiet: quiet, logger: logger}, nil
}

// Run delivers settled batches of changes to onChange until ctx is
// cancelled. An error from onChange is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, batch []Change) error) error {
	defer w.fs.Close()

	pending := newCoalescer(w.quiet)
	defer pending.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.files[filepath.Base(event.Name)] {
				continue
			}
			op := toOp(event.Op)
			if op == "" {
				continue
			}
			w.logger.Debug("workspace file changed", "path", event.Name, "op", op)
			pending.add(Change{Path: event.Name, Op: op})

		case <-pending.ready():
			batch := pending.flush()
			if err := onChange(ctx, batch); err != nil {
				w.logger.Warn("change handler failed", "changes", len(batch), "error", err)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func toOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return ""
	}
}
