package filewatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// ErrModified is the cause of contexts canceled by file modification.
var ErrModified = errors.New("watched file is modified")

// UntilModifyContext derives a context which is canceled once any of paths is
// written, created, removed or renamed. Permission changes do not count.
// Directories are watched for their entries.
//
// The cause of the canceled context wraps ErrModified.
// On error, neither the context nor the cancel func are returned.
func UntilModifyContext(ctx context.Context, paths ...string) (context.Context, func(), error) {
	w, err := watch(paths)
	if err != nil {
		return nil, nil, err
	}

	wctx, cancel := context.WithCancelCause(ctx)
	go func() {
		defer w.Close()
		cancel(waitModified(wctx, w))
	}()
	return wctx, func() { cancel(nil) }, nil
}

func watch(paths []string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}

// waitModified blocks until w reports a modification or an error, or ctx is done.
//
// It returns nil when ctx is done or w is closed.
func waitModified(ctx context.Context, w *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching files: %w", err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			return fmt.Errorf("%w: %s (%s)", ErrModified, ev.Name, ev.Op)
		}
	}
}
