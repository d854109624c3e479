package endpoint

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports external removal of the socket file.  Once the file is
// unlinked new clients can no longer connect, although clients already
// attached keep working; onGone is called so the session can warn.
//
// fsnotify cannot watch a socket inode directly, so the parent
// directory is watched and events are filtered by name.  Removal by
// Remove itself is not reported.  Watch returns when ctx is done.
func (e *Endpoint) Watch(ctx context.Context, onGone func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(e.Path)
	if err := w.Add(dir); err != nil {
		return err
	}
	e.logger.Debug("watching %s for removal of %s", dir, filepath.Base(e.Path))

	target := filepath.Clean(e.Path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.removing:
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			select {
			case <-e.removing:
				return nil
			default:
			}
			if onGone != nil {
				onGone(e.Path)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Debug("socket watcher: %v", err)
		}
	}
}
