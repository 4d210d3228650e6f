package script

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the freshly interpreted directives of the script
// at path every time it is written, until ctx is cancelled. The parent
// directory is watched rather than the file so editors that save by rename
// keep triggering updates.
func Watch(ctx context.Context, path string, autopause bool, onChange func([]Directive)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				// Mid-save; the next event will carry the new content.
				continue
			}
			onChange(Interpret(string(data), autopause))

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
