package itp

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the template directory whenever a file in it changes, calling
// apply with the freshly parsed templates. Events are debounced because
// editors fire several writes per save. Returns when ctx is cancelled.
func Watch(ctx context.Context, dir string, apply func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	log.Printf("[itp.Watch] watching template dir %s", dir)

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[itp.Watch] watch error: %v", err)
		case <-reload:
			apply()
		}
	}
}
