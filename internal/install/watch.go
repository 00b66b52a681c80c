package install

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// settleDelay is how long the watcher waits for a burst of filesystem
// events to end before reporting a change.
const settleDelay = 250 * time.Millisecond

// Watcher reports changes to the content root made outside the pipeline,
// e.g. a game directory deleted by hand. Bursts of events are coalesced
// into one signal; receivers are expected to call Scan.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	changes   chan struct{}
	stopChan  chan struct{}
	once      sync.Once
	done      chan struct{}
}

// NewWatcher starts watching root, creating it if needed.
func NewWatcher(root string) (*Watcher, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", root, err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(root); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directory %s to watcher: %w", root, err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		changes:   make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	go w.loop()
	log.Debug().Str("directory", root).Msg("watching content root")
	return w, nil
}

// Changes delivers one value per settled burst of filesystem events.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Chmod) && !event.Op.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settleDelay)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(settleDelay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("fsnotify watcher error")

		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stopChan)
		err = w.fsWatcher.Close()
		<-w.done
	})
	return err
}
