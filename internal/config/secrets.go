package config

import (
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Secrets holds the active signing secret. Rotation swaps in a fresh value
// atomically; a request that already took its snapshot keeps validating
// against the secret it started with.
type Secrets struct {
	current atomic.Value // []byte
}

func NewSecrets(initial []byte) *Secrets {
	s := &Secrets{}
	s.current.Store(initial)
	return s
}

// Current returns the active secret snapshot.
func (s *Secrets) Current() []byte {
	return s.current.Load().([]byte)
}

// WatchFile reloads the secret whenever the file changes. Events are
// debounced because editors and orchestrators tend to emit bursts of
// write/rename events for a single rotation.
func (s *Secrets) WatchFile(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// watch the directory: replacing the file via rename would otherwise
	// detach a watch on the file itself
	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		return err
	}

	reload := make(chan struct{})
	go s.scheduleReload(reload, path)
	go handleWatcher(watcher, path, reload)
	return nil
}

func handleWatcher(watcher *fsnotify.Watcher, path string, reload chan<- struct{}) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != path {
				continue
			}
			if event.Has(fsnotify.Write | fsnotify.Remove | fsnotify.Create | fsnotify.Rename) {
				reload <- struct{}{}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("secret watcher error: %v\n", err)
		}
	}
}

func (s *Secrets) scheduleReload(reload <-chan struct{}, path string) {
	var timer *time.Timer = nil
	var c <-chan time.Time = nil
	duration := time.Millisecond * 500
	for {
		select {
		case <-reload:
			if timer != nil {
				timer.Reset(duration)
			} else {
				timer = time.NewTimer(duration)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			s.reloadFrom(path)
		}
	}
}

func (s *Secrets) reloadFrom(path string) {
	secret, err := ReadSecretFile(path)
	if err != nil {
		// keep the old secret; a half-finished rotation must not take the
		// gate down
		log.Printf("failed to reload secret: %v\n", err)
		return
	}
	s.current.Store(secret)
	log.Println("signing secret reloaded")
}
