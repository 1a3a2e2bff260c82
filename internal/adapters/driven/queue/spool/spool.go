// Package spool implements driven.EventQueue on a directory of JSON files.
//
// Each event is one "*.json" file. Files are consumed in name order; Push names
// them by enqueue time so that order is FIFO. A consumer claims a file by
// renaming it before reading, so an event is delivered at most once even with
// several workers on the same directory.
package spool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/logger"
)

const (
	eventExt   = ".json"
	claimedExt = ".claimed"
	partialExt = ".partial"

	// rescanInterval catches files whose events the watcher dropped.
	rescanInterval = 2 * time.Second
)

// Ensure Queue implements the interface.
var _ driven.EventQueue = (*Queue)(nil)

// Queue is a directory-backed event queue.
type Queue struct {
	dir     string
	watcher *fsnotify.Watcher
	wake    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// New creates dir if needed and starts watching it.
func New(dir string) (*Queue, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: spool directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	q := &Queue{
		dir:     dir,
		watcher: w,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go q.forward()
	return q, nil
}

// forward turns watcher events into wake-ups.
func (q *Queue) forward() {
	for {
		select {
		case event, ok := <-q.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Write) {
				if strings.HasSuffix(event.Name, eventExt) {
					q.signal()
				}
			}
		case err, ok := <-q.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("spool watcher: %v", err)
		}
	}
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop claims the oldest event file. Undecodable files are dropped with a warning.
func (q *Queue) Pop(ctx context.Context) (domain.ChangeEvent, error) {
	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return domain.ChangeEvent{}, domain.ErrQueueClosed
		default:
		}

		ev, ok, err := q.claimNext()
		if err != nil {
			return domain.ChangeEvent{}, err
		}
		if ok {
			return ev, nil
		}

		select {
		case <-ctx.Done():
			return domain.ChangeEvent{}, ctx.Err()
		case <-q.done:
			return domain.ChangeEvent{}, domain.ErrQueueClosed
		case <-q.wake:
		case <-ticker.C:
		}
	}
}

// claimNext returns the next decodable event, if any.
func (q *Queue) claimNext() (domain.ChangeEvent, bool, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return domain.ChangeEvent{}, false, fmt.Errorf("reading spool: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), eventExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		src := filepath.Join(q.dir, name)
		claimed := src + claimedExt
		if err := os.Rename(src, claimed); err != nil {
			// Another consumer won the race.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return domain.ChangeEvent{}, false, fmt.Errorf("claiming %s: %w", name, err)
		}

		data, readErr := os.ReadFile(claimed)
		if err := os.Remove(claimed); err != nil {
			logger.Warn("removing claimed spool file %s: %v", name, err)
		}
		if readErr != nil {
			logger.Warn("reading spool file %s: %v", name, readErr)
			continue
		}

		ev, err := domain.ParseChangeEvent(data)
		if err != nil {
			logger.Warn("dropping spool file %s: %v", name, err)
			continue
		}
		return ev, true, nil
	}
	return domain.ChangeEvent{}, false, nil
}

// Push writes event as a new file. The write goes through a temporary name
// so consumers never see a partial file.
func (q *Queue) Push(_ context.Context, event domain.ChangeEvent) error {
	select {
	case <-q.done:
		return domain.ErrQueueClosed
	default:
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	name := fmt.Sprintf("%020d-%s%s", time.Now().UnixNano(), uuid.NewString(), eventExt)
	tmp := filepath.Join(q.dir, name+partialExt)
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing spool file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(q.dir, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing spool file: %w", err)
	}
	return nil
}

// Dir returns the spool directory.
func (q *Queue) Dir() string {
	return q.dir
}

// Close stops the watcher and wakes blocked consumers.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
		q.closeErr = q.watcher.Close()
	})
	return q.closeErr
}
