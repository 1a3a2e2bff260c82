package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/logger"
)

// ExecutorConfig holds the protection parameters of the executors.
type ExecutorConfig struct {
	ProtectLevel  string
	ProtectExpiry string
}

// Executors wraps every platform write in the bounded retry discipline.
// Only transient conflicts are retried; any other error is returned as is.
type Executors struct {
	platform driven.Platform
	history  *HistoryCache
	policy   RetryPolicy
	cfg      ExecutorConfig
}

// NewExecutors creates the action executors.
func NewExecutors(platform driven.Platform, history *HistoryCache, policy RetryPolicy, cfg ExecutorConfig) *Executors {
	if cfg.ProtectLevel == "" {
		cfg.ProtectLevel = "autoconfirmed"
	}
	if cfg.ProtectExpiry == "" {
		cfg.ProtectExpiry = "1 minute"
	}
	return &Executors{
		platform: platform,
		history:  history,
		policy:   policy,
		cfg:      cfg,
	}
}

// Overwrite uploads the first offset bytes of the file at path over title.
// Returns domain.ErrPageMissing without uploading when the file has no history.
func (e *Executors) Overwrite(ctx context.Context, title, path string, offset int64, comment string) error {
	hist, err := e.history.Refresh(ctx, title)
	if err != nil && !errors.Is(err, domain.ErrPageMissing) {
		return fmt.Errorf("overwrite %s: %w", title, err)
	}
	if len(hist) == 0 {
		logger.Warn("%s doesn't exist, skipping upload", title)
		return fmt.Errorf("overwrite %s: %w", title, domain.ErrPageMissing)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("overwrite %s: %w", title, err)
	}
	defer f.Close()

	logger.Info("Overwriting %s with its first %d bytes", title, offset)
	err = Retry(ctx, e.policy, "upload "+title, func(ctx context.Context, _ int) Result {
		return Classify(e.platform.Upload(ctx, title, io.NewSectionReader(f, 0, offset), comment))
	})
	e.history.Invalidate(title)
	return err
}

// Delete deletes title. Existence is re-checked before every attempt and a
// page that is already gone counts as deleted, so Delete is idempotent.
func (e *Executors) Delete(ctx context.Context, title, reason string) error {
	attempts := max(e.policy.MaxAttempts, 1)
	for i := 0; i < attempts; i++ {
		exists, err := e.exists(ctx, title)
		if err != nil {
			return fmt.Errorf("delete %s: %w", title, err)
		}
		if !exists {
			return nil
		}
		if i > 0 {
			logger.Warn("%s still exists before deletion on attempt %d", title, i)
		}

		logger.Info("Executing delete on %s", title)
		err = Retry(ctx, e.policy, "delete "+title, func(ctx context.Context, _ int) Result {
			return Classify(e.platform.Delete(ctx, title, reason))
		})
		if err != nil {
			return err
		}
	}
	return fmt.Errorf("delete %s: %w", title, domain.ErrAttemptsExhausted)
}

// exists reports whether title has a page or any file history left.
func (e *Executors) exists(ctx context.Context, title string) (bool, error) {
	e.history.Invalidate(title)

	exists, err := e.platform.PageExists(ctx, title)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	hist, err := e.history.Get(ctx, title)
	if err != nil {
		return false, nil
	}
	return len(hist) > 0, nil
}

// Protect issues the upload and create protections concurrently and waits
// for both. It fails only if neither succeeded. Protections carry a short
// platform-enforced expiry.
func (e *Executors) Protect(ctx context.Context, title, reason string) error {
	var (
		wg        sync.WaitGroup
		succeeded atomic.Bool
	)

	for _, typ := range []driven.ProtectionType{driven.ProtectUpload, driven.ProtectCreate} {
		wg.Add(1)
		go func(typ driven.ProtectionType) {
			defer wg.Done()

			p := driven.Protection{
				Type:   typ,
				Level:  e.cfg.ProtectLevel,
				Expiry: e.cfg.ProtectExpiry,
				Reason: reason,
			}
			err := Retry(ctx, e.policy, fmt.Sprintf("protect %s (%s)", title, typ), func(ctx context.Context, _ int) Result {
				return Classify(e.platform.Protect(ctx, title, p))
			})
			if err != nil {
				logger.Debug("protect %s (%s): %v", title, typ, err)
				return
			}
			succeeded.Store(true)
		}(typ)
	}
	wg.Wait()

	if !succeeded.Load() {
		logger.Warn("Protection of %s failed", title)
		return fmt.Errorf("protect %s: %w", title, domain.ErrProtectionFailed)
	}
	return nil
}

// RevisionDelete hides the content of rev. The revision must still be in
// the history; its archive identifier is re-resolved on every attempt
// because the history shifts while uploads happen.
func (e *Executors) RevisionDelete(ctx context.Context, title string, rev domain.RevisionRef, reason string) error {
	hist, err := e.history.Get(ctx, title)
	if err != nil {
		return fmt.Errorf("revision delete %s: %w", title, err)
	}
	if _, ok := hist.At(rev.Timestamp); !ok {
		return fmt.Errorf("revision delete %s: %w", title, domain.ErrRevisionMissing)
	}

	var archiveID string
	err = Retry(ctx, e.policy, "resolve revision of "+title, func(ctx context.Context, _ int) Result {
		hist, err := e.history.Refresh(ctx, title)
		if err != nil {
			return Retryable(err)
		}
		current, ok := hist.At(rev.Timestamp)
		if !ok {
			return Retryable(domain.ErrRevisionMissing)
		}
		id, err := current.ArchiveID()
		if err != nil {
			return Retryable(err)
		}
		archiveID = id
		return Success()
	})
	if err != nil {
		return err
	}

	logger.Info("Hiding revision %s of %s", archiveID, title)
	return Retry(ctx, e.policy, "revision delete "+title, func(ctx context.Context, _ int) Result {
		return Classify(e.platform.RevisionDelete(ctx, title, archiveID, reason))
	})
}

// Flag prepends text to the description page of title.
// Returns domain.ErrPageMissing when the page no longer exists.
func (e *Executors) Flag(ctx context.Context, title, text, summary string) error {
	e.history.Invalidate(title)

	exists, err := e.platform.PageExists(ctx, title)
	if err != nil {
		return fmt.Errorf("flag %s: %w", title, err)
	}
	if !exists {
		logger.Warn("%s doesn't exist, skipping save", title)
		return fmt.Errorf("flag %s: %w", title, domain.ErrPageMissing)
	}

	return Retry(ctx, e.policy, "flag "+title, func(ctx context.Context, _ int) Result {
		return Classify(e.platform.Prepend(ctx, title, text, summary))
	})
}
