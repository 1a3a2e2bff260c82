package services

import (
	"context"
	"crypto/sha1" //nolint:gosec // G505: the platform records SHA-1 checksums.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/core/ports/driving"
	"github.com/custodia-labs/embedscan/internal/logger"
)

// Ensure WorkerService implements the interface.
var _ driving.Worker = (*WorkerService)(nil)

// WorkerConfig holds the worker loop configuration.
type WorkerConfig struct {
	// ScratchRoot is the parent of the per-process scratch directory.
	ScratchRoot string

	// MaxEditCount skips uploaders with more edits than this.
	MaxEditCount int

	// DownloadAttempts bounds download retries.
	DownloadAttempts int

	// HistoryAttempts bounds history fetch retries.
	HistoryAttempts int

	// RetryDelay throttles between download and history attempts.
	RetryDelay time.Duration
}

// WorkerConfigFromSettings extracts the worker configuration.
func WorkerConfigFromSettings(s *domain.Settings) WorkerConfig {
	return WorkerConfig{
		ScratchRoot:      s.Worker.ScratchRoot,
		MaxEditCount:     s.Worker.MaxEditCount,
		DownloadAttempts: s.Worker.DownloadAttempts,
		HistoryAttempts:  s.Remediation.MaxAttempts,
		RetryDelay:       s.Remediation.RetryDelay,
	}
}

// followupWaiter is implemented by remediators that run work after Remediate returns.
type followupWaiter interface {
	Wait()
}

// WorkerService consumes change events one at a time: it resolves the
// uploaded revision, downloads it into a private scratch directory, runs
// detection and hands suspicious files to the remediator.
type WorkerService struct {
	queue      driven.EventQueue
	platform   driven.Platform
	history    *HistoryCache
	detector   driving.Detector
	remediator driving.Remediator
	audit      driven.AuditStore
	cfg        WorkerConfig

	scratchDir string
	now        func() time.Time
}

// NewWorkerService creates a new worker. The audit store is optional.
func NewWorkerService(
	queue driven.EventQueue,
	platform driven.Platform,
	history *HistoryCache,
	detector driving.Detector,
	remediator driving.Remediator,
	audit driven.AuditStore,
	cfg WorkerConfig,
) *WorkerService {
	if cfg.ScratchRoot == "" {
		cfg.ScratchRoot = os.TempDir()
	}
	if cfg.DownloadAttempts <= 0 {
		cfg.DownloadAttempts = 8
	}
	if cfg.HistoryAttempts <= 0 {
		cfg.HistoryAttempts = 8
	}
	return &WorkerService{
		queue:      queue,
		platform:   platform,
		history:    history,
		detector:   detector,
		remediator: remediator,
		audit:      audit,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run processes events until ctx is done or the queue closes. The scratch
// directory lives exactly as long as Run, and Run returns only after pending
// follow-up work has finished.
func (w *WorkerService) Run(ctx context.Context) error {
	dir, err := os.MkdirTemp(w.cfg.ScratchRoot, "embedscan-")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	w.scratchDir = dir
	defer func() {
		w.scratchDir = ""
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("removing scratch directory %s: %v", dir, err)
		}
	}()
	if fw, ok := w.remediator.(followupWaiter); ok {
		defer fw.Wait()
	}

	logger.Info("Worker started, scratch directory %s", dir)
	for {
		event, err := w.queue.Pop(ctx)
		if ctx.Err() != nil || errors.Is(err, domain.ErrQueueClosed) {
			logger.Info("Worker stopping")
			return nil
		}
		if err != nil {
			logger.Warn("reading queue: %v", err)
			if err := sleep(ctx, w.cfg.RetryDelay); err != nil {
				return nil
			}
			continue
		}

		w.handle(ctx, event)
	}
}

// handle processes one event and never lets a failure escape.
func (w *WorkerService) handle(ctx context.Context, event domain.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Exception(fmt.Errorf("processing %s: %v", event.Title, r))
		}
	}()

	record, err := w.Process(ctx, event)
	if err != nil {
		logger.Error("%s: %v", event.Title, err)
	}
	if record != nil && record.Outcome.Modified() {
		logger.Info("%s: %s", event.Title, record.Outcome.Description())
	}
}

// Process handles one event end to end. Events that are skipped before
// download (file gone, prolific uploader) return a nil record.
func (w *WorkerService) Process(ctx context.Context, event domain.ChangeEvent) (*domain.AuditRecord, error) {
	exists, err := w.platform.PageExists(ctx, event.Title)
	if err != nil {
		return nil, fmt.Errorf("page exists: %w", err)
	}
	if !exists {
		logger.Debug("%s no longer exists, skipping", event.Title)
		return nil, nil
	}

	hist, err := w.fetchHistory(ctx, event.Title)
	if err != nil {
		return nil, err
	}
	rev := resolveRevision(event, hist)

	edits, err := w.platform.EditCount(ctx, rev.User)
	if err != nil {
		return nil, fmt.Errorf("edit count of %s: %w", rev.User, err)
	}
	if w.cfg.MaxEditCount > 0 && edits > w.cfg.MaxEditCount {
		logger.Debug("%s: uploader %s has %d edits, skipping", event.Title, rev.User, edits)
		return nil, nil
	}

	logger.Info("Working on: %s at %s", event.Title, rev.Timestamp.UTC().Format(time.RFC3339))

	record := &domain.AuditRecord{
		ID:                uuid.NewString(),
		Title:             event.Title,
		RevisionTimestamp: rev.Timestamp,
		Uploader:          rev.User,
		Outcome:           domain.OutcomeNoAction,
	}
	outcome, err := w.inspect(ctx, event.Title, rev, record)
	record.Outcome = outcome
	if err != nil {
		record.Error = err.Error()
	}
	record.ProcessedAt = w.now().UTC()
	w.save(ctx, record)

	return record, err
}

// inspect downloads, detects and remediates. The scratch file is removed on
// every path.
func (w *WorkerService) inspect(
	ctx context.Context,
	title string,
	rev domain.RevisionRef,
	record *domain.AuditRecord,
) (domain.Outcome, error) {
	path := filepath.Join(w.scratch(), scratchName())
	defer os.Remove(path)

	digest, err := w.download(ctx, rev, path)
	if err != nil {
		return domain.OutcomeAbandoned, err
	}
	record.Digest = digest

	detection, err := w.detector.DetectFile(driven.WithScratchDir(ctx, w.scratch()), path)
	if err != nil {
		// Detection failures are diagnostics, not errors of the event.
		logger.Warn("%s: %v", title, err)
		record.Error = err.Error()
		return domain.OutcomeNoAction, nil
	}
	if !detection.Suspicious() {
		return domain.OutcomeNoAction, nil
	}
	record.Findings = detection.Findings

	msg := ReportMessage(detection.Findings)
	logger.Warn(">>> [[%s]] <<< %s", title, msg)

	req := driving.RemediationRequest{
		Title:    title,
		Revision: rev,
		Findings: detection.Findings,
		Message:  msg,
		Path:     path,
	}
	res, err := w.remediator.Remediate(ctx, req)
	record.Action = res.Action
	return res.Outcome, err
}

// Enqueue validates and pushes an event.
func (w *WorkerService) Enqueue(ctx context.Context, event domain.ChangeEvent) error {
	if strings.TrimSpace(event.Title) == "" {
		return fmt.Errorf("%w: event without title", domain.ErrInvalidInput)
	}
	if event.LogParams.ImgTimestamp != "" {
		if _, ok := event.ImageTime(); !ok {
			return fmt.Errorf("%w: img_timestamp %q is not YYYYMMDDhhmmss",
				domain.ErrInvalidInput, event.LogParams.ImgTimestamp)
		}
	}
	return w.queue.Push(ctx, event)
}

// fetchHistory loads the file history, retrying structural errors.
func (w *WorkerService) fetchHistory(ctx context.Context, title string) (domain.FileHistory, error) {
	var hist domain.FileHistory
	err := Retry(ctx, RetryPolicy{MaxAttempts: w.cfg.HistoryAttempts, Delay: w.cfg.RetryDelay},
		"history of "+title, func(ctx context.Context, _ int) Result {
			h, err := w.history.Refresh(ctx, title)
			if err != nil {
				return Retryable(err)
			}
			if len(h) == 0 {
				return Retryable(domain.ErrPageMissing)
			}
			hist = h
			return Success()
		})
	return hist, err
}

// resolveRevision picks the revision an event refers to: by the upload log
// timestamp, then by the event timestamp, then the latest revision.
func resolveRevision(event domain.ChangeEvent, hist domain.FileHistory) domain.RevisionRef {
	if ts, ok := event.ImageTime(); ok {
		if rev, ok := hist.At(ts); ok {
			return rev
		}
	}
	if ts, ok := event.EventTime(); ok {
		if rev, ok := hist.At(ts); ok {
			return rev
		}
	}
	logger.Warn("Cannot fetch specified revision of %s, falling back to latest revision", event.Title)
	rev, _ := hist.Latest()
	return rev
}

// download fetches rev into path. An attempt counts only when the bytes
// match the recorded SHA-1. Returns the xxhash digest of the verified bytes.
func (w *WorkerService) download(ctx context.Context, rev domain.RevisionRef, path string) (string, error) {
	for i := 0; i < w.cfg.DownloadAttempts; i++ {
		if i > 0 {
			if err := sleep(ctx, w.cfg.RetryDelay); err != nil {
				return "", err
			}
		}

		digest, err := w.downloadOnce(ctx, rev, path)
		if err == nil {
			return digest, nil
		}
		logger.Warn("Possibly corrupted download on attempt %d: %v", i, err)
	}
	return "", fmt.Errorf("download of %s: %w", rev.URL, domain.ErrDownloadCorrupted)
}

func (w *WorkerService) downloadOnce(ctx context.Context, rev domain.RevisionRef, path string) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum := sha1.New() //nolint:gosec // G401: checksum comparison only.
	digest := xxhash.New()
	if err := w.platform.Download(ctx, rev, io.MultiWriter(f, sum, digest)); err != nil {
		return "", err
	}
	if err := f.Sync(); err != nil {
		return "", err
	}

	if rev.SHA1 != "" {
		if got := hex.EncodeToString(sum.Sum(nil)); !strings.EqualFold(got, rev.SHA1) {
			return "", fmt.Errorf("%w: sha1 %s, expected %s", domain.ErrDownloadCorrupted, got, rev.SHA1)
		}
	}
	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

func (w *WorkerService) save(ctx context.Context, record *domain.AuditRecord) {
	if w.audit == nil {
		return
	}
	if err := w.audit.Save(ctx, *record); err != nil {
		logger.Warn("saving audit record for %s: %v", record.Title, err)
	}
}

// scratch returns the directory for scratch files.
func (w *WorkerService) scratch() string {
	if w.scratchDir != "" {
		return w.scratchDir
	}
	return w.cfg.ScratchRoot
}

// scratchName returns a time-based unique file name.
func scratchName() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
