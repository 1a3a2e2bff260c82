package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/core/ports/driving"
	"github.com/custodia-labs/embedscan/internal/logger"
)

// Ensure RemediationService implements the interface.
var _ driving.Remediator = (*RemediationService)(nil)

// RemediationConfig holds the remediation policy.
type RemediationConfig struct {
	// ArchiveTypes is the archive-family MIME set.
	ArchiveTypes []string

	// FollowupDeletes is how many delayed deletions follow a Protect+Delete.
	FollowupDeletes int

	// FollowupInterval spaces the delayed deletions: the i-th fires after
	// (i+1) intervals.
	FollowupInterval time.Duration

	// SelfRequestWindow is how young a file must be for the uploader exemption.
	SelfRequestWindow time.Duration
}

// RemediationConfigFromSettings extracts the policy configuration.
func RemediationConfigFromSettings(s domain.RemediationSettings) RemediationConfig {
	return RemediationConfig{
		ArchiveTypes:      s.ArchiveTypes,
		FollowupDeletes:   s.FollowupDeletes,
		FollowupInterval:  s.FollowupInterval,
		SelfRequestWindow: s.SelfRequestWindow,
	}
}

// RemediationService is the remediation decision engine. It evaluates a
// priority-ordered policy over the findings and executes the selected action.
type RemediationService struct {
	platform  driven.Platform
	history   *HistoryCache
	executors *Executors
	cfg       RemediationConfig
	archives  map[string]bool
	now       func() time.Time

	followups sync.WaitGroup
}

// NewRemediationService creates a new remediation engine.
func NewRemediationService(
	platform driven.Platform,
	history *HistoryCache,
	executors *Executors,
	cfg RemediationConfig,
) *RemediationService {
	if cfg.ArchiveTypes == nil {
		cfg.ArchiveTypes = domain.DefaultArchiveTypes()
	}
	archives := make(map[string]bool, len(cfg.ArchiveTypes))
	for _, t := range cfg.ArchiveTypes {
		archives[t] = true
	}
	return &RemediationService{
		platform:  platform,
		history:   history,
		executors: executors,
		cfg:       cfg,
		archives:  archives,
		now:       time.Now,
	}
}

// Decide returns the action the policy selects. The first matching rule wins:
//
//  1. every finding is exact and of the file's recorded type: overwrite
//  2. an exact archive-family finding: protect and delete when the file has a
//     single revision or the uploader exemption applies, otherwise overwrite
//     and hide the revision
//  3. anything else: flag
func (s *RemediationService) Decide(ctx context.Context, req driving.RemediationRequest) (domain.Action, error) {
	if len(req.Findings) == 0 {
		return "", fmt.Errorf("%w: no findings for %s", domain.ErrInvalidInput, req.Title)
	}

	s.history.Invalidate(req.Title)
	hist, err := s.history.Get(ctx, req.Title)
	if err != nil {
		return "", fmt.Errorf("history of %s: %w", req.Title, err)
	}

	recorded := req.Revision.MIME
	if latest, ok := hist.Latest(); ok {
		recorded = latest.MIME
	}

	sameType := true
	for _, f := range req.Findings {
		if !f.Exact || !f.HasMIME(recorded) {
			sameType = false
			break
		}
	}
	if sameType {
		return domain.ActionOverwrite, nil
	}

	archive := false
	for _, f := range req.Findings {
		if f.Exact && f.MIME != nil && s.archives[f.MIME.String()] {
			archive = true
			break
		}
	}
	if !archive {
		return domain.ActionFlag, nil
	}

	if len(hist) == 1 || s.selfRequestEligible(ctx, req.Title, req.Revision, hist) {
		return domain.ActionProtectDelete, nil
	}
	return domain.ActionOverwriteRevisionDelete, nil
}

// Remediate decides and executes one action.
func (s *RemediationService) Remediate(
	ctx context.Context,
	req driving.RemediationRequest,
) (driving.RemediationResult, error) {
	action, err := s.Decide(ctx, req)
	if err != nil {
		return driving.RemediationResult{Outcome: domain.OutcomeAbandoned}, err
	}
	logger.Info("%s: executing %s", req.Title, action)

	outcome, err := s.execute(ctx, action, req)
	if errors.Is(err, domain.ErrPageMissing) {
		logger.Warn("%s vanished during %s", req.Title, action)
		err = nil
	}
	return driving.RemediationResult{Action: action, Outcome: outcome}, err
}

func (s *RemediationService) execute(
	ctx context.Context,
	action domain.Action,
	req driving.RemediationRequest,
) (domain.Outcome, error) {
	switch action {
	case domain.ActionOverwrite:
		if err := s.overwrite(ctx, req); err != nil {
			return domain.OutcomeNoAction, err
		}
		return domain.OutcomeOverwritten, nil

	case domain.ActionProtectDelete:
		return s.protectDelete(ctx, req)

	case domain.ActionOverwriteRevisionDelete:
		if err := s.overwrite(ctx, req); err != nil {
			return domain.OutcomeNoAction, err
		}
		err := s.executors.RevisionDelete(ctx, req.Title, req.Revision, Comment(req.Message))
		if err == nil {
			return domain.OutcomeOverwrittenRevisionDeleted, nil
		}
		logger.Warn("revision delete of %s failed, flagging instead: %v", req.Title, err)
		if err := s.flag(ctx, req); err != nil {
			return domain.OutcomeOverwritten, err
		}
		return domain.OutcomeOverwrittenFlagged, nil

	default:
		if err := s.flag(ctx, req); err != nil {
			return domain.OutcomeNoAction, err
		}
		return domain.OutcomeFlagged, nil
	}
}

func (s *RemediationService) overwrite(ctx context.Context, req driving.RemediationRequest) error {
	return s.executors.Overwrite(ctx, req.Title, req.Path, req.Findings[0].Offset, Comment(req.Message))
}

func (s *RemediationService) flag(ctx context.Context, req driving.RemediationRequest) error {
	return s.executors.Flag(ctx, req.Title, FlagText(req.Message), FlagSummary)
}

// protectDelete protects, deletes, protects again, then schedules delayed
// deletions to catch re-uploads racing the first one.
func (s *RemediationService) protectDelete(ctx context.Context, req driving.RemediationRequest) (domain.Outcome, error) {
	reason := ProtectReason(req.Message)
	comment := Comment(req.Message)

	_ = s.executors.Protect(ctx, req.Title, reason)
	if err := s.executors.Delete(ctx, req.Title, comment); err != nil {
		return domain.OutcomeNoAction, err
	}
	_ = s.executors.Protect(ctx, req.Title, reason)

	s.scheduleFollowups(context.WithoutCancel(ctx), req.Title, comment)
	return domain.OutcomeDeletedProtected, nil
}

func (s *RemediationService) scheduleFollowups(ctx context.Context, title, comment string) {
	for i := 0; i < s.cfg.FollowupDeletes; i++ {
		s.followups.Add(1)
		time.AfterFunc(time.Duration(i+1)*s.cfg.FollowupInterval, func() {
			defer s.followups.Done()
			if err := s.executors.Delete(ctx, title, comment); err != nil {
				logger.Warn("follow-up delete of %s: %v", title, err)
			}
		})
	}
}

// Wait blocks until every scheduled follow-up deletion has run.
func (s *RemediationService) Wait() {
	s.followups.Wait()
}

// selfRequestEligible reports whether the upload may be deleted as if its
// uploader had requested it: the file is recent, only the uploader or this
// bot ever uploaded it, and nothing uses it. Any lookup error makes the file
// ineligible.
func (s *RemediationService) selfRequestEligible(
	ctx context.Context,
	title string,
	rev domain.RevisionRef,
	hist domain.FileHistory,
) bool {
	oldest, ok := hist.Oldest()
	if !ok || s.now().Sub(oldest.Timestamp) >= s.cfg.SelfRequestWindow {
		return false
	}
	if !hist.UploadedOnlyBy(rev.User, s.platform.Username()) {
		return false
	}

	usage, err := s.platform.GlobalUsage(ctx, title)
	if err != nil {
		logger.Warn("global usage of %s: %v", title, err)
		return false
	}
	return len(usage) == 0
}
