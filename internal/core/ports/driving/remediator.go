package driving

import (
	"context"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// RemediationRequest is everything needed to act on one suspicious upload.
type RemediationRequest struct {
	// Title is the file page.
	Title string

	// Revision is the upload the findings were detected in.
	Revision domain.RevisionRef

	// Findings is the non-empty, ordered findings list.
	Findings []domain.Finding

	// Message is the human-readable report used in comments and notices.
	Message string

	// Path is the local copy of the revision's bytes.
	Path string
}

// RemediationResult records what Remediate did.
type RemediationResult struct {
	// Action is the action the policy selected. Empty if no decision was reached.
	Action domain.Action

	// Outcome is the terminal state of the request.
	Outcome domain.Outcome
}

// Remediator chooses and executes one remediation per request.
type Remediator interface {
	// Decide returns the action the policy selects, without executing it.
	Decide(ctx context.Context, req RemediationRequest) (domain.Action, error)

	// Remediate decides and executes. Exactly one outcome is returned; on
	// error the outcome records how far execution got.
	Remediate(ctx context.Context, req RemediationRequest) (RemediationResult, error)
}
