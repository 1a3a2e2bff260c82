package wiki

import (
	"context"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/logger"
)

// DryRun wraps a Platform so that reads pass through and writes are only logged.
type DryRun struct {
	driven.Platform
}

// Ensure DryRun implements the interface.
var _ driven.Platform = (*DryRun)(nil)

// NewDryRun wraps p.
func NewDryRun(p driven.Platform) *DryRun {
	return &DryRun{Platform: p}
}

// Upload drains content and logs the overwrite.
func (d *DryRun) Upload(_ context.Context, title string, content io.Reader, comment string) error {
	n, err := io.Copy(io.Discard, content)
	if err != nil {
		return err
	}
	logger.Warn("dry run: would upload %d bytes to %s: %s", n, title, comment)
	return nil
}

// Delete logs the deletion.
func (d *DryRun) Delete(_ context.Context, title, reason string) error {
	logger.Warn("dry run: would delete %s: %s", title, reason)
	return nil
}

// Protect logs the protection.
func (d *DryRun) Protect(_ context.Context, title string, p driven.Protection) error {
	logger.Warn("dry run: would protect %s (%s=%s, %s)", title, p.Type, p.Level, p.Expiry)
	return nil
}

// RevisionDelete logs the revision deletion.
func (d *DryRun) RevisionDelete(_ context.Context, title, archiveID, _ string) error {
	logger.Warn("dry run: would hide revision %s of %s", archiveID, title)
	return nil
}

// Prepend logs the edit.
func (d *DryRun) Prepend(_ context.Context, title, text, _ string) error {
	logger.Warn("dry run: would prepend to %s: %q", title, text)
	return nil
}
