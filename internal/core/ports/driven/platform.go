package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// ProtectionType is the action a protection applies to.
type ProtectionType string

// Protection types used against re-uploads.
const (
	ProtectUpload ProtectionType = "upload"
	ProtectCreate ProtectionType = "create"
)

// Protection describes one protection request.
type Protection struct {
	Type   ProtectionType
	Level  string
	Expiry string
	Reason string
}

// Platform is the wiki hosting the files.
//
// Write calls return an error wrapping domain.ErrPlatformConflict for
// transient conflict and lock errors; any other error is permanent.
type Platform interface {
	// PageExists reports whether title exists.
	PageExists(ctx context.Context, title string) (bool, error)

	// FileHistory returns every upload of title, newest first.
	// Returns domain.ErrPageMissing when the file has no history.
	FileHistory(ctx context.Context, title string) (domain.FileHistory, error)

	// EditCount returns the number of edits made by user.
	EditCount(ctx context.Context, user string) (int, error)

	// GlobalUsage returns pages on any wiki that use title.
	GlobalUsage(ctx context.Context, title string) ([]string, error)

	// Download writes the content of rev to w.
	Download(ctx context.Context, rev domain.RevisionRef, w io.Writer) error

	// Upload overwrites title with content, ignoring warnings.
	Upload(ctx context.Context, title string, content io.Reader, comment string) error

	// Delete deletes title.
	Delete(ctx context.Context, title, reason string) error

	// Protect applies one protection to title.
	Protect(ctx context.Context, title string, p Protection) error

	// RevisionDelete hides the content of the old file revision archiveID.
	RevisionDelete(ctx context.Context, title, archiveID, reason string) error

	// Prepend adds text to the top of the description page of title.
	Prepend(ctx context.Context, title, text, summary string) error

	// Username returns the account the platform acts as.
	Username() string
}
