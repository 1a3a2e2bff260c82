package domain

import (
	"fmt"
	"strings"
	"time"
)

// RevisionRef identifies one historical upload of a file.
type RevisionRef struct {
	// Timestamp is the upload time and the key of the revision in history.
	Timestamp time.Time

	// User is the uploader's account name.
	User string

	// ArchiveName is "<id>!<name>" for superseded revisions, empty for the current one.
	ArchiveName string

	// MIME is the type recorded by the platform.
	MIME string

	// SHA1 is the hex digest recorded by the platform.
	SHA1 string

	// URL is the download location of this revision's bytes.
	URL string

	// Size is the recorded byte size.
	Size int64
}

// ArchiveID returns the identifier revision-deletion needs: the part of the
// archive name before '!'.
func (r RevisionRef) ArchiveID() (string, error) {
	id, _, ok := strings.Cut(r.ArchiveName, "!")
	if !ok || id == "" {
		return "", fmt.Errorf("%w: revision %s has no archive name", ErrRevisionMissing,
			r.Timestamp.UTC().Format(time.RFC3339))
	}
	return id, nil
}

// FileHistory is the revision list of a file, newest first.
type FileHistory []RevisionRef

// At returns the revision uploaded at ts.
func (h FileHistory) At(ts time.Time) (RevisionRef, bool) {
	for _, r := range h {
		if r.Timestamp.Equal(ts) {
			return r, true
		}
	}
	return RevisionRef{}, false
}

// Latest returns the current revision.
func (h FileHistory) Latest() (RevisionRef, bool) {
	if len(h) == 0 {
		return RevisionRef{}, false
	}
	return h[0], true
}

// Oldest returns the first upload.
func (h FileHistory) Oldest() (RevisionRef, bool) {
	if len(h) == 0 {
		return RevisionRef{}, false
	}
	return h[len(h)-1], true
}

// UploadedOnlyBy reports whether every revision was uploaded by one of users.
func (h FileHistory) UploadedOnlyBy(users ...string) bool {
	for _, r := range h {
		found := false
		for _, u := range users {
			if r.User == u {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
