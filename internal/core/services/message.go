package services

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// Texts left on the platform.
const (
	// CommentPrefix starts every upload, deletion and revision-deletion reason.
	CommentPrefix = "This file contains [[COM:CSD#F9|embedded data]]: "

	// ProtectPrefix starts every protection reason, before CommentPrefix.
	ProtectPrefix = "[[Commons:Protection policy|Protection against re-creation]]: "

	// FlagSummary is the edit summary of a flag.
	FlagSummary = "Bot: Adding {{[[Template:Embedded data|embedded data]]}} to this embedded data suspect."
)

// ReportMessage describes findings for humans, e.g.
// "After 2.0 MiB (2097152 bytes, via raster): Identified type: application/zip (Zip archive data)".
func ReportMessage(findings []domain.Finding) string {
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		pos := fmt.Sprintf("%s (%d bytes, via %s)",
			humanize.IBytes(uint64(f.Offset)), f.Offset, strings.Join(f.Via, ","))
		if !f.Exact {
			pos = "about " + pos
		}
		parts = append(parts, fmt.Sprintf("After %s: %s", pos, describeType(f)))
	}
	return strings.Join(parts, "; ")
}

func describeType(f domain.Finding) string {
	desc := f.Description
	if desc == "" {
		desc = "data"
	}
	if f.MIME == nil || f.MIME.IsGenericBinary() {
		return fmt.Sprintf("Unidentified type (%s, %s)", domain.GenericBinary, desc)
	}
	return fmt.Sprintf("Identified type: %s (%s)", f.MIME, desc)
}

// Comment is the reason attached to uploads, deletions and revision deletions.
func Comment(msg string) string {
	return CommentPrefix + msg
}

// ProtectReason is the reason attached to protections.
func ProtectReason(msg string) string {
	return ProtectPrefix + CommentPrefix + msg
}

// FlagText is the notice prepended to a flagged description page.
func FlagText(msg string) string {
	return fmt.Sprintf("{{embedded data|suspect=1|1=%s}}\n", msg)
}
