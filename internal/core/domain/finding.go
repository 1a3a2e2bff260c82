package domain

import (
	"fmt"
	"strings"
)

// GenericBinary is the MIME type classifiers report for bytes they cannot name.
const GenericBinary = "application/octet-stream"

// MIME is a coarse type tag such as image/jpeg.
type MIME struct {
	// Type is the primary part (e.g. "image").
	Type string `json:"type"`

	// Subtype is the secondary part (e.g. "jpeg").
	Subtype string `json:"subtype"`
}

// ParseMIME parses "type/subtype", dropping any parameters.
func ParseMIME(s string) (MIME, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	typ, sub, ok := strings.Cut(s, "/")
	if !ok || typ == "" || sub == "" {
		return MIME{}, fmt.Errorf("%w: mime %q", ErrInvalidInput, s)
	}
	return MIME{Type: strings.ToLower(typ), Subtype: strings.ToLower(sub)}, nil
}

// String returns the "type/subtype" form.
func (m MIME) String() string {
	if m.IsZero() {
		return ""
	}
	return m.Type + "/" + m.Subtype
}

// IsZero returns true if no type is set.
func (m MIME) IsZero() bool {
	return m.Type == "" && m.Subtype == ""
}

// IsGenericBinary returns true for application/octet-stream.
func (m MIME) IsGenericBinary() bool {
	return m.String() == GenericBinary
}

// Finding is one detected boundary plus metadata about what follows it.
type Finding struct {
	// Offset is the byte position where one logical sub-file ends and either
	// EOF or the next Finding's region begins.
	Offset int64 `json:"offset"`

	// Exact is true when Offset came from parsing up to a structural end marker,
	// false when it was estimated from a re-encoded copy.
	Exact bool `json:"exact"`

	// MIME is the classified type of the bytes after Offset. Nil when unresolved.
	MIME *MIME `json:"mime,omitempty"`

	// Description is the classifier's long description of the bytes after Offset.
	Description string `json:"description,omitempty"`

	// Via names the decoders that produced Offset.
	Via []string `json:"via,omitempty"`
}

// HasMIME reports whether the trailing bytes were classified as want.
func (f Finding) HasMIME(want string) bool {
	return f.MIME != nil && f.MIME.String() == want
}

// ValidateFindings checks the ordering invariants of a findings list against
// the size of the inspected file: offsets strictly increase and stay below size.
func ValidateFindings(findings []Finding, size int64) error {
	var prev int64 = -1
	for i, f := range findings {
		if f.Offset <= 0 || f.Offset >= size {
			return fmt.Errorf("%w: finding %d offset %d outside (0, %d)", ErrInvalidInput, i, f.Offset, size)
		}
		if f.Offset <= prev {
			return fmt.Errorf("%w: finding %d offset %d not after %d", ErrInvalidInput, i, f.Offset, prev)
		}
		prev = f.Offset
	}
	return nil
}
