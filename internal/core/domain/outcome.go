package domain

// Action is the remediation chosen for a findings list.
type Action string

// Available remediation actions, in policy order.
const (
	// ActionOverwrite truncates the file to the first boundary and re-uploads it.
	ActionOverwrite Action = "overwrite"

	// ActionProtectDelete protects against re-creation and deletes the file.
	ActionProtectDelete Action = "protect_delete"

	// ActionOverwriteRevisionDelete overwrites, then hides the offending revision.
	ActionOverwriteRevisionDelete Action = "overwrite_revision_delete"

	// ActionFlag prepends a human-reviewable notice to the description page.
	ActionFlag Action = "flag"
)

// String returns the string representation.
func (a Action) String() string {
	return string(a)
}

// Outcome is the terminal state of one change event.
type Outcome string

// Terminal outcomes.
const (
	// OutcomeNoAction means nothing was done to the file.
	OutcomeNoAction Outcome = "no_action"

	// OutcomeOverwritten means the file was truncated and re-uploaded.
	OutcomeOverwritten Outcome = "overwritten"

	// OutcomeDeletedProtected means the file was protected and deleted.
	OutcomeDeletedProtected Outcome = "deleted_protected"

	// OutcomeOverwrittenRevisionDeleted means the file was overwritten and the
	// offending revision hidden.
	OutcomeOverwrittenRevisionDeleted Outcome = "overwritten_revision_deleted"

	// OutcomeFlagged means the description page was flagged for review.
	OutcomeFlagged Outcome = "flagged"

	// OutcomeOverwrittenFlagged means the overwrite stayed in place but revision
	// deletion failed, so the page was flagged instead.
	OutcomeOverwrittenFlagged Outcome = "overwritten_flagged"

	// OutcomeAbandoned means processing stopped after an error.
	OutcomeAbandoned Outcome = "abandoned"
)

// String returns the string representation.
func (o Outcome) String() string {
	return string(o)
}

// Description returns a human-readable description of the outcome.
func (o Outcome) Description() string {
	switch o {
	case OutcomeNoAction:
		return "No action"
	case OutcomeOverwritten:
		return "Overwritten"
	case OutcomeDeletedProtected:
		return "Deleted + Protected"
	case OutcomeOverwrittenRevisionDeleted:
		return "Overwritten + RevisionDeleted"
	case OutcomeFlagged:
		return "Flagged"
	case OutcomeOverwrittenFlagged:
		return "Overwritten + RevisionDelete failed, Flagged"
	case OutcomeAbandoned:
		return "Abandoned"
	default:
		return "Unknown"
	}
}

// Modified returns true if the outcome changed anything on the platform.
func (o Outcome) Modified() bool {
	return o != OutcomeNoAction && o != OutcomeAbandoned
}
