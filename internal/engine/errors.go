package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/privacytools/ucx/internal/exceptions"
)

// ValidationError reports bug metadata that cannot be acted on. It skips
// the bug; it never fails the run.
type ValidationError struct {
	Status exceptions.ParseStatus
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s metadata: %s", e.Status, e.Reason)
}

// ConflictError reports desired identity keys held by other bugs'
// records. Without force the bug is blocked, not failed.
type ConflictError struct {
	Conflicts []exceptions.Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s held by record %s (bugs %s)",
			c.Key, c.RecordID, strings.Join(c.BugIDs, ",")))
	}
	return "conflicting ownership: " + strings.Join(parts, "; ")
}

// outcomeForError maps a per-bug error to its outcome. Anything that is
// not a validation or conflict condition is a real failure (transient
// errors land here after the retry wrapper gives up).
func outcomeForError(err error) Outcome {
	var validation *ValidationError
	if errors.As(err, &validation) {
		switch validation.Status {
		case exceptions.ParseNotActionable:
			return OutcomeSkippedNotActionable
		case exceptions.ParseIncomplete:
			return OutcomeSkippedIncomplete
		case exceptions.ParseMalformed:
			return OutcomeSkippedMalformed
		}
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return OutcomeSkippedConflict
	}
	return OutcomeFailed
}
