package lifecycle

import (
	"errors"
	"fmt"

	"fetalscan/internal/report"
)

var (
	// ErrNotFound reports a lookup key that matched no record.
	ErrNotFound = errors.New("report not found")
	// ErrNotConfirmed reports a destructive operation invoked without confirmation.
	ErrNotConfirmed = errors.New("operation not confirmed")
	// ErrUnknownSource reports a collection name that cannot be edited or rendered.
	ErrUnknownSource = errors.New("unknown report collection")
)

func notFound(source report.State, key string) error {
	return fmt.Errorf("%w: no %s record matches %q", ErrNotFound, collectionName(source), key)
}

func collectionName(source report.State) string {
	switch source {
	case report.StateArchivedDraft:
		return "archived"
	case report.StateFinal:
		return "final"
	default:
		return "draft"
	}
}

// ParseSource maps a user-facing collection name onto a lifecycle state.
func ParseSource(name string) (report.State, error) {
	switch name {
	case "archive", "archived", "ArchivedDraft":
		return report.StateArchivedDraft, nil
	case "final", "Final":
		return report.StateFinal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}
