package tagging

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrTypeConflict is returned when a live tag record's type differs from
	// an explicitly requested type.
	ErrTypeConflict = errors.New("tag type conflict")

	// ErrInvalidInput is returned for tag identifiers the engine cannot use.
	ErrInvalidInput = errors.New("invalid tag input")
)

// typeConflict satisfies both ErrTypeConflict and ErrInvalidInput.
func typeConflict(typ string, rec Record) error {
	err := errors.Wrapf(ErrTypeConflict, "type was set to %q but tag %q is of type %q",
		typ, rec.GetName(), rec.GetType())
	return errors.Mark(err, ErrInvalidInput)
}
