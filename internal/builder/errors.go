package builder

import (
	"errors"
	"fmt"
	"strings"
)

// Data integrity errors.
// Every failure of a report is one of these, wrapped in a ReferenceError or
// CycleError that carries the offending identifiers. Use errors.Is to
// classify and errors.As to inspect the details.
var (
	// ErrInvalidReference is returned when an attribute link or a group id
	// points to an entity that does not exist in the Datastandard.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrCyclicAttribute is returned when a composite attribute contains
	// itself, directly or through other composites.
	ErrCyclicAttribute = errors.New("cyclic attribute definition")

	// ErrCyclicCategory is returned when following parent ids leads back to
	// a category already visited.
	ErrCyclicCategory = errors.New("cyclic category hierarchy")

	// ErrDuplicateID is returned when two entities of the same collection
	// share an identifier.
	ErrDuplicateID = errors.New("duplicate identifier")
)

// Entity kinds used in error details.
const (
	KindCategory       = "category"
	KindAttribute      = "attribute"
	KindAttributeGroup = "attribute group"
)

// ReferenceError describes a broken or ambiguous identifier.
type ReferenceError struct {
	// Kind is ErrInvalidReference or ErrDuplicateID.
	Kind error

	// OwnerKind and OwnerID identify the entity holding the reference.
	// They are empty for ErrDuplicateID.
	OwnerKind string
	OwnerID   string

	// TargetKind and TargetID identify the referenced entity.
	TargetKind string
	TargetID   string
}

func (e *ReferenceError) Error() string {
	if e == nil {
		return ""
	}
	if e.OwnerKind == "" {
		return fmt.Sprintf("%s: %s %q", e.Kind, e.TargetKind, e.TargetID)
	}
	return fmt.Sprintf("%s: %s %q refers to unknown %s %q",
		e.Kind, e.OwnerKind, e.OwnerID, e.TargetKind, e.TargetID)
}

func (e *ReferenceError) Unwrap() error { return e.Kind }

// CycleError describes a loop in the attribute or category graph.
type CycleError struct {
	// Kind is ErrCyclicAttribute or ErrCyclicCategory.
	Kind error

	// Path lists the identifiers of the loop; the last element repeats an
	// earlier one.
	Path []string
}

func (e *CycleError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Path) == 0 {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return e.Kind }

// IsIntegrityError reports whether err was caused by inconsistent input data
// rather than by the environment.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrCyclicAttribute) ||
		errors.Is(err, ErrCyclicCategory) ||
		errors.Is(err, ErrDuplicateID)
}

func unknown(ownerKind, ownerID, targetKind, targetID string) error {
	return &ReferenceError{
		Kind:       ErrInvalidReference,
		OwnerKind:  ownerKind,
		OwnerID:    ownerID,
		TargetKind: targetKind,
		TargetID:   targetID,
	}
}

func duplicate(kind, id string) error {
	return &ReferenceError{Kind: ErrDuplicateID, TargetKind: kind, TargetID: id}
}

func cycle(kind error, path []string) error {
	return &CycleError{Kind: kind, Path: path}
}
