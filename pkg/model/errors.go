package model

import (
	"errors"
	"fmt"
)

// IntegrityError reports a reference to a component that is not part of
// the inventory's graph. It is fatal: a run never partially scores an
// inconsistent inventory.
type IntegrityError struct {
	Kind      string // "edge" or "vulnerability"
	Reference string // The referencing edge endpoint or advisory id
	Missing   string // The PURL that could not be resolved
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %s %q references unknown component %q", e.Kind, e.Reference, e.Missing)
}

// IsIntegrityError reports whether err is (or wraps) an IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
