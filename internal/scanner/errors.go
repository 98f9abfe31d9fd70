// SPDX-License-Identifier: MPL-2.0

package scanner

import (
	"errors"
	"fmt"

	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

var (
	// ErrUnsupportedTarget is returned when a marker attribute is applied to
	// an element kind the classifier does not model (an import on a method).
	ErrUnsupportedTarget = errors.New("marker attribute applied to unsupported target")
	// ErrMissingDeclaringType is returned when a classified member has no
	// owning type.
	ErrMissingDeclaringType = errors.New("member has no declaring type")
)

// ContractError is a fatal classification failure. Unlike read errors it
// does not mean the module is irrelevant; the scan result would be wrong if
// the failure were ignored.
type ContractError struct {
	Op     string
	Handle metadata.Handle
	Err    error
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *ContractError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must propagate out of a scan instead of being
// treated as an unreadable module.
func IsFatal(err error) bool {
	var contractErr *ContractError
	return errors.As(err, &contractErr)
}
