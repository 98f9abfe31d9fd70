// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

type (
	// ActionableError is a user-facing error. It names the operation that
	// failed and the module, identity or directory involved, and may carry
	// fix hints plus a link to a catalog Issue.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("scan module").
	//		WithResource("./bin/Parts.dll").
	//		WithIssue(issue.ReferenceCycleId).
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "scan module".
		Operation string
		// Resource is optional.
		Resource    string
		Suggestions []string
		// Issue is zero when no catalog entry applies.
		Issue Id
		Cause error
	}

	// ErrorContext accumulates the fields of an ActionableError. A context
	// may be reused; every Build returns an independent value.
	ErrorContext struct {
		draft ActionableError
	}
)

// NewActionableError returns an error for operation with no other context.
func NewActionableError(operation string) *ActionableError {
	return &ActionableError{Operation: operation}
}

// NewErrorContext returns an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation attaches operation to err. A nil err stays nil.
func WrapWithOperation(err error, operation string) *ActionableError {
	return WrapWithContext(err, operation, "")
}

// WrapWithContext attaches operation and resource to err. A nil err stays nil.
func WrapWithContext(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Resource: resource, Cause: err}
}

func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the message with one bulleted line per suggestion. When
// verbose is set, every error of the cause chain follows, numbered.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if e.HasSuggestions() {
		b.WriteByte('\n')
		for _, s := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", s)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		for depth, err := 1, e.Cause; err != nil; depth, err = depth+1, errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", depth, err)
		}
	}
	return b.String()
}

// HasSuggestions reports whether any fix hint is attached.
func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// Explain renders the linked catalog issue as terminal Markdown, or returns
// "" when none is linked.
func (e *ActionableError) Explain(stylePath string) (string, error) {
	if i := Get(e.Issue); i != nil {
		return i.Render(stylePath)
	}
	return "", nil
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.draft.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.draft.Resource = res
	return c
}

// WithSuggestion appends one hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	return c.WithSuggestions(sug)
}

func (c *ErrorContext) WithSuggestions(sugs ...string) *ErrorContext {
	c.draft.Suggestions = append(c.draft.Suggestions, sugs...)
	return c
}

func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.draft.Issue = id
	return c
}

// Wrap sets the cause, replacing any earlier one.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.draft.Cause = err
	return c
}

// Build returns the accumulated error, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.draft.Operation == "" {
		return nil
	}
	e := c.draft
	e.Suggestions = slices.Clone(c.draft.Suggestions)
	return &e
}

// BuildError is Build typed as error; a missing operation yields an untyped
// nil.
func (c *ErrorContext) BuildError() error {
	if e := c.Build(); e != nil {
		return e
	}
	return nil
}
