package extraction

import "errors"

// FailureKind classifies terminal extraction failures that should not be
// retried. The reason string is what gets stored against the invoice, so it
// must read as a plain sentence.
type FailureKind string

const (
	// KindNotDocument means the model looked at the file and decided it is
	// not an invoice at all.
	KindNotDocument FailureKind = "NOT_A_DOCUMENT"
	// KindUnreadable means the model responded but its output could not be
	// interpreted as invoice data.
	KindUnreadable FailureKind = "UNREADABLE_OUTPUT"
)

// Error is a terminal extraction failure. Anything else returned by the
// extractor is considered transient and eligible for retry.
type Error struct {
	Kind   FailureKind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// IsTerminal reports whether err is a terminal extraction failure.
func IsTerminal(err error) bool {
	var exErr *Error
	return errors.As(err, &exErr)
}
