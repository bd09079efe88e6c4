// Package failures defines the failure taxonomy shared by every component
// that talks to the ledger or the wallet provider. Raw transport errors are
// never surfaced directly; they are classified into one of the kinds below
// and carried as the wrapped cause.
package failures

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class.
type Kind string

const (
	// Wallet / provider failures
	ProviderUnavailable Kind = "provider_unavailable"
	UserRejected        Kind = "user_rejected"
	NoAccounts          Kind = "no_accounts"
	NetworkSwitchFailed Kind = "network_switch_failed"

	// Transport failures
	RpcUnavailable Kind = "rpc_unavailable"
	RangeTooLarge  Kind = "range_too_large"

	// Credential / validation failures
	NoSigner     Kind = "no_signer"
	MissingField Kind = "missing_field"
	Unauthorized Kind = "unauthorized"

	// Submission failures
	EstimationFailed    Kind = "estimation_failed"
	ConfirmationTimeout Kind = "confirmation_timeout"
	TransactionReverted Kind = "transaction_reverted"
)

// Failure carries a classified kind plus the underlying cause, if any.
type Failure struct {
	Kind Kind
	Msg  string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Msg, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// New creates a failure without an underlying cause.
func New(kind Kind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error into the given kind.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of a classified error, or "" if err is not a
// Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
