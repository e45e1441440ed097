package service

import "fmt"

// Kind classifies why an analysis failed. The HTTP layer maps each kind to a
// status code and a fixed message.
type Kind int

const (
	KindUnexpected Kind = iota
	KindCredentialMissing
	KindInvalidPayload
	KindProviderFailure
	KindUnparsableOutput
)

func (k Kind) String() string {
	switch k {
	case KindCredentialMissing:
		return "credential_missing"
	case KindInvalidPayload:
		return "invalid_payload"
	case KindProviderFailure:
		return "provider_failure"
	case KindUnparsableOutput:
		return "unparsable_output"
	default:
		return "unexpected"
	}
}

// Error is returned by Gateway.Analyze for every failure. Detail is safe to
// show to the caller: the raw model text for KindUnparsableOutput, the error
// message for KindProviderFailure and KindUnexpected, empty otherwise.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
