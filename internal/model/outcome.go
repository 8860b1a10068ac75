package model

import "fmt"

// OutcomeKind is the tri-state classification of a single purchase attempt.
// It is a tagged variant rather than a boolean so the ambiguous case cannot
// be silently lost in propagation.
type OutcomeKind int

const (
	// OutcomeSuccess: the terminal confirmed the submission and the
	// subsequent independent inquiry step.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeFailed: the terminal returned an explicit rejection, such as a
	// closed betting window or a validation error.
	OutcomeFailed

	// OutcomeUnverified: the submission reported success but the inquiry
	// could not corroborate it. A terminal state for the run; never
	// upgraded to success, never downgraded to failure, never retried
	// in-run because a retry risks a real duplicate charge.
	OutcomeUnverified
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeFailed:
		return "FAILED"
	case OutcomeUnverified:
		return "UNVERIFIED"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the classified result of one place-bet invocation.
type Outcome struct {
	Kind      OutcomeKind
	ReceiptID string // Set on success when the inquiry returned a receipt
	Reason    string // Rejection reason or verification failure detail
}

// RecordStatus maps the outcome to the ledger status written for it.
func (o Outcome) RecordStatus() RecordStatus {
	switch o.Kind {
	case OutcomeSuccess:
		return StatusPurchased
	case OutcomeFailed:
		return StatusFailed
	default:
		return StatusUnverified
	}
}

// Success builds a confirmed outcome carrying the inquiry receipt.
func Success(receiptID string) Outcome {
	return Outcome{Kind: OutcomeSuccess, ReceiptID: receiptID}
}

// Rejected builds an explicit-rejection outcome.
func Rejected(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// Unverified builds an ambiguous outcome with the verification failure
// detail.
func Unverified(reason string) Outcome {
	return Outcome{Kind: OutcomeUnverified, Reason: reason}
}
