// Package errors provides structured, machine-readable errors for the ledger.
package errors

// Code is a machine-readable error code.
//
// Transition rejections must carry the same code on every replica for the
// same input; replicas agree on rejections the same way they agree on writes.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Transition rejections
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeSelfRating      Code = "SELF_RATING"
	CodeScoreOutOfRange Code = "SCORE_OUT_OF_RANGE"
	CodeNoRatingFound   Code = "NO_RATING_FOUND"
	CodeResponseExists  Code = "RESPONSE_EXISTS"

	// Routing errors
	CodeUnknownCommand Code = "UNKNOWN_COMMAND"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Replica consistency faults. Never produced by a well-behaved replica;
	// raised only when derived state contradicts its source records.
	CodeDiverged Code = "DIVERGED"
)

// IsRejection reports whether the code is a deterministic transition
// rejection, i.e. an error every replica produces identically for the same
// ordered input and that leaves state untouched.
func (c Code) IsRejection() bool {
	switch c {
	case CodeInvalidInput, CodeSelfRating, CodeScoreOutOfRange, CodeNoRatingFound, CodeResponseExists:
		return true
	default:
		return false
	}
}
