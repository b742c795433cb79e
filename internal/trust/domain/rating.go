package domain

import (
	"fmt"
	"strings"

	"github.com/intercomtrust/trustledger/internal/platform/errors"
)

// Field constraints shared by transitions and the command router.
const (
	MinScore      = 1
	MaxScore      = 5
	MaxAddressLen = 128
	MaxCommentLen = 280
	MaxAliasLen   = 64
)

// Rating is one peer's rating of another. At most one exists per
// (ratee, rater) pair; re-rating overwrites it in place.
type Rating struct {
	Score     int    `json:"score"`
	Comment   string `json:"comment"`
	Timestamp *int64 `json:"timestamp"`
}

// Response is the ratee's one-time reply to a rating. It references the
// rating it answered by that rating's timestamp, not by pointer.
type Response struct {
	Comment         string `json:"comment"`
	Timestamp       *int64 `json:"timestamp"`
	RatingTimestamp *int64 `json:"ratingTimestamp"`
}

// ValidateAddress checks a required address field.
func ValidateAddress(field, address string) error {
	if strings.TrimSpace(address) == "" {
		return errors.New(errors.CodeInvalidInput, fmt.Sprintf("%s address is required", field))
	}
	if len(address) > MaxAddressLen {
		return errors.New(errors.CodeInvalidInput, fmt.Sprintf("%s address exceeds %d characters", field, MaxAddressLen))
	}
	return nil
}

// ValidateScore checks the 1..5 score range.
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return errors.New(errors.CodeScoreOutOfRange, fmt.Sprintf("score must be %d-%d", MinScore, MaxScore))
	}
	return nil
}

// ValidateComment checks an optional comment field.
func ValidateComment(comment string) error {
	if len(comment) > MaxCommentLen {
		return errors.New(errors.CodeInvalidInput, fmt.Sprintf("comment exceeds %d characters", MaxCommentLen))
	}
	return nil
}

// ValidateResponseComment checks the required respond comment field.
func ValidateResponseComment(comment string) error {
	if comment == "" {
		return errors.New(errors.CodeInvalidInput, "comment is required")
	}
	return ValidateComment(comment)
}
