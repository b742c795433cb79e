// Package aggregate maintains per-ratee reputation summaries from a stream
// of rating events.
package aggregate

import "github.com/intercomtrust/trustledger/internal/trust/domain"

// Apply merges one rating event into a summary and returns the updated
// summary. prior is the rater's existing rating of the same ratee, or nil on
// first rating.
//
// The merge rule distinguishes update from insert: a re-rate replaces the
// prior contribution in totalScore and leaves count and the rater set
// untouched, so the same rater can never be counted twice. The average is
// recomputed from totals on every call rather than adjusted incrementally,
// which keeps it free of accumulated floating-point drift.
func Apply(summary domain.Summary, prior *domain.Rating, rater string, score int, now *int64) domain.Summary {
	if summary.Raters == nil {
		summary.Raters = domain.AddressList{}
	}

	if prior != nil {
		summary.TotalScore = summary.TotalScore - prior.Score + score
	} else {
		summary.TotalScore += score
		summary.Count++
		// Membership check kept even though the insert branch only fires for
		// first-time raters; the rater set must never hold duplicates.
		summary.Raters = summary.Raters.Append(rater)
	}

	if summary.Count > 0 {
		summary.AvgScore = float64(summary.TotalScore) / float64(summary.Count)
	} else {
		summary.AvgScore = 0
	}
	summary.LastRated = now

	return summary
}

// Consistent reports whether a summary satisfies its structural invariants:
// the count matches the rater set size and the average matches the totals.
// A false result on a live replica indicates divergence.
func Consistent(summary domain.Summary) bool {
	if summary.Count != len(summary.Raters) {
		return false
	}
	if summary.Count == 0 {
		return summary.TotalScore == 0 && summary.AvgScore == 0
	}
	return summary.AvgScore == float64(summary.TotalScore)/float64(summary.Count)
}
