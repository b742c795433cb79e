// Package query implements the read-side projections of the reputation
// ledger.
//
// Queries are side-effect free and never fail on absent data; missing
// records surface as not-found shapes or nulls. Every projection is
// deterministic over the state it reads: pagination follows the stored
// rater order and leaderboard sorting is a total order.
package query

import (
	"context"
	"math"
	"sort"

	"github.com/intercomtrust/trustledger/internal/storage"
	"github.com/intercomtrust/trustledger/internal/trust/state"
)

// Query limits, matching the wire schema bounds.
const (
	DefaultReviewsLimit     = 20
	MaxReviewsLimit         = 100
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 50
)

// Engine executes read projections over a fixed read view. Hand it the
// store for confirmed reads or an open snapshot for a stable prefix.
type Engine struct {
	reader storage.Reader
}

// New returns an engine over the given read view.
func New(reader storage.Reader) *Engine {
	return &Engine{reader: reader}
}

// SummaryResult is the flat result record of a rating summary lookup.
type SummaryResult struct {
	Address    string  `json:"address"`
	Found      bool    `json:"found"`
	Alias      *string `json:"alias,omitempty"`
	TotalScore int     `json:"totalScore,omitempty"`
	Count      int     `json:"count,omitempty"`
	AvgScore   float64 `json:"avgScore,omitempty"`
	LastRated  *int64  `json:"lastRated,omitempty"`
}

// RatingSummary returns the reputation summary for an address, with the
// average rounded to two decimals.
func (e *Engine) RatingSummary(ctx context.Context, address string) (SummaryResult, error) {
	summary, found, err := state.LoadSummary(ctx, e.reader, address)
	if err != nil {
		return SummaryResult{}, err
	}
	if !found {
		return SummaryResult{Address: address, Found: false}, nil
	}

	alias, err := e.lookupAlias(ctx, address)
	if err != nil {
		return SummaryResult{}, err
	}

	return SummaryResult{
		Address:    address,
		Found:      true,
		Alias:      alias,
		TotalScore: summary.TotalScore,
		Count:      summary.Count,
		AvgScore:   round2(summary.AvgScore),
		LastRated:  summary.LastRated,
	}, nil
}

// Review is one rating of an address, joined with the rater's profile and
// the ratee's response when present.
type Review struct {
	Rater      string  `json:"rater"`
	RaterAlias *string `json:"raterAlias"`
	Score      int     `json:"score"`
	Comment    string  `json:"comment"`
	Timestamp  *int64  `json:"timestamp"`
	Response   *string `json:"response"`
}

// ReviewsResult is one page of reviews. Total is the full rater-set size,
// not the page size.
type ReviewsResult struct {
	Address string   `json:"address"`
	Reviews []Review `json:"reviews"`
	Total   int      `json:"total"`
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
}

// Reviews pages through the ratings of an address. The stored rater order
// (insertion order, i.e. chronological order of first rating) is the
// canonical pagination order.
func (e *Engine) Reviews(ctx context.Context, address string, limit, offset int) (ReviewsResult, error) {
	limit = clampLimit(limit, DefaultReviewsLimit, MaxReviewsLimit)
	if offset < 0 {
		offset = 0
	}

	summary, found, err := state.LoadSummary(ctx, e.reader, address)
	if err != nil {
		return ReviewsResult{}, err
	}
	if !found || len(summary.Raters) == 0 {
		return ReviewsResult{Address: address, Reviews: []Review{}, Total: 0, Offset: offset, Limit: limit}, nil
	}

	raters := summary.Raters
	start := offset
	if start > len(raters) {
		start = len(raters)
	}
	end := start + limit
	if end > len(raters) {
		end = len(raters)
	}

	reviews := make([]Review, 0, end-start)
	for _, rater := range raters[start:end] {
		rating, ratingFound, err := state.LoadRating(ctx, e.reader, address, rater)
		if err != nil {
			return ReviewsResult{}, err
		}
		if !ratingFound {
			continue
		}

		review := Review{
			Rater:     rater,
			Score:     rating.Score,
			Comment:   rating.Comment,
			Timestamp: rating.Timestamp,
		}
		if response, responseFound, err := state.LoadResponse(ctx, e.reader, address, rater); err != nil {
			return ReviewsResult{}, err
		} else if responseFound {
			comment := response.Comment
			review.Response = &comment
		}
		if review.RaterAlias, err = e.lookupAlias(ctx, rater); err != nil {
			return ReviewsResult{}, err
		}
		reviews = append(reviews, review)
	}

	return ReviewsResult{
		Address: address,
		Reviews: reviews,
		Total:   len(raters),
		Offset:  offset,
		Limit:   limit,
	}, nil
}

// ProfileResult merges profile and summary-derived fields; either side may
// be absent independently.
type ProfileResult struct {
	Address     string   `json:"address"`
	Alias       *string  `json:"alias"`
	Registered  *int64   `json:"registered"`
	AvgScore    *float64 `json:"avgScore"`
	RatingCount int      `json:"ratingCount"`
}

// Profile looks up an address profile combined with its rating aggregate.
func (e *Engine) Profile(ctx context.Context, address string) (ProfileResult, error) {
	result := ProfileResult{Address: address}

	profile, profileFound, err := state.LoadProfile(ctx, e.reader, address)
	if err != nil {
		return ProfileResult{}, err
	}
	if profileFound {
		if profile.Alias != "" {
			alias := profile.Alias
			result.Alias = &alias
		}
		result.Registered = profile.Registered
	}

	summary, summaryFound, err := state.LoadSummary(ctx, e.reader, address)
	if err != nil {
		return ProfileResult{}, err
	}
	if summaryFound {
		avg := round2(summary.AvgScore)
		result.AvgScore = &avg
		result.RatingCount = summary.Count
	}

	return result, nil
}

// LeaderboardEntry is one ranked peer.
type LeaderboardEntry struct {
	Address  string  `json:"address"`
	AvgScore float64 `json:"avgScore"`
	Count    int     `json:"count"`
	Alias    *string `json:"alias"`
}

// LeaderboardResult is the ranked peer listing. Total counts all rated
// candidates, before truncation to the requested limit.
type LeaderboardResult struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Total       int                `json:"total"`
}

// Leaderboard ranks every rated peer by average score descending, ties
// broken by rating count descending. The sort is stable over the peers
// list, so entries tied on both keys keep their first-rated order and the
// full ordering is a deterministic total order.
func (e *Engine) Leaderboard(ctx context.Context, limit int) (LeaderboardResult, error) {
	limit = clampLimit(limit, DefaultLeaderboardLimit, MaxLeaderboardLimit)

	peers, err := state.LoadPeers(ctx, e.reader)
	if err != nil {
		return LeaderboardResult{}, err
	}
	if len(peers) == 0 {
		return LeaderboardResult{Leaderboard: []LeaderboardEntry{}, Total: 0}, nil
	}

	entries := make([]LeaderboardEntry, 0, len(peers))
	for _, address := range peers {
		summary, found, err := state.LoadSummary(ctx, e.reader, address)
		if err != nil {
			return LeaderboardResult{}, err
		}
		if !found || summary.Count == 0 {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Address:  address,
			AvgScore: round2(summary.AvgScore),
			Count:    summary.Count,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AvgScore != entries[j].AvgScore {
			return entries[i].AvgScore > entries[j].AvgScore
		}
		return entries[i].Count > entries[j].Count
	})

	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		if entries[i].Alias, err = e.lookupAlias(ctx, entries[i].Address); err != nil {
			return LeaderboardResult{}, err
		}
	}

	return LeaderboardResult{Leaderboard: entries, Total: total}, nil
}

func (e *Engine) lookupAlias(ctx context.Context, address string) (*string, error) {
	profile, found, err := state.LoadProfile(ctx, e.reader, address)
	if err != nil {
		return nil, err
	}
	if !found || profile.Alias == "" {
		return nil, nil
	}
	alias := profile.Alias
	return &alias, nil
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

// round2 rounds to two decimals, half up on the third decimal. Scores are
// non-negative, so floor(x*100+0.5) matches the round(x*100)/100 contract.
func round2(value float64) float64 {
	return math.Floor(value*100+0.5) / 100
}
