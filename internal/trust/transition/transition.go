// Package transition implements the deterministic state transitions of the
// reputation ledger.
//
// Transitions are applied one at a time, in the order delivered by the
// external transaction log. Each transition resolves its full read set
// before issuing any write, so a reader holding a snapshot never observes a
// mix of old and new state. A rejected transition performs no writes at all;
// rejections carry taxonomy codes and are identical on every replica for
// the same input.
package transition

import (
	"context"
	"fmt"

	"github.com/intercomtrust/trustledger/internal/platform/errors"
	"github.com/intercomtrust/trustledger/internal/storage"
	"github.com/intercomtrust/trustledger/internal/trust/aggregate"
	"github.com/intercomtrust/trustledger/internal/trust/clock"
	"github.com/intercomtrust/trustledger/internal/trust/domain"
	"github.com/intercomtrust/trustledger/internal/trust/state"
)

// Store is the subset of the key-value store transitions need.
type Store interface {
	storage.Reader
	state.Writer
}

// Transitions applies ledger state transitions against a store.
type Transitions struct {
	store Store
	gate  *clock.Gate
}

// New returns transitions bound to the given store.
func New(store Store) *Transitions {
	return &Transitions{store: store, gate: clock.NewGate(store)}
}

// RateInput carries one rate transition. Rater is the authenticated caller
// address established outside the core.
type RateInput struct {
	Rater   string
	Ratee   string
	Score   int
	Comment string
}

// RateResult is the flat result record of a rate transition.
type RateResult struct {
	Op      string `json:"op"`
	Rater   string `json:"rater"`
	Ratee   string `json:"ratee"`
	Score   int    `json:"score"`
	Updated bool   `json:"updated"`
}

// Rate validates and applies one rating. On success it persists the rating,
// the updated summary, and, for a first-ever-rated ratee, the grown peers
// list.
func (t *Transitions) Rate(ctx context.Context, input RateInput) (RateResult, error) {
	if err := domain.ValidateAddress("ratee", input.Ratee); err != nil {
		return RateResult{}, err
	}
	if err := domain.ValidateAddress("rater", input.Rater); err != nil {
		return RateResult{}, err
	}
	if input.Rater == input.Ratee {
		return RateResult{}, errors.New(errors.CodeSelfRating, "cannot rate yourself")
	}
	if err := domain.ValidateScore(input.Score); err != nil {
		return RateResult{}, err
	}
	if err := domain.ValidateComment(input.Comment); err != nil {
		return RateResult{}, err
	}

	// Read phase.
	prior, priorFound, err := state.LoadRating(ctx, t.store, input.Ratee, input.Rater)
	if err != nil {
		return RateResult{}, err
	}
	summary, summaryFound, err := state.LoadSummary(ctx, t.store, input.Ratee)
	if err != nil {
		return RateResult{}, err
	}
	if !summaryFound {
		summary = domain.NewSummary()
	}
	peers, err := state.LoadPeers(ctx, t.store)
	if err != nil {
		return RateResult{}, err
	}
	now, err := t.gate.Read(ctx)
	if err != nil {
		return RateResult{}, err
	}

	var priorRating *domain.Rating
	if priorFound {
		priorRating = &prior
	}
	summary = aggregate.Apply(summary, priorRating, input.Rater, input.Score, now)
	if !aggregate.Consistent(summary) {
		return RateResult{}, errors.New(errors.CodeDiverged,
			fmt.Sprintf("summary for %s violates its invariants", input.Ratee))
	}

	// Write phase.
	rating := domain.Rating{Score: input.Score, Comment: input.Comment, Timestamp: now}
	if err := state.SaveRating(ctx, t.store, input.Ratee, input.Rater, rating); err != nil {
		return RateResult{}, err
	}
	if err := state.SaveSummary(ctx, t.store, input.Ratee, summary); err != nil {
		return RateResult{}, err
	}
	if !peers.Contains(input.Ratee) {
		if err := state.SavePeers(ctx, t.store, peers.Append(input.Ratee)); err != nil {
			return RateResult{}, err
		}
	}

	return RateResult{
		Op:      "submitRating",
		Rater:   input.Rater,
		Ratee:   input.Ratee,
		Score:   input.Score,
		Updated: priorFound,
	}, nil
}

// RespondInput carries one respond transition. Ratee is the authenticated
// caller address; Rater identifies the rating being answered.
type RespondInput struct {
	Ratee   string
	Rater   string
	Comment string
}

// RespondResult is the flat result record of a respond transition.
type RespondResult struct {
	Op    string `json:"op"`
	Ratee string `json:"ratee"`
	Rater string `json:"rater"`
}

// Respond records the ratee's one-time reply to an existing rating. The
// response references the rating by the rating's timestamp at call time; a
// later re-rating leaves the response in place.
func (t *Transitions) Respond(ctx context.Context, input RespondInput) (RespondResult, error) {
	if err := domain.ValidateAddress("rater", input.Rater); err != nil {
		return RespondResult{}, err
	}
	if err := domain.ValidateAddress("ratee", input.Ratee); err != nil {
		return RespondResult{}, err
	}
	if err := domain.ValidateResponseComment(input.Comment); err != nil {
		return RespondResult{}, err
	}

	// Read phase.
	rating, ratingFound, err := state.LoadRating(ctx, t.store, input.Ratee, input.Rater)
	if err != nil {
		return RespondResult{}, err
	}
	if !ratingFound {
		return RespondResult{}, errors.New(errors.CodeNoRatingFound, "no rating found to respond to")
	}
	_, responseFound, err := state.LoadResponse(ctx, t.store, input.Ratee, input.Rater)
	if err != nil {
		return RespondResult{}, err
	}
	if responseFound {
		return RespondResult{}, errors.New(errors.CodeResponseExists, "rating already has a response")
	}
	now, err := t.gate.Read(ctx)
	if err != nil {
		return RespondResult{}, err
	}

	// Write phase.
	response := domain.Response{
		Comment:         input.Comment,
		Timestamp:       now,
		RatingTimestamp: rating.Timestamp,
	}
	if err := state.SaveResponse(ctx, t.store, input.Ratee, input.Rater, response); err != nil {
		return RespondResult{}, err
	}

	return RespondResult{Op: "submitResponse", Ratee: input.Ratee, Rater: input.Rater}, nil
}

// RegisterInput carries one profile registration. Address is the
// authenticated caller address.
type RegisterInput struct {
	Address string
	Alias   string
}

// RegisterResult is the flat result record of a profile registration.
type RegisterResult struct {
	Op      string `json:"op"`
	Address string `json:"address"`
	Alias   string `json:"alias"`
}

// RegisterProfile records a display name for the caller. Registration
// always overwrites the whole profile, including the registered timestamp.
func (t *Transitions) RegisterProfile(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	if err := domain.ValidateAddress("caller", input.Address); err != nil {
		return RegisterResult{}, err
	}
	if err := domain.ValidateAlias(input.Alias); err != nil {
		return RegisterResult{}, err
	}

	now, err := t.gate.Read(ctx)
	if err != nil {
		return RegisterResult{}, err
	}

	profile := domain.Profile{Alias: input.Alias, Registered: now}
	if err := state.SaveProfile(ctx, t.store, input.Address, profile); err != nil {
		return RegisterResult{}, err
	}

	return RegisterResult{Op: "registerProfile", Address: input.Address, Alias: input.Alias}, nil
}

// TimeResult is the flat result record of a timer feature entry.
type TimeResult struct {
	Op      string `json:"op"`
	Value   int64  `json:"value"`
	Applied bool   `json:"applied"`
}

// RecordTime routes a timer feature entry through the clock gate. Only the
// first value ever delivered is recorded; later entries are no-ops.
func (t *Transitions) RecordTime(ctx context.Context, value int64) (TimeResult, error) {
	applied, err := t.gate.SetIfAbsent(ctx, value)
	if err != nil {
		return TimeResult{}, err
	}
	return TimeResult{Op: "timer", Value: value, Applied: applied}, nil
}
