// Package command parses wire commands and routes them to transitions and
// queries.
//
// The wire surface is the original transaction command language: a JSON
// object with an "op" discriminator, or the bare string "get_leaderboard".
// Parsing produces a closed tagged command; unknown or malformed commands
// are rejected before any dispatch.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/intercomtrust/trustledger/internal/platform/errors"
	"github.com/intercomtrust/trustledger/internal/storage"
	"github.com/intercomtrust/trustledger/internal/trust/query"
	"github.com/intercomtrust/trustledger/internal/trust/transition"
)

// Op discriminates command variants. The set is closed: anything else is
// rejected at parse time.
type Op string

const (
	OpRate           Op = "rate"
	OpRespond        Op = "respond"
	OpRegister       Op = "register"
	OpGetSummary     Op = "get_summary"
	OpGetReviews     Op = "get_reviews"
	OpGetProfile     Op = "get_profile"
	OpGetLeaderboard Op = "get_leaderboard"
)

// Command is one parsed wire command. Only the fields of the tagged variant
// are populated.
type Command struct {
	Op      Op
	Ratee   string
	Rater   string
	Score   int
	Comment string
	Alias   string
	Address string
	Limit   int
	Offset  int
}

type payload struct {
	Op           string  `json:"op"`
	Ratee        string  `json:"ratee"`
	Score        *int    `json:"score"`
	Comment      *string `json:"comment"`
	RaterAddress string  `json:"rater_address"`
	Alias        string  `json:"alias"`
	Address      string  `json:"address"`
	Limit        *int    `json:"limit"`
	Offset       *int    `json:"offset"`
}

// Parse decodes one wire command string into a tagged command.
func Parse(raw string) (Command, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Command{}, errors.New(errors.CodeInvalidInput, "empty command")
	}

	// Bare string form accepted for the leaderboard, as on the original
	// wire protocol.
	if raw == string(OpGetLeaderboard) {
		return Command{Op: OpGetLeaderboard, Limit: query.DefaultLeaderboardLimit}, nil
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Command{}, errors.Wrap(errors.CodeUnknownCommand, "command is not valid JSON", err)
	}

	switch Op(p.Op) {
	case OpRate:
		if p.Score == nil {
			return Command{}, errors.New(errors.CodeInvalidInput, "score is required")
		}
		cmd := Command{Op: OpRate, Ratee: p.Ratee, Score: *p.Score}
		if p.Comment != nil {
			cmd.Comment = *p.Comment
		}
		return cmd, nil
	case OpRespond:
		if p.Comment == nil {
			return Command{}, errors.New(errors.CodeInvalidInput, "comment is required")
		}
		return Command{Op: OpRespond, Rater: p.RaterAddress, Comment: *p.Comment}, nil
	case OpRegister:
		return Command{Op: OpRegister, Alias: p.Alias}, nil
	case OpGetSummary:
		return requireAddress(OpGetSummary, p.Address)
	case OpGetProfile:
		return requireAddress(OpGetProfile, p.Address)
	case OpGetReviews:
		cmd, err := requireAddress(OpGetReviews, p.Address)
		if err != nil {
			return Command{}, err
		}
		cmd.Limit = intOr(p.Limit, query.DefaultReviewsLimit)
		cmd.Offset = intOr(p.Offset, 0)
		if cmd.Offset < 0 {
			return Command{}, errors.New(errors.CodeInvalidInput, "offset must not be negative")
		}
		return cmd, nil
	case OpGetLeaderboard:
		return Command{Op: OpGetLeaderboard, Limit: intOr(p.Limit, query.DefaultLeaderboardLimit)}, nil
	default:
		return Command{}, errors.New(errors.CodeUnknownCommand, fmt.Sprintf("unknown op %q", p.Op))
	}
}

func requireAddress(op Op, address string) (Command, error) {
	if strings.TrimSpace(address) == "" {
		return Command{}, errors.New(errors.CodeInvalidInput, "address is required")
	}
	return Command{Op: op, Address: address}, nil
}

func intOr(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

// Router dispatches parsed commands against the ledger.
type Router struct {
	transitions *transition.Transitions
	queries     *query.Engine
}

// NewRouter returns a router whose queries run as confirmed reads against
// the same store transitions write to.
func NewRouter(store storage.Store) *Router {
	return &Router{
		transitions: transition.New(store),
		queries:     query.New(store),
	}
}

// Transitions exposes the underlying transitions, for callers that feed
// non-command log entries (the timer feature) into the ledger.
func (r *Router) Transitions() *transition.Transitions {
	return r.transitions
}

// Execute runs one parsed command for the authenticated caller address and
// returns its flat result record.
func (r *Router) Execute(ctx context.Context, caller string, cmd Command) (any, error) {
	switch cmd.Op {
	case OpRate:
		return r.transitions.Rate(ctx, transition.RateInput{
			Rater:   caller,
			Ratee:   cmd.Ratee,
			Score:   cmd.Score,
			Comment: cmd.Comment,
		})
	case OpRespond:
		return r.transitions.Respond(ctx, transition.RespondInput{
			Ratee:   caller,
			Rater:   cmd.Rater,
			Comment: cmd.Comment,
		})
	case OpRegister:
		return r.transitions.RegisterProfile(ctx, transition.RegisterInput{
			Address: caller,
			Alias:   cmd.Alias,
		})
	case OpGetSummary:
		return r.queries.RatingSummary(ctx, cmd.Address)
	case OpGetReviews:
		return r.queries.Reviews(ctx, cmd.Address, cmd.Limit, cmd.Offset)
	case OpGetProfile:
		return r.queries.Profile(ctx, cmd.Address)
	case OpGetLeaderboard:
		return r.queries.Leaderboard(ctx, cmd.Limit)
	default:
		return nil, errors.New(errors.CodeUnknownCommand, fmt.Sprintf("unroutable op %q", cmd.Op))
	}
}
