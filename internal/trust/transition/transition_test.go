package transition

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	platformerrors "github.com/intercomtrust/trustledger/internal/platform/errors"
	"github.com/intercomtrust/trustledger/internal/storage"
	"github.com/intercomtrust/trustledger/internal/trust/domain"
	"github.com/intercomtrust/trustledger/internal/trust/state"
)

type memStore struct {
	values map[string][]byte
	puts   int
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := s.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return value, nil
}

func (s *memStore) Put(_ context.Context, key string, value []byte) error {
	s.puts++
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func assertCode(t *testing.T, err error, code platformerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %q rejection, got nil", code)
	}
	if got := platformerrors.CodeOf(err); got != code {
		t.Fatalf("code = %q, want %q", got, code)
	}
}

func TestRateFirstRating(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	transitions := New(store)

	result, err := transitions.Rate(ctx, RateInput{Rater: "addr-a", Ratee: "addr-x", Score: 4, Comment: "prompt delivery"})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	want := RateResult{Op: "submitRating", Rater: "addr-a", Ratee: "addr-x", Score: 4, Updated: false}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("result (-want +got):\n%s", diff)
	}

	summary, found, err := state.LoadSummary(ctx, store, "addr-x")
	if err != nil || !found {
		t.Fatalf("load summary = found %v, err %v", found, err)
	}
	if summary.TotalScore != 4 || summary.Count != 1 || summary.AvgScore != 4 {
		t.Fatalf("summary = %+v", summary)
	}

	peers, err := state.LoadPeers(ctx, store)
	if err != nil {
		t.Fatalf("load peers: %v", err)
	}
	if diff := cmp.Diff(domain.AddressList{"addr-x"}, peers); diff != "" {
		t.Fatalf("peers (-want +got):\n%s", diff)
	}
}

func TestRateReRateUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	transitions := New(store)

	if _, err := transitions.Rate(ctx, RateInput{Rater: "addr-a", Ratee: "addr-x", Score: 4}); err != nil {
		t.Fatalf("first rate: %v", err)
	}
	if _, err := transitions.Rate(ctx, RateInput{Rater: "addr-b", Ratee: "addr-x", Score: 2}); err != nil {
		t.Fatalf("second rate: %v", err)
	}

	result, err := transitions.Rate(ctx, RateInput{Rater: "addr-a", Ratee: "addr-x", Score: 5})
	if err != nil {
		t.Fatalf("re-rate: %v", err)
	}
	if !result.Updated {
		t.Fatal("re-rate should report updated")
	}

	summary, _, err := state.LoadSummary(ctx, store, "addr-x")
	if err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if summary.TotalScore != 7 || summary.Count != 2 || summary.AvgScore != 3.5 {
		t.Fatalf("summary = %+v, want totalScore=7 count=2 avgScore=3.5", summary)
	}

	// peers_list gains addr-x exactly once.
	peers, err := state.LoadPeers(ctx, store)
	if err != nil {
		t.Fatalf("load peers: %v", err)
	}
	if diff := cmp.Diff(domain.AddressList{"addr-x"}, peers); diff != "" {
		t.Fatalf("peers (-want +got):\n%s", diff)
	}
}

func TestRateRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		input RateInput
		code  platformerrors.Code
	}{
		{name: "empty ratee", input: RateInput{Rater: "addr-a", Ratee: "", Score: 3}, code: platformerrors.CodeInvalidInput},
		{name: "self rating", input: RateInput{Rater: "addr-a", Ratee: "addr-a", Score: 3}, code: platformerrors.CodeSelfRating},
		{name: "score too low", input: RateInput{Rater: "addr-a", Ratee: "addr-x", Score: 0}, code: platformerrors.CodeScoreOutOfRange},
		{name: "score too high", input: RateInput{Rater: "addr-a", Ratee: "addr-x", Score: 6}, code: platformerrors.CodeScoreOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			transitions := New(store)

			_, err := transitions.Rate(ctx, tt.input)
			assertCode(t, err, tt.code)
			if store.puts != 0 {
				t.Fatalf("rejected transition issued %d writes", store.puts)
			}
		})
	}
}

func TestRateUsesClockValue(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	transitions := New(store)

	if _, err := transitions.RecordTime(ctx, 1700000000000); err != nil {
		t.Fatalf("record time: %v", err)
	}
	if _, err := transitions.Rate(ctx, RateInput{Rater: "addr-a", Ratee: "addr-x", Score: 5}); err != nil {
		t.Fatalf("rate: %v", err)
	}

	rating, _, err := state.LoadRating(ctx, store, "addr-x", "addr-a")
	if err != nil {
		t.Fatalf("load rating: %v", err)
	}
	if rating.Timestamp == nil || *rating.Timestamp != 1700000000000 {
		t.Fatalf("rating timestamp = %v, want 1700000000000", rating.Timestamp)
	}

	summary, _, err := state.LoadSummary(ctx, store, "addr-x")
	if err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if summary.LastRated == nil || *summary.LastRated != 1700000000000 {
		t.Fatalf("lastRated = %v, want 1700000000000", summary.LastRated)
	}
}

func TestRespondRequiresRating(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	transitions := New(store)

	_, err := transitions.Respond(ctx, RespondInput{Ratee: "addr-x", Rater: "addr-a", Comment: "thanks"})
	assertCode(t, err, platformerrors.CodeNoRatingFound)
	if store.puts != 0 {
		t.Fatalf("rejected respond issued %d writes", store.puts)
	}
}

func TestRespondSucceedsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	transitions := New(store)

	if _, err := transitions.RecordTime(ctx, 42); err != nil {
		t.Fatalf("record time: %v", err)
	}
	if _, err := transitions.Rate(ctx, RateInput{Rater: "addr-a", Ratee: "addr-x", Score: 4}); err != nil {
		t.Fatalf("rate: %v", err)
	}

	result, err := transitions.Respond(ctx, RespondInput{Ratee: "addr-x", Rater: "addr-a", Comment: "thanks"})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if diff := cmp.Diff(RespondResult{Op: "submitResponse", Ratee: "addr-x", Rater: "addr-a"}, result); diff != "" {
		t.Fatalf("result (-want +got):\n%s", diff)
	}

	response, found, err := state.LoadResponse(ctx, store, "addr-x", "addr-a")
	if err != nil || !found {
		t.Fatalf("load response = found %v, err %v", found, err)
	}
	if response.RatingTimestamp == nil || *response.RatingTimestamp != 42 {
		t.Fatalf("ratingTimestamp = %v, want 42", response.RatingTimestamp)
	}

	_, err = transitions.Respond(ctx, RespondInput{Ratee: "addr-x", Rater: "addr-a", Comment: "again"})
	assertCode(t, err, platformerrors.CodeResponseExists)
}

func TestRespondSurvivesReRating(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	transitions := New(store)

	if _, err := transitions.Rate(ctx, RateInput{Rater: "addr-a", Ratee: "addr-x", Score: 2}); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if _, err := transitions.Respond(ctx, RespondInput{Ratee: "addr-x", Rater: "addr-a", Comment: "noted"}); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if _, err := transitions.Rate(ctx, RateInput{Rater: "addr-a", Ratee: "addr-x", Score: 5}); err != nil {
		t.Fatalf("re-rate: %v", err)
	}

	response, found, err := state.LoadResponse(ctx, store, "addr-x", "addr-a")
	if err != nil || !found {
		t.Fatalf("load response = found %v, err %v", found, err)
	}
	if response.Comment != "noted" {
		t.Fatalf("response comment = %q, want %q", response.Comment, "noted")
	}
}

func TestRegisterProfileOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	transitions := New(store)

	if _, err := transitions.RegisterProfile(ctx, RegisterInput{Address: "addr-a", Alias: "alice"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := transitions.RecordTime(ctx, 99); err != nil {
		t.Fatalf("record time: %v", err)
	}
	result, err := transitions.RegisterProfile(ctx, RegisterInput{Address: "addr-a", Alias: "alice2"})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if result.Alias != "alice2" {
		t.Fatalf("alias = %q, want %q", result.Alias, "alice2")
	}

	profile, found, err := state.LoadProfile(ctx, store, "addr-a")
	if err != nil || !found {
		t.Fatalf("load profile = found %v, err %v", found, err)
	}
	if profile.Alias != "alice2" {
		t.Fatalf("alias = %q, want %q", profile.Alias, "alice2")
	}
	if profile.Registered == nil || *profile.Registered != 99 {
		t.Fatalf("registered = %v, want 99", profile.Registered)
	}
}

func TestRegisterProfileRejectsBadAlias(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	transitions := New(store)

	_, err := transitions.RegisterProfile(ctx, RegisterInput{Address: "addr-a", Alias: ""})
	assertCode(t, err, platformerrors.CodeInvalidInput)
	if store.puts != 0 {
		t.Fatalf("rejected register issued %d writes", store.puts)
	}
}

func TestRecordTimeFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	transitions := New(store)

	first, err := transitions.RecordTime(ctx, 100)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if !first.Applied {
		t.Fatal("first timer entry should apply")
	}

	second, err := transitions.RecordTime(ctx, 200)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if second.Applied {
		t.Fatal("second timer entry should be frozen out")
	}

	value, err := state.LoadCurrentTime(ctx, store)
	if err != nil {
		t.Fatalf("load current time: %v", err)
	}
	if value == nil || *value != 100 {
		t.Fatalf("current time = %v, want 100", value)
	}
}

func TestRejectionsAreErrorsNotPanics(t *testing.T) {
	ctx := context.Background()
	transitions := New(newMemStore())

	_, err := transitions.Rate(ctx, RateInput{})
	if err == nil {
		t.Fatal("expected rejection")
	}
	var domainErr *platformerrors.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("rejection is not a coded error: %T", err)
	}
	if !domainErr.Code.IsRejection() {
		t.Fatalf("code %q should be a rejection", domainErr.Code)
	}
}
