// Package state reads and writes typed ledger records over the raw
// key-value store. All records are JSON-encoded; struct field order keeps
// the encoding identical across replicas.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/intercomtrust/trustledger/internal/storage"
	"github.com/intercomtrust/trustledger/internal/trust/domain"
)

// Writer persists encoded records. Satisfied by storage.Store.
type Writer interface {
	Put(ctx context.Context, key string, value []byte) error
}

// LoadRating reads the rating of ratee by rater. The second return reports
// whether the record exists.
func LoadRating(ctx context.Context, r storage.Reader, ratee, rater string) (domain.Rating, bool, error) {
	var rating domain.Rating
	found, err := load(ctx, r, domain.RatingKey(ratee, rater), &rating)
	return rating, found, err
}

// SaveRating persists the rating of ratee by rater.
func SaveRating(ctx context.Context, w Writer, ratee, rater string, rating domain.Rating) error {
	return save(ctx, w, domain.RatingKey(ratee, rater), rating)
}

// LoadResponse reads ratee's response to rater's rating.
func LoadResponse(ctx context.Context, r storage.Reader, ratee, rater string) (domain.Response, bool, error) {
	var response domain.Response
	found, err := load(ctx, r, domain.ResponseKey(ratee, rater), &response)
	return response, found, err
}

// SaveResponse persists ratee's response to rater's rating.
func SaveResponse(ctx context.Context, w Writer, ratee, rater string, response domain.Response) error {
	return save(ctx, w, domain.ResponseKey(ratee, rater), response)
}

// LoadSummary reads the reputation summary for ratee.
func LoadSummary(ctx context.Context, r storage.Reader, ratee string) (domain.Summary, bool, error) {
	var summary domain.Summary
	found, err := load(ctx, r, domain.SummaryKey(ratee), &summary)
	return summary, found, err
}

// SaveSummary persists the reputation summary for ratee.
func SaveSummary(ctx context.Context, w Writer, ratee string, summary domain.Summary) error {
	return save(ctx, w, domain.SummaryKey(ratee), summary)
}

// LoadProfile reads the profile registered for address.
func LoadProfile(ctx context.Context, r storage.Reader, address string) (domain.Profile, bool, error) {
	var profile domain.Profile
	found, err := load(ctx, r, domain.ProfileKey(address), &profile)
	return profile, found, err
}

// SaveProfile persists the profile registered for address.
func SaveProfile(ctx context.Context, w Writer, address string, profile domain.Profile) error {
	return save(ctx, w, domain.ProfileKey(address), profile)
}

// LoadPeers reads the global list of every address ever rated. An absent
// record yields an empty list.
func LoadPeers(ctx context.Context, r storage.Reader) (domain.AddressList, error) {
	var peers domain.AddressList
	found, err := load(ctx, r, domain.PeersListKey, &peers)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.AddressList{}, nil
	}
	return peers, nil
}

// SavePeers persists the global peers list.
func SavePeers(ctx context.Context, w Writer, peers domain.AddressList) error {
	return save(ctx, w, domain.PeersListKey, peers)
}

// LoadCurrentTime reads the network-agreed timestamp, or nil when the clock
// has not been set.
func LoadCurrentTime(ctx context.Context, r storage.Reader) (*int64, error) {
	var value int64
	found, err := load(ctx, r, domain.CurrentTimeKey, &value)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &value, nil
}

// SaveCurrentTime persists the network-agreed timestamp.
func SaveCurrentTime(ctx context.Context, w Writer, value int64) error {
	return save(ctx, w, domain.CurrentTimeKey, value)
}

func load(ctx context.Context, r storage.Reader, key string, target any) (bool, error) {
	payload, err := r.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func save(ctx context.Context, w Writer, key string, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := w.Put(ctx, key, payload); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
