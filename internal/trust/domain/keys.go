package domain

// State keys. The key shapes are part of the replicated contract: every
// replica must derive identical keys for identical records.
const (
	// PeersListKey holds the ordered list of every address ever rated.
	PeersListKey = "peers_list"
	// CurrentTimeKey holds the single network-agreed timestamp value.
	CurrentTimeKey = "currentTime"
)

// RatingKey returns the state key for the rating of ratee by rater.
func RatingKey(ratee, rater string) string {
	return "rating:" + ratee + ":" + rater
}

// ResponseKey returns the state key for ratee's response to rater's rating.
func ResponseKey(ratee, rater string) string {
	return "response:" + ratee + ":" + rater
}

// SummaryKey returns the state key for ratee's reputation summary.
func SummaryKey(ratee string) string {
	return "summary:" + ratee
}

// ProfileKey returns the state key for an address profile.
func ProfileKey(address string) string {
	return "profile:" + address
}
