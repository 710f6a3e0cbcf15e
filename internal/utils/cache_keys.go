package utils

import "strconv"

// bump the version segment when the cached payload shape changes
func SubscriptionStatusCacheKey(userID string, gen int64) string {
	return "subscriptions:status:v1:user=" + userID + ":gen=" + strconv.FormatInt(gen, 10)
}

// SubscriptionStatusGenKey holds the per-user counter that retires every
// status entry written under an older generation.
func SubscriptionStatusGenKey(userID string) string {
	return "subscriptions:status:gen:user=" + userID
}
