package redis

import "fmt"

const ns = "movieflex:v1"

func KeyScreeningSummary(screeningID int64) string {
	return fmt.Sprintf("%s:screening:%d:summary", ns, screeningID)
}

func KeyScreeningList() string {
	return ns + ":screenings:list"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelScreeningsChanged() string {
	return ns + ":screenings:changed"
}
