package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func SummaryStatusKey(summaryID uuid.UUID) string {
	return fmt.Sprintf("summary:status:%s", summaryID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func SummaryEventsChannel(summaryID uuid.UUID) string {
	return fmt.Sprintf("summary:events:%s", summaryID)
}
