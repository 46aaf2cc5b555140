package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// RateLimitKey counts one caller's requests. Every API key of the same user
// shares the bucket.
func RateLimitKey(orgID uuid.UUID, username string) string {
	return fmt.Sprintf("venter:ratelimit:%s:%s", orgID, username)
}

// ArtifactLockKey guards the first classification of an artifact across
// processes.
func ArtifactLockKey(artifactID uuid.UUID) string {
	return fmt.Sprintf("venter:lock:artifact:%s", artifactID)
}

func StatisticsKey(artifactID uuid.UUID, domain string) string {
	return fmt.Sprintf("venter:stats:%s:%s", artifactID, domain)
}
