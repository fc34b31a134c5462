package moderation

import (
	"fmt"
	"log"
	"time"

	"modguard/model"
)

// BanEntry is one moderation entry from the platform's audit trail, used to
// attribute bans that happened outside the bot.
type BanEntry struct {
	ActorID string
	Reason  string
}

// Platform abstracts the hosting chat platform. All calls are best-effort
// from the lifecycle's point of view: persisted state is authoritative and
// failed calls are retried a bounded number of times, then logged.
type Platform interface {
	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	Ban(guildID, userID, reason string) error
	Unban(guildID, userID string) error
	// CreateRole creates a role and returns its ID and position.
	CreateRole(guildID, name string) (string, int64, error)
	// FindBanEntry searches recent audit-trail ban entries for one targeting
	// userID. Returns model.ErrNotFound when retention or ordering lag hides
	// the entry.
	FindBanEntry(guildID, userID string, lookback int) (*BanEntry, error)
}

// withRetry runs fn up to attempts times with a linear backoff, logging each
// failure. Exhaustion yields model.ErrExternalUnavailable.
func withRetry(attempts int, backoff time.Duration, op string, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Printf("Platform call %s failed (attempt %d/%d): %v", op, attempt, attempts, err)
		if attempt < attempts {
			time.Sleep(time.Duration(attempt) * backoff)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %v: %w", op, attempts, err, model.ErrExternalUnavailable)
}
