// Package domain defines the unlock audit trail entities.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnlockEvent records one unlock attempt against a survey key. It carries
// identities, the path tried, and the outcome; never the secret, a KEK, or a
// DEK. Failed attempts are recorded with the same shape as successes so the
// trail supports abuse investigation.
type UnlockEvent struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	SurveyID  uuid.UUID
	Path      string
	Success   bool
	CreatedAt time.Time
}
