// Package engine implements the derivation gate and status history recorder
// shared by every entity write path. Repositories derive a candidate status
// inside their own transaction and hand it to the gate; the gate decides
// whether the change is real, records it exactly once, and reports it back.
package engine

import (
	"time"

	"github.com/google/uuid"
)

// Transition describes one committed status change.
type Transition struct {
	EntityType string     `json:"entityType"`
	EntityID   uuid.UUID  `json:"entityId"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	ChangedAt  time.Time  `json:"changedAt"`
	ChangedBy  *uuid.UUID `json:"changedBy,omitempty"`
}

// System reports whether the transition was time-driven rather than caused
// by a user write.
func (t Transition) System() bool {
	return t.ChangedBy == nil
}
