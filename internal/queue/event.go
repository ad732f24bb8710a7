// Package queue defines message payloads exchanged over the message broker.
package queue

// AuditEvent is published whenever an organiser mutates catalogue data
// (events, slots, categories, parent events, images). It carries enough
// context for the audit trail consumer to write a useful record without
// querying the primary database.
type AuditEvent struct {
	Action     string `json:"action"`      // e.g. "event.created", "event.image.replaced"
	ActorID    uint64 `json:"actor_id"`    // authenticated user performing the change
	ActorRole  string `json:"actor_role"`  // organiser or admin
	EntityType string `json:"entity_type"` // "event", "slot", "category", "parent_event"
	EntityID   uint64 `json:"entity_id"`
	EntityName string `json:"entity_name,omitempty"`
	OccurredAt string `json:"occurred_at"` // RFC3339 UTC
}
