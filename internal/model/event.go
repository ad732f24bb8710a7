package model

import (
	"database/sql"
	"time"
)

// Category mirrors the `categories` table.
type Category struct {
	ID   uint64
	Name string
}

// ParentEvent mirrors the `parent_events` table. A parent event groups a
// series of events (e.g. a festival with many sessions) under one
// organiser.
type ParentEvent struct {
	ID          uint64
	OrganiserID uint64
	Name        string
	Description sql.NullString
	CreatedAt   time.Time
}

// Event mirrors the `events` table. ImageKey holds the object-storage key
// of the event image; the object itself lives in a private bucket and is
// only ever served through presigned URLs.
type Event struct {
	ID            uint64
	OrganiserID   uint64
	CategoryID    sql.NullInt64
	ParentEventID sql.NullInt64
	Name          string
	Description   sql.NullString
	ImageKey      sql.NullString
	StartsAt      time.Time
	EndsAt        time.Time
	IsPublished   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EventSlot mirrors the `event_slots` table. Capacity is informational
// here; enforcement belongs to the booking flow which this service does
// not implement.
type EventSlot struct {
	ID       uint64
	EventID  uint64
	StartsAt time.Time
	EndsAt   time.Time
	Capacity uint32
}

// EventDetails mirrors the `event_details` table: the long-form venue and
// schedule text shown on an event page. At most one row per event.
type EventDetails struct {
	ID          uint64
	EventID     uint64
	Venue       string
	Description sql.NullString
	StartsAt    sql.NullTime
	EndsAt      sql.NullTime
}

// Booking types stored in participation_constraints.booking_type.
const (
	BookingSingle   = "single"
	BookingMultiple = "multiple"
)

// ValidBookingType reports whether s is a known booking type.
func ValidBookingType(s string) bool {
	return s == BookingSingle || s == BookingMultiple
}

// ParticipationConstraint mirrors the `participation_constraints` table.
// It bounds how many participants one booking of the event may cover:
// "single" admits exactly one, "multiple" with FixedSize admits exactly
// UpperLimit, and "multiple" without admits LowerLimit..UpperLimit. At
// most one row per event.
type ParticipationConstraint struct {
	ID          uint64
	EventID     uint64
	BookingType string
	FixedSize   bool
	LowerLimit  sql.NullInt64
	UpperLimit  sql.NullInt64
}
