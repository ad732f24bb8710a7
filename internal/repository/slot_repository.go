package repository

import (
	"context"
	"database/sql"

	"github.com/unifyevents/backend/internal/model"
)

type SlotRepo struct{ DB *sql.DB }

func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{DB: db} }

// Create inserts a slot for an event and returns its ID. The caller is
// responsible for the event ownership check.
func (r *SlotRepo) Create(ctx context.Context, s model.EventSlot) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO event_slots (event_id, starts_at, ends_at, capacity) VALUES (?,?,?,?)",
		s.EventID, s.StartsAt, s.EndsAt, s.Capacity)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByEvent returns all slots of one event ordered by start time.
func (r *SlotRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.EventSlot, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, event_id, starts_at, ends_at, capacity FROM event_slots WHERE event_id=? ORDER BY starts_at",
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventSlot
	for rows.Next() {
		var s model.EventSlot
		if err := rows.Scan(&s.ID, &s.EventID, &s.StartsAt, &s.EndsAt, &s.Capacity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a slot; the event ownership check is the caller's.
func (r *SlotRepo) Delete(ctx context.Context, slotID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM event_slots WHERE id=?", slotID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EventOfSlot returns the event id a slot belongs to.
func (r *SlotRepo) EventOfSlot(ctx context.Context, slotID uint64) (uint64, error) {
	var eventID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT event_id FROM event_slots WHERE id=? LIMIT 1", slotID).Scan(&eventID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return eventID, err
}
