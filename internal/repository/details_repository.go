package repository

import (
	"context"
	"database/sql"

	"github.com/unifyevents/backend/internal/model"
)

// DetailsRepo provides data access to the event_details table. Each event
// carries at most one details row; the unique key on event_id makes the
// write an upsert.
type DetailsRepo struct{ DB *sql.DB }

func NewDetailsRepo(db *sql.DB) *DetailsRepo { return &DetailsRepo{DB: db} }

// Upsert inserts or replaces the details row of an event.
func (r *DetailsRepo) Upsert(ctx context.Context, d model.EventDetails) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO event_details (event_id, venue, description, starts_at, ends_at)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE venue=VALUES(venue), description=VALUES(description),
		 starts_at=VALUES(starts_at), ends_at=VALUES(ends_at)`,
		d.EventID, d.Venue, d.Description, d.StartsAt, d.EndsAt)
	return err
}

// GetByEvent returns the details row of one event.
func (r *DetailsRepo) GetByEvent(ctx context.Context, eventID uint64) (model.EventDetails, error) {
	var d model.EventDetails
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, event_id, venue, description, starts_at, ends_at FROM event_details WHERE event_id=? LIMIT 1",
		eventID).Scan(&d.ID, &d.EventID, &d.Venue, &d.Description, &d.StartsAt, &d.EndsAt)
	if err == sql.ErrNoRows {
		return model.EventDetails{}, ErrNotFound
	}
	return d, err
}

// Delete removes the details row of one event.
func (r *DetailsRepo) Delete(ctx context.Context, eventID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM event_details WHERE event_id=?", eventID)
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
