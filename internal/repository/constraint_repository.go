package repository

import (
	"context"
	"database/sql"

	"github.com/unifyevents/backend/internal/model"
)

// ConstraintRepo provides data access to the participation_constraints
// table. Each event carries at most one constraint; the unique key on
// event_id makes the write an upsert.
type ConstraintRepo struct{ DB *sql.DB }

func NewConstraintRepo(db *sql.DB) *ConstraintRepo { return &ConstraintRepo{DB: db} }

// Upsert inserts or replaces the participation constraint of an event.
func (r *ConstraintRepo) Upsert(ctx context.Context, p model.ParticipationConstraint) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO participation_constraints (event_id, booking_type, fixed_size, lower_limit, upper_limit)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE booking_type=VALUES(booking_type), fixed_size=VALUES(fixed_size),
		 lower_limit=VALUES(lower_limit), upper_limit=VALUES(upper_limit)`,
		p.EventID, p.BookingType, p.FixedSize, p.LowerLimit, p.UpperLimit)
	return err
}

// GetByEvent returns the constraint of one event.
func (r *ConstraintRepo) GetByEvent(ctx context.Context, eventID uint64) (model.ParticipationConstraint, error) {
	var p model.ParticipationConstraint
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, event_id, booking_type, fixed_size, lower_limit, upper_limit FROM participation_constraints WHERE event_id=? LIMIT 1",
		eventID).Scan(&p.ID, &p.EventID, &p.BookingType, &p.FixedSize, &p.LowerLimit, &p.UpperLimit)
	if err == sql.ErrNoRows {
		return model.ParticipationConstraint{}, ErrNotFound
	}
	return p, err
}

// Delete removes the constraint of one event.
func (r *ConstraintRepo) Delete(ctx context.Context, eventID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM participation_constraints WHERE event_id=?", eventID)
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
