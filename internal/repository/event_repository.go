package repository

import (
	"context"
	"database/sql"

	"github.com/unifyevents/backend/internal/model"
)

// EventRepo provides data access to the events and parent_events tables.
// Ownership checks live here: mutations compare events.organiser_id against
// the caller and return ErrForbidden on mismatch so handlers can answer 403
// without a second query.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventCols = "id, organiser_id, category_id, parent_event_id, name, description, image_key, starts_at, ends_at, is_published, created_at, updated_at"

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.OrganiserID, &e.CategoryID, &e.ParentEventID,
		&e.Name, &e.Description, &e.ImageKey, &e.StartsAt, &e.EndsAt,
		&e.IsPublished, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Create inserts an event and returns its ID.
func (r *EventRepo) Create(ctx context.Context, e model.Event) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO events (organiser_id, category_id, parent_event_id, name, description, starts_at, ends_at, is_published) VALUES (?,?,?,?,?,?,?,?)",
		e.OrganiserID, e.CategoryID, e.ParentEventID, e.Name, e.Description, e.StartsAt, e.EndsAt, e.IsPublished)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one event.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.DB.QueryRowContext(ctx,
		"SELECT "+eventCols+" FROM events WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.Event{}, ErrNotFound
	}
	return e, err
}

// GetByImageKey resolves an object-storage key back to the event that owns
// it. Used by the signed-URL gateway to refuse keys that do not belong to
// any stored event image.
func (r *EventRepo) GetByImageKey(ctx context.Context, key string) (model.Event, error) {
	e, err := scanEvent(r.DB.QueryRowContext(ctx,
		"SELECT "+eventCols+" FROM events WHERE image_key=? LIMIT 1", key))
	if err == sql.ErrNoRows {
		return model.Event{}, ErrNotFound
	}
	return e, err
}

// ListPublished returns published events, optionally filtered by category
// or parent event (zero means no filter).
func (r *EventRepo) ListPublished(ctx context.Context, categoryID, parentID uint64) ([]model.Event, error) {
	q := "SELECT " + eventCols + " FROM events WHERE is_published=1"
	args := []any{}
	if categoryID != 0 {
		q += " AND category_id=?"
		args = append(args, categoryID)
	}
	if parentID != 0 {
		q += " AND parent_event_id=?"
		args = append(args, parentID)
	}
	q += " ORDER BY starts_at"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListByOrganiser returns all events (published or not) owned by one
// organiser.
func (r *EventRepo) ListByOrganiser(ctx context.Context, organiserID uint64) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+eventCols+" FROM events WHERE organiser_id=? ORDER BY starts_at", organiserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns of an event owned by organiserID.
func (r *EventRepo) Update(ctx context.Context, organiserID uint64, e model.Event) error {
	if err := r.checkOwner(ctx, e.ID, organiserID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE events SET category_id=?, parent_event_id=?, name=?, description=?, starts_at=?, ends_at=?, is_published=? WHERE id=?",
		e.CategoryID, e.ParentEventID, e.Name, e.Description, e.StartsAt, e.EndsAt, e.IsPublished, e.ID)
	return err
}

// SetImageKey stores the object key of the event image and returns the key
// it replaced (empty when none was set).
func (r *EventRepo) SetImageKey(ctx context.Context, organiserID, eventID uint64, key string) (string, error) {
	if err := r.checkOwner(ctx, eventID, organiserID); err != nil {
		return "", err
	}
	var old sql.NullString
	if err := r.DB.QueryRowContext(ctx,
		"SELECT image_key FROM events WHERE id=? LIMIT 1", eventID).Scan(&old); err != nil {
		return "", err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE events SET image_key=? WHERE id=?", key, eventID); err != nil {
		return "", err
	}
	return old.String, nil
}

// Delete removes an event owned by organiserID and returns its image key so
// the caller can delete the stored object as well.
func (r *EventRepo) Delete(ctx context.Context, organiserID, eventID uint64) (string, error) {
	if err := r.checkOwner(ctx, eventID, organiserID); err != nil {
		return "", err
	}
	var key sql.NullString
	if err := r.DB.QueryRowContext(ctx,
		"SELECT image_key FROM events WHERE id=? LIMIT 1", eventID).Scan(&key); err != nil {
		return "", err
	}
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM events WHERE id=?", eventID); err != nil {
		return "", err
	}
	return key.String, nil
}

// checkOwner verifies the event exists and belongs to organiserID. Admins
// bypass this in the handler layer by passing the stored organiser id.
func (r *EventRepo) checkOwner(ctx context.Context, eventID, organiserID uint64) error {
	var owner uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT organiser_id FROM events WHERE id=? LIMIT 1", eventID).Scan(&owner)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != organiserID {
		return ErrForbidden
	}
	return nil
}

// ----- parent events -----

// CreateParent inserts a parent event and returns its ID.
func (r *EventRepo) CreateParent(ctx context.Context, p model.ParentEvent) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO parent_events (organiser_id, name, description) VALUES (?,?,?)",
		p.OrganiserID, p.Name, p.Description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListParents returns all parent events.
func (r *EventRepo) ListParents(ctx context.Context) ([]model.ParentEvent, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, organiser_id, name, description, created_at FROM parent_events ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ParentEvent
	for rows.Next() {
		var p model.ParentEvent
		if err := rows.Scan(&p.ID, &p.OrganiserID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateParent rewrites a parent event owned by organiserID.
func (r *EventRepo) UpdateParent(ctx context.Context, organiserID uint64, p model.ParentEvent) error {
	var owner uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT organiser_id FROM parent_events WHERE id=? LIMIT 1", p.ID).Scan(&owner)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != organiserID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE parent_events SET name=?, description=? WHERE id=?",
		p.Name, p.Description, p.ID)
	return err
}

// DeleteParent removes a parent event owned by organiserID.
func (r *EventRepo) DeleteParent(ctx context.Context, organiserID, parentID uint64) error {
	var owner uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT organiser_id FROM parent_events WHERE id=? LIMIT 1", parentID).Scan(&owner)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != organiserID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM parent_events WHERE id=?", parentID)
	return err
}
