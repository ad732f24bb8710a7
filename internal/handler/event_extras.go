package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/unifyevents/backend/internal/middleware"
	"github.com/unifyevents/backend/internal/model"
)

// Extended per-event information: the details block (venue, long
// description, display schedule) and the participation constraint
// (how many participants one booking may cover). Both are one-per-event
// upserts owned by the event's organiser.

type detailsReq struct {
	Venue       string `json:"venue"`
	Description string `json:"description"`
	StartsAt    string `json:"starts_at"` // RFC3339, optional
	EndsAt      string `json:"ends_at"`   // RFC3339, optional
}

type detailsResp struct {
	EventID     uint64     `json:"event_id"`
	Venue       string     `json:"venue"`
	Description string     `json:"description,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
}

type constraintReq struct {
	BookingType string `json:"booking_type"` // single | multiple
	Fixed       bool   `json:"fixed"`
	LowerLimit  uint64 `json:"lower_limit"`
	UpperLimit  uint64 `json:"upper_limit"`
}

type constraintResp struct {
	EventID     uint64  `json:"event_id"`
	BookingType string  `json:"booking_type"`
	Fixed       bool    `json:"fixed"`
	LowerLimit  *uint64 `json:"lower_limit"`
	UpperLimit  *uint64 `json:"upper_limit"`
}

func toDetailsResp(d model.EventDetails) detailsResp {
	out := detailsResp{EventID: d.EventID, Venue: d.Venue, Description: d.Description.String}
	if d.StartsAt.Valid {
		t := d.StartsAt.Time
		out.StartsAt = &t
	}
	if d.EndsAt.Valid {
		t := d.EndsAt.Time
		out.EndsAt = &t
	}
	return out
}

func toConstraintResp(p model.ParticipationConstraint) constraintResp {
	out := constraintResp{EventID: p.EventID, BookingType: p.BookingType, Fixed: p.FixedSize}
	if p.LowerLimit.Valid {
		v := uint64(p.LowerLimit.Int64)
		out.LowerLimit = &v
	}
	if p.UpperLimit.Valid {
		v := uint64(p.UpperLimit.Int64)
		out.UpperLimit = &v
	}
	return out
}

// parseConstraintReq validates the limit rules per booking type: single
// bookings carry no limits, fixed-size multiples carry only an upper
// limit, ranged multiples carry a lower..upper range.
func parseConstraintReq(req constraintReq, eventID uint64) (model.ParticipationConstraint, string) {
	bt := strings.ToLower(strings.TrimSpace(req.BookingType))
	if !model.ValidBookingType(bt) {
		return model.ParticipationConstraint{}, "booking_type must be single or multiple"
	}
	p := model.ParticipationConstraint{EventID: eventID, BookingType: bt}
	if bt == model.BookingSingle {
		return p, ""
	}
	p.FixedSize = req.Fixed
	if req.UpperLimit == 0 {
		return model.ParticipationConstraint{}, "upper_limit required"
	}
	p.UpperLimit = sql.NullInt64{Int64: int64(req.UpperLimit), Valid: true}
	if !req.Fixed {
		if req.LowerLimit == 0 || req.LowerLimit > req.UpperLimit {
			return model.ParticipationConstraint{}, "lower_limit must be between 1 and upper_limit"
		}
		p.LowerLimit = sql.NullInt64{Int64: int64(req.LowerLimit), Valid: true}
	}
	return p, ""
}

// UpsertDetails creates or replaces the details block of an event the
// caller owns.
func (h *EventHandler) UpsertDetails(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req detailsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Venue = strings.TrimSpace(req.Venue)
	if req.Venue == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue required"})
	}

	d := model.EventDetails{EventID: eventID, Venue: req.Venue}
	if req.Description != "" {
		d.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if req.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
		}
		d.StartsAt = sql.NullTime{Time: t.UTC(), Valid: true}
	}
	if req.EndsAt != "" {
		t, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC3339"})
		}
		if d.StartsAt.Valid && !t.After(d.StartsAt.Time) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
		}
		d.EndsAt = sql.NullTime{Time: t.UTC(), Valid: true}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.actingOwner(ctx, sub, eventID); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if err := h.Details.Upsert(ctx, d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save details failed"})
	}
	audit(ctx, sub, "event.details.updated", "event", eventID, req.Venue)
	return c.JSON(http.StatusOK, toDetailsResp(d))
}

// DeleteDetails removes the details block of an event the caller owns.
func (h *EventHandler) DeleteDetails(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.actingOwner(ctx, sub, eventID); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if err := h.Details.Delete(ctx, eventID); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete details failed"})
	}
	audit(ctx, sub, "event.details.deleted", "event", eventID, "")
	return c.NoContent(http.StatusNoContent)
}

// UpsertConstraint creates or replaces the participation constraint of an
// event the caller owns.
func (h *EventHandler) UpsertConstraint(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req constraintReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p, msg := parseConstraintReq(req, eventID)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.actingOwner(ctx, sub, eventID); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if err := h.Constraints.Upsert(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save constraint failed"})
	}
	audit(ctx, sub, "event.constraint.updated", "event", eventID, p.BookingType)
	return c.JSON(http.StatusOK, toConstraintResp(p))
}

// DeleteConstraint removes the participation constraint of an event the
// caller owns.
func (h *EventHandler) DeleteConstraint(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.actingOwner(ctx, sub, eventID); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if err := h.Constraints.Delete(ctx, eventID); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete constraint failed"})
	}
	audit(ctx, sub, "event.constraint.deleted", "event", eventID, "")
	return c.NoContent(http.StatusNoContent)
}
