package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/unifyevents/backend/internal/auth"
	"github.com/unifyevents/backend/internal/middleware"
	"github.com/unifyevents/backend/internal/model"
	"github.com/unifyevents/backend/internal/queue"
	"github.com/unifyevents/backend/internal/repository"
	queuepub "github.com/unifyevents/backend/internal/service"
	"github.com/unifyevents/backend/internal/storage"
)

// EventHandler implements the organiser-facing catalogue endpoints:
// events, their slots, details, participation constraints, and images.
type EventHandler struct {
	Events      *repository.EventRepo
	Slots       *repository.SlotRepo
	Details     *repository.DetailsRepo
	Constraints *repository.ConstraintRepo
	Store       *storage.Signer
}

func NewEventHandler(e *repository.EventRepo, s *repository.SlotRepo,
	d *repository.DetailsRepo, p *repository.ConstraintRepo, store *storage.Signer) *EventHandler {
	return &EventHandler{Events: e, Slots: s, Details: d, Constraints: p, Store: store}
}

// ----- DTOs -----

type eventReq struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	CategoryID    uint64 `json:"category_id"`
	ParentEventID uint64 `json:"parent_event_id"`
	StartsAt      string `json:"starts_at"` // RFC3339
	EndsAt        string `json:"ends_at"`   // RFC3339
	IsPublished   bool   `json:"is_published"`
}

type eventResp struct {
	ID            uint64    `json:"id"`
	OrganiserID   uint64    `json:"organiser_id"`
	CategoryID    uint64    `json:"category_id,omitempty"`
	ParentEventID uint64    `json:"parent_event_id,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	ImageKey      string    `json:"image_key,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	IsPublished   bool      `json:"is_published"`
}

type slotReq struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	Capacity uint32 `json:"capacity"`
}

type slotResp struct {
	ID       uint64    `json:"id"`
	EventID  uint64    `json:"event_id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Capacity uint32    `json:"capacity"`
}

func toEventResp(e model.Event) eventResp {
	return eventResp{
		ID:            e.ID,
		OrganiserID:   e.OrganiserID,
		CategoryID:    uint64(e.CategoryID.Int64),
		ParentEventID: uint64(e.ParentEventID.Int64),
		Name:          e.Name,
		Description:   e.Description.String,
		ImageKey:      e.ImageKey.String,
		StartsAt:      e.StartsAt,
		EndsAt:        e.EndsAt,
		IsPublished:   e.IsPublished,
	}
}

func toSlotResp(s model.EventSlot) slotResp {
	return slotResp{ID: s.ID, EventID: s.EventID, StartsAt: s.StartsAt, EndsAt: s.EndsAt, Capacity: s.Capacity}
}

// parseEventReq validates the request body into a model.Event with zero ID.
func parseEventReq(req eventReq, organiserID uint64) (model.Event, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return model.Event{}, "name required"
	}
	starts, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return model.Event{}, "starts_at must be RFC3339"
	}
	ends, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return model.Event{}, "ends_at must be RFC3339"
	}
	if !ends.After(starts) {
		return model.Event{}, "ends_at must be after starts_at"
	}
	e := model.Event{
		OrganiserID: organiserID,
		Name:        req.Name,
		StartsAt:    starts.UTC(),
		EndsAt:      ends.UTC(),
		IsPublished: req.IsPublished,
	}
	if req.Description != "" {
		e.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if req.CategoryID != 0 {
		e.CategoryID = sql.NullInt64{Int64: int64(req.CategoryID), Valid: true}
	}
	if req.ParentEventID != 0 {
		e.ParentEventID = sql.NullInt64{Int64: int64(req.ParentEventID), Valid: true}
	}
	return e, ""
}

// pathID parses a numeric :id style path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// audit fires a best-effort audit event; failures never affect the
// response.
func audit(ctx context.Context, sub auth.Subject, action, entityType string, entityID uint64, name string) {
	_ = queuepub.PublishAudit(ctx, queue.AuditEvent{
		Action:     action,
		ActorID:    sub.UserID,
		ActorRole:  sub.Role,
		EntityType: entityType,
		EntityID:   entityID,
		EntityName: name,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// repoErr maps shared repository sentinels onto HTTP responses; returns
// false when the error needs handler-specific treatment.
func repoErr(c echo.Context, err error) (error, bool) {
	switch err {
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"}), true
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"}), true
	case repository.ErrDuplicate:
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"}), true
	}
	return nil, false
}

// ----- events -----

// Create inserts a new event owned by the caller.
func (h *EventHandler) Create(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	e, msg := parseEventReq(req, sub.UserID)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Events.Create(ctx, e)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	e.ID = id
	audit(ctx, sub, "event.created", "event", id, e.Name)
	return c.JSON(http.StatusCreated, toEventResp(e))
}

// Mine lists all events owned by the caller, drafts included.
func (h *EventHandler) Mine(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.ListByOrganiser(ctx, sub.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, out)
}

// Update rewrites an event the caller owns. Admins may edit any event.
func (h *EventHandler) Update(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner, err := h.actingOwner(ctx, sub, eventID)
	if err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	e, msg := parseEventReq(req, owner)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	e.ID = eventID

	if err := h.Events.Update(ctx, owner, e); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}
	audit(ctx, sub, "event.updated", "event", eventID, e.Name)
	return c.JSON(http.StatusOK, toEventResp(e))
}

// Delete removes an event and its stored image object.
func (h *EventHandler) Delete(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner, err := h.actingOwner(ctx, sub, eventID)
	if err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	imageKey, err := h.Events.Delete(ctx, owner, eventID)
	if err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
	}
	if imageKey != "" {
		// Orphaned objects are tolerable; a failed removal only leaks
		// storage, never data, since the bucket stays private.
		if err := h.Store.Remove(ctx, imageKey); err != nil {
			c.Logger().Warnf("remove image %s: %v", imageKey, err)
		}
	}
	audit(ctx, sub, "event.deleted", "event", eventID, "")
	return c.NoContent(http.StatusNoContent)
}

// UploadImage stores a new event image and deletes the object it replaced.
func (h *EventHandler) UploadImage(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	owner, err := h.actingOwner(ctx, sub, eventID)
	if err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable upload"})
	}
	defer src.Close()

	key := storage.NewKey(file.Filename)
	contentType := file.Header.Get("Content-Type")
	if err := h.Store.Upload(ctx, key, src, file.Size, contentType); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store image failed"})
	}

	oldKey, err := h.Events.SetImageKey(ctx, owner, eventID, key)
	if err != nil {
		// DB refused the new key; clean up the object we just wrote.
		_ = h.Store.Remove(ctx, key)
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update image failed"})
	}
	if oldKey != "" && oldKey != key {
		if err := h.Store.Remove(ctx, oldKey); err != nil {
			c.Logger().Warnf("remove replaced image %s: %v", oldKey, err)
		}
	}
	audit(ctx, sub, "event.image.replaced", "event", eventID, key)
	return c.JSON(http.StatusOK, echo.Map{"image_key": key})
}

// ----- slots -----

// CreateSlot adds a slot to an event the caller owns.
func (h *EventHandler) CreateSlot(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req slotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	starts, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	ends, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil || !ends.After(starts) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC3339 after starts_at"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.actingOwner(ctx, sub, eventID); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	s := model.EventSlot{EventID: eventID, StartsAt: starts.UTC(), EndsAt: ends.UTC(), Capacity: req.Capacity}
	id, err := h.Slots.Create(ctx, s)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create slot failed"})
	}
	s.ID = id
	audit(ctx, sub, "slot.created", "slot", id, "")
	return c.JSON(http.StatusCreated, toSlotResp(s))
}

// DeleteSlot removes a slot after verifying the caller owns its event.
func (h *EventHandler) DeleteSlot(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	slotID, ok := pathID(c, "slot_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	eventID, err := h.Slots.EventOfSlot(ctx, slotID)
	if err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load slot failed"})
	}
	if _, err := h.actingOwner(ctx, sub, eventID); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if err := h.Slots.Delete(ctx, slotID); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete slot failed"})
	}
	audit(ctx, sub, "slot.deleted", "slot", slotID, "")
	return c.NoContent(http.StatusNoContent)
}

// actingOwner loads the event and resolves which organiser id the mutation
// acts as: organisers must own the event, admins act as the stored owner.
func (h *EventHandler) actingOwner(ctx context.Context, sub auth.Subject, eventID uint64) (uint64, error) {
	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if sub.Role != model.RoleAdmin && e.OrganiserID != sub.UserID {
		return 0, repository.ErrForbidden
	}
	return e.OrganiserID, nil
}
