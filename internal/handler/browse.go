package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/unifyevents/backend/internal/repository"
)

// BrowseHandler exposes the read-only catalogue for guests and
// participants. Only published events are visible here; drafts stay with
// their organiser.
type BrowseHandler struct {
	Events      *repository.EventRepo
	Slots       *repository.SlotRepo
	Details     *repository.DetailsRepo
	Constraints *repository.ConstraintRepo
}

func NewBrowseHandler(e *repository.EventRepo, s *repository.SlotRepo,
	d *repository.DetailsRepo, p *repository.ConstraintRepo) *BrowseHandler {
	return &BrowseHandler{Events: e, Slots: s, Details: d, Constraints: p}
}

// ListEvents returns published events, optionally filtered with
// ?category_id= and ?parent_event_id=.
func (h *BrowseHandler) ListEvents(c echo.Context) error {
	categoryID, _ := strconv.ParseUint(c.QueryParam("category_id"), 10, 64)
	parentID, _ := strconv.ParseUint(c.QueryParam("parent_event_id"), 10, 64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.ListPublished(ctx, categoryID, parentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, out)
}

// GetEvent returns one published event by id.
func (h *BrowseHandler) GetEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil || !e.IsPublished {
		if err != nil && err != repository.ErrNotFound {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
		}
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusOK, toEventResp(e))
}

// publishedGate hides unpublished and missing events behind one 404. ok is
// false when the response has already been written.
func (h *BrowseHandler) publishedGate(ctx context.Context, c echo.Context, id uint64) (error, bool) {
	e, err := h.Events.GetByID(ctx, id)
	if err == nil && e.IsPublished {
		return nil, true
	}
	if err != nil && err != repository.ErrNotFound {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"}), false
	}
	return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"}), false
}

// ListParentEventEvents returns the published events grouped under one
// parent event.
func (h *BrowseHandler) ListParentEventEvents(c echo.Context) error {
	parentID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid parent event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.ListPublished(ctx, 0, parentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, out)
}

// GetEventDetails returns the details block of one published event.
func (h *BrowseHandler) GetEventDetails(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if resp, ok := h.publishedGate(ctx, c, id); !ok {
		return resp
	}
	d, err := h.Details.GetByEvent(ctx, id)
	if err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load details failed"})
	}
	return c.JSON(http.StatusOK, toDetailsResp(d))
}

// GetEventConstraint returns the participation constraint of one published
// event.
func (h *BrowseHandler) GetEventConstraint(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if resp, ok := h.publishedGate(ctx, c, id); !ok {
		return resp
	}
	p, err := h.Constraints.GetByEvent(ctx, id)
	if err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load constraint failed"})
	}
	return c.JSON(http.StatusOK, toConstraintResp(p))
}

// ListSlots returns the slots of one published event.
func (h *BrowseHandler) ListSlots(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if resp, ok := h.publishedGate(ctx, c, id); !ok {
		return resp
	}

	slots, err := h.Slots.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list slots failed"})
	}
	out := make([]slotResp, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResp(s))
	}
	return c.JSON(http.StatusOK, out)
}
