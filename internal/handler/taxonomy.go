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
	"github.com/unifyevents/backend/internal/repository"
)

// TaxonomyHandler covers the grouping structures events hang off of:
// categories and parent events.
type TaxonomyHandler struct {
	Categories *repository.CategoryRepo
	Events     *repository.EventRepo
}

func NewTaxonomyHandler(c *repository.CategoryRepo, e *repository.EventRepo) *TaxonomyHandler {
	return &TaxonomyHandler{Categories: c, Events: e}
}

type categoryReq struct {
	Name string `json:"name"`
}
type categoryResp struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type parentEventReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
type parentEventResp struct {
	ID          uint64 `json:"id"`
	OrganiserID uint64 `json:"organiser_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListCategories is public and cached.
func (h *TaxonomyHandler) ListCategories(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cats, err := h.Categories.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list categories failed"})
	}
	out := make([]categoryResp, 0, len(cats))
	for _, cat := range cats {
		out = append(out, categoryResp{ID: cat.ID, Name: cat.Name})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateCategory is organiser/admin only.
func (h *TaxonomyHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Categories.Create(ctx, req.Name)
	if err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create category failed"})
	}
	if sub, ok := middleware.SubjectFrom(c); ok {
		audit(ctx, sub, "category.created", "category", id, req.Name)
	}
	return c.JSON(http.StatusCreated, categoryResp{ID: id, Name: req.Name})
}

// UpdateCategory renames a category, organiser/admin only.
func (h *TaxonomyHandler) UpdateCategory(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Categories.Update(ctx, id, req.Name); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update category failed"})
	}
	if sub, ok := middleware.SubjectFrom(c); ok {
		audit(ctx, sub, "category.updated", "category", id, req.Name)
	}
	return c.JSON(http.StatusOK, categoryResp{ID: id, Name: req.Name})
}

// DeleteCategory is organiser/admin only. Categories still referenced by
// events refuse deletion at the FK and surface as a conflict.
func (h *TaxonomyHandler) DeleteCategory(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Categories.Delete(ctx, id); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		// MySQL 1451: row is referenced by a foreign key
		if strings.Contains(err.Error(), "1451") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "category in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete category failed"})
	}
	if sub, ok := middleware.SubjectFrom(c); ok {
		audit(ctx, sub, "category.deleted", "category", id, "")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListParentEvents is public and cached.
func (h *TaxonomyHandler) ListParentEvents(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	parents, err := h.Events.ListParents(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list parent events failed"})
	}
	out := make([]parentEventResp, 0, len(parents))
	for _, p := range parents {
		out = append(out, parentEventResp{
			ID:          p.ID,
			OrganiserID: p.OrganiserID,
			Name:        p.Name,
			Description: p.Description.String,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateParentEvent is organiser/admin only.
func (h *TaxonomyHandler) CreateParentEvent(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	var req parentEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	p := model.ParentEvent{OrganiserID: sub.UserID, Name: req.Name}
	if req.Description != "" {
		p.Description = sql.NullString{String: req.Description, Valid: true}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Events.CreateParent(ctx, p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create parent event failed"})
	}
	audit(ctx, sub, "parent_event.created", "parent_event", id, req.Name)
	return c.JSON(http.StatusCreated, parentEventResp{
		ID:          id,
		OrganiserID: sub.UserID,
		Name:        req.Name,
		Description: req.Description,
	})
}

// UpdateParentEvent rewrites a parent event the caller owns.
func (h *TaxonomyHandler) UpdateParentEvent(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid parent event id"})
	}
	var req parentEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	p := model.ParentEvent{ID: id, Name: req.Name}
	if req.Description != "" {
		p.Description = sql.NullString{String: req.Description, Valid: true}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.UpdateParent(ctx, sub.UserID, p); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update parent event failed"})
	}
	audit(ctx, sub, "parent_event.updated", "parent_event", id, req.Name)
	return c.JSON(http.StatusOK, parentEventResp{
		ID:          id,
		OrganiserID: sub.UserID,
		Name:        req.Name,
		Description: req.Description,
	})
}

// DeleteParentEvent removes a parent event the caller owns.
func (h *TaxonomyHandler) DeleteParentEvent(c echo.Context) error {
	sub, _ := middleware.SubjectFrom(c)
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid parent event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.DeleteParent(ctx, sub.UserID, id); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		if strings.Contains(err.Error(), "1451") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "parent event in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete parent event failed"})
	}
	audit(ctx, sub, "parent_event.deleted", "parent_event", id, "")
	return c.NoContent(http.StatusNoContent)
}
