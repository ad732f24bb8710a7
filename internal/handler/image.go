package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/unifyevents/backend/internal/repository"
	"github.com/unifyevents/backend/internal/storage"
)

// ImageHandler is the signed-URL gateway surface. The bucket is private;
// this endpoint trades an authenticated request for a short-lived URL the
// browser then fetches directly from the store, keeping image bytes off
// the application server.
type ImageHandler struct {
	Events *repository.EventRepo
	Store  *storage.Signer
}

func NewImageHandler(e *repository.EventRepo, s *storage.Signer) *ImageHandler {
	return &ImageHandler{Events: e, Store: s}
}

// SignedEventImage returns {url, expires_in} for an event image key passed
// as ?key=. The route requires an authenticated subject, and the key must
// be the stored image key of an existing event; anything else is a 404, so
// the gateway cannot be used to probe arbitrary bucket contents.
func (h *ImageHandler) SignedEventImage(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "key required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Events.GetByImageKey(ctx, key); err != nil {
		if resp, handled := repoErr(c, err); handled {
			return resp
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	u, err := h.Store.SignGet(ctx, key, 0) // 0 = configured default TTL
	if err != nil {
		c.Logger().Errorf("sign %s: %v", key, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signing failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"url":        u.String(),
		"expires_in": int(h.Store.DefaultTTL() / time.Second),
	})
}
