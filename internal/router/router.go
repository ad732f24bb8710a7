// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unifyevents/backend/internal/auth"
	"github.com/unifyevents/backend/internal/handler"
	"github.com/unifyevents/backend/internal/middleware"
	"github.com/unifyevents/backend/internal/model"
)

// RegisterRoutes registers the operational endpoints that carry no
// authentication: the load-balancer probe and the Prometheus scrape
// target.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the authentication endpoints. Register, login and
// refresh are necessarily unauthenticated; logout and me require a valid
// access cookie.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, svc *auth.Service) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	authed := e.Group("/v1/auth", middleware.CookieAuth(svc))
	authed.POST("/logout", a.Logout)
	authed.GET("/me", a.Me)
}

// RegisterBrowse registers the public catalogue. The cache middleware is
// applied here rather than globally so authenticated responses are never
// cached.
func RegisterBrowse(e *echo.Echo, b *handler.BrowseHandler, t *handler.TaxonomyHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/events", b.ListEvents)
	g.GET("/events/:id", b.GetEvent)
	g.GET("/events/:id/slots", b.ListSlots)
	g.GET("/events/:id/details", b.GetEventDetails)
	g.GET("/events/:id/constraint", b.GetEventConstraint)
	g.GET("/categories", t.ListCategories)
	g.GET("/parent-events", t.ListParentEvents)
	g.GET("/parent-events/:id/events", b.ListParentEventEvents)
}

// RegisterOrganiser registers catalogue mutations, restricted to
// organisers and admins.
func RegisterOrganiser(e *echo.Echo, ev *handler.EventHandler, t *handler.TaxonomyHandler, svc *auth.Service) {
	g := e.Group("/v1",
		middleware.CookieAuth(svc),
		middleware.RequireRole(model.RoleOrganiser, model.RoleAdmin),
	)
	g.POST("/events", ev.Create)
	g.GET("/organiser/events", ev.Mine)
	g.PUT("/events/:id", ev.Update)
	g.DELETE("/events/:id", ev.Delete)
	g.POST("/events/:id/image", ev.UploadImage)
	g.POST("/events/:id/slots", ev.CreateSlot)
	g.DELETE("/slots/:slot_id", ev.DeleteSlot)
	g.PUT("/events/:id/details", ev.UpsertDetails)
	g.DELETE("/events/:id/details", ev.DeleteDetails)
	g.PUT("/events/:id/constraint", ev.UpsertConstraint)
	g.DELETE("/events/:id/constraint", ev.DeleteConstraint)

	g.POST("/categories", t.CreateCategory)
	g.PUT("/categories/:id", t.UpdateCategory)
	g.DELETE("/categories/:id", t.DeleteCategory)
	g.POST("/parent-events", t.CreateParentEvent)
	g.PUT("/parent-events/:id", t.UpdateParentEvent)
	g.DELETE("/parent-events/:id", t.DeleteParentEvent)
}

// RegisterSecureImages registers the signed-URL gateway endpoint. Any
// authenticated role may view event images; the handler refuses keys that
// do not belong to a stored event.
func RegisterSecureImages(e *echo.Echo, img *handler.ImageHandler, svc *auth.Service) {
	g := e.Group("/v1/secure", middleware.CookieAuth(svc))
	g.GET("/event-image", img.SignedEventImage)
}
