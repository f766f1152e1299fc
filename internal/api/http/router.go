package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/deskflow/internal/api/http/handlers"
	"github.com/spec-kit/deskflow/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Lookups        *handlers.LookupHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/stats", cfg.Health.Stats)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	lookups := app.Group("", cfg.AuthMiddleware.Handle)
	lookups.Get("/departments", cfg.Lookups.ListDepartments)
	lookups.Get("/categories", cfg.Lookups.ListCategories)
	lookups.Get("/cause-types", cfg.Lookups.ListCauseTypes)

	admin := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireHead())
	admin.Post("/departments", cfg.Lookups.CreateDepartment)
	admin.Post("/categories", cfg.Lookups.CreateCategory)
	admin.Post("/cause-types", cfg.Lookups.CreateCauseType)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/progress", cfg.Tickets.GetProgress)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/assignees", cfg.Tickets.AssignTicket)
	tickets.Delete("/:id/assignees/:employeeID", cfg.Tickets.UnassignEmployee)
	tickets.Post("/:id/heads", cfg.Tickets.AddHeads)
	tickets.Post("/:id/handle", cfg.Tickets.HandleTicket)
	tickets.Post("/:id/reject", cfg.Tickets.RejectTicket)
	tickets.Post("/:id/complete", cfg.Tickets.CompleteTicket)
}
