package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the public catalog and compatibility endpoints.
func RegisterRoutes(app *fiber.App, h *Handler) {
	api := app.Group("/api")

	api.Get("/categories", h.ListCategories)
	api.Get("/categories/:slug/fields", h.CategoryFields)
	api.Get("/parts", h.ListParts)
	api.Get("/parts/all", h.ListParts)
	api.Get("/parts/:id", h.GetPart)

	api.Post("/compatibility/check", h.Check)
}
