package httpapi

import "github.com/gofiber/fiber/v3"

// RegisterRoutes wires the gateway's external HTTP surface onto app.
func RegisterRoutes(app *fiber.App, a *App) {
	app.Get("/auth/login", a.Login)
	app.Get("/auth/callback", a.Callback)
	app.Post("/auth/logout", a.Logout)
	app.Get("/auth/me", a.Me)
	app.Get("/api/forwardauth/:kind/:group", a.ForwardAuth)
}
