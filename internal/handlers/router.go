package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"barberbook/libs/runtime"
)

// NewRouter wires every route. Health endpoints bypass auth and rate limits
// so orchestration probes stay cheap.
func NewRouter(auth *AuthHandler, barbers *BarberHandler, bookings *BookingHandler, ready ...runtime.ReadyCheck) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/healthz", runtime.HealthHandler())
	router.HandlerFunc(http.MethodGet, "/readyz", runtime.ReadyHandler(ready...))

	router.POST("/api/v1/auth/register", auth.Register)
	router.POST("/api/v1/auth/login", auth.Login)
	router.GET("/api/v1/auth/me", auth.Me)

	router.GET("/api/v1/barbers", barbers.List)
	router.GET("/api/v1/barbers/:id", barbers.Get)
	router.GET("/api/v1/barbers/:id/services", barbers.ListServices)
	router.POST("/api/v1/barbers/:id/services", barbers.AddService)
	router.DELETE("/api/v1/barbers/:id/services/:serviceID", barbers.DeleteService)
	router.GET("/api/v1/barbers/:id/working-hours", barbers.GetWorkingHours)
	router.PUT("/api/v1/barbers/:id/working-hours", barbers.ReplaceWorkingHours)
	router.PUT("/api/v1/barbers/:id/profile", barbers.UpdateProfile)
	router.GET("/api/v1/barbers/:id/slots", bookings.Slots)

	router.POST("/api/v1/bookings", bookings.Create)
	router.GET("/api/v1/bookings", bookings.ListByBarber)
	router.GET("/api/v1/bookings/me", bookings.ListMine)
	router.POST("/api/v1/bookings/:id/cancel", bookings.Cancel)

	return router
}
