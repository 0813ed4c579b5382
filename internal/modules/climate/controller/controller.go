package controller

import (
	"github.com/go-chi/chi/v5"

	"climate-server/internal/modules/climate/service"
)

type ClimateController interface {
	RegisterRoutes(r chi.Router)
}

type climateControllerImpl struct {
	service *service.Service
}

func NewClimateController(service *service.Service) ClimateController {
	return &climateControllerImpl{service: service}
}

// Date params must be non-empty so that "//" paths fall through to the
// router's 404 handler.
func (c *climateControllerImpl) RegisterRoutes(r chi.Router) {
	r.Get("/", c.handleHome)
	r.Route("/api/v1.0", func(r chi.Router) {
		r.Get("/precipitation", c.handlePrecipitation)
		r.Get("/stations", c.handleStations)
		r.Get("/tobs", c.handleTobs)
		r.Get("/{start:[^/]+}", c.handleStart)
		r.Get("/{start:[^/]+}/{end:[^/]+}", c.handleStartEnd)
	})
}
