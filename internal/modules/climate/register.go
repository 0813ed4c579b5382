package climate

import (
	"database/sql"

	"github.com/go-chi/chi/v5"

	"climate-server/internal/modules/climate/controller"
	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/modules/climate/service"
)

// RegisterFeature mounts the climate routes and returns the service so
// callers can reuse it outside HTTP.
func RegisterFeature(r chi.Router, db *sql.DB) *service.Service {
	climateRepository := repository.NewRepository(db)
	climateService := service.NewService(climateRepository)
	climateController := controller.NewClimateController(climateService)
	climateController.RegisterRoutes(r)
	return climateService
}
