package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"climate-server/internal/modules/climate/service"
	"climate-server/internal/modules/climate/types"
	"climate-server/internal/modules/climate/views"
	"climate-server/internal/utils"
)

// summaryResponse is the ?format=json body of the date routes.
type summaryResponse struct {
	Start string   `json:"start"`
	End   *string  `json:"end"`
	TMin  *float64 `json:"TMIN"`
	TAvg  *float64 `json:"TAVG"`
	TMax  *float64 `json:"TMAX"`
	Count int      `json:"count"`
}

func (c *climateControllerImpl) handleHome(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := views.RenderHome(&buf); err != nil {
		slog.Error("home template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	rows, err := c.service.Precipitation(r.Context())
	if err != nil {
		slog.Error("precipitation: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load precipitation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, rows)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		slog.Error("stations: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, flattenStations(stations))
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	obs, err := c.service.TemperatureObservations(r.Context())
	if errors.Is(err, service.ErrNoObservations) {
		utils.WriteErrorMessage(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("tobs: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature observations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, flattenObservations(obs.Observations))
}

func (c *climateControllerImpl) handleStart(w http.ResponseWriter, r *http.Request) {
	start := chi.URLParam(r, "start")
	summary, err := c.service.SummaryFrom(r.Context(), start)
	if err != nil {
		c.writeSummaryError(w, err, "start", start)
		return
	}
	c.writeSummary(w, r, summary)
}

func (c *climateControllerImpl) handleStartEnd(w http.ResponseWriter, r *http.Request) {
	start := chi.URLParam(r, "start")
	end := chi.URLParam(r, "end")
	summary, err := c.service.SummaryRange(r.Context(), start, end)
	if err != nil {
		c.writeSummaryError(w, err, "start", start, "end", end)
		return
	}
	c.writeSummary(w, r, summary)
}

func (c *climateControllerImpl) writeSummary(w http.ResponseWriter, r *http.Request, s types.TemperatureSummary) {
	if r.URL.Query().Get("format") == "json" {
		resp := summaryResponse{
			Start: s.Start,
			TMin:  s.Min,
			TAvg:  s.Avg,
			TMax:  s.Max,
			Count: s.Count,
		}
		if s.End != "" {
			end := s.End
			resp.End = &end
		}
		utils.WriteJSON(w, http.StatusOK, resp)
		return
	}

	var buf bytes.Buffer
	data := views.SummaryData{
		Start: s.Start,
		End:   s.End,
		Min:   formatAggregate(s.Min),
		Avg:   formatAggregate(s.Avg),
		Max:   formatAggregate(s.Max),
	}
	if err := views.RenderSummary(&buf, data); err != nil {
		slog.Error("summary template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render summary")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// writeSummaryError maps service errors of the date routes. Rejected and
// out-of-range dates are answered with 200 and a keyed error object.
func (c *climateControllerImpl) writeSummaryError(w http.ResponseWriter, err error, logArgs ...any) {
	var (
		notFound *service.NotFoundError
		invalid  *service.ValidationError
	)
	switch {
	case errors.Is(err, service.ErrDateOrder):
		utils.WriteJSON(w, http.StatusOK, map[string]string{"Date error": err.Error()})
	case errors.As(err, &invalid), errors.As(err, &notFound):
		utils.WriteJSON(w, http.StatusOK, map[string]string{"404 error": err.Error()})
	default:
		slog.Error("summary: query failed", append(logArgs, "error", err)...)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature summary")
	}
}

// flattenStations returns [station, name, station, name, ...].
func flattenStations(stations []types.Station) []string {
	out := make([]string, 0, 2*len(stations))
	for _, s := range stations {
		out = append(out, s.Station, s.Name)
	}
	return out
}

// flattenObservations returns [date, tobs, date, tobs, ...] with every
// temperature rendered as a string; a missing reading is null.
func flattenObservations(obs []types.Observation) []any {
	out := make([]any, 0, 2*len(obs))
	for _, o := range obs {
		var tobs any
		if o.Tobs != nil {
			tobs = formatFloat(*o.Tobs)
		}
		out = append(out, o.Date, tobs)
	}
	return out
}
