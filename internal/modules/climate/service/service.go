package service

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/modules/climate/types"
)

const (
	dateLayout = "2006-01-02"
	// observationWindow is how far back from the latest date /tobs reaches.
	observationWindow = 365
)

type Service struct {
	repository repository.ClimateRepository
}

func NewService(repository repository.ClimateRepository) *Service {
	return &Service{repository: repository}
}

func (s *Service) Precipitation(ctx context.Context) ([]types.Precipitation, error) {
	var out []types.Precipitation
	err := s.repository.WithSession(ctx, func(sess repository.Session) error {
		var err error
		out, err = sess.GetPrecipitation(ctx)
		return err
	})
	return out, err
}

func (s *Service) Stations(ctx context.Context) ([]types.Station, error) {
	var out []types.Station
	err := s.repository.WithSession(ctx, func(sess repository.Session) error {
		var err error
		out, err = sess.GetStations(ctx)
		return err
	})
	return out, err
}

// TemperatureObservations returns the readings of the most active station
// from 365 days before the latest stored date onwards.
func (s *Service) TemperatureObservations(ctx context.Context) (types.TemperatureObservations, error) {
	var out types.TemperatureObservations
	err := s.repository.WithSession(ctx, func(sess repository.Session) error {
		latest, ok, err := sess.GetLatestDate(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoObservations
		}

		from, err := windowStart(latest)
		if err != nil {
			return err
		}

		station, ok, err := sess.GetMostActiveStation(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoObservations
		}

		obs, err := sess.GetStationObservations(ctx, station.Station, from)
		if err != nil {
			return err
		}

		out = types.TemperatureObservations{
			Station:      station.Station,
			From:         from,
			Through:      latest,
			Observations: obs,
		}
		return nil
	})
	return out, err
}

// SummaryFrom aggregates tobs for every date on or after start.
func (s *Service) SummaryFrom(ctx context.Context, start string) (types.TemperatureSummary, error) {
	if isAlphabetic(start) {
		return types.TemperatureSummary{}, ErrInvalidDate
	}

	var out types.TemperatureSummary
	err := s.repository.WithSession(ctx, func(sess repository.Session) error {
		bounds, err := sess.GetDateBounds(ctx)
		if err != nil {
			return err
		}
		if !bounds.Contains(start) {
			return startNotFound(start)
		}
		out, err = sess.GetSummaryFrom(ctx, start)
		return err
	})
	return out, err
}

// SummaryRange aggregates tobs for dates in [start, end]. end must sort
// after start; this is checked before touching the database.
func (s *Service) SummaryRange(ctx context.Context, start string, end string) (types.TemperatureSummary, error) {
	if end <= start {
		return types.TemperatureSummary{}, ErrDateOrder
	}

	var out types.TemperatureSummary
	err := s.repository.WithSession(ctx, func(sess repository.Session) error {
		bounds, err := sess.GetDateBounds(ctx)
		if err != nil {
			return err
		}
		if !bounds.Contains(start) || !bounds.Contains(end) {
			return rangeNotFound(start, end)
		}
		out, err = sess.GetSummaryRange(ctx, start, end)
		return err
	})
	return out, err
}

// DatasetSummary reports table sizes, the stored date range and the most
// active station. Date and station fields are empty for an empty dataset.
func (s *Service) DatasetSummary(ctx context.Context) (types.DatasetSummary, error) {
	var out types.DatasetSummary
	err := s.repository.WithSession(ctx, func(sess repository.Session) error {
		stations, observations, err := sess.GetDatasetCounts(ctx)
		if err != nil {
			return err
		}
		out.Stations = stations
		out.Observations = observations

		bounds, err := sess.GetDateBounds(ctx)
		if err != nil {
			return err
		}
		if !bounds.Empty {
			out.FirstDate = bounds.First
			out.LastDate = bounds.Last
		}

		active, ok, err := sess.GetMostActiveStation(ctx)
		if err != nil {
			return err
		}
		if ok {
			out.MostActiveStation = active.Station
		}
		return nil
	})
	return out, err
}

func windowStart(latest string) (string, error) {
	t, err := time.Parse(dateLayout, latest)
	if err != nil {
		return "", fmt.Errorf("parse latest date %q: %w", latest, err)
	}
	return t.AddDate(0, 0, -observationWindow).Format(dateLayout), nil
}

// isAlphabetic reports whether s is non-empty and made only of letters.
// This is the only format check applied to start dates.
func isAlphabetic(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
