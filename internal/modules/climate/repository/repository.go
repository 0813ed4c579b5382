package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"climate-server/internal/modules/climate/types"
)

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-latest-date.sql
var getLatestDateSQL string

//go:embed sql/get-date-bounds.sql
var getDateBoundsSQL string

//go:embed sql/get-most-active-station.sql
var getMostActiveStationSQL string

//go:embed sql/get-station-observations.sql
var getStationObservationsSQL string

//go:embed sql/get-summary-from.sql
var getSummaryFromSQL string

//go:embed sql/get-summary-range.sql
var getSummaryRangeSQL string

//go:embed sql/get-dataset-counts.sql
var getDatasetCountsSQL string

// Session is the set of read queries available on one pooled connection.
type Session interface {
	GetPrecipitation(ctx context.Context) ([]types.Precipitation, error)
	GetStations(ctx context.Context) ([]types.Station, error)
	// GetLatestDate returns ok=false when there are no measurements.
	GetLatestDate(ctx context.Context) (date string, ok bool, err error)
	GetDateBounds(ctx context.Context) (types.DateBounds, error)
	// GetMostActiveStation returns ok=false when there are no measurements.
	GetMostActiveStation(ctx context.Context) (activity types.StationActivity, ok bool, err error)
	GetStationObservations(ctx context.Context, station string, from string) ([]types.Observation, error)
	GetSummaryFrom(ctx context.Context, start string) (types.TemperatureSummary, error)
	GetSummaryRange(ctx context.Context, start string, end string) (types.TemperatureSummary, error)
	GetDatasetCounts(ctx context.Context) (stations int, observations int, err error)
}

type ClimateRepository interface {
	// WithSession checks a connection out of the pool, runs fn on it and
	// returns the connection before it returns.
	WithSession(ctx context.Context, fn func(Session) error) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ClimateRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithSession(ctx context.Context, fn func(Session) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Error("release connection", "error", err)
		}
	}()
	return fn(&session{q: conn})
}

// queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type session struct {
	q queryer
}

func (s *session) GetPrecipitation(ctx context.Context) ([]types.Precipitation, error) {
	rows, err := s.q.QueryContext(ctx, getPrecipitationSQL)
	if err != nil {
		return nil, fmt.Errorf("query precipitation: %w", err)
	}
	defer closeRows(rows, "precipitation")

	out := []types.Precipitation{}
	for rows.Next() {
		var (
			p    types.Precipitation
			prcp sql.NullFloat64
		)
		if err := rows.Scan(&p.Date, &prcp); err != nil {
			return nil, fmt.Errorf("scan precipitation: %w", err)
		}
		p.Prcp = nullableFloat(prcp)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *session) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := s.q.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer closeRows(rows, "stations")

	out := []types.Station{}
	for rows.Next() {
		var st types.Station
		if err := rows.Scan(&st.Station, &st.Name); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *session) GetLatestDate(ctx context.Context) (string, bool, error) {
	var date string
	err := s.q.QueryRowContext(ctx, getLatestDateSQL).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query latest date: %w", err)
	}
	return date, true, nil
}

func (s *session) GetDateBounds(ctx context.Context) (types.DateBounds, error) {
	var first, last sql.NullString
	if err := s.q.QueryRowContext(ctx, getDateBoundsSQL).Scan(&first, &last); err != nil {
		return types.DateBounds{}, fmt.Errorf("query date bounds: %w", err)
	}
	if !first.Valid || !last.Valid {
		return types.DateBounds{Empty: true}, nil
	}
	return types.DateBounds{First: first.String, Last: last.String}, nil
}

func (s *session) GetMostActiveStation(ctx context.Context) (types.StationActivity, bool, error) {
	var a types.StationActivity
	err := s.q.QueryRowContext(ctx, getMostActiveStationSQL).Scan(&a.Station, &a.Observations)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StationActivity{}, false, nil
	}
	if err != nil {
		return types.StationActivity{}, false, fmt.Errorf("query most active station: %w", err)
	}
	return a, true, nil
}

func (s *session) GetStationObservations(ctx context.Context, station string, from string) ([]types.Observation, error) {
	rows, err := s.q.QueryContext(ctx, getStationObservationsSQL, station, from)
	if err != nil {
		return nil, fmt.Errorf("query observations for %s: %w", station, err)
	}
	defer closeRows(rows, "observations")

	out := []types.Observation{}
	for rows.Next() {
		var (
			o    types.Observation
			tobs sql.NullFloat64
		)
		if err := rows.Scan(&o.Date, &tobs); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Tobs = nullableFloat(tobs)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *session) GetSummaryFrom(ctx context.Context, start string) (types.TemperatureSummary, error) {
	sum, err := scanSummary(s.q.QueryRowContext(ctx, getSummaryFromSQL, start))
	if err != nil {
		return types.TemperatureSummary{}, fmt.Errorf("query summary from %s: %w", start, err)
	}
	sum.Start = start
	return sum, nil
}

func (s *session) GetSummaryRange(ctx context.Context, start string, end string) (types.TemperatureSummary, error) {
	sum, err := scanSummary(s.q.QueryRowContext(ctx, getSummaryRangeSQL, start, end))
	if err != nil {
		return types.TemperatureSummary{}, fmt.Errorf("query summary %s..%s: %w", start, end, err)
	}
	sum.Start = start
	sum.End = end
	return sum, nil
}

func (s *session) GetDatasetCounts(ctx context.Context) (int, int, error) {
	var stations, observations int
	if err := s.q.QueryRowContext(ctx, getDatasetCountsSQL).Scan(&stations, &observations); err != nil {
		return 0, 0, fmt.Errorf("query dataset counts: %w", err)
	}
	return stations, observations, nil
}

func scanSummary(row *sql.Row) (types.TemperatureSummary, error) {
	var (
		minT, avgT, maxT sql.NullFloat64
		sum              types.TemperatureSummary
	)
	if err := row.Scan(&minT, &avgT, &maxT, &sum.Count); err != nil {
		return types.TemperatureSummary{}, err
	}
	sum.Min = nullableFloat(minT)
	sum.Avg = nullableFloat(avgT)
	sum.Max = nullableFloat(maxT)
	return sum, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close rows", "rows", what, "error", err)
	}
}
