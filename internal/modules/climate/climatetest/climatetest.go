// Package climatetest provides an in-memory climate database for tests.
package climatetest

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"climate-server/internal/migrate"
)

type StationRow struct {
	Station   string
	Name      string
	Latitude  float64
	Longitude float64
	Elevation float64
}

type MeasurementRow struct {
	Station string
	Date    string
	Prcp    *float64
	Tobs    float64
}

// Stations is the fixture station list, in insertion order.
var Stations = []StationRow{
	{Station: "USC00519397", Name: "WAIKIKI 717.2, HI US", Latitude: 21.2716, Longitude: -157.8168, Elevation: 3.0},
	{Station: "USC00519281", Name: "WAIHEE 837.5, HI US", Latitude: 21.45167, Longitude: -157.84889, Elevation: 32.9},
	{Station: "USC00513117", Name: "KANEOHE 838.1, HI US", Latitude: 21.4234, Longitude: -157.8015, Elevation: 14.6},
}

// Measurements spans 2010-01-01..2017-08-23. USC00519281 has the most rows.
var Measurements = []MeasurementRow{
	{Station: "USC00519397", Date: "2010-01-01", Prcp: Float(0.08), Tobs: 65},
	{Station: "USC00519397", Date: "2016-08-23", Prcp: Float(0), Tobs: 81},
	{Station: "USC00519397", Date: "2017-08-23", Prcp: Float(0), Tobs: 81},
	{Station: "USC00519281", Date: "2016-08-22", Prcp: Float(0.4), Tobs: 77},
	{Station: "USC00519281", Date: "2016-08-23", Prcp: Float(1.79), Tobs: 77},
	{Station: "USC00519281", Date: "2017-01-01", Prcp: nil, Tobs: 66.5},
	{Station: "USC00519281", Date: "2017-08-18", Prcp: Float(0.06), Tobs: 79},
	{Station: "USC00513117", Date: "2017-08-22", Prcp: Float(0), Tobs: 76},
}

func Float(v float64) *float64 {
	return &v
}

// OpenDB returns a migrated, empty in-memory database closed at test end.
// The pool is limited to one connection so every query sees the same
// in-memory database.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	if _, err := migrate.Run(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// OpenSeeded returns an in-memory database holding the fixture rows.
func OpenSeeded(t testing.TB) *sql.DB {
	t.Helper()
	db := OpenDB(t)
	Seed(t, db, Stations, Measurements)
	return db
}

func Seed(t testing.TB, db *sql.DB, stations []StationRow, measurements []MeasurementRow) {
	t.Helper()
	for _, s := range stations {
		if _, err := db.Exec(
			`INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`,
			s.Station, s.Name, s.Latitude, s.Longitude, s.Elevation,
		); err != nil {
			t.Fatalf("insert station %s: %v", s.Station, err)
		}
	}
	for _, m := range measurements {
		var prcp any
		if m.Prcp != nil {
			prcp = *m.Prcp
		}
		if _, err := db.Exec(
			`INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`,
			m.Station, m.Date, prcp, m.Tobs,
		); err != nil {
			t.Fatalf("insert measurement %s %s: %v", m.Station, m.Date, err)
		}
	}
}
