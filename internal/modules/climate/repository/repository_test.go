package repository

import (
	"context"
	"errors"
	"testing"

	"climate-server/internal/modules/climate/climatetest"
	"climate-server/internal/modules/climate/types"
)

func withSession(t *testing.T, repo ClimateRepository, fn func(Session)) {
	t.Helper()
	err := repo.WithSession(context.Background(), func(s Session) error {
		fn(s)
		return nil
	})
	if err != nil {
		t.Fatalf("WithSession: %v", err)
	}
}

func TestNewRepository(t *testing.T) {
	repo := NewRepository(climatetest.OpenDB(t))
	if repo == nil {
		t.Fatal("NewRepository returned nil")
	}
}

func TestWithSession_PropagatesError(t *testing.T) {
	repo := NewRepository(climatetest.OpenDB(t))
	want := errors.New("stop")

	err := repo.WithSession(context.Background(), func(Session) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("WithSession error = %v, want %v", err, want)
	}
}

func TestWithSession_ReleasesConnection(t *testing.T) {
	db := climatetest.OpenDB(t)
	repo := NewRepository(db)

	for i := 0; i < 3; i++ {
		withSession(t, repo, func(s Session) {
			if _, err := s.GetStations(context.Background()); err != nil {
				t.Fatalf("GetStations: %v", err)
			}
		})
	}
	if inUse := db.Stats().InUse; inUse != 0 {
		t.Errorf("connections in use after sessions = %d, want 0", inUse)
	}
}

func TestWithSession_CanceledContext(t *testing.T) {
	repo := NewRepository(climatetest.OpenDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.WithSession(ctx, func(Session) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("WithSession error = nil, want context error")
	}
	if called {
		t.Error("fn ran on a canceled context")
	}
}

func TestGetPrecipitation(t *testing.T) {
	repo := NewRepository(climatetest.OpenSeeded(t))

	withSession(t, repo, func(s Session) {
		got, err := s.GetPrecipitation(context.Background())
		if err != nil {
			t.Fatalf("GetPrecipitation: %v", err)
		}
		if len(got) != len(climatetest.Measurements) {
			t.Fatalf("rows = %d, want %d", len(got), len(climatetest.Measurements))
		}
		for i, m := range climatetest.Measurements {
			if got[i].Date != m.Date {
				t.Errorf("[%d] Date = %q, want %q", i, got[i].Date, m.Date)
			}
			switch {
			case m.Prcp == nil && got[i].Prcp != nil:
				t.Errorf("[%d] Prcp = %v, want nil", i, *got[i].Prcp)
			case m.Prcp != nil && (got[i].Prcp == nil || *got[i].Prcp != *m.Prcp):
				t.Errorf("[%d] Prcp = %v, want %v", i, got[i].Prcp, *m.Prcp)
			}
		}
	})
}

func TestGetPrecipitation_Empty(t *testing.T) {
	repo := NewRepository(climatetest.OpenDB(t))

	withSession(t, repo, func(s Session) {
		got, err := s.GetPrecipitation(context.Background())
		if err != nil {
			t.Fatalf("GetPrecipitation: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("GetPrecipitation = %#v, want empty non-nil slice", got)
		}
	})
}

func TestGetStations(t *testing.T) {
	repo := NewRepository(climatetest.OpenSeeded(t))

	withSession(t, repo, func(s Session) {
		got, err := s.GetStations(context.Background())
		if err != nil {
			t.Fatalf("GetStations: %v", err)
		}
		if len(got) != len(climatetest.Stations) {
			t.Fatalf("stations = %d, want %d", len(got), len(climatetest.Stations))
		}
		for i, st := range climatetest.Stations {
			want := types.Station{Station: st.Station, Name: st.Name}
			if got[i] != want {
				t.Errorf("[%d] = %+v, want %+v", i, got[i], want)
			}
		}
	})
}

func TestGetLatestDateAndBounds(t *testing.T) {
	t.Run("seeded", func(t *testing.T) {
		repo := NewRepository(climatetest.OpenSeeded(t))
		withSession(t, repo, func(s Session) {
			latest, ok, err := s.GetLatestDate(context.Background())
			if err != nil || !ok {
				t.Fatalf("GetLatestDate = (%q, %v, %v)", latest, ok, err)
			}
			if latest != "2017-08-23" {
				t.Errorf("latest = %q, want 2017-08-23", latest)
			}

			bounds, err := s.GetDateBounds(context.Background())
			if err != nil {
				t.Fatalf("GetDateBounds: %v", err)
			}
			want := types.DateBounds{First: "2010-01-01", Last: "2017-08-23"}
			if bounds != want {
				t.Errorf("bounds = %+v, want %+v", bounds, want)
			}
		})
	})

	t.Run("empty", func(t *testing.T) {
		repo := NewRepository(climatetest.OpenDB(t))
		withSession(t, repo, func(s Session) {
			_, ok, err := s.GetLatestDate(context.Background())
			if err != nil {
				t.Fatalf("GetLatestDate: %v", err)
			}
			if ok {
				t.Error("GetLatestDate ok = true on empty table")
			}

			bounds, err := s.GetDateBounds(context.Background())
			if err != nil {
				t.Fatalf("GetDateBounds: %v", err)
			}
			if !bounds.Empty {
				t.Errorf("bounds = %+v, want Empty", bounds)
			}
		})
	})
}

func TestGetMostActiveStation(t *testing.T) {
	t.Run("highest count wins", func(t *testing.T) {
		repo := NewRepository(climatetest.OpenSeeded(t))
		withSession(t, repo, func(s Session) {
			got, ok, err := s.GetMostActiveStation(context.Background())
			if err != nil || !ok {
				t.Fatalf("GetMostActiveStation = (%+v, %v, %v)", got, ok, err)
			}
			want := types.StationActivity{Station: "USC00519281", Observations: 4}
			if got != want {
				t.Errorf("most active = %+v, want %+v", got, want)
			}
		})
	})

	t.Run("ties break on station id", func(t *testing.T) {
		db := climatetest.OpenDB(t)
		climatetest.Seed(t, db, nil, []climatetest.MeasurementRow{
			{Station: "USC00519523", Date: "2017-01-01", Tobs: 70},
			{Station: "USC00519523", Date: "2017-01-02", Tobs: 71},
			{Station: "USC00514830", Date: "2017-01-01", Tobs: 72},
			{Station: "USC00514830", Date: "2017-01-02", Tobs: 73},
			{Station: "USC00517948", Date: "2017-01-01", Tobs: 74},
		})
		repo := NewRepository(db)
		withSession(t, repo, func(s Session) {
			got, _, err := s.GetMostActiveStation(context.Background())
			if err != nil {
				t.Fatalf("GetMostActiveStation: %v", err)
			}
			if got.Station != "USC00514830" {
				t.Errorf("most active = %q, want USC00514830", got.Station)
			}
		})
	})

	t.Run("empty", func(t *testing.T) {
		repo := NewRepository(climatetest.OpenDB(t))
		withSession(t, repo, func(s Session) {
			_, ok, err := s.GetMostActiveStation(context.Background())
			if err != nil {
				t.Fatalf("GetMostActiveStation: %v", err)
			}
			if ok {
				t.Error("ok = true on empty table")
			}
		})
	})
}

func TestGetStationObservations(t *testing.T) {
	repo := NewRepository(climatetest.OpenSeeded(t))

	withSession(t, repo, func(s Session) {
		got, err := s.GetStationObservations(context.Background(), "USC00519281", "2016-08-23")
		if err != nil {
			t.Fatalf("GetStationObservations: %v", err)
		}
		wantDates := []string{"2016-08-23", "2017-01-01", "2017-08-18"}
		wantTobs := []float64{77, 66.5, 79}
		if len(got) != len(wantDates) {
			t.Fatalf("observations = %d, want %d", len(got), len(wantDates))
		}
		for i := range wantDates {
			if got[i].Date != wantDates[i] {
				t.Errorf("[%d] Date = %q, want %q", i, got[i].Date, wantDates[i])
			}
			if got[i].Tobs == nil || *got[i].Tobs != wantTobs[i] {
				t.Errorf("[%d] Tobs = %v, want %v", i, got[i].Tobs, wantTobs[i])
			}
		}
	})
}

func TestGetSummaryFromAndRange(t *testing.T) {
	repo := NewRepository(climatetest.OpenSeeded(t))

	withSession(t, repo, func(s Session) {
		from, err := s.GetSummaryFrom(context.Background(), "2017-01-01")
		if err != nil {
			t.Fatalf("GetSummaryFrom: %v", err)
		}
		if from.Start != "2017-01-01" || from.End != "" {
			t.Errorf("range = %q..%q", from.Start, from.End)
		}
		if from.Count != 4 || *from.Min != 66.5 || *from.Max != 81 || *from.Avg != 75.625 {
			t.Errorf("summary = count %d min %v avg %v max %v", from.Count, *from.Min, *from.Avg, *from.Max)
		}

		rng, err := s.GetSummaryRange(context.Background(), "2016-08-23", "2017-01-01")
		if err != nil {
			t.Fatalf("GetSummaryRange: %v", err)
		}
		if rng.End != "2017-01-01" || rng.Count != 3 {
			t.Errorf("range summary = %+v", rng)
		}
		if *rng.Min != 66.5 || *rng.Max != 81 {
			t.Errorf("min/max = %v/%v, want 66.5/81", *rng.Min, *rng.Max)
		}
		if *rng.Avg < *rng.Min || *rng.Avg > *rng.Max {
			t.Errorf("avg %v outside [%v, %v]", *rng.Avg, *rng.Min, *rng.Max)
		}
	})
}

func TestGetSummaryFrom_NoRows(t *testing.T) {
	repo := NewRepository(climatetest.OpenSeeded(t))

	withSession(t, repo, func(s Session) {
		got, err := s.GetSummaryFrom(context.Background(), "2099-01-01")
		if err != nil {
			t.Fatalf("GetSummaryFrom: %v", err)
		}
		if got.Count != 0 || got.Min != nil || got.Avg != nil || got.Max != nil {
			t.Errorf("summary = %+v, want zero count and nil aggregates", got)
		}
	})
}

func TestGetDatasetCounts(t *testing.T) {
	repo := NewRepository(climatetest.OpenSeeded(t))

	withSession(t, repo, func(s Session) {
		stations, observations, err := s.GetDatasetCounts(context.Background())
		if err != nil {
			t.Fatalf("GetDatasetCounts: %v", err)
		}
		if stations != 3 || observations != 8 {
			t.Errorf("counts = %d/%d, want 3/8", stations, observations)
		}
	})
}
