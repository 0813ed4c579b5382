package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	stationColumns     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementColumns = []string{"station", "date", "prcp", "tobs"}
)

// Options selects the CSV files to load. Either path may be empty.
type Options struct {
	StationsPath     string
	MeasurementsPath string
	Replace          bool
}

// Result reports the number of rows written per table.
type Result struct {
	Stations     int
	Measurements int
}

// ImportFiles loads the station and measurement CSV files named in opts.
// Each file is written in its own transaction.
func ImportFiles(ctx context.Context, db *sql.DB, opts Options) (Result, error) {
	var res Result
	if opts.StationsPath == "" && opts.MeasurementsPath == "" {
		return res, errors.New("no input files")
	}

	if opts.StationsPath != "" {
		n, err := importFile(ctx, db, opts.StationsPath, opts.Replace, ImportStations)
		if err != nil {
			return res, err
		}
		res.Stations = n
	}
	if opts.MeasurementsPath != "" {
		n, err := importFile(ctx, db, opts.MeasurementsPath, opts.Replace, ImportMeasurements)
		if err != nil {
			return res, err
		}
		res.Measurements = n
	}
	return res, nil
}

type importFunc func(context.Context, *sql.DB, io.Reader, bool) (int, error)

func importFile(ctx context.Context, db *sql.DB, path string, replace bool, fn importFunc) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	start := time.Now()
	n, err := fn(ctx, db, f, replace)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("csv imported", "file", path, "rows", n, "duration_ms", time.Since(start).Milliseconds())
	return n, nil
}

// ImportStations loads rows with the header station,name,latitude,longitude,elevation.
// Empty coordinates are stored as NULL.
func ImportStations(ctx context.Context, db *sql.DB, r io.Reader, replace bool) (int, error) {
	return load(ctx, db, r, "station", stationColumns, replace,
		`INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`,
		func(rec map[string]string) ([]any, error) {
			if rec["station"] == "" {
				return nil, errors.New("empty station")
			}
			lat, err := nullFloat(rec["latitude"])
			if err != nil {
				return nil, fmt.Errorf("latitude: %w", err)
			}
			lon, err := nullFloat(rec["longitude"])
			if err != nil {
				return nil, fmt.Errorf("longitude: %w", err)
			}
			elev, err := nullFloat(rec["elevation"])
			if err != nil {
				return nil, fmt.Errorf("elevation: %w", err)
			}
			return []any{rec["station"], rec["name"], lat, lon, elev}, nil
		})
}

// ImportMeasurements loads rows with the header station,date,prcp,tobs.
// date must be YYYY-MM-DD; an empty prcp or tobs is stored as NULL.
func ImportMeasurements(ctx context.Context, db *sql.DB, r io.Reader, replace bool) (int, error) {
	return load(ctx, db, r, "measurement", measurementColumns, replace,
		`INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`,
		func(rec map[string]string) ([]any, error) {
			if rec["station"] == "" {
				return nil, errors.New("empty station")
			}
			if err := validateDate(rec["date"]); err != nil {
				return nil, err
			}
			prcp, err := nullFloat(rec["prcp"])
			if err != nil {
				return nil, fmt.Errorf("prcp: %w", err)
			}
			tobs, err := nullFloat(rec["tobs"])
			if err != nil {
				return nil, fmt.Errorf("tobs: %w", err)
			}
			return []any{rec["station"], rec["date"], prcp, tobs}, nil
		})
}

func load(
	ctx context.Context,
	db *sql.DB,
	r io.Reader,
	table string,
	columns []string,
	replace bool,
	insert string,
	args func(map[string]string) ([]any, error),
) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, errors.New("missing header")
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	index, err := columnIndex(header, columns)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	rec := make(map[string]string, len(columns))
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		for name, i := range index {
			rec[name] = strings.TrimSpace(row[i])
		}
		values, err := args(rec)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("line %d: insert: %w", line, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// columnIndex maps each required column to its position in header.
// Extra columns, such as a leading id, are ignored.
func columnIndex(header, required []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	index := make(map[string]int, len(required))
	var missing []string
	for _, name := range required {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		index[name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func validateDate(s string) error {
	if len(s) != len(dateLayout) {
		return fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return nil
}

func nullFloat(s string) (sql.NullFloat64, error) {
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("invalid number %q", s)
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}
