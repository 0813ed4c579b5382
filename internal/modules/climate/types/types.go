package types

// Precipitation is one measurement row reduced to its date and rainfall.
// Key order and names are part of the wire format.
type Precipitation struct {
	Date string   `json:"Date"`
	Prcp *float64 `json:"Prcp"`
}

type Station struct {
	Station string `json:"station"`
	Name    string `json:"name"`
}

type Observation struct {
	Date string
	Tobs *float64
}

// DateBounds holds the earliest and latest measurement dates. Empty is set
// when the measurement table has no rows.
type DateBounds struct {
	First string
	Last  string
	Empty bool
}

// Contains reports whether date lies within [First, Last] by string
// comparison. An empty dataset contains nothing.
func (b DateBounds) Contains(date string) bool {
	if b.Empty {
		return false
	}
	return date >= b.First && date <= b.Last
}

type StationActivity struct {
	Station      string
	Observations int
}

// TemperatureObservations is the last year of readings for the most
// active station.
type TemperatureObservations struct {
	Station      string
	From         string
	Through      string
	Observations []Observation
}

// TemperatureSummary aggregates tobs over a date range. End is empty for
// open-ended ranges. Nil aggregates mean no rows matched.
type TemperatureSummary struct {
	Start string
	End   string
	Min   *float64
	Avg   *float64
	Max   *float64
	Count int
}

// DatasetSummary describes what the database holds. It is announced over
// MQTT and printed by the CLI.
type DatasetSummary struct {
	Stations          int    `json:"stations"`
	Observations      int    `json:"observations"`
	FirstDate         string `json:"first_date,omitempty"`
	LastDate          string `json:"last_date,omitempty"`
	MostActiveStation string `json:"most_active_station,omitempty"`
}
