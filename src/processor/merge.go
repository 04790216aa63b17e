package processor

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"FlightWeatherPipeline/src/config"
	"FlightWeatherPipeline/src/datasource/file"
	"FlightWeatherPipeline/src/storage"
	"FlightWeatherPipeline/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// weatherElements is the fixed element order used for merged column layout.
var weatherElements = []string{"PRCP", "SNOW", "SNWD", "TMAX", "TMIN"}

// TabularMerger attaches per-(airport, day) weather to every flight of a
// year, on the origin side and the destination side independently. A flight
// that matches neither side is dropped.
type TabularMerger struct {
	cfg *config.Config
	log *storage.Logger
}

func NewTabularMerger(cfg *config.Config, log *storage.Logger) *TabularMerger {
	return &TabularMerger{cfg: cfg, log: log}
}

// MergeYear returns the year's merged table. A missing flight or weather file
// yields ErrMissingInput so the driver can skip the year without failing the
// run. The merged table is also persisted as final_<year>.parquet.
func (m *TabularMerger) MergeYear(year int) (dataframe.DataFrame, error) {
	flightPath := filepath.Join(m.cfg.Paths.ProcessedFlightData, fmt.Sprintf("processed_flight_%d.parquet", year))
	weatherPath := filepath.Join(m.cfg.Paths.ProcessedNoaaData, fmt.Sprintf("processed_noaa_%d.parquet", year))

	if _, err := os.Stat(flightPath); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("flight file for %d: %w", year, ErrMissingInput)
	}
	if _, err := os.Stat(weatherPath); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("weather file for %d: %w", year, ErrMissingInput)
	}

	flights, err := file.ReadFlightRows(flightPath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read flights for %d: %w", year, err)
	}
	weather, err := file.ReadWeatherRows(weatherPath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read weather for %d: %w", year, err)
	}
	m.log.Info(fmt.Sprintf("Merging %d: %s flights, %s station-days",
		year, utils.FormatCount(len(flights)), utils.FormatCount(len(weather))))

	// Station-day lookup; both join sides hit the same index.
	type key struct{ station, date string }
	lookup := make(map[key]*file.WeatherRow, len(weather))
	for i := range weather {
		lookup[key{weather[i].Station, weather[i].Date}] = &weather[i]
	}

	n := len(flights)
	flightID := make([]string, 0, n)
	flightDate := make([]string, 0, n)
	airline := make([]string, 0, n)
	origin := make([]string, 0, n)
	dest := make([]string, 0, n)
	depTime := make([]float64, 0, n)
	arrTime := make([]float64, 0, n)
	depDelay := make([]float64, 0, n)
	depDel15 := make([]float64, 0, n)
	airTime := make([]float64, 0, n)
	distance := make([]float64, 0, n)
	originWx := make([][]float64, len(weatherElements))
	destWx := make([][]float64, len(weatherElements))
	for i := range weatherElements {
		originWx[i] = make([]float64, 0, n)
		destWx[i] = make([]float64, 0, n)
	}

	dropped := 0
	for i := range flights {
		f := &flights[i]
		ow, okO := lookup[key{f.Origin, f.FlightDate}]
		dw, okD := lookup[key{f.Dest, f.FlightDate}]
		if !okO && !okD {
			// Expected data loss, not an error: a flight with no weather on
			// either end carries nothing for the weather-conditioned models.
			dropped++
			continue
		}

		flightID = append(flightID, f.FlightID)
		flightDate = append(flightDate, f.FlightDate)
		airline = append(airline, f.Airline)
		origin = append(origin, f.Origin)
		dest = append(dest, f.Dest)
		depTime = append(depTime, float64(f.CRSDepTime))
		arrTime = append(arrTime, optFloatFromInt(f.CRSArrTime))
		depDelay = append(depDelay, optFloat(f.DepDelayMinutes))
		depDel15 = append(depDel15, optFloat(f.DepDel15))
		airTime = append(airTime, optFloat(f.AirTime))
		distance = append(distance, optFloat(f.Distance))
		for e := range weatherElements {
			originWx[e] = append(originWx[e], elementValue(ow, weatherElements[e]))
			destWx[e] = append(destWx[e], elementValue(dw, weatherElements[e]))
		}
	}
	if dropped > 0 {
		m.log.Info(fmt.Sprintf("Dropped %s flights with no weather match on either side for %d",
			utils.FormatCount(dropped), year))
	}

	cols := []series.Series{
		series.New(flightID, series.String, "FlightID"),
		series.New(flightDate, series.String, "FlightDate"),
		series.New(airline, series.String, "Airline"),
		series.New(origin, series.String, "Origin"),
		series.New(dest, series.String, "Dest"),
		series.New(depTime, series.Float, "CRSDepTime"),
		series.New(arrTime, series.Float, "CRSArrTime"),
		series.New(depDelay, series.Float, "DepDelayMinutes"),
		series.New(depDel15, series.Float, "DepDel15"),
		series.New(airTime, series.Float, "AirTime"),
		series.New(distance, series.Float, "Distance"),
	}
	for e, elem := range weatherElements {
		cols = append(cols, series.New(originWx[e], series.Float, "Origin_"+elem))
	}
	for e, elem := range weatherElements {
		cols = append(cols, series.New(destWx[e], series.Float, "Dest_"+elem))
	}
	merged := dataframe.New(cols...)
	if merged.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build merged table for %d: %w", year, merged.Err)
	}

	mergedPath := filepath.Join(m.cfg.Paths.FinalByYear, fmt.Sprintf("final_%d.parquet", year))
	if err := file.WriteDataFrame(merged, mergedPath); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("persist merged table for %d: %w", year, err)
	}
	m.log.Info(fmt.Sprintf("Saved merged file: %s (%s rows)", mergedPath, utils.FormatCount(merged.Nrow())))

	// Source deletion only after both inputs existed and the merge succeeded.
	if m.cfg.FinalData.DeleteProcessed {
		for _, p := range []string{flightPath, weatherPath} {
			if err := os.Remove(p); err != nil {
				m.log.Warning(fmt.Sprintf("Could not delete source file %s: %v", p, err))
			} else {
				m.log.Info(fmt.Sprintf("Deleted source file: %s", p))
			}
		}
	}

	return merged, nil
}

func optFloat(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func optFloatFromInt(v *int32) float64 {
	if v == nil {
		return math.NaN()
	}
	return float64(*v)
}

func elementValue(row *file.WeatherRow, element string) float64 {
	if row == nil {
		return math.NaN()
	}
	switch element {
	case "PRCP":
		return optFloat(row.Prcp)
	case "SNOW":
		return optFloat(row.Snow)
	case "SNWD":
		return optFloat(row.Snwd)
	case "TMAX":
		return optFloat(row.Tmax)
	case "TMIN":
		return optFloat(row.Tmin)
	}
	return math.NaN()
}
