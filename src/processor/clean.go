package processor

import (
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"FlightWeatherPipeline/src/config"
	"FlightWeatherPipeline/src/datasource/file"
	"FlightWeatherPipeline/src/storage"
	"FlightWeatherPipeline/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// FlightCleaner turns one year of extracted flight records into the cleaned
// per-year table: dates normalized, military times validated and converted to
// minutes-since-midnight, DepDel15 derived where absent, and a stable md5
// FlightID attached.
type FlightCleaner struct {
	cfg *config.Config
	log *storage.Logger
}

func NewFlightCleaner(cfg *config.Config, log *storage.Logger) *FlightCleaner {
	return &FlightCleaner{cfg: cfg, log: log}
}

// Columns the cleaner can emit. The identity and ordering columns are
// mandatory; the optional ones can be dropped via flight_data.keep_columns.
var (
	requiredFlightColumns = []string{"FlightDate", "Airline", "Origin", "Dest", "CRSDepTime"}
	optionalFlightColumns = []string{"CRSArrTime", "DepDelayMinutes", "DepDel15", "AirTime", "Distance"}
)

// keepSet validates flight_data.keep_columns against the known column names.
// An empty list keeps everything and returns nil.
func (c *FlightCleaner) keepSet() (map[string]bool, error) {
	cols := c.cfg.FlightData.KeepColumns
	if len(cols) == 0 {
		return nil, nil
	}

	known := make(map[string]bool, len(requiredFlightColumns)+len(optionalFlightColumns))
	for _, n := range requiredFlightColumns {
		known[n] = true
	}
	for _, n := range optionalFlightColumns {
		known[n] = true
	}

	set := make(map[string]bool, len(cols))
	for _, n := range cols {
		if !known[n] {
			return nil, &SchemaError{File: "flight_data.keep_columns", Column: n}
		}
		set[n] = true
	}
	for _, n := range requiredFlightColumns {
		if !set[n] {
			return nil, fmt.Errorf("flight_data.keep_columns must include %s", n)
		}
	}
	return set, nil
}

// CleanYear returns the path of the cleaned file, or ErrMissingInput when the
// extracted file for that year is absent.
func (c *FlightCleaner) CleanYear(year int) (string, error) {
	srcPath := filepath.Join(c.cfg.Paths.ExtractedFlightData, fmt.Sprintf("extracted_flight_%d.parquet", year))
	dstPath := filepath.Join(c.cfg.Paths.ProcessedFlightData, fmt.Sprintf("processed_flight_%d.parquet", year))

	keep, err := c.keepSet()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(srcPath); err != nil {
		return "", fmt.Errorf("flight data for %d: %w", year, ErrMissingInput)
	}

	raw, err := file.ReadFlightRaw(srcPath)
	if err != nil {
		return "", fmt.Errorf("read raw flight data for %d: %w", year, err)
	}
	c.log.Info(fmt.Sprintf("Loaded %s raw flight rows for %d", utils.FormatCount(len(raw)), year))

	cleaned := make([]file.FlightRow, 0, len(raw))
	dropped := 0
	for i, r := range raw {
		date, ok := normalizeDate(r.FlightDate)
		if !ok {
			dropped++
			continue
		}
		depMin, ok := minutesFromMilitary(r.CRSDepTime)
		if !ok {
			// Scheduled departure orders every sequence feature downstream;
			// a row without one cannot participate.
			dropped++
			continue
		}
		arrMin := optionalMinutes(r.CRSArrTime)

		dep15 := r.DepDel15
		if dep15 == nil && r.DepDelayMinutes != nil {
			v := 0.0
			if *r.DepDelayMinutes >= 15 {
				v = 1.0
			}
			dep15 = &v
		}

		row := file.FlightRow{
			FlightID:        flightID(r.Origin, r.Dest, date, depMin, i),
			FlightDate:      date,
			Airline:         r.Airline,
			Origin:          r.Origin,
			Dest:            r.Dest,
			CRSDepTime:      depMin,
			CRSArrTime:      arrMin,
			DepDelayMinutes: r.DepDelayMinutes,
			DepDel15:        dep15,
			AirTime:         r.AirTime,
			Distance:        r.Distance,
		}
		if keep != nil {
			if !keep["CRSArrTime"] {
				row.CRSArrTime = nil
			}
			if !keep["DepDelayMinutes"] {
				row.DepDelayMinutes = nil
			}
			if !keep["DepDel15"] {
				row.DepDel15 = nil
			}
			if !keep["AirTime"] {
				row.AirTime = nil
			}
			if !keep["Distance"] {
				row.Distance = nil
			}
		}
		cleaned = append(cleaned, row)
	}
	if dropped > 0 {
		c.log.Warning(fmt.Sprintf("Dropped %s flight rows with invalid date or scheduled departure for %d", utils.FormatCount(dropped), year))
	}

	if err := file.WriteFlightRows(dstPath, cleaned); err != nil {
		return "", fmt.Errorf("write cleaned flight data for %d: %w", year, err)
	}
	c.log.Info(fmt.Sprintf("Saved cleaned flight file: %s (%s rows)", dstPath, utils.FormatCount(len(cleaned))))

	if c.cfg.FlightData.DeleteRaw {
		if err := os.Remove(srcPath); err != nil {
			c.log.Warning(fmt.Sprintf("Could not delete raw flight file %s: %v", srcPath, err))
		} else {
			c.log.Info(fmt.Sprintf("Deleted raw flight file: %s", srcPath))
		}
	}
	return dstPath, nil
}

// normalizeDate accepts YYYY-MM-DD with or without a trailing time component.
func normalizeDate(s string) (string, bool) {
	if len(s) < len(utils.DateLayout) {
		return "", false
	}
	s = s[:len(utils.DateLayout)]
	if _, err := time.Parse(utils.DateLayout, s); err != nil {
		return "", false
	}
	return s, true
}

// minutesFromMilitary converts a raw hhmm value to minutes-since-midnight.
// Values outside 0000-2359, including the literal 2400, are rejected rather
// than wrapped.
func minutesFromMilitary(v *int32) (int32, bool) {
	if v == nil {
		return 0, false
	}
	h := *v / 100
	m := *v % 100
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func optionalMinutes(v *int32) *int32 {
	min, ok := minutesFromMilitary(v)
	if !ok {
		return nil
	}
	return &min
}

// flightID derives a stable row identity from the flight's own keys plus its
// position in the source file, so duplicate schedules stay distinct.
func flightID(origin, dest, date string, depMin int32, seq int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%s|%d|%d", origin, dest, date, depMin, seq)))
	return hex.EncodeToString(sum[:])
}

// WeatherReshaper turns one year of extracted NOAA element readings into the
// per-(airport, day) wide table the merger joins against.
type WeatherReshaper struct {
	cfg     *config.Config
	log     *storage.Logger
	mapping map[string]string // station id -> airport code
}

func NewWeatherReshaper(cfg *config.Config, log *storage.Logger) (*WeatherReshaper, error) {
	r := &WeatherReshaper{cfg: cfg, log: log}
	if err := r.loadStationMapping(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *WeatherReshaper) loadStationMapping() error {
	path := r.cfg.Paths.AirportStationData
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open station mapping %s: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return fmt.Errorf("read station mapping %s: %w", path, df.Err)
	}
	for _, col := range []string{"Closest_Station", "Airport"} {
		if !utils.HasColumn(df, col) {
			return &SchemaError{File: path, Column: col}
		}
	}

	stations := df.Col("Closest_Station").Records()
	airports := df.Col("Airport").Records()
	r.mapping = make(map[string]string, len(stations))
	for i := range stations {
		r.mapping[stations[i]] = airports[i]
	}
	r.log.Info(fmt.Sprintf("Loaded %s station-airport mappings", utils.FormatCount(len(r.mapping))))
	return nil
}

// ReshapeYear streams the year's element CSV (tens of millions of narrow
// rows), keeps mapped stations and configured elements, pivots to one row per
// (airport, day), and writes the per-year parquet. Duplicate readings for the
// same element keep the first.
func (r *WeatherReshaper) ReshapeYear(year int) (string, error) {
	srcPath := filepath.Join(r.cfg.Paths.ExtractedNoaaData, fmt.Sprintf("extracted_noaa_%d.csv", year))
	dstPath := filepath.Join(r.cfg.Paths.ProcessedNoaaData, fmt.Sprintf("processed_noaa_%d.parquet", year))

	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("weather data for %d: %w", year, ErrMissingInput)
		}
		return "", fmt.Errorf("open weather data for %d: %w", year, err)
	}
	defer f.Close()

	elements := make(map[string]bool, len(r.cfg.NoaaData.Elements))
	for _, e := range r.cfg.NoaaData.Elements {
		elements[e] = true
	}

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	if _, err := cr.Read(); err != nil { // header
		return "", fmt.Errorf("read weather header for %d: %w", year, err)
	}

	type key struct{ station, date string }
	pivot := make(map[key]*file.WeatherRow)
	read := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read weather data for %d: %w", year, err)
		}
		if len(rec) < 4 {
			continue
		}
		read++

		airport, ok := r.mapping[rec[0]]
		if !ok {
			continue
		}
		element := rec[2]
		if !elements[element] {
			continue
		}
		date, err := time.Parse("20060102", rec[1])
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			continue
		}

		k := key{airport, date.Format(utils.DateLayout)}
		row, ok := pivot[k]
		if !ok {
			row = &file.WeatherRow{Station: k.station, Date: k.date}
			pivot[k] = row
		}
		setElement(row, element, value)
	}
	r.log.Info(fmt.Sprintf("Pivoted %s weather readings into %s station-days for %d",
		utils.FormatCount(read), utils.FormatCount(len(pivot)), year))

	rows := make([]file.WeatherRow, 0, len(pivot))
	for _, row := range pivot {
		for _, e := range r.cfg.NoaaData.ZeroOutElements {
			zeroOutElement(row, e)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Station != rows[j].Station {
			return rows[i].Station < rows[j].Station
		}
		return rows[i].Date < rows[j].Date
	})

	if err := file.WriteWeatherRows(dstPath, rows); err != nil {
		return "", fmt.Errorf("write reshaped weather for %d: %w", year, err)
	}
	r.log.Info(fmt.Sprintf("Saved reshaped weather file: %s", dstPath))

	if r.cfg.NoaaData.DeleteCSV {
		if err := os.Remove(srcPath); err != nil {
			r.log.Warning(fmt.Sprintf("Could not delete weather CSV %s: %v", srcPath, err))
		} else {
			r.log.Info(fmt.Sprintf("Deleted weather CSV: %s", srcPath))
		}
	}
	return dstPath, nil
}

func setElement(row *file.WeatherRow, element string, value float64) {
	v := value
	switch element {
	case "PRCP":
		if row.Prcp == nil {
			row.Prcp = &v
		}
	case "SNOW":
		if row.Snow == nil {
			row.Snow = &v
		}
	case "SNWD":
		if row.Snwd == nil {
			row.Snwd = &v
		}
	case "TMAX":
		if row.Tmax == nil {
			row.Tmax = &v
		}
	case "TMIN":
		if row.Tmin == nil {
			row.Tmin = &v
		}
	}
}

func zeroOutElement(row *file.WeatherRow, element string) {
	zero := 0.0
	switch element {
	case "PRCP":
		if row.Prcp == nil {
			row.Prcp = &zero
		}
	case "SNOW":
		if row.Snow == nil {
			row.Snow = &zero
		}
	case "SNWD":
		if row.Snwd == nil {
			row.Snwd = &zero
		}
	case "TMAX":
		if row.Tmax == nil {
			row.Tmax = &zero
		}
	case "TMIN":
		if row.Tmin == nil {
			row.Tmin = &zero
		}
	}
}
