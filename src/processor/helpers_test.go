package processor

import (
	"path/filepath"
	"testing"

	"FlightWeatherPipeline/src/config"
	"FlightWeatherPipeline/src/storage"
)

func testLogger(t *testing.T) *storage.Logger {
	t.Helper()
	log, err := storage.NewLogger(filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("open test logger: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

// testConfig points every path into dir so tests stay self-contained.
func testConfig(dir string) *config.Config {
	return &config.Config{
		Paths: config.PathsConfig{
			ExtractedFlightData: dir,
			ExtractedNoaaData:   dir,
			ProcessedFlightData: dir,
			ProcessedNoaaData:   dir,
			AirportStationData:  filepath.Join(dir, "airport_station.csv"),
			FinalByYear:         dir,
			FinalTrain:          filepath.Join(dir, "train_data.parquet"),
			FinalTest:           filepath.Join(dir, "test_data.parquet"),
		},
		NoaaData: config.NoaaDataConfig{
			Elements:        []string{"PRCP", "SNOW", "SNWD", "TMAX", "TMIN"},
			ZeroOutElements: []string{"PRCP", "SNOW", "SNWD"},
		},
		FinalData: config.FinalDataConfig{
			TestFraction:    0.2,
			Seed:            42,
			HolidayWindow:   3,
			DayWindows:      []int{7, 30},
			SequenceWindows: []int{10, 50, 100},
		},
	}
}

func fptr(v float64) *float64 { return &v }
func iptr(v int32) *int32     { return &v }
