package processor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"FlightWeatherPipeline/src/datasource/file"
)

func writeMergeFixtures(t *testing.T, dir string) {
	t.Helper()

	flights := []file.FlightRow{
		{
			FlightID: "f1", FlightDate: "2022-03-05", Airline: "AA", Origin: "JFK", Dest: "LAX",
			CRSDepTime: 390, CRSArrTime: iptr(575),
			DepDelayMinutes: fptr(20), DepDel15: fptr(1), AirTime: fptr(300), Distance: fptr(2475),
		},
		{
			// Origin unmatched, destination matched: kept with NaN origin weather.
			FlightID: "f2", FlightDate: "2022-03-05", Airline: "DL", Origin: "ZZZ", Dest: "LAX",
			CRSDepTime: 480, CRSArrTime: iptr(700),
			DepDelayMinutes: fptr(0), DepDel15: fptr(0), AirTime: fptr(290), Distance: fptr(2400),
		},
		{
			// Neither side matched: dropped.
			FlightID: "f3", FlightDate: "2022-03-05", Airline: "UA", Origin: "ZZZ", Dest: "QQQ",
			CRSDepTime: 520, CRSArrTime: iptr(740),
			DepDelayMinutes: fptr(5), DepDel15: fptr(0), AirTime: fptr(100), Distance: fptr(500),
		},
	}
	weather := []file.WeatherRow{
		{Station: "JFK", Date: "2022-03-05", Prcp: fptr(25), Snow: fptr(0), Snwd: fptr(0), Tmax: fptr(128), Tmin: fptr(44)},
		{Station: "LAX", Date: "2022-03-05", Prcp: fptr(0), Snow: fptr(0), Snwd: fptr(0), Tmax: fptr(211), Tmin: fptr(117)},
	}

	if err := file.WriteFlightRows(filepath.Join(dir, "processed_flight_2022.parquet"), flights); err != nil {
		t.Fatalf("write flights: %v", err)
	}
	if err := file.WriteWeatherRows(filepath.Join(dir, "processed_noaa_2022.parquet"), weather); err != nil {
		t.Fatalf("write weather: %v", err)
	}
}

func TestMergeYear(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeMergeFixtures(t, dir)

	merged, err := NewTabularMerger(cfg, testLogger(t)).MergeYear(2022)
	if err != nil {
		t.Fatalf("MergeYear: %v", err)
	}
	if merged.Nrow() != 2 {
		t.Fatalf("got %d merged rows, want 2 (both-unmatched flight dropped)", merged.Nrow())
	}

	ids := merged.Col("FlightID").Records()
	if ids[0] != "f1" || ids[1] != "f2" {
		t.Fatalf("merged ids = %v, want [f1 f2]", ids)
	}

	originPrcp := merged.Col("Origin_PRCP").Float()
	destTmax := merged.Col("Dest_TMAX").Float()
	if originPrcp[0] != 25 {
		t.Errorf("f1 Origin_PRCP = %v, want 25 (JFK)", originPrcp[0])
	}
	if destTmax[0] != 211 {
		t.Errorf("f1 Dest_TMAX = %v, want 211 (LAX)", destTmax[0])
	}
	// f2's origin has no weather; the origin side stays null while the
	// destination side carries LAX values.
	if !math.IsNaN(originPrcp[1]) {
		t.Errorf("f2 Origin_PRCP = %v, want NaN", originPrcp[1])
	}
	if destTmax[1] != 211 {
		t.Errorf("f2 Dest_TMAX = %v, want 211 (LAX)", destTmax[1])
	}

	if _, err := os.Stat(filepath.Join(dir, "final_2022.parquet")); err != nil {
		t.Errorf("merged file should be persisted: %v", err)
	}
}

func TestMergeYearDeleteProcessed(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.FinalData.DeleteProcessed = true
	writeMergeFixtures(t, dir)

	if _, err := NewTabularMerger(cfg, testLogger(t)).MergeYear(2022); err != nil {
		t.Fatalf("MergeYear: %v", err)
	}
	for _, name := range []string{"processed_flight_2022.parquet", "processed_noaa_2022.parquet"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be deleted after a successful merge", name)
		}
	}
}

func TestMergeYearMissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	// No flight file at all.
	_, err := NewTabularMerger(cfg, testLogger(t)).MergeYear(2022)
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("err = %v, want ErrMissingInput", err)
	}

	// Flight file present, weather file absent.
	flights := []file.FlightRow{{
		FlightID: "f1", FlightDate: "2022-03-05", Airline: "AA", Origin: "JFK", Dest: "LAX",
		CRSDepTime: 390,
	}}
	if err := file.WriteFlightRows(filepath.Join(dir, "processed_flight_2022.parquet"), flights); err != nil {
		t.Fatal(err)
	}
	_, err = NewTabularMerger(cfg, testLogger(t)).MergeYear(2022)
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("err = %v, want ErrMissingInput", err)
	}
}
