package file

import (
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int32) *int32     { return &v }

func TestFlightRowsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "flights.parquet")
	rows := []FlightRow{
		{
			FlightID: "f1", FlightDate: "2022-03-05", Airline: "AA", Origin: "JFK", Dest: "LAX",
			CRSDepTime: 390, CRSArrTime: iptr(575),
			DepDelayMinutes: fptr(20), DepDel15: fptr(1), AirTime: fptr(300), Distance: fptr(2475),
		},
		{
			// All optionals null.
			FlightID: "f2", FlightDate: "2022-03-06", Airline: "DL", Origin: "ATL", Dest: "ORD",
			CRSDepTime: 480,
		},
	}

	if err := WriteFlightRows(path, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFlightRows(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}

	if got[0].FlightID != "f1" || got[0].CRSDepTime != 390 {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[0].CRSArrTime == nil || *got[0].CRSArrTime != 575 {
		t.Errorf("row 0 CRSArrTime = %v, want 575", got[0].CRSArrTime)
	}
	if got[0].DepDel15 == nil || *got[0].DepDel15 != 1 {
		t.Errorf("row 0 DepDel15 = %v, want 1", got[0].DepDel15)
	}
	if got[1].CRSArrTime != nil || got[1].DepDelayMinutes != nil || got[1].Distance != nil {
		t.Errorf("row 1 optionals should stay null: %+v", got[1])
	}
}

func TestWeatherRowsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.parquet")
	rows := []WeatherRow{
		{Station: "JFK", Date: "2022-03-05", Prcp: fptr(25), Snow: fptr(0), Tmax: fptr(128)},
	}

	if err := WriteWeatherRows(path, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadWeatherRows(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].Station != "JFK" || got[0].Date != "2022-03-05" {
		t.Errorf("keys = %q %q", got[0].Station, got[0].Date)
	}
	if got[0].Prcp == nil || *got[0].Prcp != 25 {
		t.Errorf("Prcp = %v, want 25", got[0].Prcp)
	}
	if got[0].Snwd != nil || got[0].Tmin != nil {
		t.Errorf("unset elements should stay null: %+v", got[0])
	}
}

func TestDataFrameRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.parquet")
	df := dataframe.New(
		series.New([]string{"a", "b", "c"}, series.String, "ID"),
		series.New([]float64{1.5, -2.25, 0}, series.Float, "X"),
		series.New([]int{10, 20, 30}, series.Int, "N"),
	)

	if err := WriteDataFrame(df, path); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadDataFrame(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.Nrow() != 3 || got.Ncol() != 3 {
		t.Fatalf("shape = %dx%d, want 3x3", got.Nrow(), got.Ncol())
	}
	ids := got.Col("ID").Records()
	if ids[0] != "a" || ids[2] != "c" {
		t.Errorf("ID column = %v", ids)
	}
	xs := got.Col("X").Float()
	if xs[1] != -2.25 {
		t.Errorf("X[1] = %v, want -2.25", xs[1])
	}
	ns := got.Col("N").Float()
	if ns[2] != 30 {
		t.Errorf("N[2] = %v, want 30", ns[2])
	}
}
