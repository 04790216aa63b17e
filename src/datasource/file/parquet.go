// Package file moves tables between disk and gota dataframes. Fixed-schema
// per-year inputs go through typed row structs; the wide engineered tables go
// through a generated column schema because their column set depends on the
// configured windows.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

const parquetParallel = 4

// FlightRow is one cleaned flight record. Scheduled times are
// minutes-since-midnight; nullable attributes are pointers so parquet keeps
// them OPTIONAL.
type FlightRow struct {
	FlightID        string   `parquet:"name=FlightID, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	FlightDate      string   `parquet:"name=FlightDate, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Airline         string   `parquet:"name=Airline, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Origin          string   `parquet:"name=Origin, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Dest            string   `parquet:"name=Dest, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CRSDepTime      int32    `parquet:"name=CRSDepTime, type=INT32"`
	CRSArrTime      *int32   `parquet:"name=CRSArrTime, type=INT32, repetitiontype=OPTIONAL"`
	DepDelayMinutes *float64 `parquet:"name=DepDelayMinutes, type=DOUBLE, repetitiontype=OPTIONAL"`
	DepDel15        *float64 `parquet:"name=DepDel15, type=DOUBLE, repetitiontype=OPTIONAL"`
	AirTime         *float64 `parquet:"name=AirTime, type=DOUBLE, repetitiontype=OPTIONAL"`
	Distance        *float64 `parquet:"name=Distance, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// WeatherRow is one station-day of reshaped NOAA readings, already remapped to
// an airport code.
type WeatherRow struct {
	Station string   `parquet:"name=STATION, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Date    string   `parquet:"name=DATE, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Prcp    *float64 `parquet:"name=PRCP, type=DOUBLE, repetitiontype=OPTIONAL"`
	Snow    *float64 `parquet:"name=SNOW, type=DOUBLE, repetitiontype=OPTIONAL"`
	Snwd    *float64 `parquet:"name=SNWD, type=DOUBLE, repetitiontype=OPTIONAL"`
	Tmax    *float64 `parquet:"name=TMAX, type=DOUBLE, repetitiontype=OPTIONAL"`
	Tmin    *float64 `parquet:"name=TMIN, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// RawFlightRow mirrors the schema the extraction step leaves on disk.
// Scheduled times are still raw military hhmm values here.
type RawFlightRow struct {
	FlightDate      string   `parquet:"name=FlightDate, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Airline         string   `parquet:"name=Airline, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Origin          string   `parquet:"name=Origin, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Dest            string   `parquet:"name=Dest, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CRSDepTime      *int32   `parquet:"name=CRSDepTime, type=INT32, repetitiontype=OPTIONAL"`
	CRSArrTime      *int32   `parquet:"name=CRSArrTime, type=INT32, repetitiontype=OPTIONAL"`
	DepDelayMinutes *float64 `parquet:"name=DepDelayMinutes, type=DOUBLE, repetitiontype=OPTIONAL"`
	DepDel15        *float64 `parquet:"name=DepDel15, type=DOUBLE, repetitiontype=OPTIONAL"`
	AirTime         *float64 `parquet:"name=AirTime, type=DOUBLE, repetitiontype=OPTIONAL"`
	Distance        *float64 `parquet:"name=Distance, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// ReadFlightRaw loads one year of extracted (uncleaned) flight records.
func ReadFlightRaw(path string) ([]RawFlightRow, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(RawFlightRow), parquetParallel)
	if err != nil {
		return nil, fmt.Errorf("read parquet schema %s: %w", path, err)
	}
	defer pr.ReadStop()

	rows := make([]RawFlightRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read raw flight rows %s: %w", path, err)
	}
	return rows, nil
}

// WriteFlightRaw persists extracted flight records (test fixtures and the
// extraction collaborator use this shape).
func WriteFlightRaw(path string, rows []RawFlightRow) error {
	return writeTyped(path, new(RawFlightRow), func(pw *writer.ParquetWriter) error {
		for i := range rows {
			if err := pw.Write(rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteFlightRows persists cleaned flight records for one year.
func WriteFlightRows(path string, rows []FlightRow) error {
	return writeTyped(path, new(FlightRow), func(pw *writer.ParquetWriter) error {
		for i := range rows {
			if err := pw.Write(rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadFlightRows loads one year of cleaned flight records.
func ReadFlightRows(path string) ([]FlightRow, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(FlightRow), parquetParallel)
	if err != nil {
		return nil, fmt.Errorf("read parquet schema %s: %w", path, err)
	}
	defer pr.ReadStop()

	rows := make([]FlightRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read flight rows %s: %w", path, err)
	}
	return rows, nil
}

// WriteWeatherRows persists reshaped weather for one year.
func WriteWeatherRows(path string, rows []WeatherRow) error {
	return writeTyped(path, new(WeatherRow), func(pw *writer.ParquetWriter) error {
		for i := range rows {
			if err := pw.Write(rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadWeatherRows loads one year of reshaped weather.
func ReadWeatherRows(path string) ([]WeatherRow, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(WeatherRow), parquetParallel)
	if err != nil {
		return nil, fmt.Errorf("read parquet schema %s: %w", path, err)
	}
	defer pr.ReadStop()

	rows := make([]WeatherRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read weather rows %s: %w", path, err)
	}
	return rows, nil
}

func writeTyped(path string, prototype interface{}, write func(*writer.ParquetWriter) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir for %s: %w", path, err)
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, prototype, parquetParallel)
	if err != nil {
		return fmt.Errorf("create parquet writer %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	if err := write(pw); err != nil {
		return fmt.Errorf("write parquet rows %s: %w", path, err)
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file %s: %w", path, err)
	}
	return nil
}

// WriteDataFrame persists a dataframe with a schema generated from its column
// types. Float columns become DOUBLE, int columns INT64, everything else
// UTF8. No index column is written.
func WriteDataFrame(df dataframe.DataFrame, path string) error {
	if df.Err != nil {
		return fmt.Errorf("dataframe in error state: %w", df.Err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir for %s: %w", path, err)
	}

	names := df.Names()
	types := df.Types()
	md := make([]string, len(names))
	for i, name := range names {
		switch types[i] {
		case series.Float:
			md[i] = fmt.Sprintf("name=%s, type=DOUBLE", name)
		case series.Int:
			md[i] = fmt.Sprintf("name=%s, type=INT64", name)
		case series.Bool:
			md[i] = fmt.Sprintf("name=%s, type=BOOLEAN", name)
		default:
			md[i] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY", name)
		}
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewCSVWriter(md, fw, parquetParallel)
	if err != nil {
		return fmt.Errorf("create parquet writer %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	// Column accessors pulled out once; element-wise Val calls are too slow at
	// this row count.
	floats := make([][]float64, len(names))
	ints := make([][]int, len(names))
	bools := make([][]bool, len(names))
	strs := make([][]string, len(names))
	for i, name := range names {
		col := df.Col(name)
		switch types[i] {
		case series.Float:
			floats[i] = col.Float()
		case series.Int:
			v, err := col.Int()
			if err != nil {
				return fmt.Errorf("int column %s: %w", name, err)
			}
			ints[i] = v
		case series.Bool:
			v, err := col.Bool()
			if err != nil {
				return fmt.Errorf("bool column %s: %w", name, err)
			}
			bools[i] = v
		default:
			strs[i] = col.Records()
		}
	}

	rec := make([]interface{}, len(names))
	for r := 0; r < df.Nrow(); r++ {
		for i := range names {
			switch types[i] {
			case series.Float:
				rec[i] = floats[i][r]
			case series.Int:
				rec[i] = int64(ints[i][r])
			case series.Bool:
				rec[i] = bools[i][r]
			default:
				rec[i] = strs[i][r]
			}
		}
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("write parquet row %d of %s: %w", r, path, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file %s: %w", path, err)
	}
	return nil
}

// ReadDataFrame loads a parquet file of unknown schema into a dataframe. Rows
// are decoded generically and handed to gota for type detection, so it only
// suits tables without nulls (the finalized outputs qualify).
func ReadDataFrame(path string) (dataframe.DataFrame, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open parquet file %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, parquetParallel)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read parquet schema %s: %w", path, err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	raw, err := pr.ReadByNumber(num)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read parquet rows %s: %w", path, err)
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("decode parquet rows %s: %w", path, err)
	}
	var maps []map[string]interface{}
	if err := json.Unmarshal(buf, &maps); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("decode parquet rows %s: %w", path, err)
	}

	df := dataframe.LoadMaps(maps)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build dataframe from %s: %w", path, df.Err)
	}
	return df, nil
}
