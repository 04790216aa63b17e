package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the pipeline. It is built once by Load and
// passed explicitly into each component; there is no package-level state.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Overall    OverallConfig    `yaml:"overall"`
	FlightData FlightDataConfig `yaml:"flight_data"`
	NoaaData   NoaaDataConfig   `yaml:"noaa_data"`
	FinalData  FinalDataConfig  `yaml:"final_data"`
}

type PathsConfig struct {
	ExtractedFlightData string `yaml:"extracted_flight_data"`
	ExtractedNoaaData   string `yaml:"extracted_noaa_data"`
	ProcessedFlightData string `yaml:"processed_flight_data"`
	ProcessedNoaaData   string `yaml:"processed_noaa_data"`
	AirportStationData  string `yaml:"airport_station_data"`
	FinalByYear         string `yaml:"final_by_year"`
	FinalTrain          string `yaml:"final_train"`
	FinalTest           string `yaml:"final_test"`
	ReportFile          string `yaml:"report_file"`
	LogName             string `yaml:"log_name"`
}

type OverallConfig struct {
	Years      []int `yaml:"years"`
	MaxWorkers int   `yaml:"max_workers"`
}

type FlightDataConfig struct {
	DeleteRaw   bool     `yaml:"delete_raw"`
	KeepColumns []string `yaml:"keep_columns"`
}

type NoaaDataConfig struct {
	Elements        []string `yaml:"elements"`
	ZeroOutElements []string `yaml:"zero_out_elements"`
	DeleteCSV       bool     `yaml:"delete_csv"`
}

type FinalDataConfig struct {
	DeleteProcessed bool     `yaml:"delete_processed"`
	DeleteMerged    bool     `yaml:"delete_merged"`
	TestFraction    float64  `yaml:"test_fraction"`
	Seed            int64    `yaml:"seed"`
	HolidayWindow   int      `yaml:"holiday_window"`
	DayWindows      []int    `yaml:"day_windows"`
	SequenceWindows []int    `yaml:"sequence_windows"`
	ScaleExclude    []string `yaml:"scale_exclude"`
	TargetEncode    []string `yaml:"target_encode"`
	LogMaxSize      string   `yaml:"log_max_size"`
}

// Load reads the given YAML files in order and merges them by top-level key,
// last file wins on conflicts, then decodes the merged mapping into a Config.
// Missing tunables get defaults.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no config files given")
	}

	merged := make(map[string]interface{})
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		for k, v := range doc {
			merged[k] = v
		}
	}

	// Round-trip the merged mapping through YAML so the typed decoding sees
	// the final view, not any single file.
	buf, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("re-encode merged config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("decode merged config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadDir loads every .yaml file directly under dir, in lexical order.
func LoadDir(dir string) (*Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no yaml files in %s", dir)
	}
	return Load(files...)
}

func (c *Config) applyDefaults() {
	if c.Overall.MaxWorkers <= 0 {
		c.Overall.MaxWorkers = runtime.NumCPU()
	}
	if c.FinalData.TestFraction <= 0 || c.FinalData.TestFraction >= 1 {
		c.FinalData.TestFraction = 0.2
	}
	if c.FinalData.Seed == 0 {
		c.FinalData.Seed = 42
	}
	if c.FinalData.HolidayWindow <= 0 {
		c.FinalData.HolidayWindow = 3
	}
	if len(c.FinalData.DayWindows) == 0 {
		c.FinalData.DayWindows = []int{7, 30}
	}
	if len(c.FinalData.SequenceWindows) == 0 {
		c.FinalData.SequenceWindows = []int{10, 50, 100}
	}
	if len(c.NoaaData.Elements) == 0 {
		c.NoaaData.Elements = []string{"PRCP", "SNOW", "SNWD", "TMAX", "TMIN"}
	}
	if len(c.NoaaData.ZeroOutElements) == 0 {
		c.NoaaData.ZeroOutElements = []string{"PRCP", "SNOW", "SNWD"}
	}
	if len(c.FinalData.TargetEncode) == 0 {
		c.FinalData.TargetEncode = []string{
			"Airline", "Origin", "Dest",
			"DepTimeBucket", "AirTimeBucket", "DistanceBucket",
		}
	}
	if c.FinalData.LogMaxSize == "" {
		c.FinalData.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.Paths.LogName == "" {
		c.Paths.LogName = "pipeline.log"
	}
}
